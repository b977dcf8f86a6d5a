package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store"
)

const nodeColumns = `id, tenant_id, client_id, node_key, type, name, description,
	properties, embedding, status, seen_count, last_seen_at, created_at, updated_at`

const edgeColumns = `id, tenant_id, client_id, src_id, dst_id, rel_type,
	weight, properties, is_active, seen_count, last_seen_at, created_at, updated_at`

// UpsertNode merges one observation in a single statement: identity fields
// overwrite, properties union through jsonb concatenation, the embedding
// coalesces, and seen_count grows by exactly one on conflict.
func (s *Storage) UpsertNode(ctx context.Context, in common.NodeUpsert) (string, error) {
	if err := store.CheckNodeUpsert(in); err != nil {
		return "", err
	}
	if in.Embedding != nil && !kg.ValidEmbedding(in.Embedding) {
		return "", fmt.Errorf("%w: embedding must have %d dimensions, got %d",
			store.ErrValidation, kg.EmbeddingDim, len(in.Embedding))
	}

	var status *string
	if in.Status != "" {
		v := string(in.Status)
		status = &v
	}

	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO kg_nodes (tenant_id, client_id, node_key, type, name, description,
			properties, embedding, status)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '{}'::jsonb), $8, COALESCE($9, 'active'))
		ON CONFLICT (tenant_id, client_id, node_key) DO UPDATE SET
			type         = EXCLUDED.type,
			name         = EXCLUDED.name,
			description  = EXCLUDED.description,
			properties   = kg_nodes.properties || COALESCE($7, '{}'::jsonb),
			embedding    = COALESCE(EXCLUDED.embedding, kg_nodes.embedding),
			status       = COALESCE($9, kg_nodes.status),
			seen_count   = kg_nodes.seen_count + 1,
			last_seen_at = now(),
			updated_at   = now()
		RETURNING id`,
		in.TenantID, in.ClientID, in.NodeKey, string(in.Type), in.Name, in.Description,
		in.Properties, vectorParam(in.Embedding), status,
	).Scan(&id)
	if err != nil {
		return "", mapError(err, "upsert node "+in.NodeKey)
	}
	return id, nil
}

// UpsertEdge merges one edge observation. Endpoint checks and the upsert
// share a transaction so an endpoint cannot vanish between them.
func (s *Storage) UpsertEdge(ctx context.Context, in common.EdgeUpsert) (string, error) {
	if err := store.CheckEdgeUpsert(in); err != nil {
		return "", err
	}

	var id string
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var endpoints int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM kg_nodes
			WHERE tenant_id = $1 AND client_id = $2 AND id = ANY($3)`,
			in.TenantID, in.ClientID, []string{in.SrcID, in.DstID},
		).Scan(&endpoints); err != nil {
			return mapError(err, "check edge endpoints")
		}
		want := 2
		if in.SrcID == in.DstID {
			want = 1
		}
		if endpoints < want {
			return fmt.Errorf("edge endpoints %s -> %s: %w", in.SrcID, in.DstID, store.ErrNotFound)
		}

		return mapError(tx.QueryRow(ctx, `
			INSERT INTO kg_edges (tenant_id, client_id, src_id, dst_id, rel_type, weight, properties)
			VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '{}'::jsonb))
			ON CONFLICT (tenant_id, client_id, src_id, dst_id, rel_type) DO UPDATE SET
				weight       = COALESCE(EXCLUDED.weight, kg_edges.weight),
				properties   = kg_edges.properties || COALESCE($7, '{}'::jsonb),
				is_active    = true,
				seen_count   = kg_edges.seen_count + 1,
				last_seen_at = now(),
				updated_at   = now()
			RETURNING id`,
			in.TenantID, in.ClientID, in.SrcID, in.DstID, in.RelType, in.Weight, in.Properties,
		).Scan(&id), "upsert edge")
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func scanNode(row pgx.Row) (common.Node, error) {
	var (
		n   common.Node
		emb *pgvector.Vector
	)
	if err := row.Scan(&n.ID, &n.TenantID, &n.ClientID, &n.NodeKey, &n.Type, &n.Name,
		&n.Description, &n.Properties, &emb, &n.Status, &n.SeenCount,
		&n.LastSeenAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return common.Node{}, err
	}
	n.Embedding = embeddingOf(emb)
	return n, nil
}

func scanEdge(row pgx.Row) (common.Edge, error) {
	var e common.Edge
	if err := row.Scan(&e.ID, &e.TenantID, &e.ClientID, &e.SrcID, &e.DstID, &e.RelType,
		&e.Weight, &e.Properties, &e.IsActive, &e.SeenCount,
		&e.LastSeenAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return common.Edge{}, err
	}
	return e, nil
}

func (s *Storage) GetNode(ctx context.Context, scope common.Scope, nodeID string) (common.Node, error) {
	n, err := scanNode(s.pool.QueryRow(ctx, `
		SELECT `+nodeColumns+` FROM kg_nodes
		WHERE tenant_id = $1 AND client_id = $2 AND id = $3`,
		scope.TenantID, scope.ClientID, nodeID,
	))
	if err != nil {
		return common.Node{}, mapError(err, "node "+nodeID)
	}
	return n, nil
}

func (s *Storage) GetNodeByKey(ctx context.Context, scope common.Scope, nodeKey string) (common.Node, error) {
	n, err := scanNode(s.pool.QueryRow(ctx, `
		SELECT `+nodeColumns+` FROM kg_nodes
		WHERE tenant_id = $1 AND client_id = $2 AND node_key = $3`,
		scope.TenantID, scope.ClientID, nodeKey,
	))
	if err != nil {
		return common.Node{}, mapError(err, "node key "+nodeKey)
	}
	return n, nil
}

// GetNodesByIDs returns the scope's nodes among nodeIDs; unknown IDs are
// silently dropped.
func (s *Storage) GetNodesByIDs(ctx context.Context, scope common.Scope, nodeIDs []string) ([]common.Node, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+nodeColumns+` FROM kg_nodes
		WHERE tenant_id = $1 AND client_id = $2 AND id = ANY($3)`,
		scope.TenantID, scope.ClientID, nodeIDs,
	)
	if err != nil {
		return nil, mapError(err, "fetch nodes")
	}
	defer rows.Close()

	var out []common.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, mapError(err, "scan node")
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "fetch nodes")
	}
	return out, nil
}

func (s *Storage) GetEdge(ctx context.Context, scope common.Scope, edgeID string) (common.Edge, error) {
	e, err := scanEdge(s.pool.QueryRow(ctx, `
		SELECT `+edgeColumns+` FROM kg_edges
		WHERE tenant_id = $1 AND client_id = $2 AND id = $3`,
		scope.TenantID, scope.ClientID, edgeID,
	))
	if err != nil {
		return common.Edge{}, mapError(err, "edge "+edgeID)
	}
	return e, nil
}

// Neighbours lists active outgoing edges at or above the weight floor,
// best-weighted first. Edges without a weight never qualify.
func (s *Storage) Neighbours(ctx context.Context, scope common.Scope, nodeID string, q store.NeighbourQuery) ([]common.Edge, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+edgeColumns+` FROM kg_edges
		WHERE tenant_id = $1 AND client_id = $2 AND src_id = $3
			AND is_active AND weight >= $4
		ORDER BY weight DESC
		LIMIT $5`,
		scope.TenantID, scope.ClientID, nodeID, q.MinWeight, limit,
	)
	if err != nil {
		return nil, mapError(err, "fetch neighbours")
	}
	defer rows.Close()

	var out []common.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, mapError(err, "scan edge")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "fetch neighbours")
	}
	return out, nil
}
