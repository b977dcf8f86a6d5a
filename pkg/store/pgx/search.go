package pgx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store"
)

// SearchNodes ranks the scope's active, embedded nodes by cosine distance
// to the query vector. Similarity is 1 - distance; results come back best
// first.
func (s *Storage) SearchNodes(ctx context.Context, scope common.Scope, embedding []float32, topK int) ([]common.ScoredNode, error) {
	if err := store.CheckSearchScope(scope); err != nil {
		return nil, err
	}
	if !kg.ValidEmbedding(embedding) {
		return nil, fmt.Errorf("%w: query embedding must have %d dimensions, got %d",
			store.ErrValidation, kg.EmbeddingDim, len(embedding))
	}
	if topK <= 0 {
		topK = 5
	}

	query := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx, `
		SELECT `+nodeColumns+`, 1 - (embedding <=> $3) AS similarity
		FROM kg_nodes
		WHERE tenant_id = $1 AND client_id = $2
			AND status = 'active'
			AND embedding IS NOT NULL
		ORDER BY embedding <=> $3
		LIMIT $4`,
		scope.TenantID, scope.ClientID, query, topK,
	)
	if err != nil {
		return nil, mapError(err, "search nodes")
	}
	defer rows.Close()

	var out []common.ScoredNode
	for rows.Next() {
		var (
			n   common.Node
			emb *pgvector.Vector
			sim float64
		)
		if err := rows.Scan(&n.ID, &n.TenantID, &n.ClientID, &n.NodeKey, &n.Type, &n.Name,
			&n.Description, &n.Properties, &emb, &n.Status, &n.SeenCount,
			&n.LastSeenAt, &n.CreatedAt, &n.UpdatedAt, &sim); err != nil {
			return nil, mapError(err, "scan search hit")
		}
		n.Embedding = embeddingOf(emb)
		out = append(out, common.ScoredNode{Node: n, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "search nodes")
	}
	return out, nil
}
