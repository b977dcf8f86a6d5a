package pgx

import (
	"context"
	"fmt"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/store"
)

// AddNodeEvidence records one (node, chunk) justification. Re-adding the
// same pair replaces the quote and score instead of duplicating.
func (s *Storage) AddNodeEvidence(ctx context.Context, in common.EvidenceUpsert) (string, error) {
	if err := store.CheckEvidenceUpsert(in); err != nil {
		return "", err
	}
	if err := s.checkSubject(ctx, "kg_nodes", in, "node"); err != nil {
		return "", err
	}
	return s.addEvidence(ctx, "kg_node_evidence", "node_id", in)
}

// AddEdgeEvidence records one (edge, chunk) justification with the same
// replace-on-conflict behavior.
func (s *Storage) AddEdgeEvidence(ctx context.Context, in common.EvidenceUpsert) (string, error) {
	if err := store.CheckEvidenceUpsert(in); err != nil {
		return "", err
	}
	if err := s.checkSubject(ctx, "kg_edges", in, "edge"); err != nil {
		return "", err
	}
	return s.addEvidence(ctx, "kg_edge_evidence", "edge_id", in)
}

func (s *Storage) checkSubject(ctx context.Context, table string, in common.EvidenceUpsert, kind string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM `+table+`
			WHERE tenant_id = $1 AND client_id = $2 AND id = $3)`,
		in.TenantID, in.ClientID, in.SubjectID,
	).Scan(&exists); err != nil {
		return mapError(err, "check evidence subject")
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", kind, in.SubjectID, store.ErrNotFound)
	}

	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM chunks WHERE tenant_id = $1 AND id = $2)`,
		in.TenantID, in.ChunkID,
	).Scan(&exists); err != nil {
		return mapError(err, "check evidence chunk")
	}
	if !exists {
		return fmt.Errorf("chunk %s: %w", in.ChunkID, store.ErrNotFound)
	}
	return nil
}

func (s *Storage) addEvidence(ctx context.Context, table, subjectCol string, in common.EvidenceUpsert) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO `+table+` (tenant_id, client_id, `+subjectCol+`, chunk_id, quote, score)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, client_id, `+subjectCol+`, chunk_id) DO UPDATE SET
			quote = EXCLUDED.quote,
			score = EXCLUDED.score
		RETURNING id`,
		in.TenantID, in.ClientID, in.SubjectID, in.ChunkID, in.Quote, in.Score,
	).Scan(&id)
	if err != nil {
		return "", mapError(err, "add evidence")
	}
	return id, nil
}

// TrimNodeEvidence keeps the top keep rows per node and deletes the rest in
// one windowed statement.
func (s *Storage) TrimNodeEvidence(ctx context.Context, scope common.Scope, keep int) (int, error) {
	return s.trimEvidence(ctx, "kg_node_evidence", "node_id", scope, keep)
}

// TrimEdgeEvidence keeps the top keep rows per edge.
func (s *Storage) TrimEdgeEvidence(ctx context.Context, scope common.Scope, keep int) (int, error) {
	return s.trimEvidence(ctx, "kg_edge_evidence", "edge_id", scope, keep)
}

func (s *Storage) trimEvidence(ctx context.Context, table, subjectCol string, scope common.Scope, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		WITH ranked AS (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY `+subjectCol+`
				ORDER BY score DESC NULLS LAST, created_at DESC, id
			) AS rn
			FROM `+table+`
			WHERE tenant_id = $1 AND client_id = $2
		)
		DELETE FROM `+table+` e
		USING ranked r
		WHERE e.id = r.id AND r.rn > $3`,
		scope.TenantID, scope.ClientID, keep,
	)
	if err != nil {
		return 0, mapError(err, "trim evidence")
	}
	return int(tag.RowsAffected()), nil
}
