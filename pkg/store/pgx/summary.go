package pgx

import (
	"context"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/store"
)

// UpsertContextSummary replaces the scope's summary row: summary, topics
// and source stats overwrite, metadata shallow-merges.
func (s *Storage) UpsertContextSummary(ctx context.Context, in common.ContextSummaryUpsert) (string, error) {
	if err := store.CheckSummaryUpsert(in); err != nil {
		return "", err
	}

	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO context_summaries (tenant_id, client_id, summary, topics, metadata, source_stats)
		VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::jsonb), COALESCE($6, '{}'::jsonb))
		ON CONFLICT (tenant_id, client_id) DO UPDATE SET
			summary      = EXCLUDED.summary,
			topics       = EXCLUDED.topics,
			metadata     = context_summaries.metadata || COALESCE($5, '{}'::jsonb),
			source_stats = EXCLUDED.source_stats,
			updated_at   = now()
		RETURNING id`,
		in.TenantID, in.ClientID, in.Summary, in.Topics, in.Metadata, in.SourceStats,
	).Scan(&id)
	if err != nil {
		return "", mapError(err, "upsert context summary")
	}
	return id, nil
}

func (s *Storage) GetContextSummary(ctx context.Context, scope common.Scope) (common.ContextSummary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, client_id, summary, topics, metadata, source_stats,
			created_at, updated_at
		FROM context_summaries
		WHERE tenant_id = $1 AND client_id = $2`,
		scope.TenantID, scope.ClientID,
	)

	var sum common.ContextSummary
	if err := row.Scan(&sum.ID, &sum.TenantID, &sum.ClientID, &sum.Summary, &sum.Topics,
		&sum.Metadata, &sum.SourceStats, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
		return common.ContextSummary{}, mapError(err, "context summary")
	}
	return sum, nil
}

// DeleteContextSummary removes the scope's summary, reporting whether one
// existed.
func (s *Storage) DeleteContextSummary(ctx context.Context, scope common.Scope) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM context_summaries WHERE tenant_id = $1 AND client_id = $2`,
		scope.TenantID, scope.ClientID,
	)
	if err != nil {
		return false, mapError(err, "delete context summary")
	}
	return tag.RowsAffected() > 0, nil
}
