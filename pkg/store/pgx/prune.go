package pgx

import (
	"context"
	"fmt"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/store"
)

// PruneKG runs the four maintenance steps in order, each as its own
// statement, so a completed step stays durable even when a later one fails.
// A failed step aborts the run without partial counts. Callers serialize
// runs per scope; concurrent runs would double-count each other's work.
func (s *Storage) PruneKG(ctx context.Context, scope common.Scope, opts common.PruneOptions) (common.PruneResult, error) {
	if err := store.CheckScope(scope); err != nil {
		return common.PruneResult{}, err
	}

	var res common.PruneResult

	// Step 1: archive stale edges.
	tag, err := s.pool.Exec(ctx, `
		UPDATE kg_edges
		SET is_active = false, updated_at = now()
		WHERE tenant_id = $1 AND client_id = $2
			AND is_active
			AND last_seen_at < now() - make_interval(days => $3)`,
		scope.TenantID, scope.ClientID, opts.EdgeStaleDays,
	)
	if err != nil {
		return common.PruneResult{}, fmt.Errorf("archive stale edges: %w", mapError(err, "prune"))
	}
	res.EdgesArchived = int(tag.RowsAffected())

	// Step 2: archive stale low-degree nodes. Degree counts active edges in
	// either direction, read after step 1 so freshly archived edges no
	// longer protect their endpoints.
	tag, err = s.pool.Exec(ctx, `
		UPDATE kg_nodes n
		SET status = 'archived', updated_at = now()
		WHERE n.tenant_id = $1 AND n.client_id = $2
			AND n.status != 'archived'
			AND n.last_seen_at < now() - make_interval(days => $3)
			AND (
				SELECT count(*) FROM kg_edges e
				WHERE e.tenant_id = n.tenant_id AND e.client_id = n.client_id
					AND e.is_active
					AND (e.src_id = n.id OR e.dst_id = n.id)
			) < $4`,
		scope.TenantID, scope.ClientID, opts.NodeStaleDays, opts.MinDegree,
	)
	if err != nil {
		return common.PruneResult{}, fmt.Errorf("archive stale nodes: %w", mapError(err, "prune"))
	}
	res.NodesArchived = int(tag.RowsAffected())

	// Steps 3 and 4: trim the evidence ledgers.
	res.EdgeEvidenceDeleted, err = s.TrimEdgeEvidence(ctx, scope, opts.KeepEdgeEvidence)
	if err != nil {
		return common.PruneResult{}, fmt.Errorf("trim edge evidence: %w", err)
	}
	res.NodeEvidenceDeleted, err = s.TrimNodeEvidence(ctx, scope, opts.KeepNodeEvidence)
	if err != nil {
		return common.PruneResult{}, fmt.Errorf("trim node evidence: %w", err)
	}

	return res, nil
}
