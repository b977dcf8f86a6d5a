package kg

import (
	"context"
	"fmt"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/logger"
	"github.com/lattice-kb/lattice/pkg/store"
)

// Locker serializes work under a named lease. fn runs only while the lease
// is held; a lease already held elsewhere fails the call.
type Locker interface {
	WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Maintainer runs graph maintenance. Prune runs are serialized per scope
// through the locker so two passes never interleave their steps.
type Maintainer struct {
	store store.Storage
	locks Locker
}

// NewMaintainer wires maintenance over st. locks may be nil when the caller
// already guarantees one run per scope at a time.
func NewMaintainer(st store.Storage, locks Locker) *Maintainer {
	return &Maintainer{store: st, locks: locks}
}

// PruneLockKey names the lease a scope's maintenance run holds.
func PruneLockKey(scope common.Scope) string {
	return "kg:prune:" + scope.TenantID + ":" + scope.ClientID
}

// Prune archives stale edges, archives stale low-degree nodes, then trims
// edge and node evidence, in that order. Zeroed options fall back to the
// defaults field by field.
func (m *Maintainer) Prune(ctx context.Context, scope common.Scope, opts common.PruneOptions) (common.PruneResult, error) {
	if err := store.CheckScope(scope); err != nil {
		return common.PruneResult{}, err
	}
	opts = withPruneDefaults(opts)

	var res common.PruneResult
	run := func(ctx context.Context) error {
		var err error
		res, err = m.store.PruneKG(ctx, scope, opts)
		return err
	}

	var err error
	if m.locks != nil {
		err = m.locks.WithLease(ctx, PruneLockKey(scope), run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return common.PruneResult{}, fmt.Errorf("prune scope %s/%s: %w", scope.TenantID, scope.ClientID, err)
	}

	logger.Info("[KG][Prune] Maintenance pass finished",
		"tenant_id", scope.TenantID,
		"client_id", scope.ClientID,
		"edges_archived", res.EdgesArchived,
		"nodes_archived", res.NodesArchived,
		"edge_evidence_deleted", res.EdgeEvidenceDeleted,
		"node_evidence_deleted", res.NodeEvidenceDeleted)
	return res, nil
}

func withPruneDefaults(opts common.PruneOptions) common.PruneOptions {
	d := common.DefaultPruneOptions()
	if opts.EdgeStaleDays <= 0 {
		opts.EdgeStaleDays = d.EdgeStaleDays
	}
	if opts.NodeStaleDays <= 0 {
		opts.NodeStaleDays = d.NodeStaleDays
	}
	if opts.MinDegree <= 0 {
		opts.MinDegree = d.MinDegree
	}
	if opts.KeepEdgeEvidence <= 0 {
		opts.KeepEdgeEvidence = d.KeepEdgeEvidence
	}
	if opts.KeepNodeEvidence <= 0 {
		opts.KeepNodeEvidence = d.KeepNodeEvidence
	}
	return opts
}
