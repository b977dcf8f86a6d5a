package store

import (
	"context"

	"github.com/lattice-kb/lattice/pkg/common"
)

// DefaultChunkPageSize is the FetchChunks page size when none is given.
const DefaultChunkPageSize = 500

// ChunkQuery selects a page of embedded chunks. ClientID filters through the
// owning document (empty selects the tenant-wide partition); DocumentID
// narrows to one document when non-empty. Paging is offset-based with no
// total count: callers stop when a page comes back short.
type ChunkQuery struct {
	TenantID   string
	ClientID   string
	DocumentID string
	Limit      int
	Offset     int
}

// NeighbourQuery bounds a one-hop walk from a node: active outgoing edges
// with weight at or above MinWeight, best-weighted first, at most Limit.
type NeighbourQuery struct {
	MinWeight float64
	Limit     int
}

// Storage is the persistence contract for the knowledge graph: documents and
// chunks, merge-on-observation nodes and edges, the evidence ledger, semantic
// search, maintenance, and the per-scope context summary.
//
// Every operation carries its scope explicitly and is atomic as a unit: a
// failed call leaves no partial mutation behind. Upserts never fail on
// "already exists" — that is the merge path.
type Storage interface {
	CreateDocument(ctx context.Context, in common.DocumentInput) (common.Document, error)
	GetDocument(ctx context.Context, tenantID, documentID string) (common.Document, error)
	DeleteDocument(ctx context.Context, tenantID, documentID string) error

	// UpsertChunk resolves by (tenant, document, chunk_index); fields
	// coalesce to existing on conflict except metadata, which shallow-merges.
	UpsertChunk(ctx context.Context, in common.ChunkUpsert) (string, error)
	GetChunk(ctx context.Context, tenantID, chunkID string) (common.Chunk, error)
	// FetchChunks returns embedded chunks joined through their owning
	// document, ordered by (document_id, chunk_index).
	FetchChunks(ctx context.Context, q ChunkQuery) ([]common.Chunk, error)

	// UpsertNode resolves by (tenant, client, node_key); each call that hits
	// an existing row bumps seen_count by exactly one, so callers must call
	// once per genuine observation.
	UpsertNode(ctx context.Context, in common.NodeUpsert) (string, error)
	// UpsertEdge resolves by (tenant, client, src, dst, rel_type) and
	// re-activates archived edges. Both endpoints must exist in scope.
	UpsertEdge(ctx context.Context, in common.EdgeUpsert) (string, error)
	GetNode(ctx context.Context, scope common.Scope, nodeID string) (common.Node, error)
	GetNodeByKey(ctx context.Context, scope common.Scope, nodeKey string) (common.Node, error)
	GetNodesByIDs(ctx context.Context, scope common.Scope, nodeIDs []string) ([]common.Node, error)
	GetEdge(ctx context.Context, scope common.Scope, edgeID string) (common.Edge, error)
	// Neighbours lists the active outgoing edges of a node per q.
	Neighbours(ctx context.Context, scope common.Scope, nodeID string, q NeighbourQuery) ([]common.Edge, error)

	AddNodeEvidence(ctx context.Context, in common.EvidenceUpsert) (string, error)
	AddEdgeEvidence(ctx context.Context, in common.EvidenceUpsert) (string, error)
	// Trim*Evidence keeps the top keep rows per subject (score desc, nulls
	// last, newest first) and reports how many rows were deleted.
	TrimNodeEvidence(ctx context.Context, scope common.Scope, keep int) (int, error)
	TrimEdgeEvidence(ctx context.Context, scope common.Scope, keep int) (int, error)

	// SearchNodes ranks active, embedded nodes of the exact scope by
	// 1 - cosine_distance to the query embedding. The client partition is
	// required here; an empty client never widens to all clients.
	SearchNodes(ctx context.Context, scope common.Scope, embedding []float32, topK int) ([]common.ScoredNode, error)

	// PruneKG runs the four maintenance steps in order: archive stale edges,
	// archive stale low-degree nodes (degree computed after step one), trim
	// edge evidence, trim node evidence. Steps are individually atomic and
	// durable; a failing step aborts the run without counts. Callers must
	// serialize runs per scope.
	PruneKG(ctx context.Context, scope common.Scope, opts common.PruneOptions) (common.PruneResult, error)

	UpsertContextSummary(ctx context.Context, in common.ContextSummaryUpsert) (string, error)
	GetContextSummary(ctx context.Context, scope common.Scope) (common.ContextSummary, error)
	DeleteContextSummary(ctx context.Context, scope common.Scope) (bool, error)
}
