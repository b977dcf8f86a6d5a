// Package memory implements the storage contract entirely in process. It
// carries the same merge, retention and maintenance semantics as the
// Postgres backend and backs the engine's behavior tests; it is also usable
// as a throwaway backend for local experiments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store"
)

// Store is an in-memory store.Storage. All methods are safe for concurrent
// use; every call observes and leaves a consistent state.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	documents map[string]common.Document
	chunks    map[string]common.Chunk
	nodes     map[string]common.Node
	edges     map[string]common.Edge
	nodeEv    map[string]common.Evidence
	edgeEv    map[string]common.Evidence
	summaries map[string]common.ContextSummary
}

// New returns an empty store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty store reading time from now; tests use this
// to steer staleness.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:       now,
		documents: make(map[string]common.Document),
		chunks:    make(map[string]common.Chunk),
		nodes:     make(map[string]common.Node),
		edges:     make(map[string]common.Edge),
		nodeEv:    make(map[string]common.Evidence),
		edgeEv:    make(map[string]common.Evidence),
		summaries: make(map[string]common.ContextSummary),
	}
}

var _ store.Storage = (*Store)(nil)

func scopeKey(tenantID, clientID string) string {
	return tenantID + "\x00" + clientID
}

// ── Documents ────────────────────────────────────────────────────────────────

func (s *Store) CreateDocument(ctx context.Context, in common.DocumentInput) (common.Document, error) {
	if in.TenantID == "" {
		return common.Document{}, fmt.Errorf("%w: tenant_id is required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent on (tenant, client, source_uri): re-ingesting the same
	// source resolves to the existing row instead of duplicating it.
	if in.SourceURI != "" {
		for id, existing := range s.documents {
			if existing.TenantID != in.TenantID || existing.ClientID != in.ClientID ||
				existing.SourceURI != in.SourceURI {
				continue
			}
			existing.SourceType = in.SourceType
			existing.Title = in.Title
			existing.Metadata = kg.MergeMetadata(nil, in.Metadata)
			s.documents[id] = existing
			return cloneDocument(existing), nil
		}
	}

	doc := common.Document{
		ID:         uuid.NewString(),
		TenantID:   in.TenantID,
		ClientID:   in.ClientID,
		SourceType: in.SourceType,
		SourceURI:  in.SourceURI,
		Title:      in.Title,
		Metadata:   kg.MergeMetadata(nil, in.Metadata),
		CreatedAt:  s.now().UTC(),
	}
	s.documents[doc.ID] = doc
	return cloneDocument(doc), nil
}

func (s *Store) GetDocument(ctx context.Context, tenantID, documentID string) (common.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok || doc.TenantID != tenantID {
		return common.Document{}, fmt.Errorf("document %s: %w", documentID, store.ErrNotFound)
	}
	return cloneDocument(doc), nil
}

func (s *Store) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok || doc.TenantID != tenantID {
		return fmt.Errorf("document %s: %w", documentID, store.ErrNotFound)
	}
	delete(s.documents, documentID)

	for id, c := range s.chunks {
		if c.DocumentID != documentID {
			continue
		}
		delete(s.chunks, id)
		for evID, ev := range s.nodeEv {
			if ev.ChunkID == id {
				delete(s.nodeEv, evID)
			}
		}
		for evID, ev := range s.edgeEv {
			if ev.ChunkID == id {
				delete(s.edgeEv, evID)
			}
		}
	}
	return nil
}

// ── Chunks ───────────────────────────────────────────────────────────────────

func (s *Store) UpsertChunk(ctx context.Context, in common.ChunkUpsert) (string, error) {
	if err := store.CheckChunkUpsert(in); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[in.DocumentID]
	if !ok || doc.TenantID != in.TenantID {
		return "", fmt.Errorf("document %s: %w", in.DocumentID, store.ErrNotFound)
	}

	now := s.now().UTC()
	for id, c := range s.chunks {
		if c.TenantID == in.TenantID && c.DocumentID == in.DocumentID && c.ChunkIndex == in.ChunkIndex {
			s.chunks[id] = kg.MergeChunk(c, in, now)
			return id, nil
		}
	}

	chunk := kg.NewChunk(in, uuid.NewString(), now)
	s.chunks[chunk.ID] = chunk
	return chunk.ID, nil
}

func (s *Store) GetChunk(ctx context.Context, tenantID, chunkID string) (common.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chunks[chunkID]
	if !ok || c.TenantID != tenantID {
		return common.Chunk{}, fmt.Errorf("chunk %s: %w", chunkID, store.ErrNotFound)
	}
	return cloneChunk(c), nil
}

func (s *Store) FetchChunks(ctx context.Context, q store.ChunkQuery) ([]common.Chunk, error) {
	if q.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", store.ErrValidation)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultChunkPageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []common.Chunk
	for _, c := range s.chunks {
		if c.TenantID != q.TenantID || c.Embedding == nil {
			continue
		}
		doc, ok := s.documents[c.DocumentID]
		if !ok || doc.ClientID != q.ClientID {
			continue
		}
		if q.DocumentID != "" && c.DocumentID != q.DocumentID {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].DocumentID != all[j].DocumentID {
			return all[i].DocumentID < all[j].DocumentID
		}
		return all[i].ChunkIndex < all[j].ChunkIndex
	})

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]common.Chunk, len(all))
	for i, c := range all {
		out[i] = cloneChunk(c)
	}
	return out, nil
}

// ── Nodes and edges ──────────────────────────────────────────────────────────

func (s *Store) UpsertNode(ctx context.Context, in common.NodeUpsert) (string, error) {
	if err := store.CheckNodeUpsert(in); err != nil {
		return "", err
	}
	if in.Embedding != nil && !kg.ValidEmbedding(in.Embedding) {
		return "", fmt.Errorf("%w: embedding must have %d dimensions, got %d",
			store.ErrValidation, kg.EmbeddingDim, len(in.Embedding))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for id, n := range s.nodes {
		if n.TenantID == in.TenantID && n.ClientID == in.ClientID && n.NodeKey == in.NodeKey {
			s.nodes[id] = kg.MergeNode(n, in, now)
			return id, nil
		}
	}

	node := kg.NewNode(in, uuid.NewString(), now)
	s.nodes[node.ID] = node
	return node.ID, nil
}

func (s *Store) UpsertEdge(ctx context.Context, in common.EdgeUpsert) (string, error) {
	if err := store.CheckEdgeUpsert(in); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, endpoint := range []string{in.SrcID, in.DstID} {
		n, ok := s.nodes[endpoint]
		if !ok || n.TenantID != in.TenantID || n.ClientID != in.ClientID {
			return "", fmt.Errorf("edge endpoint %s: %w", endpoint, store.ErrNotFound)
		}
	}

	now := s.now().UTC()
	for id, e := range s.edges {
		if e.TenantID == in.TenantID && e.ClientID == in.ClientID &&
			e.SrcID == in.SrcID && e.DstID == in.DstID && e.RelType == in.RelType {
			s.edges[id] = kg.MergeEdge(e, in, now)
			return id, nil
		}
	}

	edge := kg.NewEdge(in, uuid.NewString(), now)
	s.edges[edge.ID] = edge
	return edge.ID, nil
}

func (s *Store) GetNode(ctx context.Context, scope common.Scope, nodeID string) (common.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok || n.TenantID != scope.TenantID || n.ClientID != scope.ClientID {
		return common.Node{}, fmt.Errorf("node %s: %w", nodeID, store.ErrNotFound)
	}
	return cloneNode(n), nil
}

func (s *Store) GetNodeByKey(ctx context.Context, scope common.Scope, nodeKey string) (common.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.nodes {
		if n.TenantID == scope.TenantID && n.ClientID == scope.ClientID && n.NodeKey == nodeKey {
			return cloneNode(n), nil
		}
	}
	return common.Node{}, fmt.Errorf("node key %q: %w", nodeKey, store.ErrNotFound)
}

func (s *Store) GetNodesByIDs(ctx context.Context, scope common.Scope, nodeIDs []string) ([]common.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		n, ok := s.nodes[id]
		if !ok || n.TenantID != scope.TenantID || n.ClientID != scope.ClientID {
			continue
		}
		out = append(out, cloneNode(n))
	}
	return out, nil
}

func (s *Store) GetEdge(ctx context.Context, scope common.Scope, edgeID string) (common.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.edges[edgeID]
	if !ok || e.TenantID != scope.TenantID || e.ClientID != scope.ClientID {
		return common.Edge{}, fmt.Errorf("edge %s: %w", edgeID, store.ErrNotFound)
	}
	return cloneEdge(e), nil
}

func (s *Store) Neighbours(ctx context.Context, scope common.Scope, nodeID string, q store.NeighbourQuery) ([]common.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []common.Edge
	for _, e := range s.edges {
		if e.TenantID != scope.TenantID || e.ClientID != scope.ClientID {
			continue
		}
		if e.SrcID != nodeID || !e.IsActive {
			continue
		}
		if e.Weight == nil || *e.Weight < q.MinWeight {
			continue
		}
		out = append(out, cloneEdge(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Weight > *out[j].Weight })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ── Evidence ─────────────────────────────────────────────────────────────────

func (s *Store) AddNodeEvidence(ctx context.Context, in common.EvidenceUpsert) (string, error) {
	if err := store.CheckEvidenceUpsert(in); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[in.SubjectID]
	if !ok || n.TenantID != in.TenantID || n.ClientID != in.ClientID {
		return "", fmt.Errorf("node %s: %w", in.SubjectID, store.ErrNotFound)
	}
	return s.addEvidenceLocked(s.nodeEv, in)
}

func (s *Store) AddEdgeEvidence(ctx context.Context, in common.EvidenceUpsert) (string, error) {
	if err := store.CheckEvidenceUpsert(in); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.edges[in.SubjectID]
	if !ok || e.TenantID != in.TenantID || e.ClientID != in.ClientID {
		return "", fmt.Errorf("edge %s: %w", in.SubjectID, store.ErrNotFound)
	}
	return s.addEvidenceLocked(s.edgeEv, in)
}

func (s *Store) addEvidenceLocked(ledger map[string]common.Evidence, in common.EvidenceUpsert) (string, error) {
	c, ok := s.chunks[in.ChunkID]
	if !ok || c.TenantID != in.TenantID {
		return "", fmt.Errorf("chunk %s: %w", in.ChunkID, store.ErrNotFound)
	}

	for id, ev := range ledger {
		if ev.TenantID == in.TenantID && ev.ClientID == in.ClientID &&
			ev.SubjectID == in.SubjectID && ev.ChunkID == in.ChunkID {
			ev.Quote = in.Quote
			ev.Score = cloneScore(in.Score)
			ledger[id] = ev
			return id, nil
		}
	}

	ev := common.Evidence{
		ID:        uuid.NewString(),
		TenantID:  in.TenantID,
		ClientID:  in.ClientID,
		SubjectID: in.SubjectID,
		ChunkID:   in.ChunkID,
		Quote:     in.Quote,
		Score:     cloneScore(in.Score),
		CreatedAt: s.now().UTC(),
	}
	ledger[ev.ID] = ev
	return ev.ID, nil
}

func (s *Store) TrimNodeEvidence(ctx context.Context, scope common.Scope, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trimEvidenceLocked(s.nodeEv, scope, keep), nil
}

func (s *Store) TrimEdgeEvidence(ctx context.Context, scope common.Scope, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trimEvidenceLocked(s.edgeEv, scope, keep), nil
}

func (s *Store) trimEvidenceLocked(ledger map[string]common.Evidence, scope common.Scope, keep int) int {
	var rows []common.Evidence
	for _, ev := range ledger {
		if ev.TenantID == scope.TenantID && ev.ClientID == scope.ClientID {
			rows = append(rows, ev)
		}
	}
	victims := kg.TrimPlan(rows, keep)
	for _, id := range victims {
		delete(ledger, id)
	}
	return len(victims)
}

// ── Search ───────────────────────────────────────────────────────────────────

func (s *Store) SearchNodes(ctx context.Context, scope common.Scope, embedding []float32, topK int) ([]common.ScoredNode, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []common.ScoredNode
	for _, n := range s.nodes {
		if n.TenantID != scope.TenantID || n.ClientID != scope.ClientID {
			continue
		}
		if n.Status != common.NodeStatusActive || n.Embedding == nil {
			continue
		}
		out = append(out, common.ScoredNode{
			Node:       cloneNode(n),
			Similarity: kg.CosineSimilarity(embedding, n.Embedding),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// ── Maintenance ──────────────────────────────────────────────────────────────

func (s *Store) PruneKG(ctx context.Context, scope common.Scope, opts common.PruneOptions) (common.PruneResult, error) {
	if err := store.CheckScope(scope); err != nil {
		return common.PruneResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var res common.PruneResult

	// Step 1: archive stale edges.
	edgeCutoff := now.AddDate(0, 0, -opts.EdgeStaleDays)
	for id, e := range s.edges {
		if e.TenantID != scope.TenantID || e.ClientID != scope.ClientID {
			continue
		}
		if e.IsActive && e.LastSeenAt.Before(edgeCutoff) {
			e.IsActive = false
			e.UpdatedAt = now
			s.edges[id] = e
			res.EdgesArchived++
		}
	}

	// Step 2: archive stale low-degree nodes. Degree counts active edges in
	// either direction and is read after step 1, so edges archived above no
	// longer protect their endpoints.
	degree := make(map[string]int)
	for _, e := range s.edges {
		if e.TenantID != scope.TenantID || e.ClientID != scope.ClientID || !e.IsActive {
			continue
		}
		degree[e.SrcID]++
		degree[e.DstID]++
	}
	nodeCutoff := now.AddDate(0, 0, -opts.NodeStaleDays)
	for id, n := range s.nodes {
		if n.TenantID != scope.TenantID || n.ClientID != scope.ClientID {
			continue
		}
		if n.Status == common.NodeStatusArchived || !n.LastSeenAt.Before(nodeCutoff) {
			continue
		}
		if degree[id] >= opts.MinDegree {
			continue
		}
		n.Status = common.NodeStatusArchived
		n.UpdatedAt = now
		s.nodes[id] = n
		res.NodesArchived++
	}

	// Steps 3 and 4: trim evidence ledgers.
	res.EdgeEvidenceDeleted = s.trimEvidenceLocked(s.edgeEv, scope, opts.KeepEdgeEvidence)
	res.NodeEvidenceDeleted = s.trimEvidenceLocked(s.nodeEv, scope, opts.KeepNodeEvidence)

	return res, nil
}

// ── Context summaries ────────────────────────────────────────────────────────

func (s *Store) UpsertContextSummary(ctx context.Context, in common.ContextSummaryUpsert) (string, error) {
	if err := store.CheckSummaryUpsert(in); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey(in.TenantID, in.ClientID)
	now := s.now().UTC()
	if existing, ok := s.summaries[key]; ok {
		s.summaries[key] = kg.MergeSummary(existing, in, now)
		return existing.ID, nil
	}

	sum := kg.NewSummary(in, uuid.NewString(), now)
	s.summaries[key] = sum
	return sum.ID, nil
}

func (s *Store) GetContextSummary(ctx context.Context, scope common.Scope) (common.ContextSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, ok := s.summaries[scopeKey(scope.TenantID, scope.ClientID)]
	if !ok {
		return common.ContextSummary{}, fmt.Errorf("context summary for %s/%s: %w",
			scope.TenantID, scope.ClientID, store.ErrNotFound)
	}
	return cloneSummary(sum), nil
}

func (s *Store) DeleteContextSummary(ctx context.Context, scope common.Scope) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey(scope.TenantID, scope.ClientID)
	if _, ok := s.summaries[key]; !ok {
		return false, nil
	}
	delete(s.summaries, key)
	return true, nil
}
