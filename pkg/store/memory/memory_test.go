package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store"
	"github.com/lattice-kb/lattice/pkg/store/memory"
)

var testScope = common.Scope{TenantID: "t1", ClientID: "c1"}

// vec returns a unit embedding with a one at each given dimension.
func vec(dims ...int) []float32 {
	v := make([]float32, kg.EmbeddingDim)
	for _, d := range dims {
		v[d] = 1
	}
	return v
}

type clock struct {
	now time.Time
}

func (c *clock) read() time.Time { return c.now }

func newStore() (*memory.Store, *clock) {
	c := &clock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	return memory.NewWithClock(c.read), c
}

func mustDocument(t *testing.T, st *memory.Store) common.Document {
	t.Helper()
	doc, err := st.CreateDocument(context.Background(), common.DocumentInput{
		Scope:      testScope,
		SourceType: "pdf",
		SourceURI:  "s3://bucket/report.pdf",
		Title:      "report",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func mustChunk(t *testing.T, st *memory.Store, docID string, idx int, emb []float32) string {
	t.Helper()
	id, err := st.UpsertChunk(context.Background(), common.ChunkUpsert{
		TenantID:   testScope.TenantID,
		DocumentID: docID,
		ChunkIndex: idx,
		Content:    "chunk content",
		Embedding:  emb,
	})
	if err != nil {
		t.Fatalf("upsert chunk: %v", err)
	}
	return id
}

func mustNode(t *testing.T, st *memory.Store, key string, emb []float32) string {
	t.Helper()
	id, err := st.UpsertNode(context.Background(), common.NodeUpsert{
		Scope:     testScope,
		NodeKey:   key,
		Type:      common.ArtifactChunk,
		Name:      key,
		Embedding: emb,
	})
	if err != nil {
		t.Fatalf("upsert node %s: %v", key, err)
	}
	return id
}

func mustEdge(t *testing.T, st *memory.Store, src, dst string, weight float64) string {
	t.Helper()
	id, err := st.UpsertEdge(context.Background(), common.EdgeUpsert{
		Scope:   testScope,
		SrcID:   src,
		DstID:   dst,
		RelType: "related_to",
		Weight:  &weight,
	})
	if err != nil {
		t.Fatalf("upsert edge: %v", err)
	}
	return id
}

func TestUpsertNodeSeenCountAndCoalesce(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	id1, err := st.UpsertNode(ctx, common.NodeUpsert{
		Scope:     testScope,
		NodeKey:   "doc:1",
		Type:      common.ArtifactPDF,
		Name:      "first",
		Embedding: vec(0),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	var id2 string
	for i := 0; i < 2; i++ {
		id2, err = st.UpsertNode(ctx, common.NodeUpsert{
			Scope:   testScope,
			NodeKey: "doc:1",
			Type:    common.ArtifactPDF,
			Name:    "updated",
		})
		if err != nil {
			t.Fatalf("re-upsert: %v", err)
		}
	}
	if id1 != id2 {
		t.Fatalf("expected stable ID across re-observations, got %s vs %s", id1, id2)
	}

	n, err := st.GetNode(ctx, testScope, id1)
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if n.SeenCount != 3 {
		t.Fatalf("expected seen_count 3 after 3 calls, got %d", n.SeenCount)
	}
	if n.Name != "updated" {
		t.Fatalf("expected name overwrite, got %q", n.Name)
	}
	if n.Embedding == nil {
		t.Fatalf("expected embedding to survive nil observations")
	}
}

func TestUpsertNodePropertyMerge(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	up := common.NodeUpsert{
		Scope: testScope, NodeKey: "k", Type: common.ArtifactWebPage, Name: "n",
		Properties: common.Properties{"a": 1},
	}
	id, err := st.UpsertNode(ctx, up)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	up.Properties = common.Properties{"a": 2, "b": 3}
	if _, err := st.UpsertNode(ctx, up); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	n, _ := st.GetNode(ctx, testScope, id)
	if n.Properties["a"] != 2 || n.Properties["b"] != 3 {
		t.Fatalf("expected shallow union {a:2 b:3}, got %v", n.Properties)
	}
}

func TestUpsertNodeValidation(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	_, err := st.UpsertNode(ctx, common.NodeUpsert{
		Scope: testScope, NodeKey: "k", Type: "Spreadsheet", Name: "n",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown type, got %v", err)
	}

	_, err = st.UpsertNode(ctx, common.NodeUpsert{
		Scope: testScope, NodeKey: "k", Type: common.ArtifactPDF, Name: "n",
		Embedding: []float32{1, 2},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad embedding width, got %v", err)
	}
}

func TestScopesAreDisjoint(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	id := mustNode(t, st, "shared-key", nil)

	other := common.Scope{TenantID: "t1", ClientID: ""}
	if _, err := st.GetNode(ctx, other, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected empty-client scope to be a distinct partition, got %v", err)
	}

	// Same key in the tenant-wide partition creates an independent node.
	otherID, err := st.UpsertNode(ctx, common.NodeUpsert{
		Scope: other, NodeKey: "shared-key", Type: common.ArtifactChunk, Name: "n",
	})
	if err != nil {
		t.Fatalf("upsert in tenant-wide partition: %v", err)
	}
	if otherID == id {
		t.Fatalf("expected distinct nodes per partition")
	}
}

func TestUpsertEdgeEndpointsAndReactivation(t *testing.T) {
	st, c := newStore()
	ctx := context.Background()

	src := mustNode(t, st, "a", nil)
	dst := mustNode(t, st, "b", nil)

	_, err := st.UpsertEdge(ctx, common.EdgeUpsert{
		Scope: testScope, SrcID: src, DstID: "missing", RelType: "related_to",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing endpoint, got %v", err)
	}

	edgeID := mustEdge(t, st, src, dst, 0.9)

	// Age the edge past the stale window and archive it.
	c.now = c.now.AddDate(0, 0, 91)
	res, err := st.PruneKG(ctx, testScope, common.DefaultPruneOptions())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if res.EdgesArchived != 1 {
		t.Fatalf("expected 1 archived edge, got %d", res.EdgesArchived)
	}

	// Re-observation resurrects it and keeps the stored weight.
	id2, err := st.UpsertEdge(ctx, common.EdgeUpsert{
		Scope: testScope, SrcID: src, DstID: dst, RelType: "related_to",
	})
	if err != nil {
		t.Fatalf("re-upsert edge: %v", err)
	}
	if id2 != edgeID {
		t.Fatalf("expected stable edge ID, got %s vs %s", id2, edgeID)
	}
	e, _ := st.GetEdge(ctx, testScope, edgeID)
	if !e.IsActive {
		t.Fatalf("expected re-observed edge to be active again")
	}
	if e.Weight == nil || *e.Weight != 0.9 {
		t.Fatalf("expected weight to coalesce to 0.9, got %v", e.Weight)
	}
	if e.SeenCount != 2 {
		t.Fatalf("expected seen_count 2, got %d", e.SeenCount)
	}
}

func TestSearchNodesFiltersAndOrder(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	close1 := mustNode(t, st, "close", vec(0))
	far := mustNode(t, st, "far", vec(1))
	mustNode(t, st, "unembedded", nil)

	// Archived nodes never match.
	archivedUp := common.NodeUpsert{
		Scope: testScope, NodeKey: "archived", Type: common.ArtifactChunk, Name: "archived",
		Embedding: vec(0), Status: common.NodeStatusArchived,
	}
	if _, err := st.UpsertNode(ctx, archivedUp); err != nil {
		t.Fatalf("upsert archived: %v", err)
	}

	// Query aligned with dim 0, slightly tilted toward dim 1.
	query := vec(0)
	query[1] = 0.2

	hits, err := st.SearchNodes(ctx, testScope, query, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Node.ID != close1 || hits[1].Node.ID != far {
		t.Fatalf("expected order [close far], got [%s %s]", hits[0].Node.ID, hits[1].Node.ID)
	}
	if hits[0].Similarity <= hits[1].Similarity {
		t.Fatalf("expected descending similarity, got %f then %f", hits[0].Similarity, hits[1].Similarity)
	}

	// The client partition is mandatory for search.
	_, err = st.SearchNodes(ctx, common.Scope{TenantID: "t1"}, query, 10)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing client, got %v", err)
	}

	_, err = st.SearchNodes(ctx, testScope, []float32{1, 2}, 10)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad query width, got %v", err)
	}
}

func TestPruneDegreeComputedAfterEdgeArchival(t *testing.T) {
	st, c := newStore()
	ctx := context.Background()

	// A is old; B and C keep it connected. E1 (A-B) goes stale, E2 (A-C)
	// stays fresh, so after step one A's degree drops to 1.
	a := mustNode(t, st, "a", nil)
	b := mustNode(t, st, "b", nil)
	cNode := mustNode(t, st, "c", nil)
	mustEdge(t, st, a, b, 0.9)

	// Make node A and edge E1 stale, then refresh E2 and B/C only.
	c.now = c.now.AddDate(0, 0, 181)
	mustEdge(t, st, a, cNode, 0.9)
	mustNode(t, st, "b", nil)
	mustNode(t, st, "c", nil)

	opts := common.DefaultPruneOptions()
	opts.MinDegree = 2

	res, err := st.PruneKG(ctx, testScope, opts)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if res.EdgesArchived != 1 {
		t.Fatalf("expected E1 archived, got %d", res.EdgesArchived)
	}
	if res.NodesArchived != 1 {
		t.Fatalf("expected A archived (degree 1 < 2 after step one), got %d", res.NodesArchived)
	}

	n, _ := st.GetNode(ctx, testScope, a)
	if n.Status != common.NodeStatusArchived {
		t.Fatalf("expected node A archived, got %q", n.Status)
	}
	fresh, _ := st.GetNode(ctx, testScope, b)
	if fresh.Status != common.NodeStatusActive {
		t.Fatalf("expected fresh node B untouched, got %q", fresh.Status)
	}
}

func TestPruneArchivesStalePendingNodes(t *testing.T) {
	st, c := newStore()
	ctx := context.Background()

	_, err := st.UpsertNode(ctx, common.NodeUpsert{
		Scope:   testScope,
		NodeKey: "pending",
		Type:    common.ArtifactChunk,
		Name:    "pending",
		Status:  common.NodeStatusPendingLinking,
	})
	if err != nil {
		t.Fatalf("upsert node: %v", err)
	}

	c.now = c.now.AddDate(0, 0, 181)
	res, err := st.PruneKG(ctx, testScope, common.DefaultPruneOptions())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	// Archival covers every non-archived status, not just active.
	if res.NodesArchived != 1 {
		t.Fatalf("expected stale pending node archived, got %d", res.NodesArchived)
	}
}

func TestPruneMinDegreeProtectsConnectedStaleNode(t *testing.T) {
	st, c := newStore()
	ctx := context.Background()

	a := mustNode(t, st, "a", nil)
	b := mustNode(t, st, "b", nil)
	cNode := mustNode(t, st, "c", nil)

	c.now = c.now.AddDate(0, 0, 181)
	// Both of A's edges are fresh, so its degree stays 2.
	mustEdge(t, st, a, b, 0.9)
	mustEdge(t, st, a, cNode, 0.9)

	opts := common.DefaultPruneOptions()
	opts.MinDegree = 2

	// A itself is stale (never re-observed since creation)...
	res, err := st.PruneKG(ctx, testScope, opts)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	// ...but B and C are stale too and only have degree 1 each.
	if res.NodesArchived != 2 {
		t.Fatalf("expected only the degree-1 endpoints archived, got %d", res.NodesArchived)
	}
	n, _ := st.GetNode(ctx, testScope, a)
	if n.Status != common.NodeStatusActive {
		t.Fatalf("expected well-connected stale node to survive, got %q", n.Status)
	}
}

func TestEvidenceLedgerTrim(t *testing.T) {
	st, c := newStore()
	ctx := context.Background()

	doc := mustDocument(t, st)
	node := mustNode(t, st, "subject", nil)

	// Six evidence rows: five scored, one unscored.
	for i := 0; i < 5; i++ {
		chunk := mustChunk(t, st, doc.ID, i, vec(i))
		score := 0.5 + float64(i)*0.05
		if _, err := st.AddNodeEvidence(ctx, common.EvidenceUpsert{
			Scope: testScope, SubjectID: node, ChunkID: chunk, Score: &score,
		}); err != nil {
			t.Fatalf("add evidence %d: %v", i, err)
		}
		c.now = c.now.Add(time.Minute)
	}
	unscoredChunk := mustChunk(t, st, doc.ID, 5, vec(5))
	if _, err := st.AddNodeEvidence(ctx, common.EvidenceUpsert{
		Scope: testScope, SubjectID: node, ChunkID: unscoredChunk,
	}); err != nil {
		t.Fatalf("add unscored evidence: %v", err)
	}

	deleted, err := st.TrimNodeEvidence(ctx, testScope, 5)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected exactly 1 row trimmed (the unscored one), got %d", deleted)
	}

	// Idempotent: a second trim has nothing left to delete.
	deleted, err = st.TrimNodeEvidence(ctx, testScope, 5)
	if err != nil {
		t.Fatalf("second trim: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected second trim to delete nothing, got %d", deleted)
	}
}

func TestEvidenceConflictReplacesQuoteAndScore(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	doc := mustDocument(t, st)
	node := mustNode(t, st, "subject", nil)
	chunk := mustChunk(t, st, doc.ID, 0, vec(0))

	s1 := 0.4
	id1, err := st.AddNodeEvidence(ctx, common.EvidenceUpsert{
		Scope: testScope, SubjectID: node, ChunkID: chunk, Quote: "old", Score: &s1,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	s2 := 0.8
	id2, err := st.AddNodeEvidence(ctx, common.EvidenceUpsert{
		Scope: testScope, SubjectID: node, ChunkID: chunk, Quote: "new", Score: &s2,
	})
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected one row per (subject, chunk), got %s vs %s", id1, id2)
	}
}

func TestPruneIdempotent(t *testing.T) {
	st, c := newStore()
	ctx := context.Background()

	a := mustNode(t, st, "a", nil)
	b := mustNode(t, st, "b", nil)
	mustEdge(t, st, a, b, 0.9)

	c.now = c.now.AddDate(0, 0, 200)
	first, err := st.PruneKG(ctx, testScope, common.DefaultPruneOptions())
	if err != nil {
		t.Fatalf("first prune: %v", err)
	}
	if first.EdgesArchived == 0 || first.NodesArchived == 0 {
		t.Fatalf("expected first prune to archive, got %+v", first)
	}

	second, err := st.PruneKG(ctx, testScope, common.DefaultPruneOptions())
	if err != nil {
		t.Fatalf("second prune: %v", err)
	}
	if second != (common.PruneResult{}) {
		t.Fatalf("expected second prune to be a no-op, got %+v", second)
	}
}

func TestChunkUpsertIdentityAndCoalesce(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()
	doc := mustDocument(t, st)

	page := 2
	id1, err := st.UpsertChunk(ctx, common.ChunkUpsert{
		TenantID: testScope.TenantID, DocumentID: doc.ID, ChunkIndex: 0,
		Content: "v1", PageStart: &page, Embedding: vec(0),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	id2, err := st.UpsertChunk(ctx, common.ChunkUpsert{
		TenantID: testScope.TenantID, DocumentID: doc.ID, ChunkIndex: 0,
		Content: "v2",
	})
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected (tenant, document, index) identity, got %s vs %s", id1, id2)
	}

	chunk, err := st.GetChunk(ctx, testScope.TenantID, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if chunk.Content != "v2" {
		t.Fatalf("expected content overwrite, got %q", chunk.Content)
	}
	if chunk.PageStart == nil || *chunk.PageStart != 2 {
		t.Fatalf("expected page_start to survive, got %v", chunk.PageStart)
	}
	if chunk.Embedding == nil {
		t.Fatalf("expected embedding to survive")
	}

	// Omitting content keeps the stored text.
	tokens := 7
	if _, err := st.UpsertChunk(ctx, common.ChunkUpsert{
		TenantID: testScope.TenantID, DocumentID: doc.ID, ChunkIndex: 0,
		ContentTokens: &tokens,
	}); err != nil {
		t.Fatalf("content-less re-upsert: %v", err)
	}
	chunk, err = st.GetChunk(ctx, testScope.TenantID, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if chunk.Content != "v2" {
		t.Fatalf("expected stored content to survive omission, got %q", chunk.Content)
	}
	if chunk.ContentTokens == nil || *chunk.ContentTokens != 7 {
		t.Fatalf("expected token count refresh, got %v", chunk.ContentTokens)
	}

	_, err = st.UpsertChunk(ctx, common.ChunkUpsert{
		TenantID: testScope.TenantID, DocumentID: "missing", ChunkIndex: 0, Content: "x",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing document, got %v", err)
	}
}

func TestFetchChunksPagingAndFilters(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()
	doc := mustDocument(t, st)

	for i := 0; i < 3; i++ {
		mustChunk(t, st, doc.ID, i, vec(i))
	}
	// Unembedded chunks never come back.
	if _, err := st.UpsertChunk(ctx, common.ChunkUpsert{
		TenantID: testScope.TenantID, DocumentID: doc.ID, ChunkIndex: 99, Content: "raw",
	}); err != nil {
		t.Fatalf("upsert unembedded: %v", err)
	}

	page, err := st.FetchChunks(ctx, store.ChunkQuery{
		TenantID: testScope.TenantID, ClientID: testScope.ClientID, Limit: 2,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page) != 2 || page[0].ChunkIndex != 0 || page[1].ChunkIndex != 1 {
		t.Fatalf("expected first page [0 1], got %+v", page)
	}

	rest, err := st.FetchChunks(ctx, store.ChunkQuery{
		TenantID: testScope.TenantID, ClientID: testScope.ClientID, Limit: 2, Offset: 2,
	})
	if err != nil {
		t.Fatalf("fetch rest: %v", err)
	}
	if len(rest) != 1 || rest[0].ChunkIndex != 2 {
		t.Fatalf("expected short last page with index 2, got %+v", rest)
	}

	// A negative offset reads from the start instead of panicking.
	neg, err := st.FetchChunks(ctx, store.ChunkQuery{
		TenantID: testScope.TenantID, ClientID: testScope.ClientID, Limit: 1, Offset: -1,
	})
	if err != nil {
		t.Fatalf("fetch with negative offset: %v", err)
	}
	if len(neg) != 1 || neg[0].ChunkIndex != 0 {
		t.Fatalf("expected clamped offset to return the first chunk, got %+v", neg)
	}

	// A different client partition sees nothing.
	none, err := st.FetchChunks(ctx, store.ChunkQuery{TenantID: testScope.TenantID, ClientID: "other"})
	if err != nil {
		t.Fatalf("fetch other client: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no chunks for another client, got %d", len(none))
	}
}

func TestCreateDocumentIdempotentOnSourceURI(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	first, err := st.CreateDocument(ctx, common.DocumentInput{
		Scope:      testScope,
		SourceType: "pdf",
		SourceURI:  "s3://bucket/report.pdf",
		Title:      "report v1",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	second, err := st.CreateDocument(ctx, common.DocumentInput{
		Scope:      testScope,
		SourceType: "pdf",
		SourceURI:  "s3://bucket/report.pdf",
		Title:      "report v2",
	})
	if err != nil {
		t.Fatalf("re-create document: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("re-ingest duplicated the document: %q vs %q", second.ID, first.ID)
	}
	if second.Title != "report v2" {
		t.Fatalf("expected refreshed title, got %q", second.Title)
	}

	// Another scope's identical URI is its own document.
	other, err := st.CreateDocument(ctx, common.DocumentInput{
		Scope:      common.Scope{TenantID: "t2", ClientID: "c1"},
		SourceType: "pdf",
		SourceURI:  "s3://bucket/report.pdf",
	})
	if err != nil {
		t.Fatalf("create document in other scope: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("documents leaked across scopes")
	}

	// Documents without a source URI stay insert-only.
	a, _ := st.CreateDocument(ctx, common.DocumentInput{Scope: testScope, SourceType: "text"})
	b, _ := st.CreateDocument(ctx, common.DocumentInput{Scope: testScope, SourceType: "text"})
	if a.ID == b.ID {
		t.Fatalf("expected distinct documents for empty source_uri")
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()
	doc := mustDocument(t, st)
	node := mustNode(t, st, "n", nil)
	chunk := mustChunk(t, st, doc.ID, 0, vec(0))
	if _, err := st.AddNodeEvidence(ctx, common.EvidenceUpsert{
		Scope: testScope, SubjectID: node, ChunkID: chunk,
	}); err != nil {
		t.Fatalf("add evidence: %v", err)
	}

	if err := st.DeleteDocument(ctx, testScope.TenantID, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetChunk(ctx, testScope.TenantID, chunk); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected cascaded chunk delete, got %v", err)
	}
	deleted, err := st.TrimNodeEvidence(ctx, testScope, 1)
	if err != nil {
		t.Fatalf("trim after cascade: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected evidence gone with the chunk, got %d trimmed", deleted)
	}

	if err := st.DeleteDocument(ctx, testScope.TenantID, doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestContextSummaryLifecycle(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	if _, err := st.GetContextSummary(ctx, testScope); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first upsert, got %v", err)
	}

	id1, err := st.UpsertContextSummary(ctx, common.ContextSummaryUpsert{
		Scope: testScope, Summary: "v1", Topics: []string{"a"},
		Metadata: map[string]any{"pinned": true},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	id2, err := st.UpsertContextSummary(ctx, common.ContextSummaryUpsert{
		Scope: testScope, Summary: "v2", Topics: []string{"b", "c"},
		Metadata: map[string]any{"model": "gpt"},
	})
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected one summary row per scope, got %s vs %s", id1, id2)
	}

	sum, err := st.GetContextSummary(ctx, testScope)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sum.Summary != "v2" || len(sum.Topics) != 2 {
		t.Fatalf("expected replaced summary and topics, got %+v", sum)
	}
	if sum.Metadata["pinned"] != true || sum.Metadata["model"] != "gpt" {
		t.Fatalf("expected metadata merge, got %v", sum.Metadata)
	}

	ok, err := st.DeleteContextSummary(ctx, testScope)
	if err != nil || !ok {
		t.Fatalf("expected delete to report true, got %v %v", ok, err)
	}
	ok, err = st.DeleteContextSummary(ctx, testScope)
	if err != nil || ok {
		t.Fatalf("expected second delete to report false, got %v %v", ok, err)
	}
}

func TestNeighboursFilterAndOrder(t *testing.T) {
	st, _ := newStore()
	ctx := context.Background()

	a := mustNode(t, st, "a", nil)
	b := mustNode(t, st, "b", nil)
	cNode := mustNode(t, st, "c", nil)
	d := mustNode(t, st, "d", nil)

	mustEdge(t, st, a, b, 0.95)
	mustEdge(t, st, a, cNode, 0.8)
	mustEdge(t, st, a, d, 0.5) // below the floor

	edges, err := st.Neighbours(ctx, testScope, a, store.NeighbourQuery{MinWeight: 0.75, Limit: 3})
	if err != nil {
		t.Fatalf("neighbours: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 qualifying edges, got %d", len(edges))
	}
	if edges[0].DstID != b || edges[1].DstID != cNode {
		t.Fatalf("expected best-weighted first, got %s then %s", edges[0].DstID, edges[1].DstID)
	}
}
