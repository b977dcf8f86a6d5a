package kg_test

import (
	"context"
	"testing"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store/memory"
)

var testScope = common.Scope{TenantID: "t1", ClientID: "c1"}

func vec(dims ...int) []float32 {
	v := make([]float32, kg.EmbeddingDim)
	for _, d := range dims {
		v[d] = 1
	}
	return v
}

func seedChunks(t *testing.T, st *memory.Store, embeddings [][]float32) (string, []string) {
	t.Helper()
	ctx := context.Background()

	doc, err := st.CreateDocument(ctx, common.DocumentInput{
		Scope: testScope, SourceType: "pdf", SourceURI: "s3://b/f.pdf", Title: "f",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	ids := make([]string, len(embeddings))
	for i, emb := range embeddings {
		id, err := st.UpsertChunk(ctx, common.ChunkUpsert{
			TenantID:   testScope.TenantID,
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    "chunk body text for similarity testing",
			Embedding:  emb,
		})
		if err != nil {
			t.Fatalf("upsert chunk %d: %v", i, err)
		}
		ids[i] = id
	}
	return doc.ID, ids
}

func TestBuildCreatesNodesAndSimilarityEdges(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	// Chunks 0 and 1 are identical, chunk 2 is orthogonal to both.
	docID, chunkIDs := seedChunks(t, st, [][]float32{vec(0), vec(0), vec(1)})

	res, err := kg.NewBuilder(st).Build(ctx, testScope, docID, kg.BuildConfig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if res.ChunksFetched != 3 || res.ChunksValid != 3 {
		t.Fatalf("expected 3 valid chunks, got %+v", res)
	}
	if res.NodesUpserted != 3 {
		t.Fatalf("expected one node per chunk, got %d", res.NodesUpserted)
	}
	// Identical pair links in both directions; the orthogonal chunk links to
	// nothing.
	if res.EdgesUpserted != 2 {
		t.Fatalf("expected 2 similarity edges, got %d", res.EdgesUpserted)
	}

	node, err := st.GetNodeByKey(ctx, testScope, "chunk:"+chunkIDs[0])
	if err != nil {
		t.Fatalf("get chunk node: %v", err)
	}
	if node.Type != common.ArtifactChunk {
		t.Fatalf("expected Chunk node type, got %q", node.Type)
	}
	if node.Properties["chunk_id"] != chunkIDs[0] {
		t.Fatalf("expected chunk_id property, got %v", node.Properties["chunk_id"])
	}
	if node.Description == "" {
		t.Fatalf("expected preview description")
	}
}

func TestBuildSkipsBadEmbeddings(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	docID, _ := seedChunks(t, st, [][]float32{vec(0), {1, 2, 3}})

	res, err := kg.NewBuilder(st).Build(ctx, testScope, docID, kg.BuildConfig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.ChunksFetched != 2 || res.ChunksValid != 1 || res.ChunksSkipped != 1 {
		t.Fatalf("expected one skipped chunk, got %+v", res)
	}
	if res.NodesUpserted != 1 {
		t.Fatalf("expected node for the valid chunk only, got %d", res.NodesUpserted)
	}
}

func TestBuildEmptyScope(t *testing.T) {
	st := memory.New()
	res, err := kg.NewBuilder(st).Build(context.Background(), testScope, "", kg.BuildConfig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Note == "" {
		t.Fatalf("expected explanatory note for an empty scope, got %+v", res)
	}
}

func TestBuildRerunsAreStable(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	docID, chunkIDs := seedChunks(t, st, [][]float32{vec(0), vec(0)})

	b := kg.NewBuilder(st)
	if _, err := b.Build(ctx, testScope, docID, kg.BuildConfig{}); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := b.Build(ctx, testScope, docID, kg.BuildConfig{}); err != nil {
		t.Fatalf("second build: %v", err)
	}

	node, err := st.GetNodeByKey(ctx, testScope, "chunk:"+chunkIDs[0])
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if node.SeenCount != 2 {
		t.Fatalf("expected rebuild to merge, not duplicate: seen_count %d", node.SeenCount)
	}
}
