package kg_test

import (
	"context"
	"testing"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store/memory"
)

func upsertNode(t *testing.T, st *memory.Store, key string, emb []float32, props common.Properties) string {
	t.Helper()
	id, err := st.UpsertNode(context.Background(), common.NodeUpsert{
		Scope:       testScope,
		NodeKey:     key,
		Type:        common.ArtifactChunk,
		Name:        key,
		Description: "preview of " + key,
		Properties:  props,
		Embedding:   emb,
	})
	if err != nil {
		t.Fatalf("upsert node %s: %v", key, err)
	}
	return id
}

func upsertEdge(t *testing.T, st *memory.Store, src, dst string, weight float64) {
	t.Helper()
	if _, err := st.UpsertEdge(context.Background(), common.EdgeUpsert{
		Scope: testScope, SrcID: src, DstID: dst, RelType: "related_to", Weight: &weight,
	}); err != nil {
		t.Fatalf("upsert edge: %v", err)
	}
}

func TestRetrieveExpandsOneHop(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	doc, err := st.CreateDocument(ctx, common.DocumentInput{Scope: testScope, SourceType: "web"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	chunkID, err := st.UpsertChunk(ctx, common.ChunkUpsert{
		TenantID: testScope.TenantID, DocumentID: doc.ID, ChunkIndex: 0,
		Content: "the full chunk text, much longer than any preview",
	})
	if err != nil {
		t.Fatalf("upsert chunk: %v", err)
	}

	seed := upsertNode(t, st, "seed", vec(0), common.Properties{"chunk_id": chunkID})
	strong := upsertNode(t, st, "strong", nil, nil)
	weak := upsertNode(t, st, "weak", nil, nil)
	upsertEdge(t, st, seed, strong, 0.9)
	upsertEdge(t, st, seed, weak, 0.4)

	r := kg.NewRetriever(st, nil)
	hits, err := r.RetrieveByEmbedding(ctx, testScope, vec(0), kg.RetrieveConfig{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected seed plus one strong neighbour, got %d", len(hits))
	}
	if hits[0].Source != kg.SourceVector || hits[0].Node.ID != seed {
		t.Fatalf("expected seed first with vector source, got %+v", hits[0])
	}
	if hits[0].Similarity == nil {
		t.Fatalf("expected similarity on the vector seed")
	}
	if hits[0].Content != "the full chunk text, much longer than any preview" {
		t.Fatalf("expected full chunk text, got %q", hits[0].Content)
	}
	if hits[1].Source != kg.SourceGraphExpansion || hits[1].Node.ID != strong {
		t.Fatalf("expected strong neighbour via expansion, got %+v", hits[1])
	}
	if hits[1].Similarity != nil {
		t.Fatalf("expected no similarity on expanded nodes")
	}
	if hits[1].Content != "preview of strong" {
		t.Fatalf("expected description fallback, got %q", hits[1].Content)
	}
}

func TestRetrieveVectorOnlyWhenHopLimitZero(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	seed := upsertNode(t, st, "seed", vec(0), nil)
	nb := upsertNode(t, st, "nb", nil, nil)
	upsertEdge(t, st, seed, nb, 0.9)

	r := kg.NewRetriever(st, nil)
	cfg := kg.DefaultRetrieveConfig()
	cfg.HopLimit = 0

	hits, err := r.RetrieveByEmbedding(ctx, testScope, vec(0), cfg)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(hits) != 1 || hits[0].Node.ID != seed {
		t.Fatalf("expected vector seed only, got %d hits", len(hits))
	}
}

func TestRetrieveDeduplicatesSeedsAndNeighbours(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	// Both seeds embed identically and point at each other, so each is the
	// other's best neighbour; every node must still appear exactly once.
	a := upsertNode(t, st, "a", vec(0), nil)
	b := upsertNode(t, st, "b", vec(0), nil)
	upsertEdge(t, st, a, b, 0.9)
	upsertEdge(t, st, b, a, 0.9)

	r := kg.NewRetriever(st, nil)
	hits, err := r.RetrieveByEmbedding(ctx, testScope, vec(0), kg.RetrieveConfig{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	seen := map[string]int{}
	for _, h := range hits {
		seen[h.Node.ID]++
	}
	if seen[a] != 1 || seen[b] != 1 {
		t.Fatalf("expected each node exactly once, got %v", seen)
	}
}
