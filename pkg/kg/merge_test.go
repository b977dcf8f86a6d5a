package kg

import (
	"testing"
	"time"

	"github.com/lattice-kb/lattice/pkg/common"
)

func TestMergePropertiesShallowUnion(t *testing.T) {
	prev := common.Properties{"a": 1, "keep": "x"}
	next := common.Properties{"a": 2, "b": 3}

	got := MergeProperties(prev, next)

	if got["a"] != 2 {
		t.Fatalf("expected new value to win for 'a', got %v", got["a"])
	}
	if got["b"] != 3 {
		t.Fatalf("expected new key 'b' to be added, got %v", got["b"])
	}
	if got["keep"] != "x" {
		t.Fatalf("expected unspecified key 'keep' to survive, got %v", got["keep"])
	}
	if prev["a"] != 1 {
		t.Fatalf("merge must not mutate the previous map, got %v", prev["a"])
	}
}

func TestMergePropertiesNilNext(t *testing.T) {
	prev := common.Properties{"a": 1}
	got := MergeProperties(prev, nil)
	if got["a"] != 1 {
		t.Fatalf("expected prev keys to survive a nil next, got %v", got["a"])
	}
}

func TestMergeNodeCoalescesEmbedding(t *testing.T) {
	now := time.Now()
	existing := common.Node{
		NodeKey:   "doc:1",
		Type:      common.ArtifactPDF,
		Name:      "old",
		Embedding: []float32{1, 2, 3},
		Status:    common.NodeStatusActive,
		SeenCount: 3,
	}

	merged := MergeNode(existing, common.NodeUpsert{
		NodeKey: "doc:1",
		Type:    common.ArtifactPDF,
		Name:    "new",
	}, now)

	if merged.SeenCount != 4 {
		t.Fatalf("expected seen_count 4, got %d", merged.SeenCount)
	}
	if merged.Name != "new" {
		t.Fatalf("expected name overwrite, got %q", merged.Name)
	}
	if len(merged.Embedding) != 3 {
		t.Fatalf("expected stored embedding to survive a nil observation, got %v", merged.Embedding)
	}
	if merged.Status != common.NodeStatusActive {
		t.Fatalf("expected empty status to keep existing, got %q", merged.Status)
	}
	if !merged.LastSeenAt.Equal(now) {
		t.Fatalf("expected last_seen_at bump")
	}
}

func TestMergeNodeReplacesEmbeddingWhenSupplied(t *testing.T) {
	existing := common.Node{Embedding: []float32{1}}
	merged := MergeNode(existing, common.NodeUpsert{Embedding: []float32{9, 9}}, time.Now())
	if len(merged.Embedding) != 2 {
		t.Fatalf("expected supplied embedding to replace, got %v", merged.Embedding)
	}
}

func TestNewNodeDefaults(t *testing.T) {
	n := NewNode(common.NodeUpsert{NodeKey: "k", Type: common.ArtifactWebPage, Name: "n"}, "id-1", time.Now())
	if n.SeenCount != 1 {
		t.Fatalf("expected seen_count 1 on first observation, got %d", n.SeenCount)
	}
	if n.Status != common.NodeStatusActive {
		t.Fatalf("expected default status active, got %q", n.Status)
	}
	if n.Properties == nil {
		t.Fatalf("expected non-nil properties map")
	}
}

func TestMergeEdgeReactivates(t *testing.T) {
	w := 0.9
	existing := common.Edge{
		RelType:   "related_to",
		Weight:    &w,
		IsActive:  false,
		SeenCount: 2,
	}

	merged := MergeEdge(existing, common.EdgeUpsert{RelType: "related_to"}, time.Now())

	if !merged.IsActive {
		t.Fatalf("expected re-observation to reactivate the edge")
	}
	if merged.SeenCount != 3 {
		t.Fatalf("expected seen_count 3, got %d", merged.SeenCount)
	}
	if merged.Weight == nil || *merged.Weight != 0.9 {
		t.Fatalf("expected nil weight to coalesce to stored 0.9, got %v", merged.Weight)
	}
}

func TestMergeChunkCoalescesOptionalFields(t *testing.T) {
	p1, tokens := 4, 100
	existing := common.Chunk{
		Content:       "old",
		PageStart:     &p1,
		ContentTokens: &tokens,
		Metadata:      map[string]any{"lang": "de"},
		Embedding:     []float32{1},
	}

	merged := MergeChunk(existing, common.ChunkUpsert{
		Content:  "new",
		Metadata: map[string]any{"source": "crawler"},
	}, time.Now())

	if merged.Content != "new" {
		t.Fatalf("expected content overwrite, got %q", merged.Content)
	}
	if merged.PageStart == nil || *merged.PageStart != 4 {
		t.Fatalf("expected page_start to survive, got %v", merged.PageStart)
	}
	if merged.ContentTokens == nil || *merged.ContentTokens != 100 {
		t.Fatalf("expected content_tokens to survive, got %v", merged.ContentTokens)
	}
	if merged.Metadata["lang"] != "de" || merged.Metadata["source"] != "crawler" {
		t.Fatalf("expected metadata shallow-merge, got %v", merged.Metadata)
	}
	if len(merged.Embedding) != 1 {
		t.Fatalf("expected embedding to survive, got %v", merged.Embedding)
	}

	// An omitted content keeps the stored text.
	merged = MergeChunk(existing, common.ChunkUpsert{Content: ""}, time.Now())
	if merged.Content != "old" {
		t.Fatalf("expected stored content to survive omission, got %q", merged.Content)
	}
}

func TestMergeSummaryReplacesButMergesMetadata(t *testing.T) {
	existing := common.ContextSummary{
		Summary:  "old",
		Topics:   []string{"a", "b"},
		Metadata: map[string]any{"pinned": true},
	}

	merged := MergeSummary(existing, common.ContextSummaryUpsert{
		Summary:  "new",
		Topics:   []string{"c"},
		Metadata: map[string]any{"model": "gpt"},
	}, time.Now())

	if merged.Summary != "new" {
		t.Fatalf("expected summary replace, got %q", merged.Summary)
	}
	if len(merged.Topics) != 1 || merged.Topics[0] != "c" {
		t.Fatalf("expected topics replace, got %v", merged.Topics)
	}
	if merged.Metadata["pinned"] != true || merged.Metadata["model"] != "gpt" {
		t.Fatalf("expected metadata merge, got %v", merged.Metadata)
	}
}
