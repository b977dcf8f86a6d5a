package ingest_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/ingest"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/store"
	"github.com/lattice-kb/lattice/pkg/store/memory"
)

var testScope = common.Scope{TenantID: "t1", ClientID: "c1"}

// stubEmbedder produces deterministic unit vectors from the input length.
type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, input string) ([]float32, error) {
	s.calls++
	emb := make([]float32, kg.EmbeddingDim)
	emb[len(input)%kg.EmbeddingDim] = 1
	return emb, nil
}

func transcript(sentences int) string {
	var sb strings.Builder
	for i := 0; i < sentences; i++ {
		sb.WriteString("The service merges repeated observations into one node. ")
	}
	return sb.String()
}

func TestRunFileIngestCreatesDocumentAndChunks(t *testing.T) {
	st := memory.New()
	p := ingest.NewPipeline(ingest.NewPipelineParams{
		Store:      st,
		Embeddings: &stubEmbedder{},
	})

	res, err := p.Run(context.Background(), ingest.Request{
		Scope:      testScope,
		SourceType: ingest.SourceFile,
		FileName:   "notes.txt",
		Content:    []byte(transcript(120)),
		Title:      "meeting notes",
		MaxTokens:  80,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.DocumentID == "" {
		t.Fatal("no document id")
	}
	if res.ChunksCreated < 2 {
		t.Fatalf("expected multiple chunks, got %d", res.ChunksCreated)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}

	docRow, err := st.GetDocument(context.Background(), testScope.TenantID, res.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if docRow.Title != "meeting notes" || docRow.SourceType != ingest.SourceFile {
		t.Fatalf("unexpected document: %+v", docRow)
	}

	chunks, err := st.FetchChunks(context.Background(), store.ChunkQuery{
		TenantID:   testScope.TenantID,
		ClientID:   testScope.ClientID,
		DocumentID: res.DocumentID,
	})
	if err != nil {
		t.Fatalf("FetchChunks: %v", err)
	}
	if len(chunks) != res.ChunksCreated {
		t.Fatalf("stored %d chunks, result says %d", len(chunks), res.ChunksCreated)
	}
	for _, c := range chunks {
		if c.Embedding == nil {
			t.Fatalf("chunk %d not embedded", c.ChunkIndex)
		}
		if c.ContentTokens == nil || *c.ContentTokens <= 0 {
			t.Fatalf("chunk %d missing token count", c.ChunkIndex)
		}
	}
}

func TestRunWithBuildLinksChunksIntoGraph(t *testing.T) {
	st := memory.New()
	p := ingest.NewPipeline(ingest.NewPipelineParams{
		Store:      st,
		Embeddings: &stubEmbedder{},
	})

	res, err := p.Run(context.Background(), ingest.Request{
		Scope:      testScope,
		SourceType: ingest.SourceFile,
		FileName:   "notes.txt",
		Content:    []byte(transcript(120)),
		MaxTokens:  80,
		BuildGraph: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Build == nil {
		t.Fatal("expected build result")
	}
	if res.Build.NodesUpserted != res.ChunksCreated {
		t.Fatalf("built %d nodes from %d chunks",
			res.Build.NodesUpserted, res.ChunksCreated)
	}
}

func TestRunRejectsEmptySource(t *testing.T) {
	p := ingest.NewPipeline(ingest.NewPipelineParams{
		Store:      memory.New(),
		Embeddings: &stubEmbedder{},
	})

	_, err := p.Run(context.Background(), ingest.Request{
		Scope:      testScope,
		SourceType: ingest.SourceFile,
		FileName:   "empty.txt",
		Content:    []byte("   "),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunRejectsMissingTenant(t *testing.T) {
	p := ingest.NewPipeline(ingest.NewPipelineParams{
		Store:      memory.New(),
		Embeddings: &stubEmbedder{},
	})

	_, err := p.Run(context.Background(), ingest.Request{
		SourceType: ingest.SourceFile,
		FileName:   "a.txt",
		Content:    []byte("hello world."),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunUnknownSourceType(t *testing.T) {
	p := ingest.NewPipeline(ingest.NewPipelineParams{
		Store:      memory.New(),
		Embeddings: &stubEmbedder{},
	})

	_, err := p.Run(context.Background(), ingest.Request{
		Scope:      testScope,
		SourceType: "ftp",
		Content:    []byte("hello."),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
