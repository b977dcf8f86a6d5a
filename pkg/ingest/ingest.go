// Package ingest turns source files and web pages into embedded chunks.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/lattice-kb/lattice/internal/storage"
	"github.com/lattice-kb/lattice/internal/util"
	"github.com/lattice-kb/lattice/pkg/ai"
	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/loader"
	"github.com/lattice-kb/lattice/pkg/loader/doc"
	fileio "github.com/lattice-kb/lattice/pkg/loader/io"
	s3loader "github.com/lattice-kb/lattice/pkg/loader/s3"
	"github.com/lattice-kb/lattice/pkg/loader/pdf"
	"github.com/lattice-kb/lattice/pkg/loader/vtt"
	"github.com/lattice-kb/lattice/pkg/loader/web"
	"github.com/lattice-kb/lattice/pkg/logger"
	"github.com/lattice-kb/lattice/pkg/store"
)

const (
	SourceFile = "file"
	SourceWeb  = "web"

	embedBatchSize = 100
	embedRetries   = 3
)

// Request describes one ingest run. File requests carry the raw bytes and
// the original FileName; web requests carry the URL in SourceURI.
type Request struct {
	Scope common.Scope

	SourceType string
	SourceURI  string
	FileName   string
	Content    []byte

	Title     string
	Metadata  map[string]any
	MaxTokens int

	// BuildGraph links the new chunks into the knowledge graph after
	// embedding; PruneAfter runs maintenance once the build is done.
	BuildGraph bool
	PruneAfter bool
}

// Result reports what one ingest run produced. Warnings carry per-chunk
// failures that did not abort the run.
type Result struct {
	DocumentID    string          `json:"document_id"`
	ChunksCreated int             `json:"chunks_created"`
	TokensTotal   int             `json:"tokens_total"`
	Warnings      []string        `json:"warnings,omitempty"`
	Build         *kg.BuildResult `json:"build,omitempty"`
}

// Pipeline runs extract, chunk, embed and persist for one source.
type Pipeline struct {
	store      store.Storage
	embed      ai.EmbeddingClient
	s3         *awss3.Client
	builder    *kg.Builder
	maintainer *kg.Maintainer
}

// NewPipelineParams wires a Pipeline. S3 is optional: without it file
// content is not archived to the object store. Maintainer is optional.
type NewPipelineParams struct {
	Store      store.Storage
	Embeddings ai.EmbeddingClient
	S3         *awss3.Client
	Maintainer *kg.Maintainer
}

func NewPipeline(params NewPipelineParams) *Pipeline {
	return &Pipeline{
		store:      params.Store,
		embed:      params.Embeddings,
		s3:         params.S3,
		builder:    kg.NewBuilder(params.Store),
		maintainer: params.Maintainer,
	}
}

// Run executes the pipeline: extract text, create the document row, chunk,
// embed, upsert chunks, then optionally build the graph and prune.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if err := store.CheckScope(req.Scope); err != nil {
		return Result{}, err
	}

	text, sourceURI, err := p.extract(ctx, req)
	if err != nil {
		return Result{}, err
	}
	text = util.SanitizePostgresText(text)
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: source produced no text", store.ErrValidation)
	}

	document, err := p.store.CreateDocument(ctx, common.DocumentInput{
		Scope:      req.Scope,
		SourceType: req.SourceType,
		SourceURI:  sourceURI,
		Title:      req.Title,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create document: %w", err)
	}

	chunks, err := ChunkText(text, DefaultEncoder, req.MaxTokens)
	if err != nil {
		return Result{}, fmt.Errorf("failed to chunk text: %w", err)
	}

	result := Result{DocumentID: document.ID}
	logger.Info("[Ingest] Chunked source",
		"document", document.ID, "chunks", len(chunks))

	err = store.ChunkRange(len(chunks), embedBatchSize, func(start, end int) error {
		batch := chunks[start:end]
		inputs := make([]string, len(batch))
		for i, c := range batch {
			inputs[i] = c.Text
		}

		embeddings, err := util.RetryWithContext(ctx, embedRetries, func(ctx context.Context) ([][]float32, error) {
			return store.GenerateEmbeddings(ctx, p.embed, inputs)
		})
		if err != nil {
			return fmt.Errorf("failed to embed chunks %d..%d: %w", start, end, err)
		}

		for i, c := range batch {
			tokens := c.Tokens
			_, err := p.store.UpsertChunk(ctx, common.ChunkUpsert{
				TenantID:      req.Scope.TenantID,
				DocumentID:    document.ID,
				ChunkIndex:    c.Index,
				Content:       c.Text,
				ContentTokens: &tokens,
				Embedding:     embeddings[i],
			})
			if err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("chunk %d: %v", c.Index, err))
				logger.Warn("[Ingest] Failed to save chunk",
					"document", document.ID, "chunk", c.Index, "error", err)
				continue
			}
			result.ChunksCreated++
			result.TokensTotal += tokens
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if req.BuildGraph {
		build, err := p.builder.Build(ctx, req.Scope, document.ID, kg.DefaultBuildConfig())
		if err != nil {
			return result, fmt.Errorf("failed to build graph: %w", err)
		}
		result.Build = &build
	}

	if req.PruneAfter && p.maintainer != nil {
		if _, err := p.maintainer.Prune(ctx, req.Scope, common.DefaultPruneOptions()); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("prune after ingest: %v", err))
			logger.Warn("[Ingest] Prune after ingest failed",
				"tenant", req.Scope.TenantID, "error", err)
		}
	}

	return result, nil
}

// extract resolves the request's text and the stored source URI.
func (p *Pipeline) extract(ctx context.Context, req Request) (string, string, error) {
	switch req.SourceType {
	case SourceWeb:
		if req.SourceURI == "" {
			return "", "", fmt.Errorf("%w: web ingest requires source_uri", store.ErrValidation)
		}
		webLoader := web.New()
		text, err := webLoader.GetFileText(ctx, loader.File{
			ID:   req.SourceURI,
			Path: req.SourceURI,
		})
		if err != nil {
			return "", "", fmt.Errorf("failed to fetch web source: %w", err)
		}
		return string(text), req.SourceURI, nil

	case SourceFile, "":
		if len(req.Content) == 0 && req.SourceURI != "" {
			// No bytes supplied: fetch the URI, from the object store for
			// s3:// URIs and from the local filesystem otherwise.
			var src loader.FileLoader
			if strings.HasPrefix(req.SourceURI, "s3://") && p.s3 != nil {
				src = s3loader.NewWithClient(util.GetEnv("AWS_BUCKET"), p.s3)
			} else {
				src = fileio.New()
			}
			content, err := src.GetFileText(ctx, loader.File{
				ID:   req.SourceURI,
				Path: req.SourceURI,
			})
			if err != nil {
				return "", "", fmt.Errorf("failed to read source: %w", err)
			}
			req.Content = content
			if req.FileName == "" {
				req.FileName = filepath.Base(req.SourceURI)
			}
		}
		if len(req.Content) == 0 {
			return "", "", fmt.Errorf("%w: file ingest requires content", store.ErrValidation)
		}

		sourceURI := req.SourceURI
		if p.s3 != nil && !strings.HasPrefix(sourceURI, "s3://") {
			key, err := gonanoid.New()
			if err != nil {
				return "", "", err
			}
			objectKey, err := storage.PutFile(
				ctx, p.s3,
				fmt.Sprintf("%s/%s", req.Scope.TenantID, req.Scope.ClientID),
				req.FileName, key,
				bytes.NewReader(req.Content),
			)
			if err != nil {
				return "", "", fmt.Errorf("failed to archive source file: %w", err)
			}
			sourceURI = objectKey
		}

		text, err := extractFileText(ctx, req.FileName, req.Content)
		if err != nil {
			return "", "", err
		}
		return string(text), sourceURI, nil

	default:
		return "", "", fmt.Errorf("%w: unknown source type %q", store.ErrValidation, req.SourceType)
	}
}

// rawLoader serves already-fetched bytes to the format loaders.
type rawLoader struct {
	content []byte
}

func (l rawLoader) GetFileText(ctx context.Context, file loader.File) ([]byte, error) {
	return l.content, nil
}

// extractFileText picks the parser from the file extension. Unknown
// extensions pass through as plain text.
func extractFileText(ctx context.Context, name string, content []byte) ([]byte, error) {
	inner := rawLoader{content: content}
	file := loader.File{ID: name, Path: name}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return pdf.New(inner).GetFileText(ctx, file)
	case ".docx", ".doc":
		return doc.New(inner).GetFileText(ctx, file)
	case ".pptx":
		return doc.New(inner).GetFileText(ctx, file)
	case ".vtt":
		return vtt.New(inner).GetFileText(ctx, file)
	default:
		return content, nil
	}
}
