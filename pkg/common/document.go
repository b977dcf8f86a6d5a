package common

import "time"

// Document is an ingested source: a file in the object store or a scraped
// web site. It owns its chunks; deleting a document cascades to them.
type Document struct {
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	SourceType string         `json:"source_type"`
	SourceURI  string         `json:"source_uri"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}

// DocumentInput creates or refreshes a document row. Documents with a
// source URI are idempotent on (tenant, client, source_uri): re-ingesting a
// source refreshes the existing row instead of duplicating it.
type DocumentInput struct {
	Scope

	SourceType string         `json:"source_type"`
	SourceURI  string         `json:"source_uri"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata"`
}

// Chunk is a unit of extracted document text, optionally embedded. Identity
// is (tenant, document, chunk_index) and is immutable; content, metadata and
// embedding may be refreshed by re-upsert.
type Chunk struct {
	ID string `json:"id"`

	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`

	PageStart     *int           `json:"page_start,omitempty"`
	PageEnd       *int           `json:"page_end,omitempty"`
	Content       string         `json:"content"`
	ContentTokens *int           `json:"content_tokens,omitempty"`
	Metadata      map[string]any `json:"metadata"`
	Embedding     []float32      `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChunkUpsert refreshes or creates one chunk. Nil optional fields keep the
// stored values (coalesce); Metadata shallow-merges instead.
type ChunkUpsert struct {
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`

	PageStart     *int           `json:"page_start,omitempty"`
	PageEnd       *int           `json:"page_end,omitempty"`
	Content       string         `json:"content"`
	ContentTokens *int           `json:"content_tokens,omitempty"`
	Metadata      map[string]any `json:"metadata"`
	Embedding     []float32      `json:"embedding,omitempty"`
}

// ContextSummary is the one recomputable overview row per (tenant, client).
type ContextSummary struct {
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	Summary     string         `json:"summary"`
	Topics      []string       `json:"topics"`
	Metadata    map[string]any `json:"metadata"`
	SourceStats map[string]any `json:"source_stats"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContextSummaryUpsert replaces the scope's summary. Summary, Topics and
// SourceStats are replaced wholesale; Metadata shallow-merges.
type ContextSummaryUpsert struct {
	Scope

	Summary     string         `json:"summary"`
	Topics      []string       `json:"topics"`
	Metadata    map[string]any `json:"metadata"`
	SourceStats map[string]any `json:"source_stats"`
}
