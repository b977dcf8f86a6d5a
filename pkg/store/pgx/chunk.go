package pgx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/store"
)

// vectorParam converts an optional embedding into a nullable vector
// parameter.
func vectorParam(emb []float32) *pgvector.Vector {
	if emb == nil {
		return nil
	}
	v := pgvector.NewVector(emb)
	return &v
}

func embeddingOf(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

// UpsertChunk resolves by (tenant, document, chunk_index). Content, page
// bounds, token count and embedding coalesce to the stored values when
// omitted; metadata shallow-merges in SQL via jsonb concatenation.
func (s *Storage) UpsertChunk(ctx context.Context, in common.ChunkUpsert) (string, error) {
	if err := store.CheckChunkUpsert(in); err != nil {
		return "", err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM documents WHERE tenant_id = $1 AND id = $2)`,
		in.TenantID, in.DocumentID,
	).Scan(&exists); err != nil {
		return "", mapError(err, "check document")
	}
	if !exists {
		return "", fmt.Errorf("document %s: %w", in.DocumentID, store.ErrNotFound)
	}

	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chunks (tenant_id, document_id, chunk_index, page_start, page_end,
			content, content_tokens, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::jsonb), $9)
		ON CONFLICT (tenant_id, document_id, chunk_index) DO UPDATE SET
			content        = COALESCE(NULLIF(EXCLUDED.content, ''), chunks.content),
			page_start     = COALESCE(EXCLUDED.page_start, chunks.page_start),
			page_end       = COALESCE(EXCLUDED.page_end, chunks.page_end),
			content_tokens = COALESCE(EXCLUDED.content_tokens, chunks.content_tokens),
			metadata       = chunks.metadata || COALESCE($8, '{}'::jsonb),
			embedding      = COALESCE(EXCLUDED.embedding, chunks.embedding),
			updated_at     = now()
		RETURNING id`,
		in.TenantID, in.DocumentID, in.ChunkIndex, in.PageStart, in.PageEnd,
		in.Content, in.ContentTokens, in.Metadata, vectorParam(in.Embedding),
	).Scan(&id)
	if err != nil {
		return "", mapError(err, "upsert chunk")
	}
	return id, nil
}

func (s *Storage) GetChunk(ctx context.Context, tenantID, chunkID string) (common.Chunk, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, document_id, chunk_index, page_start, page_end,
			content, content_tokens, metadata, embedding, created_at, updated_at
		FROM chunks
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, chunkID,
	)

	var (
		c   common.Chunk
		emb *pgvector.Vector
	)
	if err := row.Scan(&c.ID, &c.TenantID, &c.DocumentID, &c.ChunkIndex,
		&c.PageStart, &c.PageEnd, &c.Content, &c.ContentTokens, &c.Metadata,
		&emb, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return common.Chunk{}, mapError(err, "chunk "+chunkID)
	}
	c.Embedding = embeddingOf(emb)
	return c, nil
}

// FetchChunks pages through embedded chunks, joined through their owning
// document so the client partition filter applies.
func (s *Storage) FetchChunks(ctx context.Context, q store.ChunkQuery) ([]common.Chunk, error) {
	if q.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", store.ErrValidation)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultChunkPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.tenant_id, c.document_id, c.chunk_index, c.page_start, c.page_end,
			c.content, c.content_tokens, c.metadata, c.embedding, c.created_at, c.updated_at
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.tenant_id = c.tenant_id
		WHERE c.tenant_id = $1
			AND d.client_id = $2
			AND c.embedding IS NOT NULL
			AND ($3 = '' OR c.document_id::text = $3)
		ORDER BY c.document_id, c.chunk_index
		LIMIT $4 OFFSET $5`,
		q.TenantID, q.ClientID, q.DocumentID, limit, offset,
	)
	if err != nil {
		return nil, mapError(err, "fetch chunks")
	}
	defer rows.Close()

	var out []common.Chunk
	for rows.Next() {
		var (
			c   common.Chunk
			emb *pgvector.Vector
		)
		if err := rows.Scan(&c.ID, &c.TenantID, &c.DocumentID, &c.ChunkIndex,
			&c.PageStart, &c.PageEnd, &c.Content, &c.ContentTokens, &c.Metadata,
			&emb, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, mapError(err, "scan chunk")
		}
		c.Embedding = embeddingOf(emb)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "fetch chunks")
	}
	return out, nil
}
