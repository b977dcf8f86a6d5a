package pgx

import (
	"context"
	"fmt"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/store"
)

func (s *Storage) CreateDocument(ctx context.Context, in common.DocumentInput) (common.Document, error) {
	if in.TenantID == "" {
		return common.Document{}, fmt.Errorf("%w: tenant_id is required", store.ErrValidation)
	}

	// Idempotent on (tenant, client, source_uri): re-ingesting the same
	// source resolves to the existing row instead of duplicating it.
	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (tenant_id, client_id, source_type, source_uri, title, metadata)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::jsonb))
		ON CONFLICT (tenant_id, client_id, source_uri) WHERE source_uri <> ''
		DO UPDATE SET
			source_type = EXCLUDED.source_type,
			title       = EXCLUDED.title,
			metadata    = EXCLUDED.metadata
		RETURNING id, tenant_id, client_id, source_type, source_uri, title, metadata, created_at`,
		in.TenantID, in.ClientID, in.SourceType, in.SourceURI, in.Title, in.Metadata,
	)

	var doc common.Document
	if err := row.Scan(&doc.ID, &doc.TenantID, &doc.ClientID, &doc.SourceType,
		&doc.SourceURI, &doc.Title, &doc.Metadata, &doc.CreatedAt); err != nil {
		return common.Document{}, mapError(err, "create document")
	}
	return doc, nil
}

func (s *Storage) GetDocument(ctx context.Context, tenantID, documentID string) (common.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, client_id, source_type, source_uri, title, metadata, created_at
		FROM documents
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, documentID,
	)

	var doc common.Document
	if err := row.Scan(&doc.ID, &doc.TenantID, &doc.ClientID, &doc.SourceType,
		&doc.SourceURI, &doc.Title, &doc.Metadata, &doc.CreatedAt); err != nil {
		return common.Document{}, mapError(err, "document "+documentID)
	}
	return doc, nil
}

// DeleteDocument removes the document; chunks and their evidence rows go
// with it through ON DELETE CASCADE.
func (s *Storage) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM documents WHERE tenant_id = $1 AND id = $2`,
		tenantID, documentID,
	)
	if err != nil {
		return mapError(err, "delete document "+documentID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", documentID, store.ErrNotFound)
	}
	return nil
}
