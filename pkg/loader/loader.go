// Package loader turns ingestion sources into plain text. Each subpackage
// implements FileLoader for one source kind: local files, S3 objects, web
// pages, office documents, PDFs and subtitle transcripts.
package loader

import (
	"context"

	"github.com/lattice-kb/lattice/pkg/common"
)

// File identifies one ingestible source. Path is loader-specific: a
// filesystem path, an object key or a URL.
type File struct {
	ID        string
	Path      string
	Type      common.ArtifactType
	MaxTokens int
	Loader    FileLoader
}

// FileLoader retrieves the raw text of a file.
type FileLoader interface {
	GetFileText(ctx context.Context, file File) ([]byte, error)
}

// GetText loads the file's text through its configured loader.
func (f File) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, f)
}

// CacheKey identifies a file for per-loader caching.
func CacheKey(file File) string {
	return file.ID + ":" + file.Path
}
