// Package pdf extracts text from PDF files via the poppler pdftotext tool.
package pdf

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lattice-kb/lattice/pkg/loader"
)

// FileLoader extracts text from PDFs fetched through an inner loader.
type FileLoader struct {
	loader loader.FileLoader

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// New creates a PDF loader. Extraction requires pdftotext in PATH.
func New(inner loader.FileLoader) *FileLoader {
	return &FileLoader{
		loader: inner,
		cache:  make(map[string][]byte),
	}
}

// GetFileText extracts the text content of a PDF file.
func (l *FileLoader) GetFileText(ctx context.Context, file loader.File) ([]byte, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := l.loader.GetFileText(ctx, file)
		if err != nil {
			return nil, err
		}

		text, err := parsePDF(content)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = text
		l.cacheMu.Unlock()

		return text, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
