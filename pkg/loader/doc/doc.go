// Package doc extracts text from Office Open XML documents
// (.docx and .pptx) without external tooling.
package doc

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lattice-kb/lattice/pkg/loader"
)

const docXMLMax = 50 << 20

// FileLoader extracts text from Word and PowerPoint files fetched
// through an inner loader.
type FileLoader struct {
	loader loader.FileLoader

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// New creates a document loader that parses the OOXML parts directly.
func New(inner loader.FileLoader) *FileLoader {
	return &FileLoader{
		loader: inner,
		cache:  make(map[string][]byte),
	}
}

// GetFileText extracts the text content of a .docx or .pptx file.
// The file extension decides which parser runs.
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

		var text []byte
		if strings.EqualFold(filepath.Ext(file.Path), ".pptx") {
			text, err = parsePptx(content)
		} else {
			text, err = parseDocx(content)
		}
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
