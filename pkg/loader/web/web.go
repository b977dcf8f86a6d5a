// Package web fetches URLs and extracts readable text from HTML pages.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"

	"github.com/lattice-kb/lattice/pkg/loader"
)

// FileLoader downloads web pages. HTML responses run through readability
// so only the main article text survives; other content types fall back
// to the wrapped loader, or the raw body when none is set.
type FileLoader struct {
	fallback loader.FileLoader

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// New creates a web loader without a fallback.
func New() *FileLoader {
	return &FileLoader{
		cache: make(map[string][]byte),
	}
}

// NewWithFallback creates a web loader that delegates non-HTML responses.
func NewWithFallback(fallback loader.FileLoader) *FileLoader {
	return &FileLoader{
		fallback: fallback,
		cache:    make(map[string][]byte),
	}
}

// GetFileText fetches file.Path as a URL.
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

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		var content []byte
		contentType := resp.Header.Get("Content-Type")
		switch {
		case strings.Contains(contentType, "text/html"):
			pageURL, err := url.Parse(file.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to parse url: %w", err)
			}
			article, err := readability.FromReader(resp.Body, pageURL)
			if err != nil {
				return nil, fmt.Errorf("failed to parse html: %w", err)
			}
			var builder strings.Builder
			if err := article.RenderText(&builder); err != nil {
				return nil, fmt.Errorf("failed to render article text: %w", err)
			}
			content = []byte(builder.String())

		case l.fallback != nil:
			return l.fallback.GetFileText(ctx, file)

		default:
			content, err = io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
		}

		l.cacheMu.Lock()
		l.cache[key] = content
		l.cacheMu.Unlock()

		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
