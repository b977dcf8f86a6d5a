// Package vtt extracts the spoken text from WebVTT transcript files.
package vtt

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/lattice-kb/lattice/pkg/loader"
)

// FileLoader turns WebVTT subtitle files into plain transcript text.
// Cue timings, numeric identifiers and voice tags are dropped; repeated
// rolling-caption lines collapse to a single occurrence.
type FileLoader struct {
	loader loader.FileLoader
}

// New creates a transcript loader reading raw bytes through inner.
func New(inner loader.FileLoader) *FileLoader {
	return &FileLoader{loader: inner}
}

var (
	reTiming = regexp.MustCompile(`-->`)
	reCueNum = regexp.MustCompile(`^\d+$`)
	reTag    = regexp.MustCompile(`<[^>]*>`)
)

// GetFileText returns the transcript text of a .vtt file.
func (l *FileLoader) GetFileText(ctx context.Context, file loader.File) ([]byte, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return nil, err
	}
	return Parse(content), nil
}

// Parse extracts cue text from WebVTT content.
func Parse(content []byte) []byte {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var sb strings.Builder
	var last string
	inHeaderBlock := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			inHeaderBlock = false
			continue
		case strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"),
			strings.HasPrefix(line, "REGION"):
			inHeaderBlock = true
			continue
		case inHeaderBlock:
			continue
		case reTiming.MatchString(line), reCueNum.MatchString(line):
			continue
		}

		text := reTag.ReplaceAllString(line, "")
		text = strings.TrimSpace(text)
		if text == "" || text == last {
			continue
		}
		last = text

		sb.WriteString(text)
		sb.WriteByte('\n')
	}

	return []byte(sb.String())
}
