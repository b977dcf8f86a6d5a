package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEncoder is the tiktoken encoding used for token counting.
	DefaultEncoder = "o200k_base"
	// DefaultMaxTokens bounds one chunk's token count.
	DefaultMaxTokens = 500
)

// TextChunk is one token-bounded piece of a document in reading order.
type TextChunk struct {
	Index  int
	Text   string
	Tokens int
}

// ChunkText splits text into sentence-aligned chunks of at most maxTokens
// tokens each. Sentences longer than the budget become chunks of their own.
func ChunkText(text, encoder string, maxTokens int) ([]TextChunk, error) {
	if encoder == "" {
		encoder = DefaultEncoder
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoder %q: %w", encoder, err)
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []TextChunk
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(current, " "))
		chunks = append(chunks, TextChunk{
			Index:  len(chunks),
			Text:   joined,
			Tokens: len(enc.Encode(joined, nil, nil)),
		})
		current = nil
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := len(enc.Encode(sentence, nil, nil))
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return chunks, nil
}

var tableDelimRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)

// splitIntoSentences breaks text on sentence boundaries. Markdown tables are
// kept intact as a single sentence so a table never straddles chunks.
func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")
	var sentences []string
	var current strings.Builder

	emit := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	isTableRow := func(line string) bool {
		trimmed := strings.TrimSpace(line)
		return trimmed != "" && strings.Contains(trimmed, "|")
	}

	inTable := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inTable && isTableRow(line) && i+1 < len(lines) &&
			tableDelimRe.MatchString(strings.TrimSpace(lines[i+1])) {
			emit()
			inTable = true
			current.WriteString(line)
			continue
		}

		if inTable {
			if trimmed == "" || !isTableRow(line) {
				inTable = false
				emit()
			} else {
				current.WriteString("\n")
				current.WriteString(line)
				continue
			}
		}

		if trimmed == "" {
			emit()
			continue
		}

		for _, sentence := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)

			if strings.HasSuffix(sentence, ".") ||
				strings.HasSuffix(sentence, "!") ||
				strings.HasSuffix(sentence, "?") {
				emit()
			}
		}
	}
	emit()

	return sentences
}

// splitLineIntoSentences splits one line on terminal punctuation, keeping
// numeric listings like "1. " and abbreviations like "e.g." together.
func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])

		if line[i] != '.' && line[i] != '!' && line[i] != '?' {
			continue
		}

		if line[i] == '.' {
			if i > 0 && unicode.IsDigit(rune(line[i-1])) &&
				i+1 < len(line) && line[i+1] == ' ' {
				continue
			}
			if i >= 1 && i+1 < len(line) &&
				unicode.IsLetter(rune(line[i-1])) && unicode.IsLower(rune(line[i+1])) {
				continue
			}
		}

		if i+1 < len(line) && line[i+1] != ' ' {
			continue
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
