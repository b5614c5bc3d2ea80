// ABOUTME: Post-finalize document processing: extracts block elements from text-like artifacts.
// ABOUTME: Markdown goes through the goldmark parser; plain text and HTML fall back to paragraph splitting.

package docproc

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
)

// Result summarizes what was extracted from one artifact.
type Result struct {
	ElementCount int
	ElementKinds []string
	ProcessedAt  time.Time
}

// Extractor processes finalized artifacts of supported MIME types. The
// upload layer invokes it asynchronously after reassembly; its failures never
// affect the upload itself.
type Extractor struct {
	md goldmark.Markdown
}

// NewExtractor creates an Extractor with a default goldmark parser.
func NewExtractor() *Extractor {
	return &Extractor{md: goldmark.New()}
}

// Supported reports whether the MIME type has an extraction strategy.
func (e *Extractor) Supported(mimeType string) bool {
	switch normalizeMIME(mimeType) {
	case "text/plain", "text/markdown", "text/html":
		return true
	}
	return false
}

// Process reads the artifact at path and extracts its block elements.
// Unsupported MIME types are an error; callers gate on Supported first.
func (e *Extractor) Process(path, mimeType string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var kinds []string
	switch normalizeMIME(mimeType) {
	case "text/markdown":
		kinds = e.markdownBlocks(data)
	case "text/plain":
		kinds = paragraphBlocks(string(data))
	case "text/html":
		kinds = paragraphBlocks(stripTags(string(data)))
	default:
		return nil, fmt.Errorf("unsupported MIME type %q", mimeType)
	}

	return &Result{
		ElementCount: len(kinds),
		ElementKinds: kinds,
		ProcessedAt:  time.Now(),
	}, nil
}

// markdownBlocks parses markdown and returns the kind name of each top-level
// block node (Heading, Paragraph, List, FencedCodeBlock, ...).
func (e *Extractor) markdownBlocks(src []byte) []string {
	root := e.md.Parser().Parse(text.NewReader(src))
	var kinds []string
	for child := root.FirstChild(); child != nil; child = child.NextSibling() {
		kinds = append(kinds, child.Kind().String())
	}
	return kinds
}

// paragraphBlocks splits text into paragraphs on blank lines.
func paragraphBlocks(s string) []string {
	var kinds []string
	for _, block := range strings.Split(s, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		kinds = append(kinds, "Paragraph")
	}
	return kinds
}

// stripTags removes HTML tags, leaving the text content. Good enough for
// paragraph counting; this is not a sanitizer.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeMIME drops any parameters ("text/plain; charset=utf-8") and
// lowercases the type.
func normalizeMIME(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
