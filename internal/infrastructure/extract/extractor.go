// Package extract converts stored document bytes into plain text for
// chunking and embedding. Markdown and plain text pass through mostly
// untouched; HTML is parsed and reduced to its visible text.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/chatforge/backend/internal/domain/knowledge"
)

// TextExtractor extracts plain text from uploaded document formats
type TextExtractor struct{}

// NewTextExtractor creates a new text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the plain text contained in data. The mimeType decides
// the strategy; types outside the extractable set fail with
// knowledge.ErrUnsupportedFormat.
func (e *TextExtractor) Extract(mimeType string, data []byte) (string, error) {
	switch normalizeMimeType(mimeType) {
	case "text/plain", "text/markdown":
		return extractPlainText(data)
	case "text/html":
		return extractHTMLText(data)
	default:
		return "", knowledge.ErrUnsupportedFormat
	}
}

// normalizeMimeType lowercases the type and drops parameters such as
// "; charset=utf-8"
func normalizeMimeType(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document is not valid UTF-8 text")
	}
	// Strip a UTF-8 BOM if present
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return strings.TrimSpace(string(data)), nil
}

// extractHTMLText walks the parsed document and collects text nodes,
// skipping script, style and other non-content subtrees. Block-level
// elements produce line breaks so the output keeps paragraph structure.
func extractHTMLText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var sb strings.Builder
	walkHTML(doc, &sb)

	return collapseWhitespace(sb.String()), nil
}

func walkHTML(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && skippedElement(n.DataAtom) {
		return
	}

	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, sb)
	}

	if n.Type == html.ElementNode && blockElement(n.DataAtom) {
		sb.WriteByte('\n')
	}
}

func skippedElement(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Template, atom.Iframe:
		return true
	default:
		return false
	}
}

func blockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Ul, atom.Ol, atom.Table, atom.Tr, atom.Br, atom.Blockquote, atom.Pre:
		return true
	default:
		return false
	}
}

// collapseWhitespace trims each line and drops runs of blank lines so
// heavily indented HTML does not bloat the extracted text
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
