package knowledge

import (
	"regexp"
	"strings"
)

const (
	// MaxChunkSize is the maximum chunk length in characters
	MaxChunkSize = 1500
	// ChunkOverlap is how many characters consecutive chunks share
	ChunkOverlap = 200
)

// Section is a chunk of text with the heading it was found under
type Section struct {
	Heading string
	Content string
}

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// SplitText chunks text for embedding. Markdown headings start new
// sections, oversized sections are split at paragraph boundaries, and
// consecutive chunks overlap so context is not lost at the cut.
func SplitText(content string, maxSize, overlap int) []Section {
	if maxSize <= 0 {
		maxSize = MaxChunkSize
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}

	var result []Section
	for _, section := range splitByHeadings(content) {
		if len(section.Content) <= maxSize {
			result = append(result, section)
			continue
		}
		for _, part := range splitByParagraphs(section.Content, maxSize, overlap) {
			result = append(result, Section{Heading: section.Heading, Content: part})
		}
	}

	return result
}

// splitByHeadings cuts markdown into one section per heading. Text
// before the first heading becomes a section with an empty heading.
func splitByHeadings(content string) []Section {
	lines := strings.Split(content, "\n")

	var sections []Section
	var heading string
	var current []string
	started := false

	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			sections = append(sections, Section{Heading: heading, Content: text})
		}
		current = current[:0]
	}

	for _, line := range lines {
		if matches := headingRegex.FindStringSubmatch(line); matches != nil {
			if started {
				flush()
			}
			heading = strings.TrimSpace(matches[2])
			started = true
			continue
		}
		current = append(current, line)
		if !started && strings.TrimSpace(line) != "" {
			started = true
		}
	}
	flush()

	return sections
}

// splitByParagraphs packs paragraphs into chunks of at most maxSize
// characters. When a chunk closes, the tail of it seeds the next chunk
// as overlap. A single paragraph longer than maxSize is hard-split.
func splitByParagraphs(content string, maxSize, overlap int) []string {
	var chunks []string
	var current strings.Builder
	seedLen := 0 // Length of the overlap seed, a chunk must grow past it

	flush := func() {
		if current.Len() <= seedLen {
			return
		}
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		seedLen = 0
		if tail := overlapTail(chunk, overlap); tail != "" {
			current.WriteString(tail)
			seedLen = current.Len()
		}
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > maxSize {
			flush()
			current.Reset()
			seedLen = 0
			// Hard-split windows carry their own overlap
			parts := hardSplit(para, maxSize, overlap)
			chunks = append(chunks, parts[:len(parts)-1]...)
			current.WriteString(parts[len(parts)-1])
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxSize {
			flush()
		}
		// The seed alone plus this paragraph may still not fit
		if current.Len() == seedLen && seedLen > 0 && seedLen+len(para)+2 > maxSize {
			current.Reset()
			seedLen = 0
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}

	if current.Len() > seedLen {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// hardSplit cuts text into windows of maxSize runes stepping by
// maxSize-overlap. Used only for paragraphs that cannot be split at
// natural boundaries.
func hardSplit(text string, maxSize, overlap int) []string {
	runes := []rune(text)
	step := maxSize - overlap
	if step <= 0 {
		step = maxSize
	}

	var parts []string
	for start := 0; start < len(runes); start += step {
		end := start + maxSize
		if end >= len(runes) {
			parts = append(parts, string(runes[start:]))
			break
		}
		parts = append(parts, string(runes[start:end]))
	}

	return parts
}

// overlapTail returns the last overlap characters of a chunk, trimmed
// to the first word boundary so the next chunk does not start mid-word.
func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	runes := []rune(chunk)
	if len(runes) <= overlap {
		return chunk
	}
	tail := string(runes[len(runes)-overlap:])
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 && idx+1 < len(tail) {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
