package rag

import (
	"strings"
	"unicode"
)

const (
	// splitTargetChars is the maximum character count per chunk.
	splitTargetChars = 600
	// splitOverlapChars is the carry-over between adjacent chunks so a
	// sentence cut at a boundary stays retrievable from both sides.
	splitOverlapChars = 60
)

// SplitDocument splits source material into retrievable chunks. Paragraph
// boundaries are preserved when possible; paragraphs longer than the target
// are force-split at sentence or word boundaries.
func SplitDocument(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= splitTargetChars {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		tail := overlapTail(current.String())
		current.Reset()
		if tail != "" {
			current.WriteString(tail)
		}
	}

	for _, para := range paragraphs(content) {
		if current.Len() > 0 && current.Len()+len(para) > splitTargetChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)

		for current.Len() > splitTargetChars {
			text := current.String()
			cut := breakPoint(text, splitTargetChars)
			chunks = append(chunks, strings.TrimSpace(text[:cut]))
			current.Reset()
			current.WriteString(strings.TrimSpace(text[cut:]))
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// NormalizeTopics lowercases, trims, and dedupes topic tags into the
// space-separated form the chunk store indexes.
func NormalizeTopics(tags []string) string {
	seen := make(map[string]bool, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.ReplaceAll(tag, " ", "_")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
	}
	return strings.Join(normalized, " ")
}

func paragraphs(content string) []string {
	var result []string
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Fields(strings.ReplaceAll(block, "\n", " "))
		if len(lines) == 0 {
			continue
		}
		result = append(result, strings.Join(lines, " "))
	}
	return result
}

// breakPoint finds where to cut an oversized text: the last sentence end
// before the limit, else the last space, else the limit itself. The cut is
// kept on a rune boundary.
func breakPoint(text string, limit int) int {
	if limit >= len(text) {
		return len(text)
	}
	window := text[:limit]
	best := -1
	for i, r := range window {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			best = i + 1
		}
	}
	if best > limit/2 {
		return best
	}
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > limit/2 {
		return i
	}
	for limit > 0 && !isRuneStart(text[limit]) {
		limit--
	}
	return limit
}

func overlapTail(chunk string) string {
	if len(chunk) <= splitOverlapChars {
		return chunk
	}
	tail := chunk[len(chunk)-splitOverlapChars:]
	// drop the leading partial word
	if i := strings.IndexFunc(tail, unicode.IsSpace); i >= 0 {
		tail = tail[i:]
	}
	return strings.TrimSpace(tail)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
