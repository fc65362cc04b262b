package pipeline

import (
	"strings"
	"unicode"
)

// splitSegments breaks narration into up to n scene texts by grouping
// sentences into runs of roughly equal character length. Fewer sentences
// than scenes yields fewer segments; the compositor tolerates the shortfall.
func splitSegments(text string, n int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 || n <= 0 {
		return nil
	}
	if n >= len(sentences) {
		return sentences
	}

	total := 0
	for _, sentence := range sentences {
		total += len([]rune(sentence))
	}

	segments := make([]string, 0, n)
	var current []string
	used := 0
	for i, sentence := range sentences {
		current = append(current, sentence)
		used += len([]rune(sentence))

		remainingSentences := len(sentences) - i - 1
		remainingBuckets := n - len(segments) - 1
		// Close the bucket once it holds its share, but never leave fewer
		// sentences than buckets still to fill.
		boundary := float64(total) * float64(len(segments)+1) / float64(n)
		if (float64(used) >= boundary || remainingSentences == remainingBuckets) && remainingBuckets > 0 {
			segments = append(segments, strings.Join(current, " "))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, " "))
	}
	return segments
}

// splitSentences splits on sentence-ending punctuation followed by spacing,
// falling back to line breaks for scripts without punctuation.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if !isSentenceEnd(r) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(current.String()); sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}
	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	if len(sentences) == 1 && strings.ContainsRune(sentences[0], '\n') {
		lines := strings.Split(sentences[0], "\n")
		sentences = sentences[:0]
		for _, line := range lines {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				sentences = append(sentences, trimmed)
			}
		}
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	default:
		return false
	}
}
