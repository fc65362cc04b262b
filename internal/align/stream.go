package align

import (
	"sort"
	"strings"

	"reelsmith/internal/captions"
)

// stream flattens a caption stream into one normalized text with enough
// bookkeeping to map a normalized rune offset back to a timestamp.
type stream struct {
	spans     []captions.Span
	norm      Normalized
	spanStart []int // original rune offset where each span's text begins
	spanLen   []int // rune length of each span's text
}

func newStream(spans []captions.Span) *stream {
	texts := make([]string, len(spans))
	starts := make([]int, len(spans))
	lengths := make([]int, len(spans))
	offset := 0
	for i, span := range spans {
		texts[i] = span.Text
		starts[i] = offset
		lengths[i] = len([]rune(span.Text))
		offset += lengths[i] + 1 // joiner space
	}
	return &stream{
		spans:     spans,
		norm:      Normalize(strings.Join(texts, " ")),
		spanStart: starts,
		spanLen:   lengths,
	}
}

func (s *stream) empty() bool {
	return len(s.spans) == 0 || s.norm.Len() == 0
}

// endTime returns the final timestamp covered by the stream.
func (s *stream) endTime() float64 {
	if len(s.spans) == 0 {
		return 0
	}
	return s.spans[len(s.spans)-1].End
}

// timeAtNorm converts a normalized rune offset into seconds. For exclusive
// end offsets pass end=true so the position lands at the close of the span
// character rather than its opening.
func (s *stream) timeAtNorm(normIdx int, end bool) float64 {
	origIdx := s.norm.OriginalIndex(normIdx)
	if end && normIdx > 0 {
		origIdx = s.norm.OriginalIndex(normIdx-1) + 1
	}
	return s.timeAtOriginal(origIdx)
}

// timeAtOriginal maps an original rune offset into seconds using per-span
// linear interpolation: character position within a span maps linearly to
// time within [start, end).
func (s *stream) timeAtOriginal(origIdx int) float64 {
	if len(s.spans) == 0 {
		return 0
	}
	i := sort.Search(len(s.spanStart), func(i int) bool { return s.spanStart[i] > origIdx }) - 1
	if i < 0 {
		i = 0
	}
	span := s.spans[i]
	length := s.spanLen[i]
	if length <= 0 {
		return span.Start
	}
	pos := origIdx - s.spanStart[i]
	if pos < 0 {
		pos = 0
	}
	if pos > length {
		pos = length
	}
	frac := float64(pos) / float64(length)
	return span.Start + frac*(span.End-span.Start)
}
