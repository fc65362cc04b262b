package align

import (
	"reelsmith/internal/captions"
)

const (
	// Anchor acceptance: the common substring must cover at least this share
	// of the segment, or reach the absolute character floor.
	minAnchorCoverage = 0.30
	minAnchorChars    = 15

	// Similarity thresholds over the extrapolated window.
	shortSegmentChars = 20
	shortSegmentRatio = 0.65
	longSegmentRatio  = 0.50

	// Every segment keeps at least this much screen time.
	minSegmentSeconds = 0.5
)

// Result is the estimated time range for one text segment. Confidence 0
// denotes an interpolated (non-matched) segment.
type Result struct {
	SegmentIndex int
	Start        float64
	End          float64
	Duration     float64
	Confidence   float64
}

// Align assigns each ordered segment a best-estimate [start, end) over the
// caption stream. Returns nil when the stream is empty so callers can fall
// back to even distribution.
func Align(segments []string, spans []captions.Span) []Result {
	st := newStream(spans)
	if len(segments) == 0 || st.empty() {
		return nil
	}

	type anchor struct {
		matched    bool
		normStart  int
		normEnd    int
		confidence float64
		segLen     int
	}

	anchors := make([]anchor, len(segments))
	cursor := 0
	streamRunes := st.norm.Runes

	for i, segment := range segments {
		seg := Normalize(segment)
		anchors[i].segLen = seg.Len()
		if seg.Len() == 0 {
			continue
		}

		// Search never regresses before the last accepted anchor: one pass
		// over the stream bounds the worst case.
		start, confidence := -1, 0.0
		if idx := runeIndex(streamRunes, seg.Runes, cursor); idx >= 0 {
			start, confidence = idx, 1.0
		} else {
			remaining := streamRunes[cursor:]
			lcsLen, segPos, streamPos := longestCommonSubstring(seg.Runes, remaining)
			covered := float64(lcsLen) >= minAnchorCoverage*float64(seg.Len()) || lcsLen >= minAnchorChars
			if lcsLen > 0 && covered {
				windowStart := cursor + streamPos - segPos
				if windowStart < cursor {
					windowStart = cursor
				}
				windowEnd := windowStart + seg.Len()
				if windowEnd > len(streamRunes) {
					windowEnd = len(streamRunes)
				}
				if windowStart < windowEnd {
					ratio := similarityRatio(seg.Runes, streamRunes[windowStart:windowEnd])
					threshold := longSegmentRatio
					if seg.Len() < shortSegmentChars {
						threshold = shortSegmentRatio
					}
					if ratio >= threshold {
						start, confidence = windowStart, ratio
					}
				}
			}
		}

		if start >= 0 {
			end := start + seg.Len()
			if end > len(streamRunes) {
				end = len(streamRunes)
			}
			anchors[i] = anchor{matched: true, normStart: start, normEnd: end, confidence: confidence, segLen: seg.Len()}
			cursor = end
		}
	}

	results := make([]Result, len(segments))
	for i := range results {
		results[i].SegmentIndex = i
	}
	for i, a := range anchors {
		if a.matched {
			results[i].Start = st.timeAtNorm(a.normStart, false)
			results[i].End = st.timeAtNorm(a.normEnd, true)
			results[i].Confidence = a.confidence
		}
	}

	// Distribute unmatched runs between the surrounding anchors, weighted by
	// each gapped segment's normalized character length.
	i := 0
	for i < len(anchors) {
		if anchors[i].matched {
			i++
			continue
		}
		runStart := i
		for i < len(anchors) && !anchors[i].matched {
			i++
		}
		runEnd := i // exclusive

		prevEnd := 0.0
		if runStart > 0 {
			prevEnd = results[runStart-1].End
		}
		nextStart := st.endTime()
		if runEnd < len(anchors) {
			nextStart = results[runEnd].Start
		}
		budget := nextStart - prevEnd
		if budget < 0 {
			budget = 0
		}

		totalWeight := 0
		for j := runStart; j < runEnd; j++ {
			totalWeight += weightFor(anchors[j].segLen)
		}
		at := prevEnd
		for j := runStart; j < runEnd; j++ {
			share := budget * float64(weightFor(anchors[j].segLen)) / float64(totalWeight)
			results[j].Start = at
			results[j].End = at + share
			results[j].Confidence = 0
			at += share
		}
	}

	// Overlap resolution and the minimum duration floor. A start that
	// regresses before the previous end is clamped; short segments steal
	// time from their own end.
	prevEnd := 0.0
	for i := range results {
		if results[i].Start < prevEnd {
			results[i].Start = prevEnd
		}
		if results[i].End < results[i].Start+minSegmentSeconds {
			results[i].End = results[i].Start + minSegmentSeconds
		}
		results[i].Duration = results[i].End - results[i].Start
		prevEnd = results[i].End
	}

	return results
}

func weightFor(segLen int) int {
	if segLen < 1 {
		return 1
	}
	return segLen
}
