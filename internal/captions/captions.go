// Package captions parses time-coded subtitle files into caption spans.
//
// Two source formats are supported: SRT block files and ASS dialogue files.
// ASS inline override codes are stripped so downstream text matching sees
// only spoken words. All timestamps are parsed to fractional seconds.
package captions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Span is one time-coded text span. Spans are ordered by start time and
// non-overlapping by construction of the source formats.
type Span struct {
	Start float64
	End   float64
	Text  string
}

// Duration returns the span length in seconds.
func (s Span) Duration() float64 {
	return s.End - s.Start
}

// ParseFile reads a subtitle file, dispatching on extension.
func ParseFile(path string) ([]Span, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ass", ".ssa":
		return ParseASS(string(data))
	default:
		return ParseSRT(string(data))
	}
}

// WriteSRT writes spans to an SRT file with 1-based cue indices.
func WriteSRT(path string, spans []Span) error {
	var sb strings.Builder
	for i, span := range spans {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", FormatSRTTimestamp(span.Start), FormatSRTTimestamp(span.End)))
		sb.WriteString(span.Text)
		sb.WriteString("\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	millis := int((seconds-float64(int(seconds)))*1000 + 0.5)
	if millis >= 1000 {
		millis -= 1000
		secs++
	}
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// TotalDuration returns the end timestamp of the last span, or 0.
func TotalDuration(spans []Span) float64 {
	if len(spans) == 0 {
		return 0
	}
	return spans[len(spans)-1].End
}
