package captions

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var assOverrideRe = regexp.MustCompile(`\{[^}]*\}`)

// ParseASS parses Advanced SubStation Alpha dialogue lines into spans.
// Inline override codes ({\...}) and drawing commands are stripped.
func ParseASS(content string) ([]Span, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var (
		spans      []Span
		inEvents   bool
		formatCols []string
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "["):
			inEvents = strings.EqualFold(trimmed, "[Events]")
		case inEvents && strings.HasPrefix(trimmed, "Format:"):
			formatCols = splitASSFields(strings.TrimPrefix(trimmed, "Format:"), -1)
			for i := range formatCols {
				formatCols[i] = strings.ToLower(strings.TrimSpace(formatCols[i]))
			}
		case inEvents && strings.HasPrefix(trimmed, "Dialogue:"):
			if len(formatCols) == 0 {
				formatCols = defaultASSFormat()
			}
			fields := splitASSFields(strings.TrimPrefix(trimmed, "Dialogue:"), len(formatCols))
			if len(fields) != len(formatCols) {
				continue
			}
			span, err := assDialogueSpan(formatCols, fields)
			if err != nil {
				continue
			}
			if span.Text != "" {
				spans = append(spans, span)
			}
		}
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans, nil
}

func defaultASSFormat() []string {
	return []string{"layer", "start", "end", "style", "name", "marginl", "marginr", "marginv", "effect", "text"}
}

// splitASSFields splits a comma-delimited event line. When limit is positive
// the final field keeps embedded commas (the Text column).
func splitASSFields(line string, limit int) []string {
	if limit <= 0 {
		return strings.Split(line, ",")
	}
	return strings.SplitN(line, ",", limit)
}

func assDialogueSpan(formatCols, fields []string) (Span, error) {
	var span Span
	for i, col := range formatCols {
		value := strings.TrimSpace(fields[i])
		switch col {
		case "start":
			start, err := ParseASSTimestamp(value)
			if err != nil {
				return span, err
			}
			span.Start = start
		case "end":
			end, err := ParseASSTimestamp(value)
			if err != nil {
				return span, err
			}
			span.End = end
		case "text":
			span.Text = cleanASSText(fields[i])
		}
	}
	return span, nil
}

// ParseASSTimestamp converts H:MM:SS.cc (centiseconds) to fractional seconds.
func ParseASSTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid ass timestamp %q", value)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.ParseFloat(parts[2], 64)
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid ass timestamp %q", value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

func cleanASSText(text string) string {
	text = assOverrideRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `\N`, " ")
	text = strings.ReplaceAll(text, `\n`, " ")
	text = strings.ReplaceAll(text, `\h`, " ")
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
