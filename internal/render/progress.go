package render

import (
	"strconv"
	"strings"
)

// Progress is one renderer progress sample.
type Progress struct {
	Seconds float64
	Percent float64
	Done    bool
}

// ParseProgressLine extracts the rendered position from one line of renderer
// output. Both the `-progress` key=value protocol (out_time=) and classic
// stats lines (time=) are understood; swapping renderers must preserve this
// contract.
func ParseProgressLine(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if value, ok := cutToken(line, "out_time="); ok {
		if seconds, err := parseClock(value); err == nil {
			return seconds, true
		}
	}
	if value, ok := cutToken(line, "time="); ok {
		if seconds, err := parseClock(value); err == nil {
			return seconds, true
		}
	}
	return 0, false
}

// IsProgressEnd reports whether the line marks the end of the progress feed.
func IsProgressEnd(line string) bool {
	return strings.TrimSpace(line) == "progress=end"
}

func cutToken(line, token string) (string, bool) {
	idx := strings.Index(line, token)
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(token):]
	if end := strings.IndexAny(rest, " \t"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" || rest == "N/A" {
		return "", false
	}
	return rest, true
}

// parseClock converts HH:MM:SS.ss (or plain seconds) to fractional seconds.
func parseClock(value string) (float64, error) {
	parts := strings.Split(value, ":")
	if len(parts) == 1 {
		return strconv.ParseFloat(parts[0], 64)
	}
	total := 0.0
	for _, part := range parts {
		component, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, err
		}
		total = total*60 + component
	}
	return total, nil
}
