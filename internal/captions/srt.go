package captions

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSRT parses SRT content into spans. Malformed blocks are skipped.
func ParseSRT(content string) ([]Span, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	blocks := strings.Split(content, "\n\n")
	var spans []Span
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}

		// The index line is optional in the wild; find the timing line.
		timingIdx := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx < 0 || timingIdx == len(lines)-1 {
			continue
		}

		parts := strings.Split(lines[timingIdx], "-->")
		if len(parts) != 2 {
			continue
		}
		start, err := ParseSRTTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := ParseSRTTimestamp(parts[1])
		if err != nil {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[timingIdx+1:], "\n"))
		if text == "" {
			continue
		}
		spans = append(spans, Span{Start: start, End: end, Text: text})
	}
	return spans, nil
}

// ParseSRTTimestamp converts HH:MM:SS,mmm (or period-delimited millis) to
// fractional seconds.
func ParseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
