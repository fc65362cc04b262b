package compose

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"

	"reelsmith/internal/align"
)

// SyncReport tabulates how each segment landed on the timeline: the visual
// shown, when it appears in the output, when the caption match placed it,
// and the match confidence. Written next to the output video on request.
func SyncReport(items []Item, segments []align.Result, transitionSeconds float64) string {
	t := table.NewWriter()
	t.SetTitle("Narration Sync Report")
	t.AppendHeader(table.Row{"Segment", "Visual", "Display At", "Caption Match", "Confidence"})

	displayAt := 0.0
	for i, item := range items {
		matchCell := "interpolated"
		confidenceCell := "0.00"
		if i < len(segments) {
			seg := segments[i]
			if seg.Confidence > 0 {
				matchCell = formatClock(seg.Start)
			}
			confidenceCell = fmt.Sprintf("%.2f", seg.Confidence)
		} else {
			matchCell = "-"
			confidenceCell = "-"
		}
		t.AppendRow(table.Row{
			i + 1,
			filepath.Base(item.Path),
			formatClock(displayAt),
			matchCell,
			confidenceCell,
		})
		displayAt += item.Seconds
		if transitionSeconds > 0 && i < len(items)-1 {
			displayAt -= transitionSeconds
		}
	}
	t.AppendFooter(table.Row{"", "", formatClock(displayAt), "", ""})
	return t.Render() + "\n"
}

func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	return fmt.Sprintf("%02d:%05.2f", minutes, seconds-float64(minutes*60))
}
