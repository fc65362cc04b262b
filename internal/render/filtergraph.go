package render

import (
	"fmt"
	"strconv"
	"strings"

	"reelsmith/internal/compose"
)

// outputFrameRate is the frame rate every visual is conformed to before the
// transition chain; mixing rates inside xfade produces judder.
const outputFrameRate = 30

// BuildFilterGraph renders the filter_complex script for a plan. Input index
// layout matches inputStreams: optional intro clip first, then the timeline
// visuals in order, then the narration track, then the optional background
// track. The video and audio chains end unlabeled so the muxer maps them
// without explicit -map arguments.
func BuildFilterGraph(plan compose.Plan, introSeconds float64) (string, error) {
	width, height, err := parseResolution(plan.Resolution)
	if err != nil {
		return "", err
	}
	if len(plan.Items) == 0 {
		return "", fmt.Errorf("filter graph: empty timeline")
	}

	var b strings.Builder
	introOffset := 0
	if plan.IntroVideo != "" {
		introOffset = 1
	}

	// Conform every visual to the output geometry.
	if plan.IntroVideo != "" {
		writeScaleChain(&b, 0, width, height, "vintro")
	}
	for i := range plan.Items {
		writeScaleChain(&b, introOffset+i, width, height, fmt.Sprintf("v%d", i))
	}

	body := joinVisuals(&b, plan)
	final := body
	if plan.IntroVideo != "" {
		final = joinIntro(&b, plan, body, introSeconds)
	}

	// Video chain tail: optional caption burn-in, then unlabeled for auto-map.
	if plan.CaptionPath != "" {
		fmt.Fprintf(&b, "[%s]subtitles=filename=%s;\n", final, escapeFilterPath(plan.CaptionPath))
	} else {
		fmt.Fprintf(&b, "[%s]null;\n", final)
	}

	writeAudioChain(&b, plan, introOffset, introSeconds)
	return b.String(), nil
}

func writeScaleChain(b *strings.Builder, input, width, height int, label string) {
	fmt.Fprintf(b,
		"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d[%s];\n",
		input, width, height, width, height, outputFrameRate, label)
}

// joinVisuals chains the conformed visuals with xfade transitions, or a plain
// concat when no transition is configured, and returns the resulting label.
func joinVisuals(b *strings.Builder, plan compose.Plan) string {
	items := plan.Items
	if len(items) == 1 {
		return "v0"
	}

	if plan.TransitionSeconds <= 0 {
		for i := range items {
			fmt.Fprintf(b, "[v%d]", i)
		}
		fmt.Fprintf(b, "concat=n=%d:v=1:a=0[vbody];\n", len(items))
		return "vbody"
	}

	effect := plan.TransitionEffect
	if effect == "" {
		effect = "fade"
	}
	current := "v0"
	offset := 0.0
	for i := 1; i < len(items); i++ {
		// Each join starts one transition before the previous item ends.
		offset += items[i-1].Seconds - plan.TransitionSeconds
		next := fmt.Sprintf("x%d", i)
		fmt.Fprintf(b, "[%s][v%d]xfade=transition=%s:duration=%s:offset=%s[%s];\n",
			current, i, effect, formatSeconds(plan.TransitionSeconds), formatSeconds(offset), next)
		current = next
	}
	return current
}

// joinIntro prepends the intro clip to the body, hard cut or crossfaded.
func joinIntro(b *strings.Builder, plan compose.Plan, body string, introSeconds float64) string {
	if plan.IntroHardCut || plan.TransitionSeconds <= 0 || introSeconds <= plan.TransitionSeconds {
		fmt.Fprintf(b, "[vintro][%s]concat=n=2:v=1:a=0[vmain];\n", body)
		return "vmain"
	}
	effect := plan.TransitionEffect
	if effect == "" {
		effect = "fade"
	}
	fmt.Fprintf(b, "[vintro][%s]xfade=transition=%s:duration=%s:offset=%s[vmain];\n",
		body, effect, formatSeconds(plan.TransitionSeconds), formatSeconds(introSeconds-plan.TransitionSeconds))
	return "vmain"
}

// writeAudioChain emits the narration chain, delayed past the intro when one
// is present, mixed with the looping background bed when configured.
func writeAudioChain(b *strings.Builder, plan compose.Plan, introOffset int, introSeconds float64) {
	narration := introOffset + len(plan.Items)
	background := narration + 1

	current := fmt.Sprintf("%d:a", narration)
	if introOffset > 0 && introSeconds > 0 {
		delayMillis := int(introSeconds * 1000)
		fmt.Fprintf(b, "[%s]adelay=%d:all=1[anarr];\n", current, delayMillis)
		current = "anarr"
	}

	if plan.BackgroundAudio == "" {
		fmt.Fprintf(b, "[%s]anull\n", current)
		return
	}

	volume := plan.BackgroundVolume
	if volume <= 0 {
		volume = 0.1
	}
	fmt.Fprintf(b, "[%d:a]volume=%s[abed];\n", background, formatSeconds(volume))
	fmt.Fprintf(b, "[%s][abed]amix=inputs=2:duration=first:dropout_transition=0\n", current)
}

func parseResolution(resolution string) (int, int, error) {
	wpart, hpart, ok := strings.Cut(strings.ToLower(strings.TrimSpace(resolution)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("filter graph: malformed resolution %q", resolution)
	}
	width, err := strconv.Atoi(wpart)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("filter graph: malformed resolution %q", resolution)
	}
	height, err := strconv.Atoi(hpart)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("filter graph: malformed resolution %q", resolution)
	}
	return width, height, nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

// escapeFilterPath quotes filter option metacharacters in a file path.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(path)
}
