package render

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"reelsmith/internal/compose"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
)

// ProgressFunc receives periodic samples while a render is running.
type ProgressFunc func(Progress)

// Renderer turns a composition plan into a video file by invoking ffmpeg.
type Renderer struct {
	ffmpegBinary  string
	ffprobeBinary string
	logger        *slog.Logger
}

// New returns a renderer bound to the given ffmpeg and ffprobe binaries.
// Empty binary names fall back to PATH lookup.
func New(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Renderer {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary, logger: logger}
}

// Render executes the plan. The filter graph is written to a script file so
// long timelines do not overflow the argument list. Progress callbacks carry
// the rendered position against the expected total duration.
func (r *Renderer) Render(ctx context.Context, plan compose.Plan, onProgress ProgressFunc) error {
	introSeconds := 0.0
	if plan.IntroVideo != "" {
		probe, err := ffprobe.Inspect(ctx, r.ffprobeBinary, plan.IntroVideo)
		if err != nil {
			return fmt.Errorf("render: probe intro: %w", err)
		}
		introSeconds = probe.DurationSeconds()
	}

	script, err := BuildFilterGraph(plan, introSeconds)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	scriptFile, err := os.CreateTemp("", "reelsmith-filter-*.txt")
	if err != nil {
		return fmt.Errorf("render: filter script: %w", err)
	}
	scriptPath := scriptFile.Name()
	defer os.Remove(scriptPath)
	if _, err := scriptFile.WriteString(script); err != nil {
		scriptFile.Close()
		return fmt.Errorf("render: filter script: %w", err)
	}
	if err := scriptFile.Close(); err != nil {
		return fmt.Errorf("render: filter script: %w", err)
	}

	args := r.buildArgs(plan, scriptPath)
	r.logger.Debug("starting render",
		logging.String("binary", r.ffmpegBinary),
		logging.Int64("inputs", int64(len(plan.Items))),
		logging.String("output", plan.OutputPath))

	cmd := exec.CommandContext(ctx, r.ffmpegBinary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("render: stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("render: start %s: %w", r.ffmpegBinary, err)
	}

	total := plan.EffectiveSeconds() + introSeconds
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if IsProgressEnd(line) {
			if onProgress != nil {
				onProgress(Progress{Seconds: total, Percent: 100, Done: true})
			}
			continue
		}
		seconds, ok := ParseProgressLine(line)
		if !ok || onProgress == nil {
			continue
		}
		sample := Progress{Seconds: seconds}
		if total > 0 {
			sample.Percent = seconds / total * 100
			if sample.Percent > 100 {
				sample.Percent = 100
			}
		}
		onProgress(sample)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("render: %s: %w: %s", r.ffmpegBinary, err, tailLines(stderr.String(), 8))
	}
	return nil
}

// buildArgs assembles the ffmpeg argument list. The input order must match
// the index layout BuildFilterGraph assumes.
func (r *Renderer) buildArgs(plan compose.Plan, scriptPath string) []string {
	streams := make([]*ffmpeg.Stream, 0, len(plan.Items)+3)
	if plan.IntroVideo != "" {
		streams = append(streams, ffmpeg.Input(plan.IntroVideo))
	}
	for _, item := range plan.Items {
		if item.IsVideo {
			streams = append(streams, ffmpeg.Input(item.Path))
			continue
		}
		// Stills are looped one transition past their scheduled duration so
		// the crossfade has frames to consume.
		streams = append(streams, ffmpeg.Input(item.Path, ffmpeg.KwArgs{
			"loop":      "1",
			"framerate": fmt.Sprintf("%d", outputFrameRate),
			"t":         formatSeconds(item.Seconds + plan.TransitionSeconds),
		}))
	}
	streams = append(streams, ffmpeg.Input(plan.AudioPath))
	if plan.BackgroundAudio != "" {
		streams = append(streams, ffmpeg.Input(plan.BackgroundAudio, ffmpeg.KwArgs{"stream_loop": "-1"}))
	}

	preset := plan.Preset
	if preset == "" {
		preset = "medium"
	}
	output := ffmpeg.Output(streams, plan.OutputPath, ffmpeg.KwArgs{
		"filter_complex_script": scriptPath,
		"c:v":                   "libx264",
		"preset":                preset,
		"pix_fmt":               "yuv420p",
		"r":                     fmt.Sprintf("%d", outputFrameRate),
		"c:a":                   "aac",
		"b:a":                   "192k",
	}).OverWriteOutput().GlobalArgs("-hide_banner", "-nostats", "-progress", "pipe:1")

	// Compile resolves the graph to argv; argv[0] is replaced with the
	// configured binary when the command runs.
	compiled := output.Compile()
	return compiled.Args[1:]
}

func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
