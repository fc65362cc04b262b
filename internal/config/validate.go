package config

import (
	"errors"
	"fmt"
	"strings"
)

const maxProviderConcurrency = 100

// Validate verifies configuration invariants before the daemon starts.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir is required")
	}

	ceilings := map[string]int{
		"textgen.max_concurrency":    c.TextGen.MaxConcurrency,
		"speech.max_concurrency":     c.Speech.MaxConcurrency,
		"imagegen.max_concurrency":   c.ImageGen.MaxConcurrency,
		"transcribe.max_concurrency": c.Transcribe.MaxConcurrency,
		"download.max_concurrency":   c.Download.MaxConcurrency,
		"render.max_concurrency":     c.Render.MaxConcurrency,
		"subtitles.max_concurrency":  c.Subtitles.MaxConcurrency,
	}
	for key, value := range ceilings {
		// A ceiling of zero would deadlock every dependent stage.
		if value < 1 || value > maxProviderConcurrency {
			problems = append(problems, fmt.Sprintf("%s must be between 1 and %d", key, maxProviderConcurrency))
		}
	}

	if c.Render.TransitionSeconds < 0 {
		problems = append(problems, "render.transition_seconds must not be negative")
	}
	if c.Render.QuickShowSeconds <= 0 {
		problems = append(problems, "render.quick_show_seconds must be positive")
	}
	if c.Render.BackgroundVolume < 0 || c.Render.BackgroundVolume > 1 {
		problems = append(problems, "render.background_volume must be within [0, 1]")
	}
	if !validResolution(c.Render.Resolution) {
		problems = append(problems, fmt.Sprintf("render.resolution %q is not WIDTHxHEIGHT", c.Render.Resolution))
	}
	if c.ImageGen.PromptCount < 0 {
		problems = append(problems, "imagegen.prompt_count must not be negative")
	}
	if c.ImageGen.ClipSeconds <= 0 && c.ImageGen.GenerateClips {
		problems = append(problems, "imagegen.clip_seconds must be positive when clips are enabled")
	}
	if c.Workflow.QueuePollInterval < 0 {
		problems = append(problems, "workflow.queue_poll_interval must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func validResolution(value string) bool {
	parts := strings.Split(strings.TrimSpace(value), "x")
	if len(parts) != 2 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
