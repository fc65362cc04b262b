package pipeline

import (
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
)

func stageListEqual(a, b []queue.StageID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlanStagesTextJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	got := PlanStages(cfg, queue.JobText, false)
	want := []queue.StageID{
		queue.StageRewrite,
		queue.StageImagePrompts,
		queue.StageImageGeneration,
		queue.StageVoiceover,
		queue.StageSubtitles,
		queue.StageComposition,
	}
	if !stageListEqual(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
}

func TestPlanStagesRewriteJobWithTranslation(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.ImageGen.GenerateClips = true
	})
	got := PlanStages(cfg, queue.JobRewrite, true)
	want := []queue.StageID{
		queue.StageDownload,
		queue.StageTranscription,
		queue.StageRewrite,
		queue.StageTranslation,
		queue.StageImagePrompts,
		queue.StageImageGeneration,
		queue.StageVideoGeneration,
		queue.StageVoiceover,
		queue.StageSubtitles,
		queue.StageComposition,
	}
	if !stageListEqual(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
}

func TestPlanStagesWithoutSubtitles(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Subtitles.Enabled = false
	})
	for _, id := range PlanStages(cfg, queue.JobText, false) {
		if id == queue.StageSubtitles {
			t.Fatal("subtitles stage planned while disabled")
		}
	}
}

func TestPlannedStagesHaveHandlersAndProviders(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.ImageGen.GenerateClips = true
	})
	handlers := BuildHandlers(cfg, NewServices(cfg, nil), nil)
	for _, id := range PlanStages(cfg, queue.JobRewrite, true) {
		if handlers[id] == nil {
			t.Fatalf("no handler for stage %s", id)
		}
		if stageProviders[id] == "" {
			t.Fatalf("no provider queue for stage %s", id)
		}
	}
}

func TestNarrationTextPrefersWorkingText(t *testing.T) {
	task := &queue.Task{OriginalText: "original", WorkingText: "  rewritten  "}
	if got := narrationText(task); got != "rewritten" {
		t.Fatalf("got %q", got)
	}
	task.WorkingText = " "
	if got := narrationText(task); got != "original" {
		t.Fatalf("got %q", got)
	}
}

func TestPromptLines(t *testing.T) {
	got := promptLines("first prompt\n\n  second prompt  \n")
	if len(got) != 2 || got[0] != "first prompt" || got[1] != "second prompt" {
		t.Fatalf("got %v", got)
	}
	if got := promptLines(""); len(got) != 0 {
		t.Fatalf("empty text should yield no prompts, got %v", got)
	}
}

func TestIsVideoAsset(t *testing.T) {
	for _, path := range []string{"clip.mp4", "CLIP.MOV", "a/b/c.webm"} {
		if !isVideoAsset(path) {
			t.Fatalf("%q should be a video asset", path)
		}
	}
	for _, path := range []string{"image.png", "narration.mp3", "script.txt"} {
		if isVideoAsset(path) {
			t.Fatalf("%q should not be a video asset", path)
		}
	}
}

func TestMediaExtension(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/talk.mp3", ".mp3"},
		{"https://example.com/video.MP4?token=abc", ".mp4"},
		{"https://example.com/page.html", ""},
		{"https://example.com/article", ""},
		{"https://example.com/cast.m4a#t=30", ".m4a"},
	}
	for _, tc := range cases {
		if got := mediaExtension(tc.url); got != tc.want {
			t.Fatalf("mediaExtension(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
