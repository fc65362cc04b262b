package render

import (
	"strings"
	"testing"

	"reelsmith/internal/compose"
)

func basePlan(items ...compose.Item) compose.Plan {
	return compose.Plan{
		Items:      items,
		Resolution: "1920x1080",
		AudioPath:  "/work/narration.mp3",
		OutputPath: "/work/output.mp4",
	}
}

func TestBuildFilterGraphCrossfadeOffsets(t *testing.T) {
	plan := basePlan(
		compose.Item{Path: "a.png", Seconds: 4},
		compose.Item{Path: "b.png", Seconds: 4},
		compose.Item{Path: "c.png", Seconds: 4},
	)
	plan.TransitionEffect = "fade"
	plan.TransitionSeconds = 1

	graph, err := BuildFilterGraph(plan, 0)
	if err != nil {
		t.Fatalf("BuildFilterGraph: %v", err)
	}

	// Joins fire one transition before each predecessor ends: at 3s and 6s.
	if !strings.Contains(graph, "xfade=transition=fade:duration=1.000:offset=3.000[x1]") {
		t.Fatalf("first xfade offset wrong:\n%s", graph)
	}
	if !strings.Contains(graph, "xfade=transition=fade:duration=1.000:offset=6.000[x2]") {
		t.Fatalf("second xfade offset wrong:\n%s", graph)
	}
	if !strings.Contains(graph, "scale=1920:1080:force_original_aspect_ratio=decrease") {
		t.Fatalf("scale chain missing:\n%s", graph)
	}
	if !strings.Contains(graph, "fps=30") {
		t.Fatalf("frame rate conform missing:\n%s", graph)
	}
	// Without captions the video tail is a bare null sink.
	if !strings.Contains(graph, "[x2]null;") {
		t.Fatalf("video tail missing:\n%s", graph)
	}
}

func TestBuildFilterGraphConcatWithoutTransition(t *testing.T) {
	plan := basePlan(
		compose.Item{Path: "a.png", Seconds: 2},
		compose.Item{Path: "b.png", Seconds: 2},
	)

	graph, err := BuildFilterGraph(plan, 0)
	if err != nil {
		t.Fatalf("BuildFilterGraph: %v", err)
	}
	if !strings.Contains(graph, "[v0][v1]concat=n=2:v=1:a=0[vbody];") {
		t.Fatalf("concat join missing:\n%s", graph)
	}
	if strings.Contains(graph, "xfade") {
		t.Fatalf("unexpected xfade without transition:\n%s", graph)
	}
}

func TestBuildFilterGraphCaptionBurnIn(t *testing.T) {
	plan := basePlan(compose.Item{Path: "a.png", Seconds: 5})
	plan.CaptionPath = "/work/it's here/narration.srt"

	graph, err := BuildFilterGraph(plan, 0)
	if err != nil {
		t.Fatalf("BuildFilterGraph: %v", err)
	}
	if !strings.Contains(graph, `subtitles=filename=/work/it\'s here/narration.srt`) {
		t.Fatalf("caption path not escaped:\n%s", graph)
	}
}

func TestBuildFilterGraphBackgroundMix(t *testing.T) {
	plan := basePlan(compose.Item{Path: "a.png", Seconds: 5})
	plan.BackgroundAudio = "/music/bed.mp3"
	plan.BackgroundVolume = 0.15

	graph, err := BuildFilterGraph(plan, 0)
	if err != nil {
		t.Fatalf("BuildFilterGraph: %v", err)
	}
	// Narration is input 1, background input 2.
	if !strings.Contains(graph, "[2:a]volume=0.150[abed];") {
		t.Fatalf("background volume chain missing:\n%s", graph)
	}
	if !strings.Contains(graph, "[1:a][abed]amix=inputs=2:duration=first:dropout_transition=0") {
		t.Fatalf("amix chain missing:\n%s", graph)
	}
}

func TestBuildFilterGraphIntroDelaysNarration(t *testing.T) {
	plan := basePlan(
		compose.Item{Path: "a.png", Seconds: 5},
		compose.Item{Path: "b.png", Seconds: 5},
	)
	plan.IntroVideo = "/brand/intro.mp4"
	plan.TransitionEffect = "fade"
	plan.TransitionSeconds = 1

	graph, err := BuildFilterGraph(plan, 3.5)
	if err != nil {
		t.Fatalf("BuildFilterGraph: %v", err)
	}
	// Intro occupies input 0; visuals shift by one.
	if !strings.Contains(graph, "[0:v]scale=") || !strings.Contains(graph, "[1:v]scale=") {
		t.Fatalf("input layout wrong:\n%s", graph)
	}
	if !strings.Contains(graph, "xfade=transition=fade:duration=1.000:offset=2.500[vmain]") {
		t.Fatalf("intro crossfade offset wrong:\n%s", graph)
	}
	if !strings.Contains(graph, "adelay=3500:all=1[anarr];") {
		t.Fatalf("narration delay missing:\n%s", graph)
	}
}

func TestBuildFilterGraphIntroHardCut(t *testing.T) {
	plan := basePlan(compose.Item{Path: "a.png", Seconds: 5})
	plan.IntroVideo = "/brand/intro.mp4"
	plan.IntroHardCut = true

	graph, err := BuildFilterGraph(plan, 2)
	if err != nil {
		t.Fatalf("BuildFilterGraph: %v", err)
	}
	if !strings.Contains(graph, "[vintro][v0]concat=n=2:v=1:a=0[vmain];") {
		t.Fatalf("hard cut concat missing:\n%s", graph)
	}
}

func TestBuildFilterGraphErrors(t *testing.T) {
	plan := basePlan(compose.Item{Path: "a.png", Seconds: 5})
	plan.Resolution = "wide"
	if _, err := BuildFilterGraph(plan, 0); err == nil {
		t.Fatal("expected resolution error")
	}

	empty := basePlan()
	if _, err := BuildFilterGraph(empty, 0); err == nil {
		t.Fatal("expected empty timeline error")
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\media\a,b[1].srt`)
	want := `C\:\\media\\a\,b\[1\].srt`
	if got != want {
		t.Fatalf("escaped = %q, want %q", got, want)
	}
}
