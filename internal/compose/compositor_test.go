package compose

import (
	"math"
	"strings"
	"testing"

	"reelsmith/internal/align"
)

const eps = 1e-9

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func stills(paths ...string) []Visual {
	visuals := make([]Visual, len(paths))
	for i, p := range paths {
		visuals[i] = Visual{Path: p}
	}
	return visuals
}

func segmentDurations(durations ...float64) []align.Result {
	results := make([]align.Result, len(durations))
	for i, d := range durations {
		results[i] = align.Result{SegmentIndex: i, Duration: d, Confidence: 1}
	}
	return results
}

func TestBuildSharesAudioAcrossStills(t *testing.T) {
	// Three stills over ten seconds of narration with one-second crossfades:
	// each join hides one second, so each still runs four.
	items, err := Build(stills("a.png", "b.png", "c.png"), Options{
		AudioSeconds:      10,
		TransitionSeconds: 1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i, item := range items {
		approx(t, "item duration", item.Seconds, 4)
		if item.IsVideo {
			t.Fatalf("item %d flagged as video", i)
		}
	}
	approx(t, "effective total", effectiveSeconds(items, 1), 10)
}

func TestBuildSingleStillIgnoresTransition(t *testing.T) {
	items, err := Build(stills("only.png"), Options{
		AudioSeconds:      5,
		TransitionSeconds: 1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	approx(t, "duration", items[0].Seconds, 5)
}

func TestBuildClipsKeepMeasuredDuration(t *testing.T) {
	visuals := []Visual{
		{Path: "a.png"},
		{Path: "clip.mp4", IsVideo: true, MeasuredSeconds: 3.2},
		{Path: "b.png"},
	}
	items, err := Build(visuals, Options{
		AudioSeconds:      10,
		TransitionSeconds: 1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	approx(t, "clip duration", items[1].Seconds, 3.2)
	approx(t, "first still", items[0].Seconds, 4.4)
	approx(t, "second still", items[2].Seconds, 4.4)
	approx(t, "effective total", effectiveSeconds(items, 1), 10)
}

func TestBuildCarriesSyncDebtIntoNextStill(t *testing.T) {
	// The segment assigned the clip four seconds but the clip only runs
	// 2.5; the shortfall lands on the following still.
	visuals := []Visual{
		{Path: "a.png"},
		{Path: "clip.mp4", IsVideo: true, MeasuredSeconds: 2.5},
		{Path: "b.png"},
	}
	items, err := Build(visuals, Options{
		AudioSeconds: 10,
		Segments:     segmentDurations(3, 4, 3),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	approx(t, "first still", items[0].Seconds, 3)
	approx(t, "clip", items[1].Seconds, 2.5)
	approx(t, "second still", items[2].Seconds, 4.5)
	approx(t, "effective total", effectiveSeconds(items, 0), 10)
}

func TestBuildNegativeDebtFloorsStills(t *testing.T) {
	// A clip that overruns its segment squeezes the stills after it, but
	// never below the visibility floor.
	visuals := []Visual{
		{Path: "a.png"},
		{Path: "clip.mp4", IsVideo: true, MeasuredSeconds: 8},
		{Path: "b.png"},
		{Path: "c.png"},
	}
	items, err := Build(visuals, Options{
		AudioSeconds: 10,
		Segments:     segmentDurations(2, 5, 1, 2),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	approx(t, "first still", items[0].Seconds, 2)
	approx(t, "clip", items[1].Seconds, 8)
	approx(t, "squeezed still", items[2].Seconds, minImageSeconds)
	approx(t, "second squeezed still", items[3].Seconds, minImageSeconds)
}

func TestBuildFinalPassExtendsOnlyLastVisual(t *testing.T) {
	items, err := Build(stills("a.png", "b.png"), Options{
		AudioSeconds: 10,
		Segments:     segmentDurations(3, 3),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	approx(t, "first still", items[0].Seconds, 3)
	approx(t, "last still", items[1].Seconds, 7)
}

func TestBuildOrphanedSegmentsGoToNearestStill(t *testing.T) {
	visuals := []Visual{
		{Path: "clip.mp4", IsVideo: true, MeasuredSeconds: 2},
		{Path: "a.png"},
	}
	items, err := Build(visuals, Options{
		AudioSeconds: 7.5,
		Segments:     segmentDurations(2, 3, 1, 1.5),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	approx(t, "clip", items[0].Seconds, 2)
	approx(t, "still with orphans", items[1].Seconds, 5.5)
}

func TestBuildOrphanedSegmentsNeverExtendClips(t *testing.T) {
	visuals := []Visual{
		{Path: "a.png"},
		{Path: "clip.mp4", IsVideo: true, MeasuredSeconds: 3},
	}
	items, err := Build(visuals, Options{
		AudioSeconds: 6,
		Segments:     segmentDurations(2, 3, 1),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The orphaned second lands on the still even though the clip is the
	// last visual.
	approx(t, "still", items[0].Seconds, 3)
	approx(t, "clip", items[1].Seconds, 3)
}

func TestBuildQuickShow(t *testing.T) {
	items, err := Build(stills("a.png", "b.png", "c.png", "d.png", "e.png"), Options{
		AudioSeconds:     20,
		QuickShow:        true,
		QuickShowSeconds: 2.5,
		QuickShowCount:   3,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []float64{2.5, 2.5, 2.5, 6.25, 6.25}
	for i, item := range items {
		approx(t, "item duration", item.Seconds, want[i])
	}
}

func TestBuildQuickShowSkippedWhenBudgetTooSmall(t *testing.T) {
	items, err := Build(stills("a.png", "b.png", "c.png", "d.png", "e.png"), Options{
		AudioSeconds:     2,
		QuickShow:        true,
		QuickShowSeconds: 2.5,
		QuickShowCount:   3,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, item := range items {
		approx(t, "item duration", item.Seconds, 0.4)
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(nil, Options{AudioSeconds: 5}); err == nil {
		t.Fatal("expected error for empty visuals")
	}
	if _, err := Build(stills("a.png"), Options{AudioSeconds: 0}); err == nil {
		t.Fatal("expected error for zero audio duration")
	}
}

func TestBuildSegmentsWithTransitionsConserveDuration(t *testing.T) {
	// Ten seconds of narration over three stills with one-second crossfades:
	// the two joins hide one second each, so the first two stills absorb the
	// compensation and the transition-adjusted total matches the narration.
	items, err := Build(stills("a.png", "b.png", "c.png"), Options{
		AudioSeconds:      10,
		TransitionSeconds: 1,
		Segments:          segmentDurations(3, 3, 4),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []float64{4, 4, 4}
	for i, item := range items {
		approx(t, "item duration", item.Seconds, want[i])
	}
	approx(t, "effective total", effectiveSeconds(items, 1), 10)
}

func TestBuildConservesDuration(t *testing.T) {
	// Mixed stills and clips with transitions and segment timings: the
	// transition-adjusted total matches the narration within tolerance.
	visuals := []Visual{
		{Path: "a.png"},
		{Path: "clip1.mp4", IsVideo: true, MeasuredSeconds: 4.7},
		{Path: "b.png"},
		{Path: "clip2.mp4", IsVideo: true, MeasuredSeconds: 2.1},
		{Path: "c.png"},
	}
	items, err := Build(visuals, Options{
		AudioSeconds:      30,
		TransitionSeconds: 1,
		Segments:          segmentDurations(5, 6, 7, 4, 8),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	effective := effectiveSeconds(items, 1)
	if math.Abs(effective-30) > 0.1 {
		t.Fatalf("effective duration %v, want 30 +/- 0.1", effective)
	}
}

func TestSyncReport(t *testing.T) {
	items := []Item{
		{Path: "/work/assets/image_001.png", Seconds: 3},
		{Path: "/work/assets/clip_001.mp4", Seconds: 2.5, IsVideo: true},
	}
	segments := []align.Result{
		{SegmentIndex: 0, Start: 0, End: 3, Duration: 3, Confidence: 0.92},
		{SegmentIndex: 1, Start: 3, End: 5.5, Duration: 2.5, Confidence: 0},
	}
	report := SyncReport(items, segments, 0)
	for _, want := range []string{"Narration Sync Report", "image_001.png", "clip_001.mp4", "interpolated", "0.92"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}
