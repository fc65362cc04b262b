package compose

import (
	"errors"
	"fmt"

	"reelsmith/internal/align"
)

const (
	// Floor for a still image squeezed by sync debt.
	minImageSeconds = 0.1
	// Residual smaller than this is treated as already conserved.
	durationEpsilon = 0.01
)

// Options holds the timing inputs for a composition.
type Options struct {
	// AudioSeconds is the narration duration the timeline must cover.
	AudioSeconds float64

	TransitionEffect  string
	TransitionSeconds float64

	// QuickShow reserves a fixed short duration for the first K stills and
	// spreads the remaining budget over the rest. Used directly or as the
	// degraded fallback when clip generation produced nothing usable.
	QuickShow        bool
	QuickShowSeconds float64
	QuickShowCount   int

	// Segments carries alignment-derived durations; nil means even split.
	Segments []align.Result
}

// Build computes the ordered (asset, duration) timeline. The invariant
// enforced by the final pass: sum(durations) − (n−1)·transition matches
// AudioSeconds, closing any gap by extending only the last visual.
func Build(visuals []Visual, opts Options) ([]Item, error) {
	if len(visuals) == 0 {
		return nil, errors.New("no images available")
	}
	if opts.AudioSeconds <= 0 {
		return nil, fmt.Errorf("invalid audio duration %.3f", opts.AudioSeconds)
	}

	transition := opts.TransitionSeconds
	if len(visuals) < 2 {
		transition = 0
	}
	overlapLoss := 0.0
	if transition > 0 {
		overlapLoss = float64(len(visuals)-1) * transition
	}

	planned := plannedDurations(visuals, opts, transition, overlapLoss)
	items := settleSyncDebt(visuals, planned)

	// Final corrective pass: compare the transition-adjusted total to the
	// true audio duration and extend the last visual. Never shrinks.
	residual := opts.AudioSeconds - effectiveSeconds(items, transition)
	if residual > durationEpsilon {
		items[len(items)-1].Seconds += residual
	}

	return items, nil
}

// plannedDurations assigns each visual its pre-debt duration.
func plannedDurations(visuals []Visual, opts Options, transition, overlapLoss float64) []float64 {
	planned := make([]float64, len(visuals))

	if len(opts.Segments) > 0 {
		plannedFromSegments(visuals, opts.Segments, transition, planned)
		return planned
	}

	videoTotal := 0.0
	stills := 0
	for _, v := range visuals {
		if v.IsVideo {
			videoTotal += v.MeasuredSeconds
		} else {
			stills++
		}
	}
	// Clips keep their natural duration; stills share what remains.
	imageTime := opts.AudioSeconds + overlapLoss - videoTotal
	if imageTime < 0 {
		imageTime = 0
	}

	quickCount := 0
	quickTime := 0.0
	if opts.QuickShow && stills > 0 {
		quickCount = opts.QuickShowCount
		if quickCount > stills {
			quickCount = stills
		}
		quickTime = float64(quickCount) * opts.QuickShowSeconds
		if quickTime > imageTime {
			quickCount = 0
			quickTime = 0
		}
	}

	restShare := 0.0
	if rest := stills - quickCount; rest > 0 {
		restShare = (imageTime - quickTime) / float64(rest)
	}

	stillIdx := 0
	for i, v := range visuals {
		if v.IsVideo {
			planned[i] = v.MeasuredSeconds
			continue
		}
		if stillIdx < quickCount {
			planned[i] = opts.QuickShowSeconds
		} else {
			planned[i] = restShare
		}
		stillIdx++
	}
	return planned
}

// plannedFromSegments maps segment durations onto visuals one-to-one. Each
// join hides one transition of playtime, so every visual except the last
// gains that much compensation. Segments without a visual have their time
// folded into the nearest surrounding still image, never a clip, to avoid
// visibly freezing motion.
func plannedFromSegments(visuals []Visual, segments []align.Result, transition float64, planned []float64) {
	for i := range visuals {
		if i < len(segments) {
			planned[i] = segments[i].Duration
		}
		if transition > 0 && i < len(visuals)-1 {
			planned[i] += transition
		}
	}

	if len(segments) > len(visuals) {
		orphaned := 0.0
		for _, seg := range segments[len(visuals):] {
			orphaned += seg.Duration
		}
		if idx := nearestStill(visuals, len(visuals)-1); idx >= 0 {
			planned[idx] += orphaned
		}
	}
}

// nearestStill finds the still image closest to position from, preferring
// earlier assets on ties.
func nearestStill(visuals []Visual, from int) int {
	for offset := 0; offset < len(visuals); offset++ {
		if i := from - offset; i >= 0 && !visuals[i].IsVideo {
			return i
		}
		if i := from + offset; offset > 0 && i < len(visuals) && !visuals[i].IsVideo {
			return i
		}
	}
	return -1
}

// settleSyncDebt replaces each clip's planned duration with its measured
// duration and carries the signed difference into the next still image,
// clamped to the image floor; unabsorbed debt keeps moving forward.
func settleSyncDebt(visuals []Visual, planned []float64) []Item {
	items := make([]Item, len(visuals))
	debt := 0.0
	for i, v := range visuals {
		if v.IsVideo {
			debt += planned[i] - v.MeasuredSeconds
			items[i] = Item{Path: v.Path, Seconds: v.MeasuredSeconds, IsVideo: true}
			continue
		}
		duration := planned[i] + debt
		if duration < minImageSeconds {
			debt = duration - minImageSeconds
			duration = minImageSeconds
		} else {
			debt = 0
		}
		items[i] = Item{Path: v.Path, Seconds: duration, IsVideo: false}
	}
	return items
}
