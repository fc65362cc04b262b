package compose

// Visual is one candidate asset for the timeline. MeasuredSeconds is only
// meaningful for video clips, where it is the real container duration.
type Visual struct {
	Path            string
	IsVideo         bool
	MeasuredSeconds float64
}

// Item is one scheduled entry of the final timeline.
type Item struct {
	Path    string
	Seconds float64
	IsVideo bool
}

// Plan is the renderer-agnostic description of the output video: ordered
// visuals with exact durations, transition settings, audio tracks, optional
// caption burn-in and intro clip, and encoder hints.
type Plan struct {
	Items             []Item
	TransitionEffect  string
	TransitionSeconds float64

	AudioPath    string
	AudioSeconds float64

	BackgroundAudio  string
	BackgroundVolume float64

	IntroVideo   string
	IntroHardCut bool

	CaptionPath string

	Resolution string
	Preset     string
	OutputPath string
}

// EffectiveSeconds is the timeline length after transition overlap: the sum
// of item durations minus one transition per join.
func (p Plan) EffectiveSeconds() float64 {
	return effectiveSeconds(p.Items, p.TransitionSeconds)
}

func effectiveSeconds(items []Item, transition float64) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Seconds
	}
	if len(items) > 1 && transition > 0 {
		total -= float64(len(items)-1) * transition
	}
	return total
}
