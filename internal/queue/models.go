package queue

import (
	"fmt"
	"strings"
	"time"
)

// StageStatus represents the lifecycle of a single stage within a task.
type StageStatus string

const (
	StatusPending         StageStatus = "pending"
	StatusProcessing      StageStatus = "processing"
	StatusProcessingVideo StageStatus = "processing_video"
	StatusSuccess         StageStatus = "success"
	StatusWarning         StageStatus = "warning"
	StatusError           StageStatus = "error"
	StatusReviewRequired  StageStatus = "review_required"
)

// Terminal reports whether a stage status will never change without an
// external event. Review-required is terminal-for-now: only an approval
// signal moves it to success.
func (s StageStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusWarning, StatusError:
		return true
	default:
		return false
	}
}

// Settled reports whether a stage no longer occupies a provider slot.
func (s StageStatus) Settled() bool {
	return s.Terminal() || s == StatusReviewRequired
}

// StageID names one unit of work in a task's pipeline.
type StageID string

const (
	StageDownload        StageID = "download"
	StageTranscription   StageID = "transcription"
	StageRewrite         StageID = "rewrite"
	StageTranslation     StageID = "translation"
	StageImagePrompts    StageID = "image_prompts"
	StageImageGeneration StageID = "image_generation"
	StageVideoGeneration StageID = "video_generation"
	StageVoiceover       StageID = "voiceover"
	StageSubtitles       StageID = "subtitles"
	StageComposition     StageID = "composition"
)

// JobType distinguishes direct-text jobs from jobs that rewrite a downloaded
// source.
type JobType string

const (
	JobText    JobType = "text"
	JobRewrite JobType = "rewrite"
)

// StageState is the persisted status of one stage plus a free-text reason for
// warnings and errors.
type StageState struct {
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// Task represents one job × target-language production unit.
type Task struct {
	ID       int64
	JobID    string
	Language string
	TaskKey  string
	JobType  JobType

	SourceURL    string
	OriginalText string
	WorkingText  string
	PromptText   string

	AudioPath   string
	CaptionPath string
	AssetPaths  []string
	OutputPath  string

	Stages      []StageID
	StageStates map[StageID]StageState

	ImagesDone     int
	ImagesTotal    int
	VideosDone     int
	VideosTotal    int
	PromptAttempts int

	FallbackQuickShow bool
	IsReviewed        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskKeyFor builds the composite identifier for a job × language pair.
func TaskKeyFor(jobID, language string) string {
	return fmt.Sprintf("%s_%s", strings.TrimSpace(jobID), strings.TrimSpace(language))
}

// NewTask constructs an in-memory task with every stage pending.
func NewTask(jobID, language string, jobType JobType, stages []StageID) *Task {
	task := &Task{
		JobID:       jobID,
		Language:    language,
		TaskKey:     TaskKeyFor(jobID, language),
		JobType:     jobType,
		Stages:      append([]StageID(nil), stages...),
		StageStates: make(map[StageID]StageState, len(stages)),
	}
	for _, stage := range stages {
		task.StageStates[stage] = StageState{Status: StatusPending}
	}
	return task
}

// Clone returns a deep copy of the task, safe to hand to a worker goroutine
// while the original keeps being read and persisted.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Stages = append([]StageID(nil), t.Stages...)
	clone.AssetPaths = append([]string(nil), t.AssetPaths...)
	if t.StageStates != nil {
		clone.StageStates = make(map[StageID]StageState, len(t.StageStates))
		for id, state := range t.StageStates {
			clone.StageStates[id] = state
		}
	}
	return &clone
}

// StageStatus returns the status of a stage, or pending when unknown.
func (t *Task) StageStatus(stage StageID) StageStatus {
	if state, ok := t.StageStates[stage]; ok {
		return state.Status
	}
	return StatusPending
}

// SetStage records a stage status with an optional reason.
func (t *Task) SetStage(stage StageID, status StageStatus, reason string) {
	if t.StageStates == nil {
		t.StageStates = make(map[StageID]StageState)
	}
	t.StageStates[stage] = StageState{Status: status, Reason: reason}
}

// HasStage reports whether the stage belongs to this task's pipeline.
func (t *Task) HasStage(stage StageID) bool {
	for _, s := range t.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Complete reports whether every declared stage reached a terminal state.
// Warnings and errors still count as complete per the status contract.
func (t *Task) Complete() bool {
	for _, stage := range t.Stages {
		if !t.StageStatus(stage).Terminal() {
			return false
		}
	}
	return true
}

// Failed reports whether any stage ended in error.
func (t *Task) Failed() bool {
	for _, stage := range t.Stages {
		if t.StageStatus(stage) == StatusError {
			return true
		}
	}
	return false
}

// AwaitingReview reports whether any stage is paused at the approval gate.
func (t *Task) AwaitingReview() bool {
	for _, stage := range t.Stages {
		if t.StageStatus(stage) == StatusReviewRequired {
			return true
		}
	}
	return false
}

// SummaryStatus condenses the per-stage map into one presentation status.
func (t *Task) SummaryStatus() string {
	switch {
	case t.Failed() && t.Complete():
		return "error"
	case t.Complete():
		for _, stage := range t.Stages {
			if t.StageStatus(stage) == StatusWarning {
				return "warning"
			}
		}
		return "success"
	case t.AwaitingReview():
		return "review_required"
	default:
		for _, stage := range t.Stages {
			status := t.StageStatus(stage)
			if status == StatusProcessing || status == StatusProcessingVideo {
				return "processing"
			}
		}
		return "pending"
	}
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Review     int
	Failed     int
	Completed  int
}
