package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// ErrPromptCountMismatch signals that prompt drafting returned the wrong
// number of prompts. The scheduler retries the stage a bounded number of
// times before accepting the mismatch with a warning.
var ErrPromptCountMismatch = errors.New("prompt count mismatch")

// maxPromptRetries bounds how many times the quality gate regenerates after
// the first mismatched draft before accepting the result with a warning.
const maxPromptRetries = 3

// Provider queue names. Each stage type dispatches into exactly one.
const (
	providerDownload   = "download"
	providerTranscribe = "transcribe"
	providerTextGen    = "textgen"
	providerImageGen   = "imagegen"
	providerSpeech     = "speech"
	providerRender     = "render"
)

var stageProviders = map[queue.StageID]string{
	queue.StageDownload:        providerDownload,
	queue.StageTranscription:   providerTranscribe,
	queue.StageRewrite:         providerTextGen,
	queue.StageTranslation:     providerTextGen,
	queue.StageImagePrompts:    providerTextGen,
	queue.StageImageGeneration: providerImageGen,
	queue.StageVideoGeneration: providerImageGen,
	queue.StageVoiceover:       providerSpeech,
	queue.StageSubtitles:       providerTranscribe,
	queue.StageComposition:     providerRender,
}

// stagePrereqs is the fixed dependency adjacency. A stage only leaves pending
// once every prerequisite it shares with the task's stage list is terminal;
// an errored prerequisite fails the stage without dispatching it.
var stagePrereqs = map[queue.StageID][]queue.StageID{
	queue.StageTranscription:   {queue.StageDownload},
	queue.StageRewrite:         {queue.StageDownload, queue.StageTranscription},
	queue.StageTranslation:     {queue.StageRewrite},
	queue.StageImagePrompts:    {queue.StageRewrite, queue.StageTranslation},
	queue.StageImageGeneration: {queue.StageImagePrompts},
	queue.StageVideoGeneration: {queue.StageImageGeneration},
	queue.StageVoiceover:       {queue.StageRewrite, queue.StageTranslation},
	queue.StageSubtitles:       {queue.StageVoiceover},
	queue.StageComposition: {
		queue.StageImageGeneration,
		queue.StageVideoGeneration,
		queue.StageVoiceover,
		queue.StageSubtitles,
	},
}

// Scheduler advances tasks through their stages. All task state mutation is
// serialized behind one mutex; provider calls run outside it against a task
// snapshot whose results merge back under the mutex on completion.
type Scheduler struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	handlers map[queue.StageID]stage.Handler
	queues   map[string]*providerQueue

	mu                 sync.Mutex
	tasks              map[int64]*queue.Task
	activeSubtitles    int
	activeCompositions int
	barrierPassed      bool
	wg                 sync.WaitGroup
}

// NewScheduler wires the scheduler with its provider queues sized from the
// configured per-provider ceilings.
func NewScheduler(cfg *config.Config, store *queue.Store, handlers map[queue.StageID]stage.Handler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		logger:   logger.With(logging.String(logging.FieldComponent, "scheduler")),
		handlers: handlers,
		tasks:    make(map[int64]*queue.Task),
		queues: map[string]*providerQueue{
			providerDownload:   newProviderQueue(providerDownload, cfg.Download.MaxConcurrency),
			providerTranscribe: newProviderQueue(providerTranscribe, cfg.Transcribe.MaxConcurrency),
			providerTextGen:    newProviderQueue(providerTextGen, cfg.TextGen.MaxConcurrency),
			providerImageGen:   newProviderQueue(providerImageGen, cfg.ImageGen.MaxConcurrency),
			providerSpeech:     newProviderQueue(providerSpeech, cfg.Speech.MaxConcurrency),
			providerRender:     newProviderQueue(providerRender, cfg.Render.MaxConcurrency),
		},
	}
}

// Resume loads unfinished tasks from the store and starts advancing them.
func (s *Scheduler) Resume(ctx context.Context) error {
	tasks, err := s.store.Unfinished(ctx)
	if err != nil {
		return fmt.Errorf("scheduler resume: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	s.advanceAllLocked(ctx)
	return nil
}

// Adopt registers a task the scheduler has not seen yet and advances it.
func (s *Scheduler) Adopt(ctx context.Context, task *queue.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.tasks[task.ID]; known {
		return
	}
	s.tasks[task.ID] = task
	s.advanceAllLocked(ctx)
}

// Tracking reports whether the scheduler already holds the task.
func (s *Scheduler) Tracking(taskID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[taskID]
	return ok
}

// Idle reports whether no stage is dispatched or dispatchable right now.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.queues {
		if q.Active() > 0 || q.Depth() > 0 {
			return false
		}
	}
	return true
}

// Wait blocks until every in-flight provider call has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Approve flips the review flag for a task and releases any stage parked at
// the review gate. Approval is the only path out of review-required.
func (s *Scheduler) Approve(ctx context.Context, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		loaded, err := s.store.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		s.tasks[taskID] = loaded
		task = loaded
	}

	task.IsReviewed = true
	for _, stageID := range task.Stages {
		if task.StageStatus(stageID) == queue.StatusReviewRequired {
			task.SetStage(stageID, queue.StatusSuccess, "")
		}
	}
	s.persistLocked(ctx, task)
	s.advanceAllLocked(ctx)
	return nil
}

// SyncApprovals picks up approval events another process recorded in the
// store and applies them to tracked tasks parked at a review gate.
func (s *Scheduler) SyncApprovals(ctx context.Context) {
	s.mu.Lock()
	var waiting []int64
	for id, task := range s.tasks {
		if task.AwaitingReview() && !task.IsReviewed {
			waiting = append(waiting, id)
		}
	}
	s.mu.Unlock()

	for _, id := range waiting {
		stored, err := s.store.GetByID(ctx, id)
		if err != nil || stored == nil || !stored.IsReviewed {
			continue
		}
		if err := s.Approve(ctx, id); err != nil {
			s.logger.Error("apply approval", logging.Int64(logging.FieldTaskID, id), logging.Error(err))
		}
	}
}

func (s *Scheduler) advanceAllLocked(ctx context.Context) {
	for _, task := range s.tasks {
		s.advanceTaskLocked(ctx, task)
	}
}

// advanceTaskLocked walks the stage list once. Prerequisites always precede
// their dependents in the list, so one pass settles cascading failures.
func (s *Scheduler) advanceTaskLocked(ctx context.Context, task *queue.Task) {
	changed := false
	for _, stageID := range task.Stages {
		if task.StageStatus(stageID) != queue.StatusPending {
			continue
		}

		prereqs := s.prereqsFor(task, stageID)
		if failed := firstErrored(task, prereqs); failed != "" {
			task.SetStage(stageID, queue.StatusError, fmt.Sprintf("prerequisite %s failed", failed))
			changed = true
			continue
		}
		if !allTerminal(task, prereqs) {
			continue
		}
		if !s.gateOpenLocked(stageID) {
			continue
		}

		s.dispatchLocked(ctx, task, stageID)
		changed = true
	}
	if changed {
		s.persistLocked(ctx, task)
	}
}

func (s *Scheduler) prereqsFor(task *queue.Task, stageID queue.StageID) []queue.StageID {
	declared := stagePrereqs[stageID]
	prereqs := make([]queue.StageID, 0, len(declared))
	for _, p := range declared {
		if task.HasStage(p) {
			prereqs = append(prereqs, p)
		}
	}
	return prereqs
}

func firstErrored(task *queue.Task, prereqs []queue.StageID) queue.StageID {
	for _, p := range prereqs {
		if task.StageStatus(p) == queue.StatusError {
			return p
		}
	}
	return ""
}

func allTerminal(task *queue.Task, prereqs []queue.StageID) bool {
	for _, p := range prereqs {
		if !task.StageStatus(p).Terminal() {
			return false
		}
	}
	return true
}

// gateOpenLocked applies the two global coordination rules: the
// subtitle/composition mutual exclusion and the subtitle completion barrier.
// Once the barrier passes, the exclusion is relaxed for the rest of the run.
func (s *Scheduler) gateOpenLocked(stageID queue.StageID) bool {
	switch stageID {
	case queue.StageSubtitles:
		if s.cfg.Render.ExclusiveWithSubtitles && !s.barrierPassed && s.activeCompositions > 0 {
			return false
		}
	case queue.StageComposition:
		if !s.subtitleBarrierLocked() {
			return false
		}
		if s.cfg.Render.ExclusiveWithSubtitles && !s.barrierPassed && s.activeSubtitles > 0 {
			return false
		}
	}
	return true
}

// subtitleBarrierLocked reports whether every tracked task's subtitle stage
// has settled. Once a run with subtitle work clears the barrier it latches
// open for the rest of the run.
func (s *Scheduler) subtitleBarrierLocked() bool {
	if s.barrierPassed {
		return true
	}
	sawSubtitles := false
	for _, task := range s.tasks {
		if !task.HasStage(queue.StageSubtitles) {
			continue
		}
		sawSubtitles = true
		if !task.StageStatus(queue.StageSubtitles).Settled() {
			return false
		}
	}
	if sawSubtitles {
		s.barrierPassed = true
	}
	return true
}

func (s *Scheduler) dispatchLocked(ctx context.Context, task *queue.Task, stageID queue.StageID) {
	status := queue.StatusProcessing
	if stageID == queue.StageVideoGeneration {
		status = queue.StatusProcessingVideo
	}
	task.SetStage(stageID, status, "")

	switch stageID {
	case queue.StageSubtitles:
		s.activeSubtitles++
	case queue.StageComposition:
		s.activeCompositions++
	}

	handler := s.handlers[stageID]
	snapshot := task.Clone()
	unit := newWorkUnit(task.ID, stageID,
		func(ctx context.Context) error {
			if handler == nil {
				return services.Wrap(services.ErrNotConfigured, string(stageID), "dispatch", "no handler registered", nil)
			}
			return handler.Execute(ctx, snapshot)
		},
		func(requestID string, err error) {
			s.onStageDone(ctx, task.ID, stageID, requestID, snapshot, err)
		})

	s.logger.Info("stage dispatched",
		logging.String(logging.FieldTaskKey, task.TaskKey),
		logging.String(logging.FieldStage, string(stageID)),
		logging.String(logging.FieldProvider, stageProviders[stageID]),
		logging.String(logging.FieldRequestID, unit.requestID))

	s.queues[stageProviders[stageID]].Enqueue(ctx, &s.wg, unit)
}

func (s *Scheduler) onStageDone(ctx context.Context, taskID int64, stageID queue.StageID, requestID string, snapshot *queue.Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return
	}

	switch stageID {
	case queue.StageSubtitles:
		s.activeSubtitles--
	case queue.StageComposition:
		s.activeCompositions--
	}

	applyStageResult(task, snapshot, stageID)

	if errors.Is(err, ErrPromptCountMismatch) {
		if task.PromptAttempts <= maxPromptRetries {
			s.logger.Warn("prompt count mismatch, regenerating",
				logging.String(logging.FieldTaskKey, task.TaskKey),
				logging.Int64("attempt", int64(task.PromptAttempts)))
			s.persistLocked(ctx, task)
			s.redispatchLocked(ctx, task, stageID)
			return
		}
		task.SetStage(stageID, queue.StatusWarning,
			fmt.Sprintf("accepted mismatched prompt count after %d attempts", task.PromptAttempts))
	} else {
		status := services.StageStatus(err)
		reason := services.Message(err)
		if status == queue.StatusSuccess && s.reviewRequired(task, stageID) {
			status = queue.StatusReviewRequired
			reason = "awaiting approval"
		}
		task.SetStage(stageID, status, reason)
	}

	state := task.StageStates[stageID]
	logArgs := []any{
		logging.String(logging.FieldTaskKey, task.TaskKey),
		logging.String(logging.FieldStage, string(stageID)),
		logging.String(logging.FieldRequestID, requestID),
		logging.String("status", string(state.Status)),
	}
	switch state.Status {
	case queue.StatusError:
		s.logger.Error("stage failed", append(logArgs, logging.String(logging.FieldErrorHint, state.Reason))...)
	case queue.StatusWarning:
		s.logger.Warn("stage completed with warning", append(logArgs, logging.String(logging.FieldErrorHint, state.Reason))...)
	default:
		s.logger.Info("stage completed", logArgs...)
	}

	s.persistLocked(ctx, task)

	if task.Complete() {
		s.logger.Info("task complete",
			logging.String(logging.FieldTaskKey, task.TaskKey),
			logging.String("summary", task.SummaryStatus()))
	}

	s.advanceAllLocked(ctx)
}

// redispatchLocked re-enqueues a stage that stays in processing, used by the
// prompt-count retry path.
func (s *Scheduler) redispatchLocked(ctx context.Context, task *queue.Task, stageID queue.StageID) {
	handler := s.handlers[stageID]
	snapshot := task.Clone()
	unit := newWorkUnit(task.ID, stageID,
		func(ctx context.Context) error {
			return handler.Execute(ctx, snapshot)
		},
		func(requestID string, err error) {
			s.onStageDone(ctx, task.ID, stageID, requestID, snapshot, err)
		})
	s.queues[stageProviders[stageID]].Enqueue(ctx, &s.wg, unit)
}

// applyStageResult merges the artifact fields a stage produces from the
// worker's snapshot back onto the canonical task. Fields stay scoped per
// stage so concurrent siblings cannot clobber each other's results.
func applyStageResult(task, snapshot *queue.Task, stageID queue.StageID) {
	switch stageID {
	case queue.StageDownload, queue.StageTranscription:
		task.OriginalText = snapshot.OriginalText
	case queue.StageRewrite, queue.StageTranslation:
		task.WorkingText = snapshot.WorkingText
	case queue.StageImagePrompts:
		task.PromptText = snapshot.PromptText
		task.PromptAttempts = snapshot.PromptAttempts
		task.ImagesTotal = snapshot.ImagesTotal
	case queue.StageImageGeneration:
		task.AssetPaths = snapshot.AssetPaths
		task.ImagesTotal = snapshot.ImagesTotal
		task.ImagesDone = snapshot.ImagesDone
	case queue.StageVideoGeneration:
		task.AssetPaths = snapshot.AssetPaths
		task.VideosTotal = snapshot.VideosTotal
		task.VideosDone = snapshot.VideosDone
		task.FallbackQuickShow = snapshot.FallbackQuickShow
	case queue.StageVoiceover:
		task.AudioPath = snapshot.AudioPath
	case queue.StageSubtitles:
		task.CaptionPath = snapshot.CaptionPath
	case queue.StageComposition:
		task.OutputPath = snapshot.OutputPath
	}
}

func (s *Scheduler) reviewRequired(task *queue.Task, stageID queue.StageID) bool {
	if task.IsReviewed {
		return false
	}
	switch stageID {
	case queue.StageRewrite, queue.StageTranslation:
		return s.cfg.TextGen.ReviewRewrites
	case queue.StageImageGeneration:
		return s.cfg.ImageGen.ReviewImages
	}
	return false
}

func (s *Scheduler) persistLocked(ctx context.Context, task *queue.Task) {
	if s.store == nil {
		return
	}
	if err := s.store.Update(ctx, task); err != nil {
		s.logger.Error("persist task",
			logging.String(logging.FieldTaskKey, task.TaskKey),
			logging.Error(err))
	}
}
