package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/align"
	"reelsmith/internal/captions"
	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/queue"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/services/download"
	"reelsmith/internal/services/imagegen"
	"reelsmith/internal/services/speech"
	"reelsmith/internal/services/textgen"
	"reelsmith/internal/services/transcribe"
	"reelsmith/internal/stage"
	"reelsmith/internal/workdir"
)

// Services bundles the provider collaborators the stage workers call.
type Services struct {
	Download   *download.Client
	TextGen    *textgen.Client
	Speech     *speech.Client
	ImageGen   *imagegen.Client
	Transcribe *transcribe.Service
	Renderer   *render.Renderer
}

// NewServices constructs the default provider clients from configuration.
func NewServices(cfg *config.Config, logger *slog.Logger) *Services {
	return &Services{
		Download: download.NewClient(cfg.Download.TimeoutSeconds),
		TextGen: textgen.NewClient(textgen.Config{
			APIKey:         cfg.TextGen.APIKey,
			BaseURL:        cfg.TextGen.BaseURL,
			Model:          cfg.TextGen.Model,
			TimeoutSeconds: cfg.TextGen.TimeoutSeconds,
		}),
		Speech: speech.NewClient(speech.Config{
			APIKey:         cfg.Speech.APIKey,
			BaseURL:        cfg.Speech.BaseURL,
			Voice:          cfg.Speech.Voice,
			TimeoutSeconds: cfg.Speech.TimeoutSeconds,
		}),
		ImageGen: imagegen.NewClient(imagegen.Config{
			APIKey:              cfg.ImageGen.APIKey,
			BaseURL:             cfg.ImageGen.BaseURL,
			ImageModel:          cfg.ImageGen.Model,
			TimeoutSeconds:      cfg.ImageGen.TimeoutSeconds,
			PollIntervalSeconds: cfg.ImageGen.PollIntervalSeconds,
		}),
		Transcribe: transcribe.NewService(transcribe.Config{
			Binary:      cfg.Transcribe.Binary,
			Model:       cfg.Transcribe.Model,
			CUDAEnabled: cfg.Transcribe.CUDAEnabled,
		}),
		Renderer: render.New(cfg.Render.FFmpegBinary, cfg.Render.FFprobeBinary, logger),
	}
}

// stageSet holds the shared dependencies of every stage worker.
type stageSet struct {
	cfg    *config.Config
	svc    *Services
	logger *slog.Logger
}

// BuildHandlers maps each stage to its worker.
func BuildHandlers(cfg *config.Config, svc *Services, logger *slog.Logger) map[queue.StageID]stage.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	set := &stageSet{cfg: cfg, svc: svc, logger: logger}
	return map[queue.StageID]stage.Handler{
		queue.StageDownload:        stage.Func(set.download),
		queue.StageTranscription:   stage.Func(set.transcription),
		queue.StageRewrite:         stage.Func(set.rewrite),
		queue.StageTranslation:     stage.Func(set.translation),
		queue.StageImagePrompts:    stage.Func(set.imagePrompts),
		queue.StageImageGeneration: stage.Func(set.imageGeneration),
		queue.StageVideoGeneration: stage.Func(set.videoGeneration),
		queue.StageVoiceover:       stage.Func(set.voiceover),
		queue.StageSubtitles:       stage.Func(set.subtitles),
		queue.StageComposition:     stage.Func(set.composition),
	}
}

// PlanStages derives the stage list for a new task. Translation is included
// when the target differs from the source language; transcription only runs
// for jobs that start from a downloaded source.
func PlanStages(cfg *config.Config, jobType queue.JobType, translated bool) []queue.StageID {
	stages := make([]queue.StageID, 0, 10)
	if jobType == queue.JobRewrite {
		stages = append(stages, queue.StageDownload, queue.StageTranscription)
	}
	stages = append(stages, queue.StageRewrite)
	if translated {
		stages = append(stages, queue.StageTranslation)
	}
	stages = append(stages, queue.StageImagePrompts, queue.StageImageGeneration)
	if cfg.ImageGen.GenerateClips {
		stages = append(stages, queue.StageVideoGeneration)
	}
	stages = append(stages, queue.StageVoiceover)
	if cfg.Subtitles.Enabled {
		stages = append(stages, queue.StageSubtitles)
	}
	stages = append(stages, queue.StageComposition)
	return stages
}

func (s *stageSet) layout(task *queue.Task) (workdir.Layout, error) {
	layout := workdir.For(s.cfg.Paths.WorkDir, task.TaskKey)
	if err := layout.Ensure(); err != nil {
		return layout, services.Wrap(services.ErrResourceMissing, "workdir", "ensure", "cannot create workspace", err)
	}
	return layout, nil
}

func (s *stageSet) download(ctx context.Context, task *queue.Task) error {
	const stageName = "download"
	if strings.TrimSpace(task.SourceURL) == "" {
		return services.Wrap(services.ErrResourceMissing, stageName, "fetch", "no source url", nil)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	if ext := mediaExtension(task.SourceURL); ext != "" {
		dest := layout.SourceMediaPath(ext)
		if err := s.svc.Download.FetchFile(ctx, task.SourceURL, dest); err != nil {
			return services.Wrap(services.ErrProvider, stageName, "fetch media", task.SourceURL, err)
		}
		return nil
	}

	text, err := s.svc.Download.FetchText(ctx, task.SourceURL)
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "fetch text", task.SourceURL, err)
	}
	task.OriginalText = text
	if err := workdir.WriteText(layout.ScriptPath(), text+"\n"); err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "persist script", "", err)
	}
	return nil
}

func (s *stageSet) transcription(ctx context.Context, task *queue.Task) error {
	const stageName = "transcription"
	if strings.TrimSpace(task.OriginalText) != "" {
		// The download already produced text; nothing to transcribe.
		return nil
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}
	source, ok := layout.FindSourceMedia()
	if !ok {
		return services.Wrap(services.ErrResourceMissing, stageName, "locate source", "no downloaded media", nil)
	}

	result, err := s.svc.Transcribe.Transcribe(ctx, source, layout.Root, "")
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "transcribe", filepath.Base(source), err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return services.Wrap(services.ErrProvider, stageName, "transcribe", "empty transcript", nil)
	}
	task.OriginalText = result.Text
	if err := workdir.WriteText(layout.ScriptPath(), result.Text+"\n"); err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "persist script", "", err)
	}
	return nil
}

func (s *stageSet) rewrite(ctx context.Context, task *queue.Task) error {
	const stageName = "rewrite"
	if !s.svc.TextGen.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "complete", "text generation api key missing", nil)
	}
	if strings.TrimSpace(task.OriginalText) == "" {
		return services.Wrap(services.ErrResourceMissing, stageName, "complete", "no source text", nil)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	rewritten, err := s.svc.TextGen.Rewrite(ctx, task.OriginalText)
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "complete", "", err)
	}
	task.WorkingText = rewritten
	if err := workdir.WriteText(layout.WorkingPath(), rewritten+"\n"); err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "persist narration", "", err)
	}
	return nil
}

func (s *stageSet) translation(ctx context.Context, task *queue.Task) error {
	const stageName = "translation"
	if !s.svc.TextGen.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "complete", "text generation api key missing", nil)
	}
	source := task.WorkingText
	if strings.TrimSpace(source) == "" {
		source = task.OriginalText
	}
	if strings.TrimSpace(source) == "" {
		return services.Wrap(services.ErrResourceMissing, stageName, "complete", "no narration text", nil)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	translated, err := s.svc.TextGen.Translate(ctx, source, task.Language)
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "complete", task.Language, err)
	}
	task.WorkingText = translated
	if err := workdir.WriteText(layout.WorkingPath(), translated+"\n"); err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "persist narration", "", err)
	}
	return nil
}

func (s *stageSet) imagePrompts(ctx context.Context, task *queue.Task) error {
	const stageName = "image_prompts"
	if !s.svc.TextGen.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "draft", "text generation api key missing", nil)
	}
	script := narrationText(task)
	if script == "" {
		return services.Wrap(services.ErrResourceMissing, stageName, "draft", "no narration text", nil)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	target := s.cfg.ImageGen.PromptCount
	task.PromptAttempts++

	prompts, err := s.svc.TextGen.ImagePrompts(ctx, script, target)
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "draft", "", err)
	}
	if len(prompts) == 0 {
		return services.Wrap(services.ErrProvider, stageName, "draft", "no prompts returned", nil)
	}

	task.PromptText = strings.Join(prompts, "\n")
	task.ImagesTotal = len(prompts)
	if err := workdir.WriteText(layout.PromptsPath(), task.PromptText+"\n"); err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "persist prompts", "", err)
	}

	if target > 0 && len(prompts) != target {
		return fmt.Errorf("%w: got %d, want %d", ErrPromptCountMismatch, len(prompts), target)
	}
	return nil
}

func (s *stageSet) imageGeneration(ctx context.Context, task *queue.Task) error {
	const stageName = "image_generation"
	if !s.svc.ImageGen.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "generate", "image generation api key missing", nil)
	}
	prompts := promptLines(task.PromptText)
	if len(prompts) == 0 {
		return services.Wrap(services.ErrResourceMissing, stageName, "generate", "no prompts", nil)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	task.ImagesTotal = len(prompts)
	task.ImagesDone = 0
	assets := make([]string, 0, len(prompts))
	var lastErr error
	for i, prompt := range prompts {
		dest := layout.ImagePath(i + 1)
		if err := s.svc.ImageGen.GenerateImage(ctx, prompt, dest); err != nil {
			lastErr = err
			s.logger.Warn("image generation failed",
				logging.String(logging.FieldTaskKey, task.TaskKey),
				logging.Int64("scene", int64(i+1)),
				logging.Error(err))
			continue
		}
		assets = append(assets, dest)
		task.ImagesDone++
	}

	if len(assets) == 0 {
		return services.Wrap(services.ErrProvider, stageName, "generate", "no images generated", lastErr)
	}
	task.AssetPaths = assets
	if len(assets) < len(prompts) {
		return services.Wrap(services.ErrDegraded, stageName, "generate",
			fmt.Sprintf("generated %d of %d images", len(assets), len(prompts)), nil)
	}
	return nil
}

func (s *stageSet) videoGeneration(ctx context.Context, task *queue.Task) error {
	const stageName = "video_generation"
	if !s.svc.ImageGen.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "generate", "image generation api key missing", nil)
	}
	prompts := promptLines(task.PromptText)
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	clipCount := s.cfg.ImageGen.ClipCount
	if clipCount > len(prompts) {
		clipCount = len(prompts)
	}
	if clipCount > len(task.AssetPaths) {
		clipCount = len(task.AssetPaths)
	}
	if clipCount <= 0 {
		task.FallbackQuickShow = true
		return services.Wrap(services.ErrDegraded, stageName, "generate", "no scenes eligible for clips, falling back to quick show", nil)
	}

	seconds := int(s.cfg.ImageGen.ClipSeconds)
	if seconds <= 0 {
		seconds = 4
	}
	task.VideosTotal = clipCount
	task.VideosDone = 0
	var lastErr error
	for i := 0; i < clipCount; i++ {
		dest := layout.ClipPath(i + 1)
		if err := s.svc.ImageGen.GenerateClip(ctx, prompts[i], seconds, dest); err != nil {
			lastErr = err
			s.logger.Warn("clip generation failed",
				logging.String(logging.FieldTaskKey, task.TaskKey),
				logging.Int64("scene", int64(i+1)),
				logging.Error(err))
			continue
		}
		// The clip replaces the still for its scene.
		task.AssetPaths[i] = dest
		task.VideosDone++
	}

	if task.VideosDone == 0 {
		task.FallbackQuickShow = true
		return services.Wrap(services.ErrDegraded, stageName, "generate", "no clips generated, falling back to quick show", lastErr)
	}
	if task.VideosDone < clipCount {
		return services.Wrap(services.ErrDegraded, stageName, "generate",
			fmt.Sprintf("generated %d of %d clips", task.VideosDone, clipCount), nil)
	}
	return nil
}

func (s *stageSet) voiceover(ctx context.Context, task *queue.Task) error {
	const stageName = "voiceover"
	if !s.svc.Speech.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "synthesize", "speech api key missing", nil)
	}
	text := narrationText(task)
	if text == "" {
		return services.Wrap(services.ErrResourceMissing, stageName, "synthesize", "no narration text", nil)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	dest := layout.AudioPath()
	if err := s.svc.Speech.Synthesize(ctx, text, dest); err != nil {
		return services.Wrap(services.ErrProvider, stageName, "synthesize", "", err)
	}
	task.AudioPath = dest
	return nil
}

func (s *stageSet) subtitles(ctx context.Context, task *queue.Task) error {
	const stageName = "subtitles"
	if task.AudioPath == "" {
		return services.Wrap(services.ErrResourceMissing, stageName, "transcribe", "no narration audio", nil)
	}
	if _, err := os.Stat(task.AudioPath); err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "transcribe", task.AudioPath, err)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	result, err := s.svc.Transcribe.Transcribe(ctx, task.AudioPath, layout.Root, task.Language)
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "transcribe", "", err)
	}
	task.CaptionPath = result.SRTPath
	return nil
}

func (s *stageSet) composition(ctx context.Context, task *queue.Task) error {
	const stageName = "composition"
	if task.AudioPath == "" {
		return services.Wrap(services.ErrResourceMissing, stageName, "plan", "no narration audio", nil)
	}
	layout, err := s.layout(task)
	if err != nil {
		return err
	}

	probe, err := ffprobe.Inspect(ctx, s.cfg.Render.FFprobeBinary, task.AudioPath)
	if err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "probe audio", task.AudioPath, err)
	}
	audioSeconds := probe.DurationSeconds()
	if audioSeconds <= 0 {
		return services.Wrap(services.ErrResourceMissing, stageName, "probe audio", "zero duration", nil)
	}

	visuals, err := s.collectVisuals(ctx, task)
	if err != nil {
		return err
	}

	segments := s.alignSegments(task, len(visuals))

	items, err := compose.Build(visuals, compose.Options{
		AudioSeconds:      audioSeconds,
		TransitionEffect:  s.cfg.Render.TransitionEffect,
		TransitionSeconds: s.cfg.Render.TransitionSeconds,
		QuickShow:         task.FallbackQuickShow,
		QuickShowSeconds:  s.cfg.Render.QuickShowSeconds,
		QuickShowCount:    s.cfg.Render.QuickShowCount,
		Segments:          segments,
	})
	if err != nil {
		return services.Wrap(services.ErrResourceMissing, stageName, "plan", "", err)
	}

	plan := compose.Plan{
		Items:             items,
		TransitionEffect:  s.cfg.Render.TransitionEffect,
		TransitionSeconds: s.cfg.Render.TransitionSeconds,
		AudioPath:         task.AudioPath,
		AudioSeconds:      audioSeconds,
		BackgroundAudio:   s.cfg.Render.BackgroundAudio,
		BackgroundVolume:  s.cfg.Render.BackgroundVolume,
		IntroVideo:        s.cfg.Render.IntroVideo,
		IntroHardCut:      s.cfg.Render.IntroHardCut,
		Resolution:        s.cfg.Render.Resolution,
		Preset:            s.cfg.Render.Preset,
		OutputPath:        layout.OutputPath(),
	}
	if s.cfg.Subtitles.BurnIn && task.CaptionPath != "" {
		plan.CaptionPath = task.CaptionPath
	}

	err = s.svc.Renderer.Render(ctx, plan, func(p render.Progress) {
		s.logger.Debug("render progress",
			logging.String(logging.FieldTaskKey, task.TaskKey),
			logging.Int64("percent", int64(p.Percent)))
	})
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "render", "", err)
	}
	task.OutputPath = plan.OutputPath

	if s.cfg.Render.SyncDebugReport && len(segments) > 0 {
		report := compose.SyncReport(items, segments, plan.TransitionSeconds)
		if err := workdir.WriteText(layout.SyncReportPath(), report); err != nil {
			s.logger.Warn("sync report write failed",
				logging.String(logging.FieldTaskKey, task.TaskKey),
				logging.Error(err))
		}
	}
	return nil
}

// collectVisuals classifies and measures the task's assets. Clips are probed
// for their real duration; missing files fail composition outright.
func (s *stageSet) collectVisuals(ctx context.Context, task *queue.Task) ([]compose.Visual, error) {
	if len(task.AssetPaths) == 0 {
		return nil, services.Wrap(services.ErrResourceMissing, "composition", "plan", "no images available", nil)
	}
	visuals := make([]compose.Visual, 0, len(task.AssetPaths))
	for _, path := range task.AssetPaths {
		if _, err := os.Stat(path); err != nil {
			return nil, services.Wrap(services.ErrResourceMissing, "composition", "plan", path, err)
		}
		visual := compose.Visual{Path: path, IsVideo: isVideoAsset(path)}
		if visual.IsVideo {
			probe, err := ffprobe.Inspect(ctx, s.cfg.Render.FFprobeBinary, path)
			if err != nil {
				return nil, services.Wrap(services.ErrResourceMissing, "composition", "probe clip", path, err)
			}
			visual.MeasuredSeconds = probe.DurationSeconds()
		}
		visuals = append(visuals, visual)
	}
	return visuals, nil
}

// alignSegments maps narration text onto caption timings when caption sync is
// enabled. Any parse problem degrades silently to even distribution.
func (s *stageSet) alignSegments(task *queue.Task, visualCount int) []align.Result {
	if !s.cfg.Render.SyncToCaptions || task.CaptionPath == "" || visualCount == 0 {
		return nil
	}
	spans, err := captions.ParseFile(task.CaptionPath)
	if err != nil {
		s.logger.Warn("caption parse failed, using even distribution",
			logging.String(logging.FieldTaskKey, task.TaskKey),
			logging.Error(err))
		return nil
	}
	segments := splitSegments(narrationText(task), visualCount)
	if len(segments) == 0 {
		return nil
	}
	return align.Align(segments, spans)
}

func narrationText(task *queue.Task) string {
	if text := strings.TrimSpace(task.WorkingText); text != "" {
		return text
	}
	return strings.TrimSpace(task.OriginalText)
}

func promptLines(text string) []string {
	lines := strings.Split(text, "\n")
	prompts := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			prompts = append(prompts, trimmed)
		}
	}
	return prompts
}

var videoAssetExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

func isVideoAsset(path string) bool {
	return videoAssetExtensions[strings.ToLower(filepath.Ext(path))]
}

var mediaURLExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".ogg": true,
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true,
}

// mediaExtension returns the extension when the URL points at a media file,
// empty for text sources.
func mediaExtension(rawURL string) string {
	trimmed := rawURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	ext := strings.ToLower(filepath.Ext(trimmed))
	if mediaURLExtensions[ext] {
		return ext
	}
	return ""
}
