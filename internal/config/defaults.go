package config

const (
	defaultWorkDir            = "~/.local/share/reelsmith/work"
	defaultLogDir             = "~/.local/share/reelsmith/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultTextGenBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultTextGenModel       = "google/gemini-3-flash-preview"
	defaultTextGenTimeout     = 120
	defaultSpeechTimeout      = 300
	defaultImageGenTimeout    = 300
	defaultImagePollInterval  = 5
	defaultDownloadTimeout    = 120
	defaultTranscribeBinary   = "whisperx"
	defaultTranscribeModel    = "large-v3-turbo"
	defaultResolution         = "1920x1080"
	defaultTransitionEffect   = "fade"
	defaultTransitionSeconds  = 1.0
	defaultQuickShowSeconds   = 2.5
	defaultQuickShowCount     = 3
	defaultPromptCount        = 10
	defaultClipSeconds        = 5.0
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		TextGen: TextGen{
			BaseURL:        defaultTextGenBaseURL,
			Model:          defaultTextGenModel,
			TimeoutSeconds: defaultTextGenTimeout,
			MaxConcurrency: 4,
		},
		Speech: Speech{
			TimeoutSeconds: defaultSpeechTimeout,
			MaxConcurrency: 2,
		},
		ImageGen: ImageGen{
			TimeoutSeconds:      defaultImageGenTimeout,
			MaxConcurrency:      4,
			PollIntervalSeconds: defaultImagePollInterval,
			PromptCount:         defaultPromptCount,
			ClipSeconds:         defaultClipSeconds,
			ClipCount:           defaultQuickShowCount,
		},
		Transcribe: Transcribe{
			Binary:         defaultTranscribeBinary,
			Model:          defaultTranscribeModel,
			MaxConcurrency: 1,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeout,
			MaxConcurrency: 2,
		},
		Render: Render{
			FFmpegBinary:           "ffmpeg",
			FFprobeBinary:          "ffprobe",
			MaxConcurrency:         1,
			Resolution:             defaultResolution,
			TransitionEffect:       defaultTransitionEffect,
			TransitionSeconds:      defaultTransitionSeconds,
			QuickShowSeconds:       defaultQuickShowSeconds,
			QuickShowCount:         defaultQuickShowCount,
			BackgroundVolume:       0.15,
			Preset:                 "medium",
			SyncToCaptions:         true,
			SyncDebugReport:        false,
			ExclusiveWithSubtitles: true,
		},
		Subtitles: Subtitles{
			Enabled:        true,
			BurnIn:         true,
			MaxConcurrency: 1,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
