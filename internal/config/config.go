package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// TextGen configures the chat-completion provider used for rewriting,
// translation, and image-prompt generation.
type TextGen struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxConcurrency int    `toml:"max_concurrency"`
	ReviewRewrites bool   `toml:"review_rewrites"`
}

// Speech configures the text-to-speech provider.
type Speech struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxConcurrency int    `toml:"max_concurrency"`
}

// ImageGen configures the image/clip generation provider.
type ImageGen struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	Model               string `toml:"model"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	MaxConcurrency      int    `toml:"max_concurrency"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	PromptCount         int    `toml:"prompt_count"`
	ClipCount           int    `toml:"clip_count"`
	ClipSeconds         float64 `toml:"clip_seconds"`
	GenerateClips       bool   `toml:"generate_clips"`
	ReviewImages        bool   `toml:"review_images"`
}

// Transcribe configures the local speech-to-text tool used for source
// transcription and subtitle generation.
type Transcribe struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	CUDAEnabled    bool   `toml:"cuda_enabled"`
	MaxConcurrency int    `toml:"max_concurrency"`
}

// Download configures source fetching.
type Download struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MaxConcurrency int `toml:"max_concurrency"`
}

// Render configures the external ffmpeg renderer and composition defaults.
type Render struct {
	FFmpegBinary           string  `toml:"ffmpeg_binary"`
	FFprobeBinary          string  `toml:"ffprobe_binary"`
	MaxConcurrency         int     `toml:"max_concurrency"`
	Resolution             string  `toml:"resolution"`
	TransitionEffect       string  `toml:"transition_effect"`
	TransitionSeconds      float64 `toml:"transition_seconds"`
	QuickShowSeconds       float64 `toml:"quick_show_seconds"`
	QuickShowCount         int     `toml:"quick_show_count"`
	BackgroundAudio        string  `toml:"background_audio"`
	BackgroundVolume       float64 `toml:"background_volume"`
	IntroVideo             string  `toml:"intro_video"`
	IntroHardCut           bool    `toml:"intro_hard_cut"`
	Preset                 string  `toml:"preset"`
	SyncToCaptions         bool    `toml:"sync_to_captions"`
	SyncDebugReport        bool    `toml:"sync_debug_report"`
	ExclusiveWithSubtitles bool    `toml:"exclusive_with_subtitles"`
}

// Subtitles configures subtitle generation and burn-in.
type Subtitles struct {
	Enabled        bool `toml:"enabled"`
	BurnIn         bool `toml:"burn_in"`
	MaxConcurrency int  `toml:"max_concurrency"`
}

// Workflow contains daemon timing intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
type Config struct {
	Paths      Paths      `toml:"paths"`
	TextGen    TextGen    `toml:"textgen"`
	Speech     Speech     `toml:"speech"`
	ImageGen   ImageGen   `toml:"imagegen"`
	Transcribe Transcribe `toml:"transcribe"`
	Download   Download   `toml:"download"`
	Render     Render     `toml:"render"`
	Subtitles  Subtitles  `toml:"subtitles"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. Provider credentials
// missing from the file are filled from the environment (a .env file next to
// the working directory is honored when present).
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnvCredentials()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnvCredentials() {
	if c.TextGen.APIKey == "" {
		c.TextGen.APIKey = os.Getenv("REELSMITH_TEXTGEN_API_KEY")
	}
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = os.Getenv("REELSMITH_SPEECH_API_KEY")
	}
	if c.ImageGen.APIKey == "" {
		c.ImageGen.APIKey = os.Getenv("REELSMITH_IMAGEGEN_API_KEY")
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Render.BackgroundAudio != "" {
		if c.Render.BackgroundAudio, err = expandPath(c.Render.BackgroundAudio); err != nil {
			return err
		}
	}
	if c.Render.IntroVideo != "" {
		if c.Render.IntroVideo, err = expandPath(c.Render.IntroVideo); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
