package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reelsmith/internal/captions"
)

// DefaultModel is used when the configuration leaves the model unset.
const DefaultModel = "base"

// Config captures the transcriber settings.
type Config struct {
	Binary      string
	Model       string
	CUDAEnabled bool
}

// Service wraps the external transcription CLI.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "whisper"
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Result contains the output of one transcription run.
type Result struct {
	// SRTPath is the caption file the CLI produced.
	SRTPath string
	// Text is the plain transcript, joined from the caption cues.
	Text string
}

// Transcribe runs the CLI against the audio file and returns the caption
// output. The CLI writes <audio base name>.srt into outputDir.
func (s *Service) Transcribe(ctx context.Context, audioPath, outputDir, language string) (Result, error) {
	var result Result

	if strings.TrimSpace(audioPath) == "" {
		return result, fmt.Errorf("transcribe: audio path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(audioPath, outputDir, language)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return result, fmt.Errorf("transcribe: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	result.SRTPath = filepath.Join(outputDir, baseName+".srt")

	spans, err := captions.ParseFile(result.SRTPath)
	if err != nil {
		return result, fmt.Errorf("transcribe: read captions: %w", err)
	}
	parts := make([]string, 0, len(spans))
	for _, span := range spans {
		if text := strings.TrimSpace(span.Text); text != "" {
			parts = append(parts, text)
		}
	}
	result.Text = strings.Join(parts, " ")
	return result, nil
}

func (s *Service) buildArgs(audioPath, outputDir, language string) []string {
	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}
	args := []string{
		audioPath,
		"--model", model,
		"--output_dir", outputDir,
		"--output_format", "srt",
		"--verbose", "False",
	}
	if lang := strings.TrimSpace(language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu")
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
