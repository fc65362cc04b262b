package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSRT = "1\n00:00:00,000 --> 00:00:02,000\nhello world\n\n2\n00:00:02,000 --> 00:00:04,000\nsecond cue\n"

func TestTranscribe(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "narration.mp3")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(Config{Binary: "whisperx", Model: "large-v3-turbo", CUDAEnabled: true})
	var gotName string
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		// The CLI writes <base>.srt into the output directory.
		return os.WriteFile(filepath.Join(dir, "narration.srt"), []byte(sampleSRT), 0o644)
	})

	result, err := svc.Transcribe(context.Background(), audioPath, dir, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotName != "whisperx" {
		t.Fatalf("binary = %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{
		audioPath,
		"--model large-v3-turbo",
		"--output_dir " + dir,
		"--output_format srt",
		"--language en",
		"--device cuda",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, gotArgs)
		}
	}
	if result.SRTPath != filepath.Join(dir, "narration.srt") {
		t.Fatalf("srt path = %q", result.SRTPath)
	}
	if result.Text != "hello world second cue" {
		t.Fatalf("text = %q", result.Text)
	}
}

func TestTranscribeDefaultsToCPUAndBaseModel(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "clip.wav")

	svc := NewService(Config{})
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return os.WriteFile(filepath.Join(dir, "clip.srt"), []byte(sampleSRT), 0o644)
	})

	if _, err := svc.Transcribe(context.Background(), audioPath, dir, ""); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "--model base") || !strings.Contains(joined, "--device cpu") {
		t.Fatalf("args = %v", gotArgs)
	}
	if strings.Contains(joined, "--language") {
		t.Fatalf("language flag should be omitted when unset: %v", gotArgs)
	}
	if svc.Model() != DefaultModel {
		t.Fatalf("model = %q", svc.Model())
	}
}

func TestTranscribeCommandFailure(t *testing.T) {
	svc := NewService(Config{})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	})
	if _, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "a.mp3"), "", ""); err == nil {
		t.Fatal("expected error when the CLI fails")
	}
}

func TestTranscribeRequiresAudioPath(t *testing.T) {
	svc := NewService(Config{})
	if _, err := svc.Transcribe(context.Background(), "", t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty audio path")
	}
}
