package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSynthesize(t *testing.T) {
	var gotAuth string
	var gotBody speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("mp3 bytes"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Voice: "nova", Speed: 1.1})
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "narration.mp3")

	if err := client.Synthesize(context.Background(), "Hello narration.", outputPath); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody.Input != "Hello narration." || gotBody.Voice != "nova" || gotBody.ResponseFormat != "mp3" {
		t.Fatalf("request body = %+v", gotBody)
	}
	if gotBody.Model != "tts-1" {
		t.Fatalf("model = %q, want default tts-1", gotBody.Model)
	}
	if gotBody.Speed != 1.1 {
		t.Fatalf("speed = %v", gotBody.Speed)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil || string(data) != "mp3 bytes" {
		t.Fatalf("output = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".speech-") {
			t.Fatalf("leftover temp file %q", entry.Name())
		}
	}
}

func TestSynthesizeFailureLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	outputPath := filepath.Join(t.TempDir(), "narration.mp3")

	err := client.Synthesize(context.Background(), "text", outputPath)
	if err == nil || !strings.Contains(err.Error(), "http 429") {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Fatal("failed request should not produce an output file")
	}
}

func TestSynthesizeValidation(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	if err := client.Synthesize(context.Background(), "   ", "out.mp3"); err == nil {
		t.Fatal("expected error for empty text")
	}
	unconfigured := NewClient(Config{})
	if unconfigured.Configured() {
		t.Fatal("client without key reported configured")
	}
	if err := unconfigured.Synthesize(context.Background(), "text", "out.mp3"); err == nil {
		t.Fatal("expected error without api key")
	}
}
