package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGenerateImageBase64Payload(t *testing.T) {
	var gotBody imageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		payload := base64.StdEncoding.EncodeToString([]byte("png bytes"))
		w.Write([]byte(`{"data":[{"b64_json":"` + payload + `"}]}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, ImageSize: "1024x1024"})
	outputPath := filepath.Join(t.TempDir(), "image_001.png")

	if err := client.GenerateImage(context.Background(), "a castle at dawn", outputPath); err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if gotBody.Prompt != "a castle at dawn" || gotBody.N != 1 || gotBody.Size != "1024x1024" {
		t.Fatalf("request body = %+v", gotBody)
	}
	if gotBody.Model != "gpt-image-1" {
		t.Fatalf("model = %q, want default", gotBody.Model)
	}
	data, err := os.ReadFile(outputPath)
	if err != nil || string(data) != "png bytes" {
		t.Fatalf("output = %q, %v", data, err)
	}
}

func TestGenerateImageURLFallback(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/asset.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fetched bytes"))
	})
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"url":"` + server.URL + `/asset.png"}]}`))
	})

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	outputPath := filepath.Join(t.TempDir(), "image_001.png")
	if err := client.GenerateImage(context.Background(), "prompt", outputPath); err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	data, err := os.ReadFile(outputPath)
	if err != nil || string(data) != "fetched bytes" {
		t.Fatalf("output = %q, %v", data, err)
	}
}

func TestGenerateImageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"content policy violation"}}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	err := client.GenerateImage(context.Background(), "prompt", filepath.Join(t.TempDir(), "x.png"))
	if err == nil || !strings.Contains(err.Error(), "content policy violation") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateClipPollsToCompletion(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		var body clipRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "sora-2" || body.Seconds != 5 {
			t.Errorf("submit body = %+v", body)
		}
		w.Write([]byte(`{"id":"job-42","status":"queued"}`))
	})
	mux.HandleFunc("/videos/job-42", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			w.Write([]byte(`{"id":"job-42","status":"in_progress"}`))
			return
		}
		w.Write([]byte(`{"id":"job-42","status":"completed"}`))
	})
	mux.HandleFunc("/videos/job-42/content", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4 bytes"))
	})

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}))
	outputPath := filepath.Join(t.TempDir(), "clip_001.mp4")

	if err := client.GenerateClip(context.Background(), "a dragon in flight", 5, outputPath); err != nil {
		t.Fatalf("GenerateClip: %v", err)
	}
	if polls.Load() != 3 {
		t.Fatalf("polled %d times, want 3", polls.Load())
	}
	data, err := os.ReadFile(outputPath)
	if err != nil || string(data) != "mp4 bytes" {
		t.Fatalf("output = %q, %v", data, err)
	}
}

func TestGenerateClipJobFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"job-7","status":"queued"}`))
	})
	mux.HandleFunc("/videos/job-7", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"job-7","status":"failed","error":{"message":"unsafe prompt"}}`))
	})

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}))
	err := client.GenerateClip(context.Background(), "prompt", 5, filepath.Join(t.TempDir(), "x.mp4"))
	if err == nil || !strings.Contains(err.Error(), "unsafe prompt") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateClipPollBudget(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"job-9","status":"queued"}`))
	})
	mux.HandleFunc("/videos/job-9", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"job-9","status":"in_progress"}`))
	})

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}),
		WithPollBudget(time.Millisecond))
	err := client.GenerateClip(context.Background(), "prompt", 5, filepath.Join(t.TempDir(), "x.mp4"))
	if err == nil || !strings.Contains(err.Error(), "still pending") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateValidation(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	ctx := context.Background()
	if err := client.GenerateImage(ctx, " ", "x.png"); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if err := client.GenerateClip(ctx, "prompt", 0, "x.mp4"); err == nil {
		t.Fatal("expected error for zero duration")
	}
	unconfigured := NewClient(Config{})
	if unconfigured.Configured() {
		t.Fatal("client without key reported configured")
	}
	if err := unconfigured.GenerateImage(ctx, "prompt", "x.png"); err == nil {
		t.Fatal("expected error without api key")
	}
}
