package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetchText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  a script body\nwith two lines  \n"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(5)
	got, err := client.FetchText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if got != "a script body\nwith two lines" {
		t.Fatalf("text = %q", got)
	}
}

func TestFetchTextRejectsEmptyDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("   \n  "))
	}))
	t.Cleanup(server.Close)

	client := NewClient(5)
	if _, err := client.FetchText(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for blank document")
	}
}

func TestFetchFile(t *testing.T) {
	payload := strings.Repeat("media bytes ", 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "source.mp4")
	client := NewClient(5)
	if err := client.FetchFile(context.Background(), server.URL, outputPath); err != nil {
		t.Fatalf("FetchFile: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("content mismatch: %d bytes", len(data))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".download-") {
			t.Fatalf("leftover temp file %q", entry.Name())
		}
	}
}

func TestFetchRejectsBadInput(t *testing.T) {
	client := NewClient(5)
	ctx := context.Background()

	if _, err := client.FetchText(ctx, ""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := client.FetchText(ctx, "ftp://example.com/file"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewClient(5)
	if _, err := client.FetchText(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
