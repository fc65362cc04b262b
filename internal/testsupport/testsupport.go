// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/queue"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.TextGen.APIKey = "test"
	cfg.Speech.APIKey = "test"
	cfg.ImageGen.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a queue store against the test config and closes it
// with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// SeedTask inserts a task built from the given stages.
func SeedTask(t testing.TB, store *queue.Store, jobID, language string, jobType queue.JobType, stages []queue.StageID) *queue.Task {
	t.Helper()

	task := queue.NewTask(jobID, language, jobType, stages)
	if err := store.Insert(context.Background(), task); err != nil {
		t.Fatalf("insert task: %v", err)
	}
	return task
}
