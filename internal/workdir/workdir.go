// Package workdir defines the on-disk layout of a task workspace. Every
// stage reads and writes through these paths so artifacts survive restarts.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const assetsDirName = "assets"

// Layout is the workspace of one task under the daemon work directory.
type Layout struct {
	Root string
}

// For returns the layout for a task key.
func For(workRoot, taskKey string) Layout {
	return Layout{Root: filepath.Join(workRoot, taskKey)}
}

// Ensure creates the workspace directories.
func (l Layout) Ensure() error {
	if l.Root == "" {
		return fmt.Errorf("workdir: empty root")
	}
	for _, dir := range []string{l.Root, l.AssetsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workdir: create %q: %w", dir, err)
		}
	}
	return nil
}

// Remove deletes the workspace and everything in it.
func (l Layout) Remove() error {
	if l.Root == "" {
		return nil
	}
	return os.RemoveAll(l.Root)
}

// AssetsDir holds generated stills and clips.
func (l Layout) AssetsDir() string { return filepath.Join(l.Root, assetsDirName) }

// ScriptPath is the original source script.
func (l Layout) ScriptPath() string { return filepath.Join(l.Root, "script.txt") }

// WorkingPath is the rewritten or translated narration text.
func (l Layout) WorkingPath() string { return filepath.Join(l.Root, "narration.txt") }

// PromptsPath stores the accepted illustration prompts, one per line.
func (l Layout) PromptsPath() string { return filepath.Join(l.Root, "prompts.txt") }

// AudioPath is the synthesized narration track.
func (l Layout) AudioPath() string { return filepath.Join(l.Root, "narration.mp3") }

// CaptionPath is the caption file aligned to the narration track.
func (l Layout) CaptionPath() string { return filepath.Join(l.Root, "narration.srt") }

// SourceMediaPath is where a downloaded source file lands.
func (l Layout) SourceMediaPath(ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(l.Root, "source"+ext)
}

// ImagePath numbers stills from 1 so assets sort in scene order.
func (l Layout) ImagePath(index int) string {
	return filepath.Join(l.AssetsDir(), fmt.Sprintf("image_%03d.png", index))
}

// ClipPath numbers motion clips from 1, parallel to the stills.
func (l Layout) ClipPath(index int) string {
	return filepath.Join(l.AssetsDir(), fmt.Sprintf("clip_%03d.mp4", index))
}

// OutputPath is the final rendered video.
func (l Layout) OutputPath() string { return filepath.Join(l.Root, "output.mp4") }

// SyncReportPath is the optional caption sync report written next to the
// output.
func (l Layout) SyncReportPath() string { return filepath.Join(l.Root, "sync_report.txt") }

// FindSourceMedia returns the downloaded source file, if any.
func (l Layout) FindSourceMedia() (string, bool) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == "source" {
			return filepath.Join(l.Root, name), true
		}
	}
	return "", false
}

// ListAssets returns the asset files currently on disk, in numbered order.
func (l Layout) ListAssets() ([]string, error) {
	entries, err := os.ReadDir(l.AssetsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workdir: list assets: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(l.AssetsDir(), entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// WriteText writes content to path through a same-directory temp file.
func WriteText(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".text-*")
	if err != nil {
		return fmt.Errorf("workdir: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("workdir: write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("workdir: close %q: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("workdir: finalize %q: %w", path, err)
	}
	return nil
}

// ReadText reads a text artifact, trimming the trailing newline.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("workdir: read %q: %w", path, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
