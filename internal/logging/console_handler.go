package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorGray   = "\x1b[90m"
)

// consoleHandler renders human-oriented log lines with optional color.
type consoleHandler struct {
	mu       *sync.Mutex
	writer   io.Writer
	level    slog.Leveler
	colored  bool
	attrs    []slog.Attr
	groupSep string
}

func newConsoleHandler(writer io.Writer, level slog.Leveler) *consoleHandler {
	colored := false
	if file, ok := writer.(*os.File); ok {
		colored = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}
	return &consoleHandler{
		mu:      &sync.Mutex{},
		writer:  writer,
		level:   level,
		colored: colored,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Time.Format("15:04:05"))
	sb.WriteByte(' ')
	sb.WriteString(h.colorize(levelColor(record.Level), fmt.Sprintf("%-5s", record.Level.String())))
	sb.WriteByte(' ')
	sb.WriteString(record.Message)

	fields := make(map[string]string)
	for _, attr := range h.attrs {
		fields[h.groupSep+attr.Key] = attr.Value.String()
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields[h.groupSep+attr.Key] = attr.Value.String()
		return true
	})
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sb.WriteByte(' ')
		sb.WriteString(h.colorize(colorGray, key+"="+fields[key]))
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groupSep = h.groupSep + name + "."
	return &clone
}

func (h *consoleHandler) colorize(color, text string) string {
	if !h.colored || color == "" {
		return text
	}
	return color + text + colorReset
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level <= slog.LevelDebug:
		return colorGray
	default:
		return colorCyan
	}
}
