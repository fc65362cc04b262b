package services

import (
	"errors"
	"fmt"
	"strings"

	"reelsmith/internal/queue"
)

var (
	// ErrNotConfigured marks a missing credential or binary. Fails fast.
	ErrNotConfigured = errors.New("not configured")
	// ErrProvider marks a failed remote call. Propagates to dependents.
	ErrProvider = errors.New("provider error")
	// ErrQualityGate marks output that failed a bounded-retry quality check.
	ErrQualityGate = errors.New("quality gate failure")
	// ErrResourceMissing marks an expected artifact absent on disk.
	ErrResourceMissing = errors.New("resource missing")
	// ErrDegraded marks a result the pipeline absorbed via a fallback mode.
	ErrDegraded = errors.New("degraded result")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProvider
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StageStatus maps a stage error to the status the scheduler should record.
// Quality-gate and degraded results are absorbed as warnings; everything else
// is an error.
func StageStatus(err error) queue.StageStatus {
	switch {
	case err == nil:
		return queue.StatusSuccess
	case errors.Is(err, ErrQualityGate), errors.Is(err, ErrDegraded):
		return queue.StatusWarning
	default:
		return queue.StatusError
	}
}

// Message extracts the human-readable portion of a wrapped stage error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, marker := range []error{ErrNotConfigured, ErrProvider, ErrQualityGate, ErrResourceMissing, ErrDegraded} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
