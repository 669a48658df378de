package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration         = errors.New("configuration error")
	ErrUnrecognizedReference = errors.New("unrecognized reference")
	ErrPlaylistUnavailable   = errors.New("playlist unavailable")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrUnsupportedBackend    = errors.New("unsupported backend")
	ErrRateLimited           = errors.New("rate limited")
	ErrPublish               = errors.New("publish failed")
	ErrExternalService       = errors.New("external service error")
	ErrValidation            = errors.New("validation error")
	ErrTimeout               = errors.New("timeout")
	ErrTransient             = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later outcome classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Disposition is how the orchestrator records a per-item error.
type Disposition string

const (
	DispositionSkipped Disposition = "skipped"
	DispositionFailed  Disposition = "failed"
)

// ItemDisposition maps a stage error to the outcome the run summary should
// record. "No data" conditions are skips; everything else is a failure.
func ItemDisposition(err error) Disposition {
	switch {
	case errors.Is(err, ErrTranscriptUnavailable), errors.Is(err, ErrUnrecognizedReference):
		return DispositionSkipped
	default:
		return DispositionFailed
	}
}

// IsRetryable reports whether err carries a marker that a caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
