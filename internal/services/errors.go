package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDiscovery        = errors.New("discovery error")
	ErrRender           = errors.New("render error")
	ErrEmptyArtifactSet = errors.New("empty artifact set")
	ErrMerge            = errors.New("merge error")
	ErrNarration        = errors.New("narration error")
	ErrConfiguration    = errors.New("configuration error")
	ErrExternalTool     = errors.New("external tool error")
)

// Exit codes reported by the CLI for each failure class.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitConfiguration    = 2
	ExitDiscovery        = 3
	ExitRender           = 4
	ExitEmptyArtifactSet = 5
	ExitMerge            = 6
	ExitNarration        = 7
	ExitExternalTool     = 8
	ExitInterrupted      = 130
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps an error to the process exit status the CLI reports.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, ErrDiscovery):
		return ExitDiscovery
	case errors.Is(err, ErrRender):
		return ExitRender
	case errors.Is(err, ErrEmptyArtifactSet):
		return ExitEmptyArtifactSet
	case errors.Is(err, ErrMerge):
		return ExitMerge
	case errors.Is(err, ErrNarration):
		return ExitNarration
	case errors.Is(err, ErrExternalTool):
		return ExitExternalTool
	default:
		return ExitFailure
	}
}

// Classify returns a short label for the failure class of err, suitable for
// summaries and structured log fields.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrDiscovery):
		return "discovery"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrEmptyArtifactSet):
		return "empty_artifact_set"
	case errors.Is(err, ErrMerge):
		return "merge"
	case errors.Is(err, ErrNarration):
		return "narration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
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
