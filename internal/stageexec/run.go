package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Func is the body of one pipeline stage. It receives a context carrying the
// stage name and a logger already stamped with run and stage fields.
type Func func(ctx context.Context, logger *slog.Logger) error

// Options controls stage execution.
type Options struct {
	Logger    *slog.Logger
	StageName string
	// Attrs are added to the stage start line.
	Attrs []logging.Attr
}

// Run executes fn as the named stage, logging its start, completion or
// failure with elapsed time. The error from fn is returned unchanged.
func Run(ctx context.Context, opts Options, fn Func) error {
	if fn == nil {
		return fmt.Errorf("stage body unavailable: %s", opts.StageName)
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	startAttrs := append([]logging.Attr{logging.String(logging.FieldEventType, "stage_start")}, opts.Attrs...)
	stageLogger.Info("stage started", logging.Args(startAttrs...)...)

	started := time.Now()
	if err := fn(stageCtx, stageLogger); err != nil {
		handleFailure(stageLogger, opts.StageName, err, time.Since(started))
		return err
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func handleFailure(logger *slog.Logger, stage string, stageErr error, elapsed time.Duration) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = "stage failed"
	}
	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("failure_class", services.Classify(stageErr)),
		logging.Alert(stage+"_failed"),
		logging.String("error_message", message),
		logging.Duration("elapsed", elapsed),
		logging.Error(stageErr),
	)
}
