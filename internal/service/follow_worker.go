package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/SteelMorgan/filetrack/internal/retry"
)

// PassFunc runs one read pass and reports how many lines it delivered.
type PassFunc func(ctx context.Context) (int, error)

// FollowWorker runs a read pass on start and then once per interval until
// its context ends. Each pass opens the log afresh, so a rotation between
// two passes is picked up by the next one.
type FollowWorker struct {
	interval time.Duration
	pass     PassFunc
	logger   zerolog.Logger
}

// NewFollowWorker creates a follow worker
func NewFollowWorker(interval time.Duration, pass PassFunc, logger zerolog.Logger) (*FollowWorker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("follow interval must be positive, got %v", interval)
	}
	if pass == nil {
		return nil, fmt.Errorf("pass function is required")
	}
	return &FollowWorker{
		interval: interval,
		pass:     pass,
		logger:   logger,
	}, nil
}

// Start blocks until ctx is done or a pass fails with an error that waiting
// cannot fix. Cancellation is not an error.
func (w *FollowWorker) Start(ctx context.Context) error {
	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Starting follow worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("Follow worker context cancelled")
			return nil
		}
		if err := w.runPass(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func (w *FollowWorker) runPass(ctx context.Context) error {
	startTime := time.Now()

	lines, err := w.pass(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil
	case isTransient(err):
		w.logger.Warn().
			Err(err).
			Msg("Read pass failed, trying again on next tick")
		return nil
	default:
		return err
	}

	if lines > 0 {
		w.logger.Debug().
			Int("lines", lines).
			Dur("duration", time.Since(startTime)).
			Msg("Read pass completed")
	}
	return nil
}

// isTransient reports errors that a later pass may not hit: the log being
// absent between rename and re-creation, or another reader holding the
// registry.
func isTransient(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || retry.IsRetryableError(err, retry.DefaultConfig())
}
