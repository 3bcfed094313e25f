package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SteelMorgan/filetrack/internal/config"
	"github.com/SteelMorgan/filetrack/internal/observability"
	"github.com/SteelMorgan/filetrack/internal/offset"
	"github.com/SteelMorgan/filetrack/internal/retry"
	"github.com/SteelMorgan/filetrack/pkg/rotation"
	"github.com/SteelMorgan/filetrack/pkg/tracked"
)

type commandFlags struct {
	config   string
	logPath  string
	registry string
	store    string
	logLevel string
}

type commandContext struct {
	flags *commandFlags

	config         *config.Config
	logger         zerolog.Logger
	runID          string
	tracerShutdown func(context.Context) error
}

func newCommandContext(flags *commandFlags) *commandContext {
	return &commandContext{flags: flags, logger: zerolog.Nop()}
}

// prepare loads the configuration, applies flag overrides and sets up
// logging and tracing for one invocation.
func (c *commandContext) prepare(cmd *cobra.Command) error {
	path := strings.TrimSpace(c.flags.config)
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	setFlag(&cfg.LogPath, c.flags.logPath)
	setFlag(&cfg.RegistryPath, c.flags.registry)
	setFlag(&cfg.StorePath, c.flags.store)
	setFlag(&cfg.LogLevel, c.flags.logLevel)
	c.config = cfg

	observability.InitLogger(cfg.LogLevel, cfg.LogFile)
	c.runID = uuid.NewString()
	c.logger = log.With().
		Str("run_id", c.runID).
		Str("command", cmd.Name()).
		Logger()

	shutdown, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "filetrack",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Protocol:       cfg.OTLPProtocol,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to initialize tracer")
		return nil
	}
	c.tracerShutdown = shutdown
	return nil
}

func (c *commandContext) shutdown(ctx context.Context) error {
	if c.tracerShutdown == nil {
		return nil
	}
	if err := c.tracerShutdown(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to flush traces")
	}
	return nil
}

// source returns the configuration of commands working on one log.
func (c *commandContext) source() (*config.Config, error) {
	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	return c.config, nil
}

func (c *commandContext) retryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = c.config.RetryMaxAttempts
	cfg.InitialDelay = time.Duration(c.config.RetryInitialDelayMs) * time.Millisecond
	cfg.MaxDelay = time.Duration(c.config.RetryMaxDelayMs) * time.Millisecond
	return cfg
}

// session is an open tracked reader plus the store backing it, if any.
type session struct {
	reader *tracked.Reader
	store  *offset.BoltDBStore
}

func (s *session) Close() error {
	err := s.reader.Close()
	if s.store != nil {
		err = errors.Join(err, s.store.Close())
	}
	return err
}

// openSession opens a tracked reader for the configured log. With wait set,
// lock contention is retried with backoff.
func (c *commandContext) openSession(ctx context.Context, cfg *config.Config, wait bool) (*session, error) {
	open := func() (*session, error) {
		opt := tracked.WithLogger(c.logger)
		if cfg.StorePath == "" {
			r, err := tracked.Open(cfg.LogPath, cfg.RegistryPath, opt)
			if err != nil {
				return nil, err
			}
			return &session{reader: r}, nil
		}

		store, err := offset.NewBoltDBStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		r, err := tracked.OpenWithRegistry(cfg.LogPath, store.Registry(cfg.LogPath), opt)
		if err != nil {
			store.Close()
			return nil, err
		}
		return &session{reader: r, store: store}, nil
	}

	if !wait {
		return open()
	}
	return retry.DoWithResult(ctx, c.retryConfig(), open)
}

// storedPosition reads the saved position without locking or opening the log.
func (c *commandContext) storedPosition(ctx context.Context, cfg *config.Config) (rotation.Position, bool, error) {
	if cfg.StorePath == "" {
		return tracked.NewFileRegistry(cfg.RegistryPath).Load()
	}

	store, err := offset.NewBoltDBStore(cfg.StorePath)
	if err != nil {
		return rotation.Position{}, false, err
	}
	defer store.Close()
	return store.Get(ctx, cfg.LogPath)
}

func (c *commandContext) positionSource(cfg *config.Config) string {
	if cfg.StorePath != "" {
		return fmt.Sprintf("%s#%s", cfg.StorePath, cfg.LogPath)
	}
	return cfg.RegistryPath
}

func setFlag(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
