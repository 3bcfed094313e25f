package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SteelMorgan/filetrack/internal/observability"
	"github.com/SteelMorgan/filetrack/internal/service"
	"github.com/SteelMorgan/filetrack/pkg/rotation"
	"github.com/SteelMorgan/filetrack/pkg/tracked"
)

type readOptions struct {
	maxLines   int
	rollbackOn string
	wait       bool
	follow     bool
	interval   time.Duration
}

type readResult struct {
	lines      int
	resolution rotation.Resolution
	rotated    bool
	position   rotation.Position
}

func newReadCommand(ctx *commandContext) *cobra.Command {
	var opts readOptions

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print lines appended since the previous run",
		Long: `Print the lines appended to the log since the previous run and save the
new position. Lines left in <path>.1 after a rotation are printed first.
An unterminated last line is left for the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.source()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-lines") {
				opts.maxLines = cfg.MaxLines
			}
			if opts.maxLines < 0 {
				return fmt.Errorf("--max-lines must not be negative")
			}
			if opts.follow && opts.rollbackOn != "" {
				return fmt.Errorf("--rollback-on cannot be combined with --follow")
			}

			if opts.follow {
				return runFollow(cmd.Context(), ctx, cmd.OutOrStdout(), opts)
			}
			_, err = runRead(cmd.Context(), ctx, cmd.OutOrStdout(), opts)
			return err
		},
	}

	cmd.Flags().IntVarP(&opts.maxLines, "max-lines", "n", 0, "Stop after this many lines (0 reads to the end)")
	cmd.Flags().StringVar(&opts.rollbackOn, "rollback-on", "", "Stop before the first line containing this text and leave it for the next run")
	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait for a registry held by another reader")
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "Keep reading new lines until interrupted")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "Poll interval with --follow")

	return cmd
}

func runRead(ctx context.Context, c *commandContext, out io.Writer, opts readOptions) (res readResult, err error) {
	cfg := c.config

	ctx, span := observability.StartSpan(ctx, "filetrack.read",
		attribute.String("log.path", cfg.LogPath),
		attribute.String("position.source", c.positionSource(cfg)),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("lines", res.lines),
			attribute.String("resolution", res.resolution.String()),
			attribute.Int64("inode", int64(res.position.Inode)),
			attribute.Int64("offset", int64(res.position.Offset)),
		)
		observability.EndSpan(span, err)
	}()

	s, err := c.openSession(ctx, cfg, opts.wait)
	if err != nil {
		return res, err
	}
	defer func() {
		res.position = s.reader.PersistentOffset()
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	res.resolution = s.reader.Resolution()
	res.rotated = s.reader.Rotated()

	logger := c.logger.With().Str("path", cfg.LogPath).Logger()
	if res.resolution == rotation.Stale || res.resolution == rotation.Truncated {
		logger.Warn().
			Str("resolution", res.resolution.String()).
			Msg("Stored position no longer applies, reading from the start of the log")
	}

	res.lines, err = copyLines(ctx, s.reader, out, opts)
	if err != nil {
		return res, err
	}

	logger.Info().
		Int("lines", res.lines).
		Str("resolution", res.resolution.String()).
		Bool("rotated", res.rotated).
		Msg("Read finished")
	return res, nil
}

// runFollow repeats runRead every interval until ctx is cancelled.
func runFollow(ctx context.Context, c *commandContext, out io.Writer, opts readOptions) error {
	w, err := service.NewFollowWorker(opts.interval, func(ctx context.Context) (int, error) {
		res, err := runRead(ctx, c, out, opts)
		return res.lines, err
	}, c.logger)
	if err != nil {
		return err
	}
	return w.Start(ctx)
}

// copyLines writes complete lines from r to out. It stops at the end of the
// data, after maxLines lines, or in front of a line containing rollbackOn.
func copyLines(ctx context.Context, r *tracked.Reader, out io.Writer, opts readOptions) (int, error) {
	lines := 0
	for opts.maxLines == 0 || lines < opts.maxLines {
		if err := ctx.Err(); err != nil {
			return lines, err
		}

		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}

		if !bytes.HasSuffix(line, []byte{'\n'}) ||
			(opts.rollbackOn != "" && bytes.Contains(line, []byte(opts.rollbackOn))) {
			if _, err := r.Seek(-int64(len(line)), io.SeekCurrent); err != nil {
				return lines, err
			}
			return lines, nil
		}

		if _, err := out.Write(line); err != nil {
			return lines, err
		}
		lines++
	}
	return lines, nil
}
