package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SteelMorgan/filetrack/internal/config"
	"github.com/SteelMorgan/filetrack/internal/offset"
	"github.com/SteelMorgan/filetrack/internal/retry"
	"github.com/SteelMorgan/filetrack/pkg/tracked"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored position so the next read starts at the beginning",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.source()
			if err != nil {
				return err
			}

			reset := func() error {
				return resetPosition(cmd.Context(), cfg)
			}
			if wait {
				err = retry.Do(cmd.Context(), ctx.retryConfig(), reset)
			} else {
				err = reset()
			}
			if err != nil {
				return err
			}

			ctx.logger.Info().
				Str("path", cfg.LogPath).
				Str("registry", ctx.positionSource(cfg)).
				Msg("Position reset")
			fmt.Fprintf(cmd.OutOrStdout(), "Position for %s reset\n", cfg.LogPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for a registry held by another reader")

	return cmd
}

// resetPosition removes the stored position of cfg.LogPath.
func resetPosition(ctx context.Context, cfg *config.Config) error {
	if cfg.StorePath == "" {
		return tracked.Reset(cfg.RegistryPath)
	}

	store, err := offset.NewBoltDBStore(cfg.StorePath)
	if err != nil {
		return err
	}
	err = store.Delete(ctx, cfg.LogPath)
	if cerr := store.Close(); err == nil {
		err = cerr
	}
	return err
}
