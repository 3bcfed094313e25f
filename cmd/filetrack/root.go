package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newRootCommand() *cobra.Command {
	var flags commandFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "filetrack",
		Short:         "Follow log files across runs and rotations",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.prepare(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.shutdown(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path (YAML)")
	pf.StringVarP(&flags.logPath, "file", "f", "", "Log file to follow")
	pf.StringVarP(&flags.registry, "registry", "r", "", "Registry file keeping the position")
	pf.StringVarP(&flags.store, "store", "s", "", "BoltDB store keeping positions of many logs")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newReadCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newResetCommand(ctx))
	rootCmd.AddCommand(newStoreCommand(ctx))

	return rootCmd
}
