package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SteelMorgan/filetrack/internal/offset"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect a BoltDB position store",
	}

	storeCmd.AddCommand(newStoreListCommand(ctx))

	return storeCmd
}

func newStoreListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all positions kept in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.config.StorePath
			if path == "" {
				return fmt.Errorf("--store or FILETRACK_STORE is required")
			}

			store, err := offset.NewBoltDBStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			positions, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(positions) == 0 {
				fmt.Fprintln(out, "No positions stored")
				return nil
			}

			paths := make([]string, 0, len(positions))
			for p := range positions {
				paths = append(paths, p)
			}
			sort.Strings(paths)

			rows := make([][]string, 0, len(paths))
			for _, p := range paths {
				pos := positions[p]
				rows = append(rows, []string{
					p,
					strconv.FormatUint(pos.Inode, 10),
					strconv.FormatUint(pos.Offset, 10),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Log", "Inode", "Offset"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}
