package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/SteelMorgan/filetrack/internal/inode"
	"github.com/SteelMorgan/filetrack/pkg/rotation"
)

// fileStatus describes one of the files a stored position may refer to.
type fileStatus struct {
	Path    string
	Exists  bool
	Inode   uint64
	Size    int64
	Matches bool
	Rotated bool // the <path>.1 file
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored position and the files it may refer to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.source()
			if err != nil {
				return err
			}

			pos, found, err := ctx.storedPosition(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			files := []string{cfg.LogPath, rotation.PredecessorPath(cfg.LogPath)}
			statuses := make([]fileStatus, 0, len(files))
			for i, path := range files {
				st, err := statFile(path, pos, found)
				if err != nil {
					return err
				}
				st.Rotated = i == 1
				statuses = append(statuses, st)
			}

			out := cmd.OutOrStdout()
			printStatus(out, ctx.positionSource(cfg), pos, found, statuses, shouldColorize(out))
			return nil
		},
	}
}

func statFile(path string, pos rotation.Position, found bool) (fileStatus, error) {
	st := fileStatus{Path: path}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}

	ino, err := inode.OfPath(path)
	if err != nil {
		return st, err
	}

	st.Exists = true
	st.Inode = ino
	st.Size = info.Size()
	st.Matches = found && ino == pos.Inode
	return st, nil
}

func printStatus(out io.Writer, source string, pos rotation.Position, found bool, files []fileStatus, colorize bool) {
	fmt.Fprintf(out, "Registry: %s\n", source)
	if found {
		fmt.Fprintf(out, "Position: inode %d, offset %d\n", pos.Inode, pos.Offset)
	} else {
		fmt.Fprintln(out, "Position: none (next read starts at the beginning)")
	}

	rows := make([][]string, 0, len(files))
	for _, f := range files {
		if !f.Exists {
			rows = append(rows, []string{f.Path, "-", "-", "missing"})
			continue
		}
		state := positionState(f, pos)
		if f.Matches && colorize {
			state = text.FgGreen.Sprint(state)
		}
		rows = append(rows, []string{
			f.Path,
			strconv.FormatUint(f.Inode, 10),
			strconv.FormatInt(f.Size, 10),
			state,
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"File", "Inode", "Size", "State"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
}

// positionState describes what the next read does with the stored position
// in f. It mirrors how the rotation reader resolves an offset past the end.
func positionState(f fileStatus, pos rotation.Position) string {
	switch {
	case !f.Matches:
		return ""
	case pos.Offset <= uint64(f.Size):
		return fmt.Sprintf("stored, %d bytes pending", uint64(f.Size)-pos.Offset)
	case f.Rotated:
		return "stored, past end (continues with current file)"
	default:
		return "stored, truncated (restarts at 0)"
	}
}
