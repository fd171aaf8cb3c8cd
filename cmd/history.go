package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/history"
)

// CreateHistoryCmd creates the history command, which lists runs recorded
// by the server and the watch command.
func CreateHistoryCmd(settings *config.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent encode runs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			store, err := history.Open(settings.HistoryDB)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(ExitFailed)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(ExitFailed)
			}
			printHistory(os.Stdout, entries, time.Now())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func printHistory(w io.Writer, entries []history.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		result := e.State
		if e.ErrorKind != "" {
			result += " (" + e.ErrorKind + ")"
		}
		bitrate := ""
		if e.VideoKbps > 0 {
			bitrate = strconv.Itoa(e.VideoKbps)
			if e.BitrateClamped {
				bitrate += "*"
			}
		}
		rows = append(rows, []string{
			humanize.RelTime(e.FinishedAt, now, "ago", "from now"),
			filepath.Base(e.Input),
			result,
			bitrate,
			e.Elapsed().Round(time.Second).String(),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Finished", "Input", "Result", "Kbps", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
}
