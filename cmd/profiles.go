package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/profiles"
)

// CreateProfilesCmd creates the profiles command group.
func CreateProfilesCmd(settings *config.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage wall profiles",
		Long:  `Wall profiles name a bezel width pair and optional target size, stored in the profiles file.`,
	}

	open := func() *profiles.Store {
		store := profiles.NewStore(settings.ProfilesFile)
		if err := store.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitFailed)
		}
		return store
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List wall profiles",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			printProfiles(os.Stdout, open().All())
		},
	})

	var description string
	var top, bottom int
	var size float64
	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Create or replace a wall profile",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			p := profiles.Profile{
				Name:         args[0],
				Description:  description,
				TopPx:        top,
				BottomPx:     bottom,
				TargetSizeMB: size,
			}
			if err := open().Put(p); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(ExitUsage)
			}
			fmt.Printf("Saved profile %s\n", p.Name)
		},
	}
	set.Flags().StringVar(&description, "description", "", "Free-form note")
	set.Flags().IntVar(&top, "top", profiles.Default().TopPx, "Top bezel width in source pixels")
	set.Flags().IntVar(&bottom, "bottom", profiles.Default().BottomPx, "Bottom bezel width in source pixels")
	set.Flags().Float64Var(&size, "size", 0, "Target output size in MB, 0 for the default bitrate")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a wall profile",
		Args:    cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := open().Delete(args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(ExitFailed)
			}
			fmt.Printf("Deleted profile %s\n", args[0])
		},
	})

	return cmd
}

func printProfiles(w io.Writer, list []profiles.Profile) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No profiles defined.")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		size := "default bitrate"
		if p.TargetSizeMB > 0 {
			size = humanize.IBytes(uint64(p.TargetSizeMB * 1024 * 1024))
		}
		rows = append(rows, []string{
			p.Name,
			strconv.Itoa(p.TopPx),
			strconv.Itoa(p.BottomPx),
			size,
			p.Description,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Name", "Top", "Bottom", "Target", "Description"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}
