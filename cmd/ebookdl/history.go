package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ebookdl/pkg/ui"
)

var (
	historyLimit int
	historyClear bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past downloads",
	Long: `Show past download attempts, newest first. Every attempt is recorded,
including failures and pages that were not files.`,
	Example: `  ebookdl history
  ebookdl history --limit 50
  ebookdl history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(globalFlags(cmd))
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		ui.PrintWarning("History is disabled (history.enabled: false)")
		return nil
	}

	store, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if historyClear {
		n, err := store.Clear(ctx)
		if err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Removed %d entries", n))
		return nil
	}

	entries, err := store.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.PrintInfo("No downloads yet", "Use 'ebookdl download <url>'")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSTATUS\tSIZE\tFILE / URL")
	for _, e := range entries {
		target := e.Filename
		if target == "" {
			target = e.URL
		}
		size := "-"
		if e.Size > 0 {
			size = humanize.IBytes(uint64(e.Size))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", humanize.Time(e.CreatedAt), e.Status, size, target)
		if e.Error != "" && verbose {
			fmt.Fprintf(w, "\t\t\t%s\n", ui.Dim(e.Error))
		}
	}
	return w.Flush()
}
