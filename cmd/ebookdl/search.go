package main

import (
	"fmt"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"ebookdl/pkg/config"
	"ebookdl/pkg/repository"
	"ebookdl/pkg/search"
	"ebookdl/pkg/ui"
)

var (
	searchSource string
	searchOpen   int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Build search links for a book or paper",
	Long: `Build Google and Google Scholar search links for a topic.

Sources:
  repo_id  - Indonesian university repositories (UPI, UMJ, UNY, UGM and all ac.id sites)
  scholar  - Google Scholar and a general filetype:pdf search
  all      - both, repositories first

Nothing is fetched: open a link in your browser, find the document and pass
its direct PDF link to 'ebookdl download'.`,
	Example: `  # Search everywhere
  ebookdl search "pendidikan karakter"

  # Only Indonesian repositories, and open the first link
  ebookdl search metode pembelajaran --source repo_id --open 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchSource, "source", "s", "", "link source: all, repo_id or scholar")
	searchCmd.Flags().IntVar(&searchOpen, "open", 0, "open link number N in the browser")
}

func runSearch(cmd *cobra.Command, args []string) error {
	flags := globalFlags(cmd)
	if searchSource != "" {
		flags["source"] = searchSource
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := searchLinks(cfg, query)
	if err != nil {
		return err
	}

	ui.PrintHighlight(fmt.Sprintf("Search links for %q", strings.TrimSpace(query)))
	fmt.Println()
	for i, r := range results {
		ui.PrintLink(i+1, r.Title, r.URL)
	}
	fmt.Println()
	fmt.Println(ui.Dim("Tip: open a link, find the document and copy its direct PDF link, then run"))
	fmt.Println(ui.Dim("     ebookdl download <link>"))
	fmt.Println(ui.Dim("     Search query idea: " + repository.Tip(query)))

	if searchOpen == 0 {
		return nil
	}
	if searchOpen < 1 || searchOpen > len(results) {
		return fmt.Errorf("--open must be between 1 and %d", len(results))
	}
	return browser.OpenURL(results[searchOpen-1].URL)
}

// searchLinks builds the links for query from the configured default source
func searchLinks(cfg *config.Config, query string) ([]search.Result, error) {
	source, err := search.ParseSource(cfg.Search.DefaultSource)
	if err != nil {
		return nil, err
	}
	return search.Build(query, source)
}
