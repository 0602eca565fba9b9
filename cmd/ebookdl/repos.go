package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"ebookdl/pkg/repository"
	"ebookdl/pkg/ui"
)

var (
	reposOpen       bool
	reposIndonesian bool
)

// reposCmd represents the repos command
var reposCmd = &cobra.Command{
	Use:     "repos [name]",
	Aliases: []string{"repositories"},
	Short:   "List websites that offer free ebooks, papers and theses",
	Long: `List the built-in catalog of ebook and paper repositories.

With a name, only the matching repository is shown (case-insensitive, partial
names work). Combine with --open to visit it.`,
	Example: `  # Show the whole catalog
  ebookdl repos

  # Open the UPI repository in the browser
  ebookdl repos upi --open`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepos,
}

func init() {
	rootCmd.AddCommand(reposCmd)

	reposCmd.Flags().BoolVar(&reposOpen, "open", false, "open the matching repository in the browser")
	reposCmd.Flags().BoolVar(&reposIndonesian, "indonesian", false, "only list Indonesian repositories")
}

func runRepos(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		repo, ok := repository.Find(args[0])
		if !ok {
			return fmt.Errorf("no repository matches %q", args[0])
		}
		ui.PrintInfo(repo.Name, repo.URL)
		fmt.Printf("  %s - %s\n", repo.Category, repo.Description)
		if reposOpen {
			return browser.OpenURL(repo.URL)
		}
		return nil
	}

	if reposOpen {
		return fmt.Errorf("--open needs a repository name")
	}

	repos := repository.All()
	if reposIndonesian {
		repos = repository.Indonesian()
	}

	ui.PrintHighlight("Ebook & paper repositories")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, r := range repos {
		fmt.Fprintf(w, "%d.\t%s\t%s\t%s\n", i+1, r.Name, r.Category, r.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(ui.Dim("Tip: search Google with " + repository.Tip("")))
	return nil
}
