package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"ebookdl/internal/downloader"
	"ebookdl/pkg/repository"
	"ebookdl/pkg/search"
	"ebookdl/pkg/ui"
)

const (
	menuDownload = "Download from URL"
	menuSearch   = "Search links"
	menuRepos    = "Repositories"
	menuExit     = "Exit"
)

// interactiveCmd represents the interactive command
var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"menu"},
	Short:   "Menu-driven mode",
	Long: `Start a menu that repeats until you choose Exit:

  1. Download from URL
  2. Search links
  3. Repositories
  4. Exit`,
	Args: cobra.NoArgs,
	RunE: runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	a, err := newApp(globalFlags(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	ui.PrintLogo()
	ui.PrintInfo("Download folder", a.cfg.Download.Folder)
	fmt.Println()

	for {
		menu := promptui.Select{
			Label: "Choose an action",
			Items: []string{menuDownload, menuSearch, menuRepos, menuExit},
		}
		_, choice, err := menu.Run()
		if err != nil {
			if isPromptExit(err) {
				return nil
			}
			return fmt.Errorf("menu: %w", err)
		}

		switch choice {
		case menuDownload:
			err = interactiveDownload(cmd, a)
		case menuSearch:
			err = interactiveSearch(a)
		case menuRepos:
			err = interactiveRepos()
		case menuExit:
			ui.PrintHighlight("Sampai jumpa!")
			return nil
		}

		if err != nil {
			if isPromptExit(err) {
				continue
			}
			ui.PrintError("Error", err)
		}
		fmt.Println()
	}
}

func isPromptExit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort)
}

func interactiveDownload(cmd *cobra.Command, a *app) error {
	prompt := promptui.Prompt{
		Label: "File URL",
		Validate: func(s string) error {
			return downloader.ValidateURL(s)
		},
	}
	rawURL, err := prompt.Run()
	if err != nil {
		return err
	}

	req := downloader.Request{URL: strings.TrimSpace(rawURL)}
	res, err := interactiveFetch(cmd.Context(), a, req)
	printResult(res, err)

	if err != nil && res != nil && len(res.Candidates) > 0 {
		return pickCandidate(cmd, a, res)
	}
	if err != nil {
		return offerOpen(req.URL, err)
	}
	return nil
}

// interactiveFetch runs one download that Ctrl-C cancels. The signal handler
// is removed afterwards so the menu keeps running.
func interactiveFetch(parent context.Context, a *app, req downloader.Request) (*downloader.Result, error) {
	ctx, stop := interruptible(parent)
	defer stop()
	return downloadWithProgress(ctx, a, req)
}

// pickCandidate lets the user download one of the links found on a page
func pickCandidate(cmd *cobra.Command, a *app, res *downloader.Result) error {
	items := make([]string, 0, len(res.Candidates)+1)
	for _, c := range res.Candidates {
		items = append(items, c.URL)
	}
	items = append(items, "Back to menu")

	sel := promptui.Select{Label: "Download one of these links?", Items: items}
	idx, _, err := sel.Run()
	if err != nil || idx == len(res.Candidates) {
		return err
	}

	next, err := interactiveFetch(cmd.Context(), a, downloader.Request{URL: res.Candidates[idx].URL})
	printResult(next, err)
	return nil
}

// offerOpen asks to open a search page or web page in the browser
func offerOpen(rawURL string, err error) error {
	if !errorIsPage(err) {
		return nil
	}
	confirm := promptui.Prompt{Label: "Open it in the browser", IsConfirm: true}
	if _, cerr := confirm.Run(); cerr != nil {
		return nil
	}
	return browser.OpenURL(rawURL)
}

func interactiveSearch(a *app) error {
	prompt := promptui.Prompt{
		Label: "Book or paper title",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return search.ErrEmptyQuery
			}
			return nil
		},
	}
	query, err := prompt.Run()
	if err != nil {
		return err
	}

	results, err := searchLinks(a.cfg, query)
	if err != nil {
		return err
	}

	items := make([]string, 0, len(results)+1)
	for _, r := range results {
		items = append(items, r.Title)
	}
	items = append(items, "Back to menu")

	sel := promptui.Select{Label: "Open a search link", Items: items, Size: 10}
	idx, _, err := sel.Run()
	if err != nil || idx == len(results) {
		return err
	}

	ui.PrintInfo("Opening", results[idx].URL)
	return browser.OpenURL(results[idx].URL)
}

func interactiveRepos() error {
	repos := repository.All()
	items := make([]string, 0, len(repos)+1)
	for _, r := range repos {
		items = append(items, fmt.Sprintf("%s - %s", r.Name, r.Category))
	}
	items = append(items, "Back to menu")

	sel := promptui.Select{Label: "Open a repository", Items: items, Size: 14}
	idx, _, err := sel.Run()
	if err != nil || idx == len(repos) {
		fmt.Println(ui.Dim("Tip: search Google with " + repository.Tip("")))
		return err
	}

	ui.PrintInfo("Opening", repos[idx].URL)
	return browser.OpenURL(repos[idx].URL)
}
