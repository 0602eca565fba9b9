package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ebookdl/internal/downloader"
	"ebookdl/pkg/landing"
	"ebookdl/pkg/pdf"
	"ebookdl/pkg/ui"
)

var inspectJSON bool

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <url>",
	Short: "Find download links on a repository page",
	Long: `Fetch a page and list the file links it offers.

Repository landing pages (EPrints, DSpace, OJS) announce their full-text PDF
in a citation_pdf_url meta tag; other pages are searched for links to .pdf or
.epub files and for "download"/"unduh" buttons. Nothing is saved.`,
	Example: `  ebookdl inspect http://repository.upi.edu/12345/
  ebookdl inspect https://eprints.uny.ac.id/6789/ --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print links as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	rawURL := strings.TrimSpace(args[0])
	if err := downloader.ValidateURL(rawURL); err != nil {
		return err
	}

	a, err := newApp(globalFlags(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.client.FetchPage(cmd.Context(), rawURL, downloader.MaxPageScan)
	if err != nil {
		return err
	}

	if !strings.Contains(page.ContentType, "html") {
		if pdf.HasMagic(bytes.NewReader(page.Body)) {
			ui.PrintSuccess("This is a direct PDF link. Download it with:")
		} else {
			ui.PrintWarning("This is not a web page (" + page.ContentType + "). Try downloading it with:")
		}
		fmt.Println("  ebookdl download " + rawURL)
		return nil
	}

	parsed, err := landing.Parse(bytes.NewReader(page.Body), page.URL)
	if err != nil {
		return err
	}

	if inspectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(parsed.Links)
	}

	if parsed.Title != "" {
		ui.PrintInfo("Title", parsed.Title)
	}
	if len(parsed.Links) == 0 {
		ui.PrintWarning("No download links found. The file may require login: see 'ebookdl auth guide'")
		return nil
	}
	printCandidates(parsed.Links)
	fmt.Println(ui.Dim("Download one with: ebookdl download <link>"))
	return nil
}
