package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"ebookdl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	recordHistory bool
	userAgent     string
	quiet         bool
	verbose       bool
)

// errSilent is returned by commands that have already reported the failure
var errSilent = errors.New("command failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ebookdl",
	Short: "Find and download ebooks and PDFs from Indonesian academic repositories",
	Long: `ebookdl downloads ebook and PDF files from the public web, with a focus on
Indonesian university repositories (UPI, UMJ, UNY, UGM and other ac.id sites).

Features:
  - Streams downloads to disk with a live progress bar or terminal UI
  - Checks that saved files really are PDFs and keeps web pages for inspection
  - Finds the real download links on repository landing pages
  - Builds Google and Google Scholar search links for a topic
  - Stores session cookies for repositories that require login
  - Keeps a history of every download`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !stdoutIsTerminal() {
			ui.SetColor(false)
		}
		if verbose && !cmd.Flags().Changed("log-level") {
			logLevel = "debug"
		}
		if quiet {
			logLevel = "error"
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			ui.PrintError("Error", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/ebookdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "announce finished downloads")
	rootCmd.PersistentFlags().BoolVar(&recordHistory, "history", true, "record downloads in the history ledger")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "User-Agent header sent with requests")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug output")

	// Version template
	rootCmd.SetVersionTemplate(`ebookdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
