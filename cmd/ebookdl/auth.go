package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ebookdl/pkg/auth"
	"ebookdl/pkg/ui"
)

var authUserAgent string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage session cookies for repositories that require login",
	Long: `Some repositories only serve full-text PDFs to logged-in users. Store the
Cookie header of a logged-in browser session and ebookdl will send it with
every request to that site (and its subdomains).

Cookies are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables EBOOKDL_SITE_HOST / EBOOKDL_SITE_COOKIE (read-only)

Never share your cookies!`,
}

// setCmd represents the auth set command
var setCmd = &cobra.Command{
	Use:   "set <host>",
	Short: "Store the session cookie for a site",
	Long: `Store the session cookie for a site. You will be prompted for the Cookie
header value; it is not echoed. Run 'ebookdl auth guide' to learn how to copy it.`,
	Example: `  ebookdl auth set repository.upi.edu
  ebookdl auth set ugm.ac.id --user-agent "Mozilla/5.0 ..."`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthSet,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sites with stored cookies",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:     "remove <host>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove the stored cookie for a site",
	Args:    cobra.ExactArgs(1),
	RunE:    runAuthRemove,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide [host]",
	Short: "Show how to copy a session cookie from the browser",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		host := ""
		if len(args) == 1 {
			host = auth.NormalizeHost(args[0])
		}
		auth.ShowCookieGuide(os.Stdout, host)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(removeCmd)
	authCmd.AddCommand(guideCmd)

	setCmd.Flags().StringVar(&authUserAgent, "user-agent", "", "send this User-Agent to the site instead of the default")
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	host := auth.NormalizeHost(args[0])
	if host == "" {
		return fmt.Errorf("invalid host %q", args[0])
	}

	if existing, _ := manager.Retrieve(host); existing != nil {
		fmt.Printf("A cookie for %s is already stored. Replace it? (y/N): ", host)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			return nil
		}
	}

	fmt.Printf("Cookie header for %s (hidden): ", host)
	cookie, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read cookie: %w", err)
	}
	cookie = strings.TrimPrefix(strings.TrimSpace(cookie), "Cookie:")

	cred := &auth.SiteCredential{
		Host:      host,
		Cookie:    strings.TrimSpace(cookie),
		UserAgent: authUserAgent,
	}
	if err := manager.Store(cred); err != nil {
		return fmt.Errorf("failed to store cookie: %w", err)
	}

	ui.PrintSuccess("Cookie stored for " + host)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}

	if len(creds) == 0 {
		ui.PrintInfo("No stored cookies", "Use 'ebookdl auth set <host>' to add one")
		return nil
	}

	ui.PrintHighlight("Stored site cookies")
	fmt.Println()

	for i, cred := range creds {
		sanitized := auth.SanitizeCredential(cred)
		fmt.Printf("%d. Host: %s\n", i+1, sanitized.Host)
		fmt.Printf("   Cookie: %s\n", sanitized.Cookie)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	host := auth.NormalizeHost(args[0])
	if err := manager.Delete(host); err != nil {
		return fmt.Errorf("failed to remove cookie for %s: %w", host, err)
	}

	ui.PrintSuccess("Cookie removed for " + host)
	return nil
}

// readPassword reads a line without echo when stdin is a terminal
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println() // New line after password
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
