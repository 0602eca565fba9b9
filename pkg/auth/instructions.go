package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieGuide writes step-by-step instructions for copying a session
// cookie from a browser that is logged in to a repository.
func ShowCookieGuide(w io.Writer, host string) {
	if host == "" {
		host = "the repository"
	}
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SESSION COOKIE GUIDE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Some repositories only serve full-text PDFs to logged-in users.\n")
	fmt.Fprintf(w, "To download from %s, reuse the session of your browser:\n", host)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "1. Log in to %s in your browser and open any document page.\n", host)
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS).")
	fmt.Fprintln(w, "3. Select the Network tab and reload the page.")
	fmt.Fprintln(w, "4. Click the first request to the site, open Headers > Request Headers.")
	fmt.Fprintln(w, "5. Copy the whole value of the 'Cookie:' header (without the name).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TIPS:")
	fmt.Fprintln(w, "  - Sessions expire; run 'ebookdl auth set' again when downloads")
	fmt.Fprintln(w, "    start returning login pages.")
	fmt.Fprintln(w, "  - A cookie stored for upi.edu is also used for repository.upi.edu.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "WARNING: the cookie grants access to your account. It is kept in the")
	fmt.Fprintln(w, "system keychain or an encrypted file, never in plain text.")
	fmt.Fprintln(w, rule)
}
