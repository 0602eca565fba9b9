package downloader

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	// DefaultPDFName is used when neither the headers nor the URL name the file
	DefaultPDFName = "ebook_downloaded.pdf"
	// DefaultEPUBName is used instead of DefaultPDFName for EPUB responses
	DefaultEPUBName = "ebook_downloaded.epub"
)

// dispositionPattern is the lenient fallback for Content-Disposition headers
// that mime.ParseMediaType rejects.
var dispositionPattern = regexp.MustCompile(`filename="?([^"]+)"?`)

const unsafeFilenameChars = `<>:"/\|?*`

// FilenameFromDisposition extracts the filename parameter of a
// Content-Disposition header. filename* (RFC 5987) is decoded by the mime
// package.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name
		}
	}
	if m := dispositionPattern.FindStringSubmatch(header); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// FilenameFromURL returns the unescaped last path segment of u
func FilenameFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// DefaultFilename picks the fallback name from the response content type
func DefaultFilename(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return DefaultPDFName
	case strings.Contains(ct, "epub"):
		return DefaultEPUBName
	default:
		return DefaultPDFName
	}
}

// ResolveFilename chooses the name for a response: the Content-Disposition
// filename, else the basename of the requested URL, else the basename of the
// URL a redirect ended on, else a default. A candidate without an extension
// dot is skipped.
func ResolveFilename(disposition string, requested, final *url.URL, contentType string) string {
	if name := FilenameFromDisposition(disposition); name != "" {
		if hasExtension(name) {
			return name
		}
		return DefaultFilename(contentType)
	}
	for _, u := range []*url.URL{requested, final} {
		if name := FilenameFromURL(u); hasExtension(name) {
			return name
		}
	}
	return DefaultFilename(contentType)
}

func hasExtension(name string) bool {
	return strings.Contains(name, ".")
}

// SanitizeFilename replaces characters that are invalid on common file
// systems with '_' and truncates the result to maxLen characters.
func SanitizeFilename(name string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeFilenameChars, r) {
			return '_'
		}
		return r
	}, name)

	if runes := []rune(cleaned); maxLen > 0 && len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}
