// Package landing finds download links on repository landing pages.
//
// University repositories (EPrints, DSpace, OJS) rarely serve the PDF at the
// URL a user copies; they return an HTML page describing the document. Those
// pages advertise the file through a citation_pdf_url meta tag and through
// "Download" / "Unduh" anchors, which is what Parse collects.
package landing

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is a candidate file URL found on a page
type Link struct {
	URL    string `json:"url"`
	Text   string `json:"text,omitempty"`
	Source string `json:"source"`
	Format string `json:"format,omitempty"`
}

const (
	SourceCitationMeta = "citation_pdf_url"
	SourceAnchor       = "anchor"
)

// Page is what Parse learns from a landing page
type Page struct {
	Title string
	Links []Link
}

var linkKeywords = []string{"download", "unduh", "pdf", "full text", "fulltext"}

// Parse reads an HTML document and returns its title and candidate file links.
// Relative URLs are resolved against base (or the page's <base href>).
func Parse(r io.Reader, base *url.URL) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	page := &Page{Title: pageTitle(doc)}
	seen := make(map[string]bool)
	add := func(raw, text, source string) {
		resolved, ok := resolve(base, raw)
		if !ok || seen[resolved] {
			return
		}
		seen[resolved] = true
		page.Links = append(page.Links, Link{
			URL:    resolved,
			Text:   text,
			Source: source,
			Format: formatOf(resolved),
		})
	}

	doc.Find(`meta[name="citation_pdf_url"], meta[name="eprints.document_url"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content, "", SourceCitationMeta)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			text = strings.TrimSpace(s.AttrOr("title", ""))
		}

		resolved, ok := resolve(base, href)
		if !ok {
			return
		}
		if formatOf(resolved) != "" || mentionsDownload(text) {
			add(href, text, SourceAnchor)
		}
	})

	return page, nil
}

// Extract returns only the candidate links of an HTML document
func Extract(r io.Reader, base *url.URL) ([]Link, error) {
	page, err := Parse(r, base)
	if err != nil {
		return nil, err
	}
	return page.Links, nil
}

func pageTitle(doc *goquery.Document) string {
	if t, ok := doc.Find(`meta[name="citation_title"]`).First().Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

// resolve makes raw absolute and keeps only http(s) URLs without fragments
func resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

// formatOf returns "pdf" or "epub" when the URL path has that extension
func formatOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".pdf":
		return "pdf"
	case ".epub":
		return "epub"
	default:
		return ""
	}
}

func mentionsDownload(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range linkKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
