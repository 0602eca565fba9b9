// Package search builds search-engine links for finding ebooks and papers.
// It never fetches anything: every Result is a URL for the user to open.
package search

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Source selects which group of links Build returns
type Source string

const (
	SourceAll     Source = "all"
	SourceRepoID  Source = "repo_id"
	SourceScholar Source = "scholar"
)

// ErrEmptyQuery is returned when the query is blank after trimming
var ErrEmptyQuery = errors.New("search query is empty")

// Result is one generated search link
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Description string `json:"description"`
	IsDirect    bool   `json:"is_direct"`
}

// Site is an Indonesian repository searched through a site: filter
type Site struct {
	Name        string
	Domain      string
	Institution string
}

// IndonesianSites are searched, in order, for SourceRepoID
var IndonesianSites = []Site{
	{"Repository UPI", "repository.upi.edu", "Universitas Pendidikan Indonesia"},
	{"Repository UMJ", "repository.umj.ac.id", "Universitas Muhammadiyah Jakarta"},
	{"Repository UNY", "eprints.uny.ac.id", "Universitas Negeri Yogyakarta"},
	{"Repository UGM", "etd.repository.ugm.ac.id", "Universitas Gadjah Mada"},
}

const (
	googleSearch  = "https://www.google.com/search?q="
	scholarSearch = "https://scholar.google.com/scholar?q="
)

// ParseSource accepts "all", "repo_id" or "scholar" in any case
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceAll, SourceRepoID, SourceScholar:
		return src, nil
	case "":
		return SourceAll, nil
	default:
		return "", fmt.Errorf("unknown search source %q (want all, repo_id or scholar)", s)
	}
}

// Build returns the search links for query. Repository links come before
// scholar links when source is SourceAll.
func Build(query string, source Source) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if _, err := ParseSource(string(source)); err != nil {
		return nil, err
	}

	encoded := url.QueryEscape(query)
	var results []Result

	if source == SourceAll || source == SourceRepoID || source == "" {
		results = append(results, repoLinks(query, encoded)...)
	}
	if source == SourceAll || source == SourceScholar || source == "" {
		results = append(results, scholarLinks(query, encoded)...)
	}

	return results, nil
}

func repoLinks(query, encoded string) []Result {
	results := make([]Result, 0, len(IndonesianSites)+1)
	for _, site := range IndonesianSites {
		results = append(results, Result{
			Title:       fmt.Sprintf("Cari '%s' di %s", query, site.Name),
			URL:         googleSearch + encoded + "+site:" + site.Domain + "+filetype:pdf",
			Source:      "Repo ID",
			Description: "Cari PDF di " + site.Institution,
		})
	}

	results = append(results, Result{
		Title:       fmt.Sprintf("Cari '%s' di semua universitas Indonesia", query),
		URL:         googleSearch + encoded + "+site:ac.id+filetype:pdf",
		Source:      "Repo ID",
		Description: "Cari PDF di semua universitas Indonesia (.ac.id)",
	})
	return results
}

func scholarLinks(query, encoded string) []Result {
	return []Result{
		{
			Title:       fmt.Sprintf("Cari '%s' di Google Scholar", query),
			URL:         scholarSearch + encoded,
			Source:      "Scholar",
			Description: "Cari paper dan jurnal akademik",
		},
		{
			Title:       fmt.Sprintf("Cari '%s' PDF di Google", query),
			URL:         googleSearch + encoded + "+filetype:pdf",
			Source:      "Google",
			Description: "Cari file PDF langsung",
		},
	}
}

// IsSearchURL reports whether rawURL is a search results page rather than a file
func IsSearchURL(rawURL string) bool {
	return strings.Contains(rawURL, "google.com/search") || strings.Contains(rawURL, "scholar.google.com")
}
