// Package repository holds the catalog of websites that offer free ebooks,
// papers and theses.
package repository

import (
	"net/url"
	"strings"
)

// Repository is one catalog entry
type Repository struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Host returns the host part of the repository URL
func (r Repository) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Indonesian reports whether the repository belongs to an Indonesian
// university or government library.
func (r Repository) Indonesian() bool {
	host := r.Host()
	return strings.HasSuffix(host, ".ac.id") || strings.HasSuffix(host, ".go.id") || strings.HasSuffix(host, "upi.edu")
}

var catalog = []Repository{
	{"ResearchGate", "https://www.researchgate.net", "Jurnal & Paper", "Download paper ilmiah gratis"},
	{"Scribd", "https://www.scribd.com", "Ebook & Dokumen", "Perpustakaan digital gratis"},
	{"Google Scholar", "https://scholar.google.com", "Pencarian Akademik", "Cari paper & jurnal"},
	{"Repository UMJ", "https://repository.umj.ac.id", "Univ. Muhammadiyah JKT", "Skripsi & tesis"},
	{"Repository USD", "https://repository.usd.ac.id", "Univ. Sanata Dharma", "Karya ilmiah"},
	{"Perpusnas Digital", "https://e-resources.perpusnas.go.id", "Perpustakaan Nasional", "E-resources WNI"},
	{"Open Library", "https://openlibrary.org", "Internet Archive", "Jutaan buku digital"},
	{"Project Gutenberg", "https://www.gutenberg.org", "Buku Klasik", "60K+ ebook gratis"},
	{"Library Genesis", "https://libgen.is", "Perpustakaan Digital", "Paper akademik"},
	{"Repository UPI", "http://repository.upi.edu", "Univ. Pendidikan ID", "Karya pendidikan"},
	{"Repository UNY", "https://eprints.uny.ac.id", "Univ. Negeri Yogya", "Repository ilmiah"},
	{"Repository UGM", "https://etd.repository.ugm.ac.id", "Univ. Gadjah Mada", "Tesis & disertasi"},
	{"Perpustakaan UPI", "http://perpustakaan.upi.edu", "Univ. Pendidikan ID", "Katalog perpustakaan"},
}

// All returns a copy of the catalog in display order
func All() []Repository {
	out := make([]Repository, len(catalog))
	copy(out, catalog)
	return out
}

// Indonesian returns the catalog entries hosted by Indonesian institutions
func Indonesian() []Repository {
	var out []Repository
	for _, r := range catalog {
		if r.Indonesian() {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the entry whose name equals name, ignoring case, or else the
// first entry whose name contains it.
func Find(name string) (Repository, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Repository{}, false
	}

	for _, r := range catalog {
		if strings.ToLower(r.Name) == needle {
			return r, true
		}
	}
	for _, r := range catalog {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			return r, true
		}
	}
	return Repository{}, false
}

// Tip returns the suggested web search for finding PDFs about topic on
// Indonesian academic sites.
func Tip(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "judul buku"
	}
	return topic + " filetype:pdf site:ac.id"
}
