// Package pdf checks whether downloaded bytes are really a PDF and reads
// basic document information.
package pdf

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
)

// Magic is the signature every PDF file starts with
var Magic = []byte("%PDF")

// HeaderSize is how many leading bytes are read for the signature check
const HeaderSize = 8

// ErrNoInfo is returned when pdfcpu reports neither a title nor a page count
var ErrNoInfo = errors.New("no document information found")

// Info is the subset of document information shown to the user
type Info struct {
	Title string `json:"title,omitempty"`
	Pages int    `json:"pages,omitempty"`
}

// HasMagic reads up to HeaderSize bytes from r and reports whether they
// start with the PDF signature.
func HasMagic(r io.Reader) bool {
	header := make([]byte, HeaderSize)
	n, _ := io.ReadFull(r, header)
	return bytes.HasPrefix(header[:n], Magic)
}

// IsValidFile reports whether the file at path starts with the PDF signature.
// Unreadable files are not valid.
func IsValidFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return HasMagic(f)
}

// InspectFile reads the title and page count of the PDF at path
func InspectFile(path string) (*Info, error) {
	lines, err := pdfcpu.InfoFile(path, []string{}, nil)
	if err != nil {
		return nil, err
	}
	return parseInfo(lines)
}

// parseInfo picks the fields we need out of pdfcpu's "Key: value" report lines
func parseInfo(lines []string) (*Info, error) {
	const (
		titlePrefix = "Title:"
		pagesPrefix = "Page count:"
	)

	info := &Info{}
	for _, line := range lines {
		cleaned := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(cleaned, titlePrefix) && info.Title == "":
			info.Title = strings.TrimSpace(strings.TrimPrefix(cleaned, titlePrefix))
		case strings.HasPrefix(cleaned, pagesPrefix) && info.Pages == 0:
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(cleaned, pagesPrefix))); err == nil {
				info.Pages = n
			}
		}
	}

	if info.Title == "" && info.Pages == 0 {
		return nil, ErrNoInfo
	}
	return info, nil
}
