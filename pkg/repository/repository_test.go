package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	all := All()
	require.GreaterOrEqual(t, len(all), 12)
	assert.Equal(t, "ResearchGate", all[0].Name)
	assert.Equal(t, "Repository UGM", all[11].Name)

	seen := make(map[string]bool)
	for _, r := range all {
		assert.NotEmpty(t, r.URL, r.Name)
		assert.NotEmpty(t, r.Category, r.Name)
		assert.NotEmpty(t, r.Description, r.Name)
		assert.NotEmpty(t, r.Host(), r.Name)
		assert.False(t, seen[r.Name], "duplicate %s", r.Name)
		seen[r.Name] = true
	}

	// callers get a copy
	all[0].Name = "changed"
	assert.Equal(t, "ResearchGate", All()[0].Name)
}

func TestFind(t *testing.T) {
	r, ok := Find("repository ugm")
	require.True(t, ok)
	assert.Equal(t, "https://etd.repository.ugm.ac.id", r.URL)

	r, ok = Find("gutenberg")
	require.True(t, ok)
	assert.Equal(t, "Project Gutenberg", r.Name)

	r, ok = Find("Repository UPI")
	require.True(t, ok)
	assert.Equal(t, "http://repository.upi.edu", r.URL)

	r, ok = Find("repository u")
	require.True(t, ok)
	assert.Equal(t, "Repository UMJ", r.Name)

	_, ok = Find("")
	assert.False(t, ok)
	_, ok = Find("arxiv")
	assert.False(t, ok)
}

func TestIndonesian(t *testing.T) {
	names := make(map[string]bool)
	for _, r := range Indonesian() {
		names[r.Name] = true
	}
	assert.True(t, names["Repository UMJ"])
	assert.True(t, names["Perpusnas Digital"])
	assert.True(t, names["Repository UPI"])
	assert.False(t, names["Scribd"])
	assert.False(t, names["Library Genesis"])
}

func TestTip(t *testing.T) {
	assert.Equal(t, "Pendidikan Anak Berkebutuhan Khusus filetype:pdf site:ac.id", Tip(" Pendidikan Anak Berkebutuhan Khusus "))
	assert.Equal(t, "judul buku filetype:pdf site:ac.id", Tip(""))
}
