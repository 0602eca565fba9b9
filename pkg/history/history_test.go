package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordFillsIDAndTime(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	e := &Entry{URL: "http://repository.upi.edu/1/a.pdf", Status: "saved", Size: 2048}
	require.NoError(t, s.Record(ctx, e))

	_, err := uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.False(t, e.CreatedAt.IsZero())

	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
	assert.Equal(t, int64(2048), entries[0].Size)
	assert.True(t, e.CreatedAt.Equal(entries[0].CreatedAt))
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"old.pdf", "mid.pdf", "new.pdf"} {
		require.NoError(t, s.Record(ctx, &Entry{
			URL:       "https://example.com/" + name,
			Filename:  name,
			Status:    "saved",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	entries, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new.pdf", entries[0].Filename)
	assert.Equal(t, "mid.pdf", entries[1].Filename)
}

func TestRoundTripFields(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := &Entry{
		URL:         "https://eprints.uny.ac.id/1/",
		FinalURL:    "https://eprints.uny.ac.id/1/skripsi.pdf",
		Path:        "/tmp/downloads/skripsi.pdf",
		Filename:    "skripsi.pdf",
		Status:      "saved",
		ContentType: "application/pdf",
		Size:        123456,
		Pages:       87,
		Title:       "Skripsi",
		Duration:    1500 * time.Millisecond,
	}
	require.NoError(t, s.Record(ctx, in))
	require.NoError(t, s.Record(ctx, &Entry{URL: "https://x/y", Status: "failed", Error: "timeout error: request failed"}))

	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var got Entry
	for _, e := range entries {
		if e.ID == in.ID {
			got = e
		}
	}
	assert.Equal(t, in.FinalURL, got.FinalURL)
	assert.Equal(t, in.Pages, got.Pages)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Duration, got.Duration)
	assert.Equal(t, in.ContentType, got.ContentType)
}

func TestClear(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, &Entry{URL: "https://example.com", Status: "saved"}))
	}
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	removed, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpenFileAndMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), &Entry{URL: "https://a", Status: "saved"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.migrate())

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s.Path())
}
