package resumedb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := New(Config{Source: filepath.Join(t.TempDir(), "resume.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	rec := Record{
		InfoHash:           "abc123",
		Name:               "test torrent",
		DownloadDir:        "/downloads",
		CurrentDir:         "/downloads",
		Priority:           1,
		QueuePosition:      0,
		Activity:           4,
		Finished:           false,
		CompletionBitfield: []byte{0xFF, 0x00},
		HaveBlocksBitfield: []byte{0xFF, 0xFF},
		UploadedEver:       100,
		DownloadedEver:     200,
		CorruptEver:        0,
		Labels:             "a,b",
		BandwidthGroup:     "",
		DateAdded:          time.Now().UTC().Truncate(time.Second),
		SecondsSeeding:     10,
		SecondsDownloading: 20,
	}

	r.NoError(s.Save(rec))

	got, ok, err := s.Load("abc123")
	r.NoError(err)
	r.True(ok)
	r.Equal(rec.Name, got.Name)
	r.Equal(rec.CompletionBitfield, got.CompletionBitfield)
	r.Equal(rec.UploadedEver, got.UploadedEver)
	r.Equal(rec.DateAdded.Unix(), got.DateAdded.Unix())
}

func TestLoadMissingReturnsFalse(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	_, ok, err := s.Load("nonexistent")
	r.NoError(err)
	r.False(ok)
}

func TestSaveUpsertsOnConflict(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	rec := Record{InfoHash: "h1", Name: "first", DateAdded: time.Now().UTC()}
	r.NoError(s.Save(rec))

	rec.Name = "second"
	r.NoError(s.Save(rec))

	got, ok, err := s.Load("h1")
	r.NoError(err)
	r.True(ok)
	r.Equal("second", got.Name)
}

func TestLoadAllOrdersByQueuePosition(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	for i, h := range []string{"c", "a", "b"} {
		r.NoError(s.Save(Record{
			InfoHash:      h,
			QueuePosition: len([]string{"c", "a", "b"}) - i,
			DateAdded:     time.Now().UTC(),
		}))
	}
	// Override with explicit positions so the order is unambiguous.
	r.NoError(s.Save(Record{InfoHash: "c", QueuePosition: 0, DateAdded: time.Now().UTC()}))
	r.NoError(s.Save(Record{InfoHash: "a", QueuePosition: 1, DateAdded: time.Now().UTC()}))
	r.NoError(s.Save(Record{InfoHash: "b", QueuePosition: 2, DateAdded: time.Now().UTC()}))

	all, err := s.LoadAll()
	r.NoError(err)
	r.Len(all, 3)
	r.Equal("c", all[0].InfoHash)
	r.Equal("a", all[1].InfoHash)
	r.Equal("b", all[2].InfoHash)
}

func TestDeleteRemovesRecord(t *testing.T) {
	r := require.New(t)
	s := newTestStore(t)

	r.NoError(s.Save(Record{InfoHash: "gone", DateAdded: time.Now().UTC()}))
	r.NoError(s.Delete("gone"))

	_, ok, err := s.Load("gone")
	r.NoError(err)
	r.False(ok)
}
