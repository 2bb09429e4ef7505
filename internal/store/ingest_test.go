package store

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_AddSavesAndIndexes(t *testing.T) {
	s := newTestStore(t)

	res := ingest(t, s, false, entry{"a.txt", "alpha"}, entry{"b.txt", "beta"})
	assert.False(t, res.Conflicted())
	require.Len(t, res.Saved, 2)
	assert.Equal(t, SavedFile{Name: "a.txt", Checksum: sumOf("alpha"), Size: 5}, res.Saved[0])
	assert.Equal(t, "b.txt", res.Saved[1].Name)

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	assert.Equal(t, "alpha", readStored(t, s, "a.txt"))
	holders, err := s.Index().Lookup(sumOf("beta"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, holders)
	requireConsistent(t, s)
}

func TestIngest_AddConflict(t *testing.T) {
	s := newTestStore(t)
	ingest(t, s, false, entry{"a.txt", "first"})

	res := ingest(t, s, false, entry{"a.txt", "second"})
	assert.True(t, res.Conflicted())
	assert.Equal(t, "a.txt", res.Conflict)
	assert.Empty(t, res.Saved)
	assert.Equal(t, "first", readStored(t, s, "a.txt"))
	requireConsistent(t, s)
}

// Entries extracted before a conflict are kept. This mirrors the documented
// no-rollback behaviour and is a known limitation.
func TestIngest_KnownLimitation_NoRollbackBeforeConflict(t *testing.T) {
	s := newTestStore(t)
	ingest(t, s, false, entry{"b.txt", "existing"})

	res := ingest(t, s, false,
		entry{"a.txt", "new a"},
		entry{"b.txt", "new b"},
		entry{"c.txt", "new c"},
	)
	assert.Equal(t, "b.txt", res.Conflict)
	require.Len(t, res.Saved, 1)
	assert.Equal(t, "a.txt", res.Saved[0].Name)

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
	assert.Equal(t, "existing", readStored(t, s, "b.txt"))
	requireConsistent(t, s)
}

func TestIngest_UpdateReplacesBytesAndIndex(t *testing.T) {
	s := newTestStore(t)
	ingest(t, s, false, entry{"a.txt", "v1"})

	res := ingest(t, s, true, entry{"a.txt", "v2"})
	assert.False(t, res.Conflicted())
	require.Len(t, res.Saved, 1)
	assert.Equal(t, "v2", readStored(t, s, "a.txt"))

	old, err := s.Index().Lookup(sumOf("v1"))
	require.NoError(t, err)
	assert.Empty(t, old)
	cur, err := s.Index().Lookup(sumOf("v2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, cur)
	requireConsistent(t, s)
}

func TestIngest_UpdateOfNewNameSaves(t *testing.T) {
	s := newTestStore(t)
	res := ingest(t, s, true, entry{"fresh.txt", "x"})
	require.Len(t, res.Saved, 1)
	requireConsistent(t, s)
}

func TestIngest_SameContentTwoNames(t *testing.T) {
	s := newTestStore(t)
	ingest(t, s, false, entry{"a.txt", "same"}, entry{"b.txt", "same"})

	holders, err := s.Index().Lookup(sumOf("same"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, holders)
	requireConsistent(t, s)
}

func TestIngest_BadArchive(t *testing.T) {
	s := newTestStore(t)
	r := bytes.NewReader([]byte("this is not a zip file"))

	_, err := s.Ingest(r, r.Size(), false)
	assert.ErrorIs(t, err, ErrBadArchive)

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngest_InvalidEntryNameRejectedBeforeExtraction(t *testing.T) {
	tests := []string{"../escape.txt", "dir/nested.txt", IndexFileName}
	for _, bad := range tests {
		t.Run(bad, func(t *testing.T) {
			s := newTestStore(t)
			r := makeArchive(t, entry{"ok.txt", "fine"}, entry{bad, "evil"})

			_, err := s.Ingest(r, r.Size(), true)
			assert.ErrorIs(t, err, ErrBadArchive)

			names, err := s.List()
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestIngest_SkipsDirectoryEntries(t *testing.T) {
	s := newTestStore(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("folder/")
	require.NoError(t, err)
	w, err := zw.Create("top.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("top"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	r := bytes.NewReader(buf.Bytes())
	res, err := s.Ingest(r, r.Size(), false)
	require.NoError(t, err)
	require.Len(t, res.Saved, 1)
	assert.Equal(t, "top.txt", res.Saved[0].Name)
}

func TestIngest_EmptyArchive(t *testing.T) {
	s := newTestStore(t)
	res := ingest(t, s, false)
	assert.Empty(t, res.Saved)
	assert.False(t, res.Conflicted())
}

func TestIngest_CorruptIndexSurfaces(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, writeRaw(s.Index().Path(), "garbage"))

	r := makeArchive(t, entry{"a.txt", "a"})
	res, err := s.Ingest(r, r.Size(), false)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
	assert.Empty(t, res.Saved)

	// The bytes were extracted before the index write failed.
	assert.Equal(t, "a", readStored(t, s, "a.txt"))
}
