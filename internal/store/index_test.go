package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	return NewIndex(filepath.Join(t.TempDir(), IndexFileName))
}

func TestIndex_LookupMissingFile(t *testing.T) {
	ix := newTestIndex(t)

	names, err := ix.Lookup(sumOf("x"))
	require.NoError(t, err)
	assert.Empty(t, names)

	// Reads never create the backing file.
	_, err = os.Stat(ix.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestIndex_AssociateCreatesFile(t *testing.T) {
	ix := newTestIndex(t)
	sum := sumOf("hello")

	require.NoError(t, ix.Associate(sum, "a.txt"))
	require.NoError(t, ix.Associate(sum, "b.txt"))

	names, err := ix.Lookup(sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	raw, err := os.ReadFile(ix.Path())
	require.NoError(t, err)
	var onDisk map[string][]string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, map[string][]string{sum: {"a.txt", "b.txt"}}, onDisk)
}

func TestIndex_AssociateMovesName(t *testing.T) {
	ix := newTestIndex(t)
	oldSum, newSum := sumOf("v1"), sumOf("v2")

	require.NoError(t, ix.Associate(oldSum, "doc.txt"))
	require.NoError(t, ix.Associate(newSum, "doc.txt"))

	snap, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{newSum: {"doc.txt"}}, snap)
}

func TestIndex_AssociateTwiceKeepsOneEntry(t *testing.T) {
	ix := newTestIndex(t)
	sum := sumOf("same")

	require.NoError(t, ix.Associate(sum, "a"))
	require.NoError(t, ix.Associate(sum, "a"))

	names, err := ix.Lookup(sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
}

func TestIndex_DisassociatePrunesEmptyKey(t *testing.T) {
	ix := newTestIndex(t)
	sum := sumOf("data")

	require.NoError(t, ix.Associate(sum, "a"))
	require.NoError(t, ix.Associate(sum, "b"))

	require.NoError(t, ix.Disassociate("a", sum))
	names, err := ix.Lookup(sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)

	require.NoError(t, ix.Disassociate("b", sum))
	snap, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestIndex_DisassociateUnknownIsNoop(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.Disassociate("ghost", sumOf("nothing")))

	snap, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestIndex_ChecksumOf(t *testing.T) {
	ix := newTestIndex(t)
	sum := sumOf("content")
	require.NoError(t, ix.Associate(sum, "a"))

	got, ok, err := ix.ChecksumOf("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sum, got)

	_, ok, err = ix.ChecksumOf("b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_EmptyFileIsEmptyIndex(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, os.WriteFile(ix.Path(), nil, 0o644))

	names, err := ix.Lookup(sumOf("x"))
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, ix.Associate(sumOf("x"), "x"))
	names, err = ix.Lookup(sumOf("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)
}

func TestIndex_CorruptFile(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, os.WriteFile(ix.Path(), []byte("{not json"), 0o644))

	_, err := ix.Lookup(sumOf("x"))
	assert.ErrorIs(t, err, ErrIndexCorrupt)

	err = ix.Associate(sumOf("x"), "x")
	assert.ErrorIs(t, err, ErrIndexCorrupt)

	// The corrupt document is left as it was.
	raw, err := os.ReadFile(ix.Path())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
}

func TestIndex_DropsEmptyListsOnLoad(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, os.WriteFile(ix.Path(), []byte(`{"abc":[]}`), 0o644))

	snap, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestIndex_Replace(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.Associate(sumOf("old"), "old"))

	want := map[string][]string{sumOf("new"): {"n1", "n2"}}
	require.NoError(t, ix.Replace(want))

	snap, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, want, snap)
}

func TestIndex_SnapshotIsACopy(t *testing.T) {
	ix := newTestIndex(t)
	sum := sumOf("c")
	require.NoError(t, ix.Associate(sum, "c"))

	snap, err := ix.Snapshot()
	require.NoError(t, err)
	snap[sum][0] = "mutated"

	names, err := ix.Lookup(sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names)
}

func TestIndex_NullDocumentIsEmptyIndex(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, os.WriteFile(ix.Path(), []byte("null"), 0o644))

	snap, err := ix.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)

	require.NoError(t, ix.Associate(sumOf("x"), "x"))
	names, err := ix.Lookup(sumOf("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)

	require.NoError(t, os.WriteFile(ix.Path(), []byte("null"), 0o644))
	require.NoError(t, ix.Replace(map[string][]string{sumOf("y"): {"y"}}))
	snap, err = ix.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{sumOf("y"): {"y"}}, snap)
}
