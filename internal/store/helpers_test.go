package store

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// entry is one file in a test archive.
type entry struct {
	name string
	body string
}

// newTestStore creates a Store in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

// makeArchive zips entries in order.
func makeArchive(t *testing.T, entries ...entry) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

func ingest(t *testing.T, s *Store, update bool, entries ...entry) IngestResult {
	t.Helper()
	r := makeArchive(t, entries...)
	res, err := s.Ingest(r, r.Size(), update)
	require.NoError(t, err)
	return res
}

func sumOf(body string) string {
	h := sha256.Sum256([]byte(body))
	return hex.EncodeToString(h[:])
}

func readStored(t *testing.T, s *Store, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	return string(data)
}

// requireConsistent asserts the index matches the stored bytes exactly.
func requireConsistent(t *testing.T, s *Store) {
	t.Helper()
	problems, err := s.Verify()
	require.NoError(t, err)
	require.Empty(t, problems)
}

func writeRaw(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
