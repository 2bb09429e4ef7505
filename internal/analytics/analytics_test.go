package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource is an in-memory Source.
type mapSource struct {
	files   map[string]string
	listErr error
	// vanished names are listed but fail to open.
	vanished []string
}

func (m mapSource) List() ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.files)+len(m.vanished))
	for name := range m.files {
		names = append(names, name)
	}
	names = append(names, m.vanished...)
	slices.Sort(names)
	return names, nil
}

func (m mapSource) Open(name string) (io.ReadCloser, error) {
	body, ok := m.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Hello,", "hello", true},
		{"world.", "world", true},
		{"end..", "end.", true},
		{"a,.", "a,", true},
		{"MiXeD", "mixed", true},
		{"trailing!", "trailing!", true},
		{".", "", false},
		{",", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		assert.Equal(t, tt.want, got, "Normalize(%q)", tt.in)
		assert.Equal(t, tt.ok, ok, "Normalize(%q)", tt.in)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "hello"}, Tokenize("Hello, world. Hello."))
	assert.Equal(t, []string{"a", "b", "c"}, Tokenize("  a\t\tb\n\n c  "))
	assert.Equal(t, []string{"dots."}, Tokenize("dots.."))
	assert.Empty(t, Tokenize(" \n\t "))
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, Descending, ParseOrder("desc"))
	assert.Equal(t, Descending, ParseOrder("DESC"))
	assert.Equal(t, Descending, ParseOrder("down"))
	assert.Equal(t, Ascending, ParseOrder("asc"))
	assert.Equal(t, Ascending, ParseOrder("ASC"))
	assert.Equal(t, Ascending, ParseOrder("anything"))
	assert.Equal(t, Ascending, ParseOrder(""))
}

func TestCounter_Ordering(t *testing.T) {
	c := Counter{}
	for _, w := range []string{"b", "a", "c", "a", "b", "b", "a"} {
		c.Increment(w)
	}

	assert.Equal(t, []WordFreq{{"c", 1}, {"a", 3}, {"b", 3}}, c.Sorted(Ascending))
	assert.Equal(t, []WordFreq{{"b", 3}, {"a", 3}, {"c", 1}}, c.Sorted(Descending))
}

func TestCounter_Top(t *testing.T) {
	c := Counter{"a": 3, "b": 3, "c": 1}

	assert.Equal(t, []WordFreq{{"c", 1}, {"a", 3}}, c.Top(2, Ascending))
	assert.Len(t, c.Top(10, Ascending), 3)
	assert.Empty(t, c.Top(0, Ascending))
	assert.Empty(t, c.Top(-5, Descending))
}

func TestCounter_Merge(t *testing.T) {
	c := Counter{"a": 1}
	c.Merge(Counter{"a": 2, "b": 1})
	assert.Equal(t, Counter{"a": 3, "b": 1}, c)
}

func TestWordFreq_JSON(t *testing.T) {
	data, err := json.Marshal([]WordFreq{{"a", 3}, {"c", 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["a",3],["c",1]]`, string(data))

	var back []WordFreq
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []WordFreq{{"a", 3}, {"c", 1}}, back)

	var bad WordFreq
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &bad))
}

func TestEngine_WordCount(t *testing.T) {
	e := New(mapSource{files: map[string]string{
		"b.txt": "one two three",
		"a.txt": "Hello, world. Hello.",
		"c.txt": "",
		"d.txt": "lone , punctuation .",
	}}, WithWorkers(2))

	counts, err := e.WordCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []FileCount{
		{Name: "a.txt", Words: 3},
		{Name: "b.txt", Words: 3},
		{Name: "c.txt", Words: 0},
		{Name: "d.txt", Words: 4},
	}, counts)
}

func TestEngine_WordFrequencyAcrossFiles(t *testing.T) {
	e := New(mapSource{files: map[string]string{
		"1.txt": "a b. A",
		"2.txt": "B, c\nb a.",
	}})

	asc, err := e.WordFrequency(context.Background(), 10, ParseOrder("asc"))
	require.NoError(t, err)
	assert.Equal(t, []WordFreq{{"c", 1}, {"a", 3}, {"b", 3}}, asc)

	desc, err := e.WordFrequency(context.Background(), 10, ParseOrder("desc"))
	require.NoError(t, err)
	assert.Equal(t, []WordFreq{{"b", 3}, {"a", 3}, {"c", 1}}, desc)

	top, err := e.WordFrequency(context.Background(), 1, Descending)
	require.NoError(t, err)
	assert.Equal(t, []WordFreq{{"b", 3}}, top)
}

func TestEngine_LonePunctuationNotCounted(t *testing.T) {
	e := New(mapSource{files: map[string]string{"p.txt": "word . , word,"}})

	rows, err := e.WordFrequency(context.Background(), 10, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []WordFreq{{"word", 2}}, rows)
}

func TestEngine_EmptyStore(t *testing.T) {
	e := New(mapSource{files: map[string]string{}})

	_, err := e.WordCount(context.Background())
	assert.ErrorIs(t, err, ErrEmptyStore)

	_, err = e.WordFrequency(context.Background(), 10, Ascending)
	assert.ErrorIs(t, err, ErrEmptyStore)
}

func TestEngine_ListError(t *testing.T) {
	boom := errors.New("boom")
	e := New(mapSource{listErr: boom})

	_, err := e.WordCount(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestEngine_SkipsVanishedFiles(t *testing.T) {
	e := New(mapSource{
		files:    map[string]string{"a.txt": "x y"},
		vanished: []string{"gone.txt"},
	})

	counts, err := e.WordCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []FileCount{{Name: "a.txt", Words: 2}}, counts)

	rows, err := e.WordFrequency(context.Background(), 10, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []WordFreq{{"x", 1}, {"y", 1}}, rows)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(mapSource{files: map[string]string{"a.txt": "x"}})
	_, err := e.WordCount(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
