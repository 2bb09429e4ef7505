package analytics

import (
	"bufio"
	"io"
	"strings"
)

// maxTokenSize bounds a single whitespace-free run the scanner will hold.
const maxTokenSize = 16 << 20

// Normalize folds a whitespace-delimited word into a token: one trailing
// '.' or ',' is removed, then the word is lowercased. The second result is
// false when nothing is left, so a lone "." or "," is not a token. Such
// words still count towards Engine.WordCount, which means the frequency
// totals of a corpus can be lower than its word counts.
func Normalize(word string) (string, bool) {
	if n := len(word); n > 0 && (word[n-1] == '.' || word[n-1] == ',') {
		word = word[:n-1]
	}
	if word == "" {
		return "", false
	}
	return strings.ToLower(word), true
}

// Words calls fn for every whitespace-delimited word in r, in order. Any run
// of whitespace separates words.
func Words(r io.Reader, fn func(word string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}

// Tokenize returns the normalized tokens of s.
func Tokenize(s string) []string {
	var out []string
	_ = Words(strings.NewReader(s), func(w string) {
		if tok, ok := Normalize(w); ok {
			out = append(out, tok)
		}
	})
	return out
}
