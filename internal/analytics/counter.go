package analytics

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
)

// WordFreq is one row of a frequency table. It encodes as a two-element
// JSON array: ["word", count].
type WordFreq struct {
	Word  string
	Count int
}

// MarshalJSON implements json.Marshaler.
func (w WordFreq) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{w.Word, w.Count})
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *WordFreq) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("analytics: word frequency pair has %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &w.Word); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &w.Count)
}

// Order selects the direction of a frequency table.
type Order int

const (
	Ascending Order = iota
	Descending
)

// ParseOrder inspects only the first character of s: 'd' or 'D' means
// descending, anything else (including "") ascending.
func ParseOrder(s string) Order {
	if s != "" && (s[0] == 'd' || s[0] == 'D') {
		return Descending
	}
	return Ascending
}

func (o Order) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// Counter counts token occurrences.
type Counter map[string]int

// Increment adds one occurrence of word.
func (c Counter) Increment(word string) {
	c[word]++
}

// Merge adds every count in o to c.
func (c Counter) Merge(o Counter) {
	for w, n := range o {
		c[w] += n
	}
}

// Sorted returns the table ordered by (count, word). Descending reverses the
// whole key, so equal counts then run in reverse alphabetical order.
func (c Counter) Sorted(order Order) []WordFreq {
	out := make([]WordFreq, 0, len(c))
	for w, n := range c {
		out = append(out, WordFreq{Word: w, Count: n})
	}
	slices.SortFunc(out, func(a, b WordFreq) int {
		r := cmp.Or(cmp.Compare(a.Count, b.Count), cmp.Compare(a.Word, b.Word))
		if order == Descending {
			return -r
		}
		return r
	})
	return out
}

// Top returns at most limit rows of Sorted(order). A negative limit yields
// no rows.
func (c Counter) Top(limit int, order Order) []WordFreq {
	rows := c.Sorted(order)
	limit = max(limit, 0)
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
