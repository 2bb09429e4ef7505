// Package analytics computes word statistics over the files held in a store.
// Nothing is cached: every call rescans the whole corpus.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyStore is returned when there are no files to analyse.
var ErrEmptyStore = errors.New("analytics: no files currently stored")

// Source is the read side of a file store.
type Source interface {
	List() ([]string, error)
	Open(name string) (io.ReadCloser, error)
}

// FileCount is the number of words in one stored file.
type FileCount struct {
	Name  string `json:"name"`
	Words int    `json:"words"`
}

// Engine runs word statistics over a Source.
type Engine struct {
	src     Source
	workers int
	log     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds how many files are scanned at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an Engine reading from src.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{
		src:     src,
		workers: runtime.GOMAXPROCS(0),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WordCount returns the number of whitespace-delimited words in each stored
// file, in listing order.
func (e *Engine) WordCount(ctx context.Context) ([]FileCount, error) {
	names, err := e.names()
	if err != nil {
		return nil, err
	}
	counts := make([]FileCount, len(names))
	err = e.each(ctx, names, func(i int, r io.Reader) error {
		n := 0
		if err := Words(r, func(string) { n++ }); err != nil {
			return err
		}
		counts[i] = FileCount{Name: names[i], Words: n}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(counts, func(c FileCount) bool { return c.Name == "" }), nil
}

// WordFrequency builds one frequency table over every stored file and
// returns its first limit rows in the requested order. Only words that
// survive Normalize are counted.
func (e *Engine) WordFrequency(ctx context.Context, limit int, order Order) ([]WordFreq, error) {
	names, err := e.names()
	if err != nil {
		return nil, err
	}
	partial := make([]Counter, len(names))
	err = e.each(ctx, names, func(i int, r io.Reader) error {
		c := Counter{}
		err := Words(r, func(w string) {
			if tok, ok := Normalize(w); ok {
				c.Increment(tok)
			}
		})
		partial[i] = c
		return err
	})
	if err != nil {
		return nil, err
	}

	total := Counter{}
	for _, c := range partial {
		total.Merge(c)
	}
	e.log.Debug("word frequency computed",
		zap.Int("files", len(names)), zap.Int("distinct", len(total)), zap.Stringer("order", order))
	return total.Top(limit, order), nil
}

func (e *Engine) names() ([]string, error) {
	names, err := e.src.List()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrEmptyStore
	}
	return names, nil
}

// each scans names with bounded parallelism. A file deleted between listing
// and opening is skipped.
func (e *Engine) each(ctx context.Context, names []string, fn func(i int, r io.Reader) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rc, err := e.src.Open(name)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					e.log.Debug("file vanished during scan", zap.String("name", name))
					return nil
				}
				return fmt.Errorf("analytics: open %q: %w", name, err)
			}
			defer func() { _ = rc.Close() }()
			if err := fn(i, rc); err != nil {
				return fmt.Errorf("analytics: scan %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
