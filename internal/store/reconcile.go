package store

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Problem kinds reported by Verify.
const (
	ProblemUnindexed     = "unindexed"      // stored file missing from the index
	ProblemWrongChecksum = "wrong_checksum" // indexed under a checksum its bytes no longer have
	ProblemMissingFile   = "missing_file"   // indexed name with no stored file
	ProblemMultiple      = "multiple"       // name listed under more than one checksum
)

// Inconsistency is one disagreement between the files on disk and the index.
type Inconsistency struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Checksum string `json:"sha256,omitempty"`
}

// ReconcileReport summarizes a Reconcile run.
type ReconcileReport struct {
	Files     int             `json:"files"`
	Checksums int             `json:"checksums"`
	Fixed     []Inconsistency `json:"fixed"`
}

// Verify compares the index against the stored files without changing
// either.
func (s *Store) Verify() ([]Inconsistency, error) {
	actual, err := s.scan()
	if err != nil {
		return nil, err
	}
	indexed, err := s.index.Snapshot()
	if err != nil {
		return nil, err
	}
	return diff(actual, indexed), nil
}

// Reconcile rebuilds the index from the bytes currently on disk. It is the
// repair path for partial failures that left the two out of step.
func (s *Store) Reconcile() (ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actual, err := s.scan()
	if err != nil {
		return ReconcileReport{}, err
	}
	indexed, err := s.index.Snapshot()
	if err != nil {
		// A corrupt index is exactly what reconciliation replaces.
		s.log.Warn("discarding unreadable index", zap.Error(err))
		indexed = map[string][]string{}
	}

	rebuilt := make(map[string][]string)
	names := make([]string, 0, len(actual))
	for name := range actual {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		rebuilt[actual[name]] = append(rebuilt[actual[name]], name)
	}
	if err := s.index.Replace(rebuilt); err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{
		Files:     len(actual),
		Checksums: len(rebuilt),
		Fixed:     diff(actual, indexed),
	}
	s.log.Info("index reconciled",
		zap.Int("files", report.Files), zap.Int("checksums", report.Checksums), zap.Int("fixed", len(report.Fixed)))
	return report, nil
}

// scan hashes every stored file.
func (s *Store) scan() (map[string]string, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(names))
	var errs error
	for _, name := range names {
		sum, err := s.fileChecksum(name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: hash %q: %w", ErrStoreUnavailable, name, err))
			continue
		}
		out[name] = sum
	}
	return out, errs
}

func diff(actual map[string]string, indexed map[string][]string) []Inconsistency {
	var out []Inconsistency
	seen := make(map[string]int)
	where := make(map[string]string)
	for sum, names := range indexed {
		for _, name := range names {
			seen[name]++
			where[name] = sum
			got, ok := actual[name]
			switch {
			case !ok:
				out = append(out, Inconsistency{Kind: ProblemMissingFile, Name: name, Checksum: sum})
			case got != sum:
				out = append(out, Inconsistency{Kind: ProblemWrongChecksum, Name: name, Checksum: sum})
			}
		}
	}
	for name, sum := range actual {
		switch n := seen[name]; {
		case n == 0:
			out = append(out, Inconsistency{Kind: ProblemUnindexed, Name: name, Checksum: sum})
		case n > 1:
			out = append(out, Inconsistency{Kind: ProblemMultiple, Name: name, Checksum: where[name]})
		}
	}
	slices.SortFunc(out, func(a, b Inconsistency) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return out
}
