package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/store"
)

// Store is an in-memory implementation of store.Store for tests and for
// commands run without a database.
type Store struct {
	mu    sync.RWMutex
	rules map[string][]grammar.Rule
	runs  map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		rules: make(map[string][]grammar.Rule),
		runs:  make(map[string]store.Run),
	}
}

var _ store.Store = (*Store)(nil)

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertRules implements store.Store.
func (s *Store) UpsertRules(ctx context.Context, grammarName string, rules []grammar.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]grammar.Rule, len(rules))
	for i, r := range rules {
		copied[i] = copyRule(r)
	}
	if len(copied) == 0 {
		delete(s.rules, grammarName)
		return nil
	}
	s.rules[grammarName] = copied
	return nil
}

// Rules implements store.Store.
func (s *Store) Rules(ctx context.Context, grammarName string) ([]grammar.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, ok := s.rules[grammarName]
	if !ok {
		return nil, fmt.Errorf("grammar %q: %w", grammarName, internalerr.ErrNotFound)
	}
	out := make([]grammar.Rule, len(rules))
	for i, r := range rules {
		out[i] = copyRule(r)
	}
	return out, nil
}

// Grammars implements store.Store.
func (s *Store) Grammars(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.rules))
	for name := range s.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SaveRun implements store.Store.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return errors.New("run without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r = copyRun(r)
	r.MatchCount = len(r.Matches)
	s.runs[r.ID] = r
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(r), nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	runs := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		r = copyRun(r)
		r.Matches = nil
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func copyRule(r grammar.Rule) grammar.Rule {
	r.Forms = append([]string(nil), r.Forms...)
	return r
}

func copyRun(r store.Run) store.Run {
	r.Options = maps.Clone(r.Options)
	if r.Matches != nil {
		matches := make([]store.Match, len(r.Matches))
		for i, m := range r.Matches {
			m.IDs = append([]string(nil), m.IDs...)
			matches[i] = m
		}
		r.Matches = matches
	}
	return r
}
