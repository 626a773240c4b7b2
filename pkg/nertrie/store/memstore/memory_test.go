package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/store"
)

func TestRules_CopiedOnWriteAndRead(t *testing.T) {
	ctx := context.Background()
	s := New()

	rules := []grammar.Rule{{ID: "a", Forms: []string{"A"}}}
	if err := s.UpsertRules(ctx, "g", rules); err != nil {
		t.Fatalf("UpsertRules: %v", err)
	}
	rules[0].Forms[0] = "changed"

	got, err := s.Rules(ctx, "g")
	if err != nil {
		t.Fatalf("Rules: %v", err)
	}
	if got[0].Forms[0] != "A" {
		t.Errorf("stored rule changed through caller slice: %v", got[0].Forms)
	}
	got[0].Forms[0] = "changed"
	again, _ := s.Rules(ctx, "g")
	if again[0].Forms[0] != "A" {
		t.Errorf("stored rule changed through returned slice: %v", again[0].Forms)
	}
}

func TestRules_NotFound(t *testing.T) {
	s := New()
	if _, err := s.Rules(context.Background(), "none"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpsertRules(context.Background(), "empty", nil); err != nil {
		t.Fatalf("UpsertRules: %v", err)
	}
	names, _ := s.Grammars(context.Background())
	if len(names) != 0 {
		t.Errorf("empty grammar should not be listed, got %v", names)
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		r := store.Run{ID: id, Grammar: "g", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		r.Matches = make([]store.Match, i)
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].MatchCount != 2 || runs[0].Matches != nil {
		t.Errorf("expected count 2 without matches, got %d %v", runs[0].MatchCount, runs[0].Matches)
	}

	got, err := s.GetRun(ctx, "c")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(got.Matches))
	}

	if _, err := s.GetRun(ctx, "zzz"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.SaveRun(ctx, store.Run{}); err == nil {
		t.Error("expected error for run without id")
	}
}
