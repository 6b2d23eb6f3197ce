package retrieve

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/index"
)

type fakeSearcher struct {
	hits      []index.Hit
	err       error
	available bool
	lastK     int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, k int) ([]index.Hit, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeSearcher) Available() bool { return f.available }

func hit(name string, score float32) index.Hit {
	return index.Hit{Score: score, Fact: domain.NutritionFact{Name: name, FactText: name + " facts"}}
}

func TestRetrieveClampsK(t *testing.T) {
	fs := &fakeSearcher{available: true, hits: []index.Hit{hit("a", 0.9)}}
	s := New(fs, slog.Default())

	s.Retrieve(context.Background(), "query", 0)
	if fs.lastK != MinK {
		t.Fatalf("k=0 should clamp to %d, got %d", MinK, fs.lastK)
	}
	s.Retrieve(context.Background(), "query", 99)
	if fs.lastK != MaxK {
		t.Fatalf("k=99 should clamp to %d, got %d", MaxK, fs.lastK)
	}
}

func TestRetrieveUnavailable(t *testing.T) {
	s := New(&fakeSearcher{available: false}, slog.Default())
	got := s.Retrieve(context.Background(), "query", 3)
	if got == nil || len(got) != 0 {
		t.Fatalf("unavailable index should yield empty slice, got %v", got)
	}

	s = New(nil, slog.Default())
	if got := s.Retrieve(context.Background(), "query", 3); len(got) != 0 {
		t.Fatalf("nil searcher should yield empty slice, got %v", got)
	}
}

func TestRetrieveSearchError(t *testing.T) {
	s := New(&fakeSearcher{available: true, err: errors.New("boom")}, slog.Default())
	got := s.Retrieve(context.Background(), "query", 3)
	if len(got) != 0 {
		t.Fatalf("search error should yield empty slice, got %v", got)
	}
}

func TestRetrieveShapesResults(t *testing.T) {
	fs := &fakeSearcher{available: true, hits: []index.Hit{hit("Salmon", 0.91), hit("Tuna", 0.85)}}
	s := New(fs, slog.Default())
	got := s.Retrieve(context.Background(), "oily fish", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Meta.Name != "Salmon" || got[0].Score != 0.91 || got[0].FactText != "Salmon facts" {
		t.Fatalf("unexpected first result: %+v", got[0])
	}
}

func TestGetByName(t *testing.T) {
	fs := &fakeSearcher{available: true, hits: []index.Hit{hit("Banana", 0.99)}}
	s := New(fs, slog.Default())

	if r := s.GetByName(context.Background(), "banana"); r == nil || r.Meta.Name != "Banana" {
		t.Fatalf("expected case-insensitive exact match, got %+v", r)
	}

	// Inexact top hit still comes back as the best-effort fallback.
	if r := s.GetByName(context.Background(), "plantain"); r == nil || r.Meta.Name != "Banana" {
		t.Fatalf("expected fallback match, got %+v", r)
	}

	s = New(&fakeSearcher{available: false}, slog.Default())
	if r := s.GetByName(context.Background(), "banana"); r != nil {
		t.Fatalf("unavailable index should yield nil, got %+v", r)
	}
}
