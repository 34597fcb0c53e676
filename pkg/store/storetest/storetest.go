// Package storetest checks that a store.Store backend behaves like the
// others.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/store"
)

// NewRun returns a small run created at the given offset from a fixed time.
func NewRun(id, name string, offset time.Duration) *store.Run {
	return &store.Run{
		ID:         id,
		Name:       name,
		Seed:       "18446744073709551615",
		Seeded:     true,
		Strategy:   "rejection",
		ConfigHash: "cfg-" + id,
		Blocks:     1,
		Cells:      2,
		Entries:    2,
		Config:     `{"name":"` + name + `"}`,
		Layout:     "Block,Row,Col,X,Y,Label\nB1,0,0,1,1,A\nB1,0,1,2,1,B\n",
		CreatedAt:  time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC).Add(offset),
	}
}

// Run exercises s. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetRun(missing) error = %v, want NOT_FOUND", err)
	}
	if err := s.DeleteRun(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("DeleteRun(missing) error = %v, want NOT_FOUND", err)
	}

	for i := range 5 {
		name := "north"
		if i%2 == 1 {
			name = "south"
		}
		if err := s.SaveRun(ctx, NewRun(fmt.Sprintf("run-%d", i), name, time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("SaveRun() error: %v", err)
		}
	}

	got, err := s.GetRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	want := NewRun("run-2", "north", 2*time.Minute)
	if got.Seed != want.Seed || got.Layout != want.Layout || got.Config != want.Config || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("GetRun() = %+v, want %+v", got, want)
	}

	runs, err := s.ListRuns(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 5 || runs[0].ID != "run-4" || runs[4].ID != "run-0" {
		t.Errorf("ListRuns() order = %v, want newest first", ids(runs))
	}
	if runs[0].Layout != "" || runs[0].Config != "" {
		t.Error("ListRuns() should return summaries")
	}

	runs, _ = s.ListRuns(ctx, store.ListOptions{Limit: 2})
	if len(runs) != 2 {
		t.Errorf("ListRuns(limit 2) returned %d runs", len(runs))
	}
	runs, _ = s.ListRuns(ctx, store.ListOptions{Name: "south"})
	if len(runs) != 2 || runs[0].ID != "run-3" {
		t.Errorf("ListRuns(name south) = %v", ids(runs))
	}

	updated := NewRun("run-2", "renamed", 2*time.Minute)
	if err := s.SaveRun(ctx, updated); err != nil {
		t.Fatalf("SaveRun(replace) error: %v", err)
	}
	if got, _ := s.GetRun(ctx, "run-2"); got == nil || got.Name != "renamed" {
		t.Errorf("SaveRun should replace an existing run, got %+v", got)
	}

	if err := s.DeleteRun(ctx, "run-2"); err != nil {
		t.Fatalf("DeleteRun() error: %v", err)
	}
	if _, err := s.GetRun(ctx, "run-2"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("deleted run still readable: %v", err)
	}
}

func ids(runs []*store.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
