package mongo

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/store"
	"github.com/matzehuels/fieldtrial/pkg/store/storetest"
)

func runDoc(id, name string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "seed", Value: "42"},
		{Key: "seeded", Value: true},
		{Key: "strategy", Value: "rejection"},
		{Key: "config_hash", Value: "cfg"},
		{Key: "blocks", Value: 12},
		{Key: "cells", Value: 480},
		{Key: "entries", Value: 28},
		{Key: "created_at", Value: created},
	}
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("save", func(mt *mtest.T) {
		s := New(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		if err := s.SaveRun(ctx, storetest.NewRun("r1", "north", 0)); err != nil {
			t.Errorf("SaveRun() error: %v", err)
		}
	})

	mt.Run("save error", func(mt *mtest.T) {
		s := New(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 8000, Name: "AtlasError", Message: "quota exceeded",
		}))
		if err := s.SaveRun(ctx, storetest.NewRun("r1", "north", 0)); !errors.Is(err, errors.ErrCodeInternal) {
			t.Errorf("SaveRun() error = %v, want INTERNAL_ERROR", err)
		}
	})

	mt.Run("get", func(mt *mtest.T) {
		s := New(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, runDoc("r1", "north", created)))

		r, err := s.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("GetRun() error: %v", err)
		}
		if r.ID != "r1" || r.Name != "north" || r.Cells != 480 || !r.Seeded || !r.CreatedAt.Equal(created) {
			t.Errorf("GetRun() = %+v", r)
		}
	})

	mt.Run("get missing", func(mt *mtest.T) {
		s := New(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		if _, err := s.GetRun(ctx, "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
			t.Errorf("GetRun() error = %v, want NOT_FOUND", err)
		}
	})

	mt.Run("list", func(mt *mtest.T) {
		s := New(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			runDoc("r2", "north", created.Add(time.Minute)),
			runDoc("r1", "north", created),
		))

		runs, err := s.ListRuns(ctx, store.ListOptions{Name: "north", Limit: 5})
		if err != nil {
			t.Fatalf("ListRuns() error: %v", err)
		}
		if len(runs) != 2 || runs[0].ID != "r2" || runs[1].ID != "r1" {
			t.Errorf("ListRuns() = %+v", runs)
		}
	})

	mt.Run("delete", func(mt *mtest.T) {
		s := New(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		if err := s.DeleteRun(ctx, "r1"); err != nil {
			t.Errorf("DeleteRun() error: %v", err)
		}
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		s := New(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		if err := s.DeleteRun(ctx, "r1"); !errors.Is(err, errors.ErrCodeNotFound) {
			t.Errorf("DeleteRun() error = %v, want NOT_FOUND", err)
		}
	})

	mt.Run("close borrowed", func(mt *mtest.T) {
		if err := New(mt.Coll).Close(); err != nil {
			t.Errorf("Close() on a borrowed collection error: %v", err)
		}
	})
}

func TestConnectInvalidURI(t *testing.T) {
	_, err := Connect(context.Background(), Options{URI: "not-a-uri"})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Connect() error = %v, want INVALID_CONFIG", err)
	}
}
