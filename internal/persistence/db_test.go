package persistence

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/world-api/internal/environment"
	"github.com/talgya/world-api/internal/snapshot"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newHub() *environment.Hub {
	return environment.New(environment.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func TestSnapshotHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if ok, err := db.HasSnapshot(ctx); err != nil || ok {
		t.Fatalf("HasSnapshot on empty db = %v, %v", ok, err)
	}
	if _, err := db.LatestSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("LatestSnapshot err = %v, want ErrNoSnapshot", err)
	}

	h := newHub()
	var ids []string
	for i, temp := range []float64{5, 10, 15} {
		h.SetTemperature(temp)
		env, err := snapshot.Capture(h, uint64(i+1))
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}
		if err := db.SaveSnapshot(ctx, env); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
		ids = append(ids, env.Header.ID)
	}

	latest, err := db.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	restored := newHub()
	if err := snapshot.Restore(restored, latest); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Temperature() != 15 {
		t.Fatalf("temperature = %v, want 15", restored.Temperature())
	}

	first, err := db.LoadSnapshot(ctx, ids[0])
	if err != nil || first.Header.Frame != 1 {
		t.Fatalf("LoadSnapshot = %+v, %v", first.Header, err)
	}
	if _, err := db.LoadSnapshot(ctx, "nope"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("LoadSnapshot unknown id err = %v", err)
	}

	headers, err := db.ListSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(headers) != 3 || headers[0].ID != ids[2] || headers[2].Frame != 1 {
		t.Fatalf("headers = %+v", headers)
	}

	removed, err := db.PruneSnapshots(ctx, 1)
	if err != nil || removed != 2 {
		t.Fatalf("PruneSnapshots = %d, %v", removed, err)
	}
	headers, err = db.ListSnapshots(ctx, 10)
	if err != nil || len(headers) != 1 || headers[0].ID != ids[2] {
		t.Fatalf("after prune: %+v, %v", headers, err)
	}
}

func TestChangeLog(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	at := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	err := db.RecordChanges(ctx, []Change{
		{Frame: 1, At: at, Mask: environment.FogChanged},
		{Frame: 2, At: at.Add(time.Second), Mask: environment.WindChanged | environment.RainChanged},
	})
	if err != nil {
		t.Fatalf("RecordChanges: %v", err)
	}
	if err := db.RecordChange(ctx, Change{Frame: 3, At: at, Mask: environment.ActiveChanged}); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}

	changes, err := db.RecentChanges(ctx, 2)
	if err != nil {
		t.Fatalf("RecentChanges: %v", err)
	}
	if len(changes) != 2 || changes[0].Frame != 3 || changes[1].Frame != 2 {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[1].Mask != environment.WindChanged|environment.RainChanged {
		t.Fatalf("mask = %s", changes[1].Mask)
	}
	if len(changes[1].Categories) != 2 || changes[1].Categories[0] != "wind" {
		t.Fatalf("categories = %v", changes[1].Categories)
	}
	if !changes[1].At.Equal(at.Add(time.Second)) {
		t.Fatalf("at = %v", changes[1].At)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetMeta("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("GetMeta err = %v", err)
	}
	if frame, err := db.LastFrame(); err != nil || frame != 0 {
		t.Fatalf("LastFrame = %d, %v", frame, err)
	}
	if err := db.SaveFrame(1200); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	if err := db.SaveFrame(1500); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	if frame, err := db.LastFrame(); err != nil || frame != 1500 {
		t.Fatalf("LastFrame = %d, %v", frame, err)
	}
}

func TestRecorderWritesNotifications(t *testing.T) {
	db := openTestDB(t)
	h := newHub()
	frame := uint64(0)
	rec := NewRecorder(db, func() uint64 { return frame }, 16)
	h.AddListener(rec)

	frame = 9
	h.SetHail(environment.Vec4{X: 0.5})
	h.LateTick()
	frame = 10
	h.SetSeaLevel(3)
	h.LateTick()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	changes, err := db.RecentChanges(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentChanges: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[0].Frame != 10 || changes[0].Mask != environment.SeaChanged {
		t.Fatalf("newest = %+v", changes[0])
	}
	if changes[1].Frame != 9 || changes[1].Mask != environment.HailChanged {
		t.Fatalf("oldest = %+v", changes[1])
	}
}
