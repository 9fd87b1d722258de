package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"pubquiz-service/internal/domain"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSnapshotStore(newClient(mr), time.Hour)
	ctx := context.Background()
	key := domain.SnapshotKey("ROME")

	if _, err := store.Load(ctx, key); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	st := domain.NewState()
	st.Teams = append(st.Teams, domain.Team{ID: "t1", Name: "Gauls"})
	st.Scores["t1"] = 12
	st.Settings.WagerEnabled = true
	if err := store.Save(ctx, key, st.Snapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz-store:ROME") {
		t.Fatalf("expected snapshot under quiz-store:ROME")
	}
	if ttl := mr.TTL("quiz-store:ROME"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	snap, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Version != domain.SnapshotVersion || snap.Scores["t1"] != 12 || !snap.WagerEnabled || snap.Teams[0].Name != "Gauls" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, key); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSnapshotStoreRejectsCorruptData(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	_ = mr.Set("quiz-store:BAD", "{not json")
	store := NewSnapshotStore(newClient(mr), 0)
	if _, err := store.Load(context.Background(), "quiz-store:BAD"); err == nil || errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
