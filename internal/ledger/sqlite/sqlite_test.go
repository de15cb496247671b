package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/freespacenet/fsn-rewards/internal/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadMissingReturnsFreshLedger(t *testing.T) {
	store := newTestStore(t)
	led, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if led.UserID != "nobody" || led.TotalXP != 0 {
		t.Fatalf("fresh ledger = %+v", led)
	}
	if led.LastGrantAt == nil || led.DailyGrantCount == nil {
		t.Fatal("fresh ledger maps must be initialised")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	led := ledger.New("u1", now)
	led.RecordGrant("vaultUpload", 50, now)
	led.RecordGrant("dailyLogin", 20, now.Add(time.Minute))
	led.ReferralBonusGiven = true
	led.SignalStatus = "basic"
	led.PulseQualified = true
	led.StreakDays = 3
	led.LastActiveDay = ledger.DayKey(now)

	if err := store.Save(ctx, led); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TotalXP != 70 {
		t.Fatalf("TotalXP = %d, want 70", got.TotalXP)
	}
	if !got.ReferralBonusGiven || !got.PulseQualified {
		t.Fatalf("flags lost: referral=%v pulse=%v", got.ReferralBonusGiven, got.PulseQualified)
	}
	if got.SignalStatus != "basic" || got.StreakDays != 3 {
		t.Fatalf("derived fields lost: signal=%s streak=%d", got.SignalStatus, got.StreakDays)
	}
	last, ok := got.LastGrant("vaultUpload")
	if !ok || !last.Equal(now) {
		t.Fatalf("LastGrant = %v ok=%v, want %v", last, ok, now)
	}
	if got.GrantedToday("vaultUpload", now) != 1 || got.GrantedToday("dailyLogin", now) != 1 {
		t.Fatal("daily grant counts lost in round trip")
	}
}

func TestSaveUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	led := ledger.New("u1", now)
	led.RecordGrant("dailyLogin", 20, now)
	if err := store.Save(ctx, led); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	led.RecordGrant("dailyLogin", 20, now.Add(24*time.Hour))
	if err := store.Save(ctx, led); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TotalXP != 40 {
		t.Fatalf("TotalXP after upsert = %d, want 40", got.TotalXP)
	}
}

func TestEventsNewestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	ids := []string{"ev-a", "ev-b", "ev-c", "ev-d", "ev-e"}
	for i, id := range ids {
		ev := ledger.Event{
			ID:         id,
			UserID:     "u1",
			Action:     "vaultUpload",
			Amount:     50,
			TotalAfter: int64(50 * (i + 1)),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	events, err := store.ListRecent(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].TotalAfter != 250 || events[2].TotalAfter != 150 {
		t.Fatalf("events out of order: %+v", events)
	}

	other, err := store.ListRecent(ctx, "u2", 10)
	if err != nil {
		t.Fatalf("ListRecent other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("events leaked across users: %d", len(other))
	}
}
