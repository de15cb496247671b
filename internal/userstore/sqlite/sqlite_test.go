package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/freespacenet/fsn-rewards/internal/userstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnsureIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Ensure(ctx, "u1")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if first.ID != "u1" || first.Status != userstore.StatusActive {
		t.Fatalf("ensured user = %+v", first)
	}

	again, err := store.Ensure(ctx, "u1")
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if again.ID != "u1" {
		t.Fatalf("second Ensure user = %+v", again)
	}
}

func TestClaimName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, err := store.ClaimName(ctx, "u1", "Alice.REP", "")
	if err != nil {
		t.Fatalf("ClaimName: %v", err)
	}
	if u.Name != "alice" {
		t.Fatalf("claimed name = %q, want normalized alice", u.Name)
	}

	found, err := store.FindByName(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if found.ID != "u1" {
		t.Fatalf("FindByName id = %s", found.ID)
	}
}

func TestClaimNameConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ClaimName(ctx, "u1", "alice", ""); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := store.ClaimName(ctx, "u2", "alice", "")
	if !errors.Is(err, userstore.ErrNameTaken) {
		t.Fatalf("conflicting claim error = %v, want ErrNameTaken", err)
	}
}

func TestClaimNameIsOneShot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ClaimName(ctx, "u1", "alice", ""); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	// Re-claiming the same name is a no-op, not an error.
	if _, err := store.ClaimName(ctx, "u1", "alice", ""); err != nil {
		t.Fatalf("idempotent re-claim: %v", err)
	}
	// Claiming a different name is rejected.
	if _, err := store.ClaimName(ctx, "u1", "bob", ""); err == nil {
		t.Fatal("expected error when changing a claimed name")
	}
}

func TestClaimNameRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"", "ab", "-alice", "alice-", "Al ice", "x"} {
		if _, err := store.ClaimName(ctx, "u1", name, ""); err == nil {
			t.Errorf("name %q accepted, want rejection", name)
		}
	}
}

func TestReferrerLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ClaimName(ctx, "ref", "mentor", ""); err != nil {
		t.Fatalf("claim referrer: %v", err)
	}
	if _, err := store.ClaimName(ctx, "u1", "newbie", "mentor.rep"); err != nil {
		t.Fatalf("claim with referrer: %v", err)
	}

	referrerID, err := store.ReferrerOf(ctx, "u1")
	if err != nil {
		t.Fatalf("ReferrerOf: %v", err)
	}
	if referrerID != "ref" {
		t.Fatalf("ReferrerOf = %q, want ref", referrerID)
	}
}

func TestMissingReferrerIsDropped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, err := store.ClaimName(ctx, "u1", "solo", "ghost")
	if err != nil {
		t.Fatalf("claim with unknown referrer: %v", err)
	}
	if u.ReferrerID != "" {
		t.Fatalf("unknown referrer linked: %q", u.ReferrerID)
	}
}

func TestSelfReferralIsDropped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ClaimName(ctx, "u1", "alice", ""); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Re-claiming with one's own name as referrer must not self-link.
	if _, err := store.ClaimName(ctx, "u1", "alice", "alice"); err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	referrerID, err := store.ReferrerOf(ctx, "u1")
	if err != nil {
		t.Fatalf("ReferrerOf: %v", err)
	}
	if referrerID != "" {
		t.Fatalf("self referral recorded: %q", referrerID)
	}
}

func TestReferrerOfUnknownUser(t *testing.T) {
	store := newTestStore(t)
	id, err := store.ReferrerOf(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("ReferrerOf: %v", err)
	}
	if id != "" {
		t.Fatalf("ReferrerOf unknown user = %q", id)
	}
}
