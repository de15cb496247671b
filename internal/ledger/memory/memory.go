package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/freespacenet/fsn-rewards/internal/ledger"
)

// Store is an in-memory ledger.Store used for dev mode and tests.
// Nothing survives a restart.
type Store struct {
	mu      sync.RWMutex
	ledgers map[string][]byte // user id -> JSON snapshot
	events  map[string][]ledger.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		ledgers: make(map[string][]byte),
		events:  make(map[string][]ledger.Event),
	}
}

// Load returns a deep copy of the stored ledger, or a fresh one.
func (s *Store) Load(ctx context.Context, userID string) (*ledger.Ledger, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	s.mu.RLock()
	raw, ok := s.ledgers[userID]
	s.mu.RUnlock()
	if !ok {
		// Fresh ledgers carry zero timestamps; the engine stamps them with
		// its own clock on first persist.
		return ledger.New(userID, time.Time{}), nil
	}
	var led ledger.Ledger
	if err := json.Unmarshal(raw, &led); err != nil {
		return nil, err
	}
	if led.LastGrantAt == nil {
		led.LastGrantAt = make(map[string]time.Time)
	}
	if led.DailyGrantCount == nil {
		led.DailyGrantCount = make(map[string]map[string]int)
	}
	return &led, nil
}

// Save stores a snapshot of the ledger. The JSON round trip keeps callers
// from sharing map references with the store.
func (s *Store) Save(ctx context.Context, led *ledger.Ledger) error {
	if led == nil || led.UserID == "" {
		return errors.New("ledger save requires user id")
	}
	raw, err := json.Marshal(led)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ledgers[led.UserID] = raw
	s.mu.Unlock()
	return nil
}

// AppendEvent records a grant event.
func (s *Store) AppendEvent(ctx context.Context, ev ledger.Event) error {
	if ev.UserID == "" {
		return errors.New("event requires user id")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.events[ev.UserID] = append(s.events[ev.UserID], ev)
	s.mu.Unlock()
	return nil
}

// ListRecent returns the latest events for a user, newest first.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]ledger.Event, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.events[userID]
	var out []ledger.Event
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
