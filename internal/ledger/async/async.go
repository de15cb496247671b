// Package async wraps a ledger.Store with background batch writes for the
// append-only event history. Ledger rows still persist synchronously; only
// the history, which the grant path never reads back, is write-behind.
package async

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/freespacenet/fsn-rewards/internal/ledger"
)

// Store defers AppendEvent to background workers. Events may be lost if the
// process dies before a flush; Close drains the queue first.
type Store struct {
	underlying    ledger.Store
	eventChan     chan ledger.Event
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup
	stopChan      chan struct{}
	logger        *log.Logger

	mu     sync.Mutex
	closed bool
}

// Config tunes the write-behind behavior.
type Config struct {
	BatchSize     int           // max events per flush (default 100)
	FlushInterval time.Duration // max time between flushes (default 1s)
	ChannelBuffer int           // queue capacity (default 10000)
	Logger        *log.Logger
}

// New wraps an existing ledger store with asynchronous event appends.
func New(underlying ledger.Store, cfg Config) *Store {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 1 * time.Second
	}
	if cfg.ChannelBuffer <= 0 {
		cfg.ChannelBuffer = 10000
	}

	s := &Store{
		underlying:    underlying,
		eventChan:     make(chan ledger.Event, cfg.ChannelBuffer),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		stopChan:      make(chan struct{}),
		logger:        cfg.Logger,
	}

	s.wg.Add(1)
	go s.batchWriter()

	if s.logger != nil {
		s.logger.Printf("[async-ledger] started batch_size=%d flush_interval=%v buffer=%d",
			cfg.BatchSize, cfg.FlushInterval, cfg.ChannelBuffer)
	}
	return s
}

func (s *Store) batchWriter() {
	defer s.wg.Done()

	batch := make([]ledger.Event, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx := context.Background()
		for _, ev := range batch {
			if err := s.underlying.AppendEvent(ctx, ev); err != nil && s.logger != nil {
				s.logger.Printf("[async-ledger] append event user=%s action=%s: %v", ev.UserID, ev.Action, err)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-s.eventChan:
			batch = append(batch, ev)
			if len(batch) >= s.batchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-s.stopChan:
			// Close set the closed flag before signalling, so no new sends
			// can race this drain. The channel itself is never closed.
			for {
				select {
				case ev := <-s.eventChan:
					batch = append(batch, ev)
					if len(batch) >= s.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Load delegates to the underlying store.
func (s *Store) Load(ctx context.Context, userID string) (*ledger.Ledger, error) {
	return s.underlying.Load(ctx, userID)
}

// Save delegates to the underlying store. Ledger rows are the source of
// truth for grant decisions, so they are never deferred.
func (s *Store) Save(ctx context.Context, led *ledger.Ledger) error {
	return s.underlying.Save(ctx, led)
}

// AppendEvent queues the event for background writing without blocking. A
// full queue drops the event rather than stalling a grant, and an append
// racing Close is dropped the same way instead of panicking.
func (s *Store) AppendEvent(ctx context.Context, ev ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if s.logger != nil {
			s.logger.Printf("[async-ledger] closed, dropping event user=%s action=%s", ev.UserID, ev.Action)
		}
		return nil
	}
	select {
	case s.eventChan <- ev:
		return nil
	default:
		if s.logger != nil {
			s.logger.Printf("[async-ledger] queue full, dropping event user=%s action=%s", ev.UserID, ev.Action)
		}
		return nil
	}
}

// ListRecent delegates to the underlying store. Events still queued are not
// visible until the next flush.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]ledger.Event, error) {
	return s.underlying.ListRecent(ctx, userID, limit)
}

// Close drains pending events and closes the underlying store. Appends
// arriving after Close are dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	return s.underlying.Close()
}
