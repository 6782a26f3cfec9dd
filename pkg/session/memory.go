package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule is how often expired entries are removed when a
// sweeper runs.
const DefaultSweepSchedule = "@every 1m"

// MemoryStore keeps session data in process. Entries expire after the
// configured TTL; a zero TTL keeps them until deleted.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	sweeper *cron.Cron
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}

	return bytes.Clone(entry.value), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: bytes.Clone(value)}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}

	m.entries[key] = entry

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}

func (m *MemoryStore) GetDel(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}

	delete(m.entries, key)

	return bytes.Clone(entry.value), nil
}

// lookup must be called with the lock held.
func (m *MemoryStore) lookup(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}

	if m.expired(entry, m.now()) {
		delete(m.entries, key)

		return memoryEntry{}, false
	}

	return entry, true
}

func (m *MemoryStore) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0

	for key, entry := range m.entries {
		if m.expired(entry, now) {
			delete(m.entries, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of held entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// StartSweeper runs Sweep on a cron schedule ("@every 1m", "*/5 * * * *")
// until Close is called.
func (m *MemoryStore) StartSweeper(schedule string, logger *slog.Logger) error {
	logger = logger.With("module", "session_sweeper")

	sweeper := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := sweeper.AddFunc(schedule, func() {
		if removed := m.Sweep(); removed > 0 {
			logger.Debug("Removed expired session entries", "count", removed)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	m.mu.Lock()
	previous := m.sweeper
	m.sweeper = sweeper
	m.mu.Unlock()

	if previous != nil {
		<-previous.Stop().Done()
	}

	sweeper.Start()

	return nil
}

// Close stops the sweeper and waits for a running sweep to finish.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	sweeper := m.sweeper
	m.sweeper = nil
	m.mu.Unlock()

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}

	return nil
}
