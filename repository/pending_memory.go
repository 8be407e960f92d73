package repository

import (
	"context"
	"sync"
	"time"

	domainDecision "github.com/AzielCF/aegisx/domains/decision"
)

type pendingEntry struct {
	attempt   domainDecision.Attempt
	ruleID    string
	expiresAt time.Time
}

// PendingMemoryStore keeps require_pin attempts in process memory. Suitable
// for single-server deployments; multi-server setups should use the valkey
// store so the PIN follow-up can land on any node.
type PendingMemoryStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	now     func() time.Time
}

func NewPendingMemoryStore() *PendingMemoryStore {
	return &PendingMemoryStore{
		entries: make(map[string]pendingEntry),
		now:     time.Now,
	}
}

func (s *PendingMemoryStore) Put(_ context.Context, attemptID string, attempt domainDecision.Attempt, ruleID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[attemptID] = pendingEntry{
		attempt:   attempt,
		ruleID:    ruleID,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *PendingMemoryStore) Take(_ context.Context, attemptID string) (domainDecision.Attempt, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[attemptID]
	if !ok {
		return domainDecision.Attempt{}, "", domainDecision.ErrPendingNotFound
	}
	delete(s.entries, attemptID)

	if s.now().After(entry.expiresAt) {
		return domainDecision.Attempt{}, "", domainDecision.ErrPendingNotFound
	}
	return entry.attempt, entry.ruleID, nil
}

// StartBackgroundCleanup prunes expired entries so abandoned PIN challenges
// do not accumulate.
func (s *PendingMemoryStore) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.prune()
			}
		}
	}()
}

func (s *PendingMemoryStore) prune() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
