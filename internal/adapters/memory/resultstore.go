package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

type resultEntry struct {
	result    domain.ExportResult
	expiresAt time.Time
}

// ResultStore is a TTL map mirroring the redis result cache.
type ResultStore struct {
	mu      sync.Mutex
	entries map[string]resultEntry
	nowFn   func() time.Time
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		entries: make(map[string]resultEntry),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *ResultStore) Put(_ context.Context, result domain.ExportResult, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[result.RequestID] = resultEntry{result: result, expiresAt: s.nowFn().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *ResultStore) Get(_ context.Context, requestID string) (*domain.ExportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[requestID]
	if !ok {
		return nil, nil
	}
	if s.nowFn().After(entry.expiresAt) {
		delete(s.entries, requestID)
		return nil, nil
	}
	result := entry.result
	return &result, nil
}
