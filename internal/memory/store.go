// Package memory holds the per-session recommendation lists the assistant
// uses to resolve references such as "cuốn 2" or "cuốn thứ ba".
//
// Entries live in a bounded LRU with a TTL so that abandoned sessions do not
// accumulate for the lifetime of the process.
package memory

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
)

const (
	// DefaultSize is the number of sessions kept when no size is configured.
	DefaultSize = 10000
	// DefaultTTL is how long an untouched recommendation list survives.
	DefaultTTL = 2 * time.Hour
)

// Store keeps the last recommendation list shown to each session.
//
// Save replaces the list for a session; Get returns it, or an empty slice
// when the session has none. Implementations must be safe for concurrent use.
type Store interface {
	Save(sessionID string, books []domain.BookSummary)
	Get(sessionID string) []domain.BookSummary
}

// LRUStore is a Store bounded by entry count and idle TTL.
type LRUStore struct {
	cache *expirable.LRU[string, []domain.BookSummary]
}

// NewLRUStore returns a store holding at most size sessions, each expiring
// ttl after its last Save. Non-positive arguments fall back to the defaults.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUStore{cache: expirable.NewLRU[string, []domain.BookSummary](size, nil, ttl)}
}

// Save replaces the session's list with a copy of books.
func (s *LRUStore) Save(sessionID string, books []domain.BookSummary) {
	cp := make([]domain.BookSummary, len(books))
	copy(cp, books)
	s.cache.Add(sessionID, cp)
}

// Get returns a copy of the session's list, or an empty slice.
func (s *LRUStore) Get(sessionID string) []domain.BookSummary {
	books, ok := s.cache.Get(sessionID)
	if !ok {
		return []domain.BookSummary{}
	}
	cp := make([]domain.BookSummary, len(books))
	copy(cp, books)
	return cp
}

// Len reports how many sessions are currently held.
func (s *LRUStore) Len() int { return s.cache.Len() }
