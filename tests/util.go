package testutil

import (
	"time"

	"github.com/trezcool/coachdesk/core/cache"
	cachesvc "github.com/trezcool/coachdesk/services/cache"
)

// NewQueryCache returns a query cache over a fresh in-memory store.
func NewQueryCache() *cache.QueryCache {
	return cache.NewQueryCache(cachesvc.NewMemoryStore(), time.Minute, NewLogger())
}
