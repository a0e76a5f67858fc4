// Package cache holds query results fetched from the remote data service.
//
// Every load takes a generation ticket before calling the remote service. Its result is stored
// only if the ticket is still current once it comes back: a slower, older request can never
// overwrite a newer result, and an invalidation issued while a load is in flight
// discards that load's result.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
)

// Entities
const (
	Students  = "students"
	Courses   = "courses"
	Payments  = "payments"
	Dashboard = "dashboard"
)

const keyPrefix = "coachdesk:"

// Store is where cached values live.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type ticket struct {
	epoch uint64
	gen   uint64
}

type QueryCache struct {
	store  Store
	ttl    time.Duration
	logger core.Logger

	mu     sync.Mutex
	epochs map[string]uint64 // {entity: invalidation count}
	gens   map[string]uint64 // {key: latest ticket}
}

func NewQueryCache(store Store, ttl time.Duration, logger core.Logger) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: logger,
		epochs: make(map[string]uint64),
		gens:   make(map[string]uint64),
	}
}

// Key returns the store key of (entity, params).
func Key(entity string, params ...interface{}) string {
	k := keyPrefix + entity + ":"
	for i, p := range params {
		if i > 0 {
			k += ","
		}
		k += fmt.Sprint(p)
	}
	return k
}

// Fetch returns the cached value of (entity, params), loading and storing it on a miss.
// The returned version changes whenever the value does.
func Fetch[T any](
	ctx context.Context,
	qc *QueryCache,
	entity string,
	params []interface{},
	load func(context.Context) (T, error),
) (T, uint64, error) {
	var val T
	key := Key(entity, params...)

	if data, ok, err := qc.store.Get(ctx, key); err != nil {
		qc.logger.Warn(fmt.Sprintf("reading cache %s: %v", key, err), err)
	} else if ok {
		if err := json.Unmarshal(data, &val); err == nil {
			return val, version(data), nil
		}
		qc.logger.Warn(fmt.Sprintf("decoding cache %s", key))
	}

	t := qc.ticket(entity, key)
	val, err := load(ctx)
	if err != nil {
		return val, 0, err
	}

	data, err := json.Marshal(val)
	if err != nil {
		return val, 0, errors.Wrap(err, "encoding cache value")
	}
	if err := qc.storeIfCurrent(ctx, entity, key, t, data); err != nil {
		qc.logger.Warn(fmt.Sprintf("writing cache %s: %v", key, err), err)
	}
	return val, version(data), nil
}

// Invalidate drops every cached value of the entities and discards loads in flight for them.
func (qc *QueryCache) Invalidate(ctx context.Context, entities ...string) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	for _, e := range entities {
		qc.epochs[e]++
		if err := qc.store.DeletePrefix(ctx, Key(e)); err != nil {
			qc.logger.Warn(fmt.Sprintf("invalidating cache %s: %v", e, err), err)
		}
	}
}

func (qc *QueryCache) ticket(entity, key string) ticket {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.gens[key]++
	return ticket{epoch: qc.epochs[entity], gen: qc.gens[key]}
}

func (qc *QueryCache) storeIfCurrent(ctx context.Context, entity, key string, t ticket, data []byte) error {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	if qc.epochs[entity] != t.epoch || qc.gens[key] != t.gen {
		return nil // stale
	}
	return qc.store.Set(ctx, key, data, qc.ttl)
}

func version(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64()
}
