package listing

import "sync"

// MaxMemoViews bounds the number of queries a Memo keeps per source version.
const MaxMemoViews = 32

// Memo caches filtered views of one source collection, keyed by query.
// Any change of the source version drops every cached view. Past MaxMemoViews,
// the oldest query is evicted first.
type Memo[T Searchable] struct {
	mu      sync.Mutex
	version uint64
	views   map[string][]T
	order   []string
}

func NewMemo[T Searchable]() *Memo[T] {
	return &Memo[T]{views: make(map[string][]T)}
}

// Filter returns Filter(items, query), computing it only once per (version, query).
// version identifies the items collection: callers bump it whenever items change.
func (m *Memo[T]) Filter(version uint64, items []T, query string) []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version {
		m.version = version
		m.views = make(map[string][]T)
		m.order = m.order[:0]
	}
	if view, ok := m.views[query]; ok {
		return view
	}

	view := Filter(items, query)
	if len(m.order) >= MaxMemoViews {
		delete(m.views, m.order[0])
		m.order = m.order[1:]
	}
	m.views[query] = view
	m.order = append(m.order, query)
	return view
}

func (m *Memo[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}
