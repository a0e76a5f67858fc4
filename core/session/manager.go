package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
)

var ErrNotFound = errors.New("session not found")

const defaultSweepInterval = time.Minute

type (
	// Manager keeps one Machine per console session.
	// With a TTL, sessions expire like the console token they were issued for.
	Manager struct {
		factory Factory
		logger  core.Logger
		ttl     time.Duration
		sweep   time.Duration
		now     func() time.Time

		mu       sync.RWMutex
		machines map[string]*entry

		done      chan struct{}
		closeOnce sync.Once
	}

	entry struct {
		m         *Machine
		expiresAt time.Time // zero: never
	}

	// Option configures a Manager.
	Option func(*Manager)
)

// WithTTL expires console sessions ttl after login.
func WithTTL(ttl time.Duration) Option {
	return func(mgr *Manager) { mgr.ttl = ttl }
}

// WithSweepInterval sets how often expired sessions are released in the background.
func WithSweepInterval(d time.Duration) Option {
	return func(mgr *Manager) { mgr.sweep = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

func NewManager(factory Factory, logger core.Logger, opts ...Option) *Manager {
	mgr := &Manager{
		factory:  factory,
		logger:   logger,
		sweep:    defaultSweepInterval,
		now:      time.Now,
		machines: make(map[string]*entry),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	if mgr.ttl > 0 && mgr.sweep > 0 {
		go mgr.sweepLoop()
	}
	return mgr
}

func (mgr *Manager) sweepLoop() {
	ticker := time.NewTicker(mgr.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-mgr.done:
			return
		case <-ticker.C:
			if n := mgr.Sweep(); n > 0 {
				mgr.logger.Info("released expired console sessions", map[string]interface{}{"count": n})
			}
		}
	}
}

// Sweep releases every expired console session and returns how many were released.
func (mgr *Manager) Sweep() int {
	now := mgr.now()
	var expired []*Machine

	mgr.mu.Lock()
	for id, e := range mgr.machines {
		if e.expired(now) {
			expired = append(expired, e.m)
			delete(mgr.machines, id)
		}
	}
	mgr.mu.Unlock()

	for _, m := range expired {
		m.Close()
	}
	return len(expired)
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Login starts a new console session. The machine is registered only if the login succeeds.
func (mgr *Manager) Login(ctx context.Context, identifier, secret string) (string, *Machine, LoginResult) {
	auth, roles, err := mgr.factory()
	if err != nil {
		return "", nil, LoginResult{Err: errors.Wrap(err, "creating auth provider")}
	}

	m := NewMachine(auth, roles, mgr.logger)
	res := m.Login(ctx, identifier, secret)
	if !res.Success {
		m.Close()
		return "", nil, res
	}

	e := &entry{m: m}
	if mgr.ttl > 0 {
		e.expiresAt = mgr.now().Add(mgr.ttl)
	}

	id := uuid.NewString()
	mgr.mu.Lock()
	mgr.machines[id] = e
	mgr.mu.Unlock()
	return id, m, res
}

// Get returns the machine of an authenticated console session.
// Sessions lost in the meantime (external sign-out, expiry) are dropped.
func (mgr *Manager) Get(id string) (*Machine, error) {
	mgr.mu.RLock()
	e, ok := mgr.machines[id]
	mgr.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if e.expired(mgr.now()) || !e.m.IsAuthenticated() {
		mgr.Drop(id)
		return nil, ErrNotFound
	}
	return e.m, nil
}

// Logout signs the console session out. The session is kept if the provider refuses.
func (mgr *Manager) Logout(ctx context.Context, id string) error {
	m, err := mgr.Get(id)
	if err != nil {
		return err
	}
	if err := m.Logout(ctx); err != nil {
		return err
	}
	mgr.Drop(id)
	return nil
}

// RequestPasswordReset asks the provider to email a password reset link.
func (mgr *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	auth, _, err := mgr.factory()
	if err != nil {
		return errors.Wrap(err, "creating auth provider")
	}
	if c, ok := auth.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	return auth.RequestPasswordReset(ctx, email)
}

func (mgr *Manager) Len() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return len(mgr.machines)
}

// Close releases every console session and stops the background sweep.
func (mgr *Manager) Close() {
	mgr.closeOnce.Do(func() { close(mgr.done) })

	mgr.mu.Lock()
	machines := mgr.machines
	mgr.machines = make(map[string]*entry)
	mgr.mu.Unlock()

	for _, e := range machines {
		e.m.Close()
	}
}

// Drop releases a console session without signing it out remotely.
func (mgr *Manager) Drop(id string) {
	mgr.mu.Lock()
	e, ok := mgr.machines[id]
	delete(mgr.machines, id)
	mgr.mu.Unlock()
	if ok {
		e.m.Close()
	}
}
