package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/session"
	"github.com/trezcool/coachdesk/core/student"
)

type (
	// DB is an in-memory stand-in for the remote data service, auth included.
	DB struct {
		mu  sync.RWMutex
		now func() time.Time

		students *table[student.Student]
		courses  *table[course.Course]
		payments *table[payment.Payment]

		users map[string]*user               // {email: user}
		roles map[string]map[string]struct{} // {user id: role set}
	}

	user struct {
		id           string
		email        string
		passwordHash []byte
	}

	// table keeps rows in insertion order.
	table[T any] struct {
		ids  []string
		rows map[string]*T
	}
)

var _ session.RoleResolver = (*DB)(nil)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func (t *table[T]) insert(id string, row T) {
	t.ids = append(t.ids, id)
	t.rows[id] = &row
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return *row, true
}

func (t *table[T]) delete(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, rid := range t.ids {
		if rid == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return true
}

// all returns the rows, oldest first.
func (t *table[T]) all() []T {
	rows := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		rows = append(rows, *t.rows[id])
	}
	return rows
}

func Open() *DB {
	return &DB{
		now:      func() time.Time { return time.Now().UTC() },
		students: newTable[student.Student](),
		courses:  newTable[course.Course](),
		payments: newTable[payment.Payment](),
		users:    make(map[string]*user),
		roles:    make(map[string]map[string]struct{}),
	}
}

// AddUser registers a user who can sign in with email & password. It returns the user id.
func (db *DB) AddUser(email, password string, roles ...string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	email = strings.ToLower(email)
	if _, ok := db.users[email]; ok {
		return "", errors.Errorf("user %s already exists", email)
	}
	u := &user{id: uuid.NewString(), email: email, passwordHash: hash}
	db.users[email] = u
	for _, r := range roles {
		db.grant(u.id, r)
	}
	return u.id, nil
}

func (db *DB) authenticate(email, password string) (*user, bool) {
	db.mu.RLock()
	u, ok := db.users[strings.ToLower(email)]
	db.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, false
	}
	return u, true
}

func (db *DB) RolesForUser(_ context.Context, userID string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	roles := make([]string, 0, len(db.roles[userID]))
	for r := range db.roles[userID] {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles, nil
}

func (db *DB) GrantRole(_ context.Context, userID, role string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.grant(userID, role)
	return nil
}

func (db *DB) grant(userID, role string) {
	if db.roles[userID] == nil {
		db.roles[userID] = make(map[string]struct{})
	}
	db.roles[userID][role] = struct{}{}
}
