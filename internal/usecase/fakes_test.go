package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/infra/security"
	"github.com/arklim/residency-registry/internal/repository"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	err   error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrAlreadyExists
	}
	r.users[user.Username] = user
	return nil
}

func (r *memoryUserRepo) Get(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepo) List(context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) UpdateRole(_ context.Context, username string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	r.users[username] = user
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, username, hash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = changedAt
	r.users[username] = user
	return nil
}

func (r *memoryUserRepo) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, username)
	return nil
}

type memoryRecordRepo struct {
	mu      sync.Mutex
	records map[string]domain.Record
}

func newMemoryRecordRepo() *memoryRecordRepo {
	return &memoryRecordRepo{records: make(map[string]domain.Record)}
}

func (r *memoryRecordRepo) Create(_ context.Context, rec domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memoryRecordRepo) Get(_ context.Context, id string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRecordRepo) List(context.Context) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *memoryRecordRepo) Update(_ context.Context, id string, changes map[string]string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec = rec.Apply(changes)
	r.records[id] = rec
	return &rec, nil
}

func (r *memoryRecordRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

type memoryActivityRepo struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	err     error
}

func (r *memoryActivityRepo) Append(_ context.Context, entry domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append([]domain.ActivityEntry{entry}, r.entries...)
	return nil
}

func (r *memoryActivityRepo) List(_ context.Context, limit int) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]domain.ActivityEntry, limit)
	copy(out, r.entries[:limit])
	return out, nil
}

func (r *memoryActivityRepo) actions() []domain.ActivityAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ActivityAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingPublisher struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	err     error
}

func (p *recordingPublisher) PublishActivity(_ context.Context, entry domain.ActivityEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return p.err
}

type memoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]string
	ttls    map[string]time.Duration
	err     error
}

func newMemoryDenylist() *memoryDenylist {
	return &memoryDenylist{revoked: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (d *memoryDenylist) MarkRevoked(_ context.Context, jti, reason string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.revoked[jti] = reason
	d.ttls[jti] = ttl
	return nil
}

func (d *memoryDenylist) IsRevoked(_ context.Context, jti string) (bool, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, "", d.err
	}
	reason, ok := d.revoked[jti]
	return ok, reason, nil
}

var errStoreDown = errors.New("store unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestHasher(t *testing.T) *security.PasswordHasher {
	t.Helper()
	hasher, err := security.NewPasswordHasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewPasswordHasher returned error: %v", err)
	}
	return hasher
}

func newTestTokens(t *testing.T, clock *fakeClock) *security.TokenManager {
	t.Helper()
	tokens, err := security.NewTokenManager(testSecret, "residency-registry", time.Hour, security.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}
	return tokens
}
