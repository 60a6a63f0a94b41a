package handlers

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/comilla/site-backend/internal/auth"
	"github.com/comilla/site-backend/internal/domain/attachments"
	"github.com/comilla/site-backend/internal/domain/events"
	"github.com/comilla/site-backend/internal/domain/projects"
	"github.com/comilla/site-backend/internal/domain/users"
	"github.com/comilla/site-backend/internal/email"
)

const testEnv = "test"

type memoryUsers struct {
	mu    sync.Mutex
	items map[string]users.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{items: make(map[string]users.User)}
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &u, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (m *memoryUsers) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	u := users.User{ID: params.ID, Email: params.Email, PasswordHash: params.PasswordHash, CreatedAt: now, UpdatedAt: now}
	m.items[u.ID] = u
	return &u, nil
}

func (m *memoryUsers) UpdateEmail(_ context.Context, id, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	u.Email = email
	m.items[id] = u
	return &u, nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return users.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.items[id] = u
	return nil
}

type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: make(map[string][]byte)}
}

func (m *memoryBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryBlobs) URL(key string) string {
	return "https://images.s3.us-east-1.amazonaws.com/" + key
}

func (m *memoryBlobs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type noOrphans struct{}

func (noOrphans) RecordOrphan(context.Context, string, string, string) error { return nil }

// memoryRecords stores projects or events keyed by id in insertion order.
type memoryRecords[T any] struct {
	mu    sync.Mutex
	order []string
	items map[string]T
	id    func(T) string
	name  func(T) string
}

func newMemoryRecords[T any](id, name func(T) string) *memoryRecords[T] {
	return &memoryRecords[T]{items: make(map[string]T), id: id, name: name}
}

func (m *memoryRecords[T]) list() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out
}

func (m *memoryRecords[T]) get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	return item, ok
}

func (m *memoryRecords[T]) exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if m.name(item) == name {
			return true
		}
	}
	return false
}

func (m *memoryRecords[T]) put(item T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id(item)
	_, existed := m.items[id]
	if !existed {
		m.order = append(m.order, id)
	}
	m.items[id] = item
	return existed
}

func (m *memoryRecords[T]) remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false
	}
	delete(m.items, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return true
}

type projectStore struct {
	*memoryRecords[projects.Project]
}

func newProjectStore() projectStore {
	return projectStore{newMemoryRecords(
		func(p projects.Project) string { return p.ID },
		func(p projects.Project) string { return p.Name },
	)}
}

func (s projectStore) List(context.Context) ([]projects.Project, error) { return s.list(), nil }

func (s projectStore) GetByID(_ context.Context, id string) (*projects.Project, error) {
	p, ok := s.get(id)
	if !ok {
		return nil, projects.ErrNotFound
	}
	return &p, nil
}

func (s projectStore) ExistsByName(_ context.Context, name string) (bool, error) {
	return s.exists(name), nil
}

func (s projectStore) Create(_ context.Context, p projects.Project) (*projects.Project, error) {
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.put(p)
	return &p, nil
}

func (s projectStore) Update(_ context.Context, p projects.Project) (*projects.Project, error) {
	if _, ok := s.get(p.ID); !ok {
		return nil, projects.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.put(p)
	return &p, nil
}

func (s projectStore) Delete(_ context.Context, id string) error {
	if !s.remove(id) {
		return projects.ErrNotFound
	}
	return nil
}

type eventStore struct {
	*memoryRecords[events.Event]
}

func newEventStore() eventStore {
	return eventStore{newMemoryRecords(
		func(e events.Event) string { return e.ID },
		func(e events.Event) string { return e.Name },
	)}
}

func (s eventStore) List(context.Context) ([]events.Event, error) { return s.list(), nil }

func (s eventStore) GetByID(_ context.Context, id string) (*events.Event, error) {
	e, ok := s.get(id)
	if !ok {
		return nil, events.ErrNotFound
	}
	return &e, nil
}

func (s eventStore) ExistsByName(_ context.Context, name string) (bool, error) {
	return s.exists(name), nil
}

func (s eventStore) Create(_ context.Context, e events.Event) (*events.Event, error) {
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	s.put(e)
	return &e, nil
}

func (s eventStore) Update(_ context.Context, e events.Event) (*events.Event, error) {
	if _, ok := s.get(e.ID); !ok {
		return nil, events.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	s.put(e)
	return &e, nil
}

func (s eventStore) Delete(_ context.Context, id string) error {
	if !s.remove(id) {
		return events.ErrNotFound
	}
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTokens(t *testing.T) *auth.JWTManager {
	t.Helper()
	manager, err := auth.NewJWTManager(strings.Repeat("s", 40), 10*time.Minute, "comilla-test")
	require.NoError(t, err)
	return manager
}

func newUserService(t *testing.T) (*users.Service, *auth.JWTManager) {
	t.Helper()
	tokens := newTokens(t)
	service := users.NewService(newMemoryUsers(), auth.NewPasswordHasher(4), tokens, zerolog.Nop())
	return service, tokens
}

func newImageManager(blobs *memoryBlobs) *attachments.Manager {
	return attachments.NewManager(blobs, noOrphans{})
}
