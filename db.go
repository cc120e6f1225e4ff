package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/screenplay/internal/domain"
)

// DB interface for database operations. Lookups of a missing record return
// domain.ErrNotFound; a duplicate user email returns domain.ErrAlreadyExists.
// List methods return records in insertion order.
type DB interface {
	Init(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// User operations
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// Character operations
	CreateCharacter(ctx context.Context, c domain.Character) (domain.Character, error)
	ListCharacters(ctx context.Context) ([]domain.Character, error)
	GetCharacter(ctx context.Context, id string) (domain.Character, error)
	UpdateCharacter(ctx context.Context, c domain.Character) (domain.Character, error)
	DeleteCharacter(ctx context.Context, id string) (domain.Character, error)

	// Relation operations
	CreateRelation(ctx context.Context, r domain.Relation) (domain.Relation, error)
	ListRelations(ctx context.Context) ([]domain.Relation, error)
	GetRelation(ctx context.Context, id string) (domain.Relation, error)
	UpdateRelation(ctx context.Context, r domain.Relation) (domain.Relation, error)
	DeleteRelation(ctx context.Context, id string) (domain.Relation, error)
	RelationsByIDs(ctx context.Context, ids []string) ([]domain.Relation, error)

	// Property operations
	CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error)
	ListProperties(ctx context.Context) ([]domain.Property, error)
	GetProperty(ctx context.Context, id string) (domain.Property, error)
	UpdateProperty(ctx context.Context, p domain.Property) (domain.Property, error)
	DeleteProperty(ctx context.Context, id string) (domain.Property, error)
}

// collection keeps records by id together with their insertion order.
type collection[T any] struct {
	order []string
	items map[string]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: map[string]T{}}
}

func (c *collection[T]) insert(id string, v T) {
	c.order = append(c.order, id)
	c.items[id] = v
}

func (c *collection[T]) get(id string) (T, bool) {
	v, ok := c.items[id]
	return v, ok
}

func (c *collection[T]) replace(id string, v T) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	c.items[id] = v
	return true
}

func (c *collection[T]) remove(id string) (T, bool) {
	v, ok := c.items[id]
	if !ok {
		return v, false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return v, true
}

func (c *collection[T]) all() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Memory DB
type MemDB struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	characters *collection[domain.Character]
	relations  *collection[domain.Relation]
	properties *collection[domain.Property]
}

func NewMemoryDB() *MemDB {
	return &MemDB{
		users:      map[string]domain.User{},
		characters: newCollection[domain.Character](),
		relations:  newCollection[domain.Relation](),
		properties: newCollection[domain.Property](),
	}
}

func (m *MemDB) Init(context.Context) error { return nil }
func (m *MemDB) Ping(context.Context) error { return nil }
func (m *MemDB) Close() error               { return nil }

func (m *MemDB) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return domain.User{}, domain.ErrAlreadyExists
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	m.users[u.Email] = u
	return u, nil
}

func (m *MemDB) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *MemDB) CreateCharacter(_ context.Context, c domain.Character) (domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	m.characters.insert(c.ID, c)
	return c, nil
}

func (m *MemDB) ListCharacters(context.Context) ([]domain.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.characters.all(), nil
}

func (m *MemDB) GetCharacter(_ context.Context, id string) (domain.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.characters.get(id); ok {
		return c, nil
	}
	return domain.Character{}, domain.ErrNotFound
}

func (m *MemDB) UpdateCharacter(_ context.Context, c domain.Character) (domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.characters.get(c.ID)
	if !ok {
		return domain.Character{}, domain.ErrNotFound
	}
	c.UserID = prev.UserID
	c.CreatedAt = prev.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.characters.replace(c.ID, c)
	return c, nil
}

func (m *MemDB) DeleteCharacter(_ context.Context, id string) (domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.characters.remove(id); ok {
		return c, nil
	}
	return domain.Character{}, domain.ErrNotFound
}

func (m *MemDB) CreateRelation(_ context.Context, r domain.Relation) (domain.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	m.relations.insert(r.ID, r)
	return r, nil
}

func (m *MemDB) ListRelations(context.Context) ([]domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.relations.all(), nil
}

func (m *MemDB) GetRelation(_ context.Context, id string) (domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.relations.get(id); ok {
		return r, nil
	}
	return domain.Relation{}, domain.ErrNotFound
}

func (m *MemDB) UpdateRelation(_ context.Context, r domain.Relation) (domain.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.relations.replace(r.ID, r) {
		return domain.Relation{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *MemDB) DeleteRelation(_ context.Context, id string) (domain.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.relations.remove(id); ok {
		return r, nil
	}
	return domain.Relation{}, domain.ErrNotFound
}

func (m *MemDB) RelationsByIDs(_ context.Context, ids []string) ([]domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Relation, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.relations.get(id); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemDB) CreateProperty(_ context.Context, p domain.Property) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	m.properties.insert(p.ID, p)
	return p, nil
}

func (m *MemDB) ListProperties(context.Context) ([]domain.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.properties.all(), nil
}

func (m *MemDB) GetProperty(_ context.Context, id string) (domain.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.properties.get(id); ok {
		return p, nil
	}
	return domain.Property{}, domain.ErrNotFound
}

func (m *MemDB) UpdateProperty(_ context.Context, p domain.Property) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.properties.replace(p.ID, p) {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *MemDB) DeleteProperty(_ context.Context, id string) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.properties.remove(id); ok {
		return p, nil
	}
	return domain.Property{}, domain.ErrNotFound
}
