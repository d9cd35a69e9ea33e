// Package memory provides an in-memory Store implementation.
//
// It backs tests and development setups where persistence across restarts
// is not required. Passwords are hashed with bcrypt exactly like the
// postgres implementation so the session gate behaves identically against
// either store.
package memory

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/exemee/Laba8-server/pkg/group"
	"github.com/exemee/Laba8-server/pkg/store"
)

// MemoryStore implements store.Store with maps under a single RWMutex.
// Coarse-grained locking is simple and correct for the expected
// contention; the dispatcher already serializes per-id mutations.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int
	users  map[string][]byte    // login -> bcrypt hash
	groups map[int]*group.Group // id -> record
	owners map[int]string       // id -> owner login
}

// NewMemoryStore creates an empty store. The first assigned id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		users:  make(map[string][]byte),
		groups: make(map[int]*group.Group),
		owners: make(map[int]string),
	}
}

func (s *MemoryStore) ValidateUser(ctx context.Context, login, password string) (bool, error) {
	s.mu.RLock()
	hash, ok := s.users[login]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil, nil
}

func (s *MemoryStore) UserExists(ctx context.Context, login string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[login]
	return ok, nil
}

func (s *MemoryStore) AddUser(ctx context.Context, login, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[login]; ok {
		return store.ErrLoginTaken
	}
	s.users[login] = hash
	return nil
}

func (s *MemoryStore) AddGroup(ctx context.Context, g *group.Group, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	stored := g.Clone()
	stored.ID = id
	s.groups[id] = stored
	s.owners[id] = owner
	return id, nil
}

func (s *MemoryStore) UpdateByID(ctx context.Context, g *group.Group, id int, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return false, store.ErrNotFound
	}
	if s.owners[id] != owner {
		return false, nil
	}

	stored := g.Clone()
	stored.ID = id
	s.groups[id] = stored
	return true, nil
}

func (s *MemoryStore) RemoveByID(ctx context.Context, id int, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return false, store.ErrNotFound
	}
	if s.owners[id] != owner {
		return false, nil
	}

	delete(s.groups, id)
	delete(s.owners, id)
	return true, nil
}

func (s *MemoryStore) ClearOwnedBy(ctx context.Context, owner string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []int
	for id, login := range s.owners {
		if login == owner {
			removed = append(removed, id)
		}
	}
	sort.Ints(removed)

	for _, id := range removed {
		delete(s.groups, id)
		delete(s.owners, id)
	}
	return removed, nil
}

func (s *MemoryStore) IDsOwnedBy(ctx context.Context, owner string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int
	for id, login := range s.owners {
		if login == owner {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *MemoryStore) Ownership(ctx context.Context) (map[int]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make(map[int]string, len(s.owners))
	for id, login := range s.owners {
		owners[id] = login
	}
	return owners, nil
}

func (s *MemoryStore) LoadGroups(ctx context.Context) ([]*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	groups := make([]*group.Group, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, s.groups[id].Clone())
	}
	return groups, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
