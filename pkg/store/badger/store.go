// Package badger provides a persistent Store implementation backed by
// BadgerDB, for single-binary deployments that need the collection to
// survive restarts without running a database server.
//
// Key namespace:
//
//	Data Type    Prefix   Key Format      Value
//	===========================================================
//	Users        "u:"     u:<login>       bcrypt hash (bytes)
//	Groups       "g:"     g:<id>          group.Group (JSON)
//	Ownership    "o:"     o:<id>          owner login (bytes)
//
// Group ids come from a badger.Sequence, which survives restarts and
// never hands out the same id twice, so concurrent AddGroup calls are
// safe without extra locking.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/pkg/group"
	"github.com/exemee/Laba8-server/pkg/store"
)

const (
	userPrefix  = "u:"
	groupPrefix = "g:"
	ownerPrefix = "o:"

	idSequenceKey       = "seq:group-id"
	idSequenceBandwidth = 64
)

// Config holds BadgerDB settings.
type Config struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// BadgerStore implements store.Store on an embedded BadgerDB database.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore opens (or creates) the database at cfg.Path.
func NewBadgerStore(cfg Config) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	seq, err := db.GetSequence([]byte(idSequenceKey), idSequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}

	// The sequence starts at 0; burn it so the first assigned id is 1.
	if first, err := seq.Next(); err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, fmt.Errorf("prime id sequence: %w", err)
	} else if first != 0 {
		logger.Debug("Resuming badger id sequence at %d", first+1)
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

func userKey(login string) []byte { return []byte(userPrefix + login) }
func groupKey(id int) []byte      { return []byte(groupPrefix + strconv.Itoa(id)) }
func ownerKey(id int) []byte      { return []byte(ownerPrefix + strconv.Itoa(id)) }

func (s *BadgerStore) ValidateUser(ctx context.Context, login, password string) (bool, error) {
	var hash []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(login))
		if err != nil {
			return err
		}
		hash, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read user %q: %w", login, err)
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil, nil
}

func (s *BadgerStore) UserExists(ctx context.Context, login string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(login))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read user %q: %w", login, err)
	}
	return true, nil
}

func (s *BadgerStore) AddUser(ctx context.Context, login, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(login)); err == nil {
			return store.ErrLoginTaken
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(userKey(login), hash)
	})
	if err == store.ErrLoginTaken {
		return err
	}
	if err != nil {
		return fmt.Errorf("add user %q: %w", login, err)
	}
	return nil
}

func (s *BadgerStore) AddGroup(ctx context.Context, g *group.Group, owner string) (int, error) {
	next, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next group id: %w", err)
	}
	id := int(next)

	stored := g.Clone()
	stored.ID = id
	body, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("marshal group: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(groupKey(id), body); err != nil {
			return err
		}
		return txn.Set(ownerKey(id), []byte(owner))
	})
	if err != nil {
		return 0, fmt.Errorf("store group %d: %w", id, err)
	}
	return id, nil
}

func (s *BadgerStore) UpdateByID(ctx context.Context, g *group.Group, id int, owner string) (bool, error) {
	owned := false
	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := readOwner(txn, id)
		if err != nil {
			return err
		}
		if current != owner {
			return nil
		}
		owned = true

		stored := g.Clone()
		stored.ID = id
		body, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshal group: %w", err)
		}
		return txn.Set(groupKey(id), body)
	})
	if err != nil {
		return false, fmt.Errorf("update group %d: %w", id, err)
	}
	return owned, nil
}

func (s *BadgerStore) RemoveByID(ctx context.Context, id int, owner string) (bool, error) {
	owned := false
	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := readOwner(txn, id)
		if err != nil {
			return err
		}
		if current != owner {
			return nil
		}
		owned = true

		if err := txn.Delete(groupKey(id)); err != nil {
			return err
		}
		return txn.Delete(ownerKey(id))
	})
	if err != nil {
		return false, fmt.Errorf("remove group %d: %w", id, err)
	}
	return owned, nil
}

func (s *BadgerStore) ClearOwnedBy(ctx context.Context, owner string) ([]int, error) {
	ids, err := s.IDsOwnedBy(ctx, owner)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(groupKey(id)); err != nil {
				return err
			}
			if err := txn.Delete(ownerKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clear groups of %q: %w", owner, err)
	}
	return ids, nil
}

func (s *BadgerStore) IDsOwnedBy(ctx context.Context, owner string) ([]int, error) {
	var ids []int
	err := s.db.View(func(txn *badger.Txn) error {
		return scanOwners(txn, func(id int, login string) {
			if login == owner {
				ids = append(ids, id)
			}
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan ids of %q: %w", owner, err)
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *BadgerStore) Ownership(ctx context.Context) (map[int]string, error) {
	owners := make(map[int]string)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanOwners(txn, func(id int, login string) {
			owners[id] = login
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan ownership: %w", err)
	}
	return owners, nil
}

func (s *BadgerStore) LoadGroups(ctx context.Context) ([]*group.Group, error) {
	var groups []*group.Group
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(groupPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var g group.Group
				if err := json.Unmarshal(val, &g); err != nil {
					return fmt.Errorf("unmarshal group: %w", err)
				}
				groups = append(groups, &g)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		logger.Warn("Failed to release badger id sequence: %v", err)
	}
	return s.db.Close()
}

// readOwner returns the owner login for id, or store.ErrNotFound.
func readOwner(txn *badger.Txn, id int) (string, error) {
	item, err := txn.Get(ownerKey(id))
	if err == badger.ErrKeyNotFound {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// scanOwners iterates the ownership namespace and calls fn per entry.
func scanOwners(txn *badger.Txn, fn func(id int, login string)) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	prefix := []byte(ownerPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		idStr := strings.TrimPrefix(string(item.Key()), ownerPrefix)
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return fmt.Errorf("malformed owner key %q: %w", item.Key(), err)
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		fn(id, string(val))
	}
	return nil
}
