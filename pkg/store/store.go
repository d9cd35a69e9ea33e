// Package store defines the Persistence Port: the authoritative store of
// study groups and users the in-memory collection mirrors.
//
// Three implementations exist, selected by configuration:
//   - postgres: pgx-backed SQL store for shared deployments
//   - badger: embedded BadgerDB store for single-binary deployments
//   - memory: map-backed store for tests and development
//
// All implementations must be safe for concurrent use; the dispatcher
// calls them from both execution pools without external locking.
package store

import (
	"context"
	"errors"

	"github.com/exemee/Laba8-server/pkg/group"
)

var (
	// ErrLoginTaken is returned by AddUser when the login already exists.
	ErrLoginTaken = errors.New("store: login already taken")

	// ErrNotFound is returned when a referenced group id does not exist.
	ErrNotFound = errors.New("store: no such group")
)

// Store is the authoritative persistence boundary.
//
// Ownership semantics: every mutation of an existing group takes the
// caller's login and succeeds only when the stored owner matches. The
// boolean results of UpdateByID and RemoveByID distinguish "owned by
// someone else" (false, nil) from store failure (error).
type Store interface {
	// ValidateUser reports whether the (login, password) pair matches a
	// registered user.
	ValidateUser(ctx context.Context, login, password string) (bool, error)

	// UserExists reports whether a user with the given login exists.
	UserExists(ctx context.Context, login string) (bool, error)

	// AddUser registers a new user. Returns ErrLoginTaken when the login
	// is already in use.
	AddUser(ctx context.Context, login, password string) error

	// AddGroup persists a new group owned by owner and returns the
	// assigned id. The id is unique for the lifetime of the store.
	AddGroup(ctx context.Context, g *group.Group, owner string) (int, error)

	// UpdateByID replaces the group stored under id. Returns false when
	// the group exists but is owned by a different login.
	UpdateByID(ctx context.Context, g *group.Group, id int, owner string) (bool, error)

	// RemoveByID deletes the group stored under id. Returns false when
	// the group exists but is owned by a different login.
	RemoveByID(ctx context.Context, id int, owner string) (bool, error)

	// ClearOwnedBy deletes every group owned by owner and returns the ids
	// that were removed.
	ClearOwnedBy(ctx context.Context, owner string) ([]int, error)

	// IDsOwnedBy returns the ids of all groups owned by owner. This is
	// the authoritative ownership boundary for the bulk removal verbs.
	IDsOwnedBy(ctx context.Context, owner string) ([]int, error)

	// Ownership returns the id -> owner login mapping for all groups.
	Ownership(ctx context.Context) (map[int]string, error)

	// LoadGroups returns every stored group ordered by id. Used once at
	// startup to hydrate the in-memory collection.
	LoadGroups(ctx context.Context) ([]*group.Group, error)

	// Close releases the underlying resources.
	Close() error
}
