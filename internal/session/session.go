// Package session gates every command on the credentials carried in its
// envelope. There is no session state: each envelope is authenticated
// independently against the persistence store.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/pkg/store"
)

// Gate authenticates and registers users.
type Gate struct {
	store store.Store
}

// NewGate creates a Gate over the given store.
func NewGate(s store.Store) *Gate {
	return &Gate{store: s}
}

// Authenticate reports whether the (login, password) pair matches a
// registered user. remote is the client address, used only for the audit
// log line.
func (g *Gate) Authenticate(ctx context.Context, login, password, remote string) bool {
	ok, err := g.store.ValidateUser(ctx, login, password)
	if err != nil {
		logger.Error("Auth check for %q from %s failed: %v", login, remote, err)
		return false
	}

	if ok {
		logger.Info("User %q from %s authenticated", login, remote)
	} else {
		logger.Info("Rejected credentials for %q from %s", login, remote)
	}
	return ok
}

// Register creates a new user. Returns false without error when the
// login is already taken.
func (g *Gate) Register(ctx context.Context, login, password string) (bool, error) {
	err := g.store.AddUser(ctx, login, password)
	if errors.Is(err, store.ErrLoginTaken) {
		logger.Info("Registration rejected, login %q taken", login)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("register %q: %w", login, err)
	}

	logger.Info("User %q registered", login)
	return true, nil
}
