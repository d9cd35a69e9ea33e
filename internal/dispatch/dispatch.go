// Package dispatch is the command dispatcher: it receives one decoded
// envelope, authenticates the caller, runs the verb body against the
// persistence store and the in-memory collection, and produces exactly
// one reply.
//
// Verbs are dispatched through a closed table built at construction.
// The table replaces the command-subclass hierarchy of earlier designs:
// adding a verb means adding a constant and a table entry, and an
// envelope with an unknown verb gets an invalid-argument status instead
// of falling through an open-ended type switch.
//
// Dual-store discipline: the store write always gates the mirror write,
// and a striped per-id lock spans both steps, so a rejected store write
// never touches the collection and the window in which the two sides
// disagree is limited to the per-id critical section.
package dispatch

import (
	"context"

	"github.com/exemee/Laba8-server/internal/collection"
	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
	"github.com/exemee/Laba8-server/internal/session"
	"github.com/exemee/Laba8-server/pkg/group"
	"github.com/exemee/Laba8-server/pkg/store"
)

// Outcome texts. Clients key on the reply kind, not on these strings,
// so they can be localized freely as long as the outcomes stay distinct.
const (
	StatusAdded          = "element added"
	StatusNotAdded       = "element not added"
	StatusUpdated        = "element updated"
	StatusNotUpdated     = "element not updated"
	StatusRemoved        = "element removed"
	StatusOwnedByAnother = "element owned by another user"
	StatusNoSuchID       = "no element with this id in the collection"
	StatusInvalidArg     = "invalid argument"
	StatusCleared        = "your elements were removed from the collection"
	StatusNothingToClear = "no elements of yours in the collection"
	StatusNoneFound      = "no matching elements found"
	StatusInvalidElement = "element failed server-side validation"
	StatusAuthFailed     = "authentication failed"
	StatusStoreFailure   = "persistent storage failure, try again later"
)

// handlerFunc is one verb body. The envelope is already authenticated
// unless the verb is AUTH or REGISTER.
type handlerFunc func(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply

// Dispatcher drives the session gate, the store, the validator and the
// collection to turn envelopes into replies. All collaborators are
// injected; the dispatcher holds no global state.
type Dispatcher struct {
	gate      *session.Gate
	store     store.Store
	validator *group.Validator
	coll      *collection.Collection
	idLocks   *idLocks
	handlers  map[wire.Verb]handlerFunc
}

// New wires a Dispatcher. The handler table is built once here; every
// verb of the protocol must have an entry.
func New(gate *session.Gate, st store.Store, v *group.Validator, coll *collection.Collection) *Dispatcher {
	d := &Dispatcher{
		gate:      gate,
		store:     st,
		validator: v,
		coll:      coll,
		idLocks:   newIDLocks(),
	}

	d.handlers = map[wire.Verb]handlerFunc{
		wire.VerbInfo:              d.info,
		wire.VerbShow:              d.show,
		wire.VerbHead:              d.head,
		wire.VerbAdd:               d.add,
		wire.VerbUpdate:            d.update,
		wire.VerbRemoveByID:        d.removeByID,
		wire.VerbClear:             d.clear,
		wire.VerbRemoveGreater:     d.removeGreater,
		wire.VerbRemoveLower:       d.removeLower,
		wire.VerbMinBySemester:     d.minBySemester,
		wire.VerbMaxByGroupAdmin:   d.maxByGroupAdmin,
		wire.VerbCountByGroupAdmin: d.countByGroupAdmin,
		wire.VerbAuth:              d.auth,
		wire.VerbRegister:          d.register,
	}
	return d
}

// Dispatch executes one envelope and returns its reply. remote is the
// client address, used for audit logging only.
//
// Failed authentication yields an explicit status reply instead of the
// historical silent drop, so clients can tell a rejection from a dead
// link.
func (d *Dispatcher) Dispatch(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	handler, ok := d.handlers[env.Verb]
	if !ok {
		logger.Warn("Unknown verb %q from %s", env.Verb, remote)
		return wire.Status(StatusInvalidArg)
	}

	if requiresAuth(env.Verb) && !d.gate.Authenticate(ctx, env.Login, env.Password, remote) {
		return wire.Status(StatusAuthFailed)
	}

	reply := handler(ctx, env, remote)
	logger.Debug("Verb %s from %s (user %q) -> %s", env.Verb, remote, env.Login, reply.Kind)
	return reply
}

// requiresAuth reports whether the verb is gated on credentials. AUTH
// and REGISTER are the gate itself.
func requiresAuth(v wire.Verb) bool {
	return v != wire.VerbAuth && v != wire.VerbRegister
}

// IsScanVerb reports whether the verb must run on the scan pool: it
// either walks the whole collection or performs a bulk multi-step
// delete. Everything else is a cheap request/response pair for the
// fixed pool.
func IsScanVerb(v wire.Verb) bool {
	switch v {
	case wire.VerbRemoveGreater, wire.VerbRemoveLower,
		wire.VerbMinBySemester, wire.VerbMaxByGroupAdmin, wire.VerbCountByGroupAdmin:
		return true
	default:
		return false
	}
}
