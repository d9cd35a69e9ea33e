package dispatch

import (
	"context"
	"strconv"

	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// update replaces an existing group in place. Preconditions: the id is
// a well-formed integer, the id exists in the collection, and the store
// confirms the caller owns it. A rejected store write leaves the mirror
// untouched.
//
// The store update is issued exactly once per success path.
func (d *Dispatcher) update(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	id, err := strconv.Atoi(env.Argument)
	if err != nil {
		return wire.Status(StatusInvalidArg)
	}
	if env.Group == nil || !d.validator.ValidGroup(env.Group) {
		return wire.Status(StatusInvalidElement)
	}
	if !d.coll.Exists(id) {
		return wire.Status(StatusNoSuchID)
	}

	lock := d.idLocks.lock(id)
	defer lock.Unlock()

	ok, err := d.store.UpdateByID(ctx, env.Group, id, env.Login)
	if err != nil {
		logger.Error("UPDATE of %d for %q failed: %v", id, env.Login, err)
		return wire.Status(StatusNotUpdated)
	}
	if !ok {
		return wire.Status(StatusOwnedByAnother)
	}

	// Removed concurrently between the Exists check and the store write;
	// the store said ok only if the row still existed, so a false here
	// means the mirror lost the id first. Report it as gone.
	if !d.coll.Update(env.Group, id) {
		return wire.Status(StatusNoSuchID)
	}
	return wire.Status(StatusUpdated)
}
