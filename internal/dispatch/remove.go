package dispatch

import (
	"context"
	"errors"
	"strconv"

	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
	"github.com/exemee/Laba8-server/pkg/store"
)

// removeByID deletes one group. Same precondition chain as update:
// integer argument, present in the collection, owned by the caller per
// the store.
func (d *Dispatcher) removeByID(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	id, err := strconv.Atoi(env.Argument)
	if err != nil {
		return wire.Status(StatusInvalidArg)
	}
	if !d.coll.Exists(id) {
		return wire.Status(StatusNoSuchID)
	}

	lock := d.idLocks.lock(id)
	defer lock.Unlock()

	ok, err := d.store.RemoveByID(ctx, id, env.Login)
	if errors.Is(err, store.ErrNotFound) {
		// Removed concurrently between the Exists check and the delete.
		return wire.Status(StatusNoSuchID)
	}
	if err != nil {
		logger.Error("REMOVE_BY_ID of %d for %q failed: %v", id, env.Login, err)
		return wire.Status(StatusStoreFailure)
	}
	if !ok {
		return wire.Status(StatusOwnedByAnother)
	}

	d.coll.RemoveByID(id)
	return wire.Status(StatusRemoved)
}

// clear deletes every group owned by the caller. The store performs the
// bulk delete and reports which ids went; the mirror then drops each
// returned id. A second clear in a row is a no-op with its own status.
func (d *Dispatcher) clear(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	ids, err := d.store.ClearOwnedBy(ctx, env.Login)
	if err != nil {
		logger.Error("CLEAR for %q failed: %v", env.Login, err)
		return wire.Status(StatusStoreFailure)
	}
	if len(ids) == 0 {
		return wire.Status(StatusNothingToClear)
	}

	for _, id := range ids {
		lock := d.idLocks.lock(id)
		d.coll.RemoveByID(id)
		lock.Unlock()
	}

	logger.Debug("CLEAR removed %s for %q", formatIDs(ids), env.Login)
	return wire.Status(StatusCleared)
}

// formatIDs renders an id list for status texts and logs.
func formatIDs(ids []int) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += strconv.Itoa(id)
	}
	return out
}
