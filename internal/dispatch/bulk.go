package dispatch

import (
	"context"
	"fmt"

	"github.com/exemee/Laba8-server/internal/collection"
	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// removeGreater deletes every caller-owned group comparing strictly
// greater than the candidate.
func (d *Dispatcher) removeGreater(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	return d.removeComparing(ctx, env, remote, collection.CompareGreater)
}

// removeLower deletes every caller-owned group comparing strictly lower
// than the candidate.
func (d *Dispatcher) removeLower(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	return d.removeComparing(ctx, env, remote, collection.CompareLower)
}

// removeComparing is the bulk conditional removal protocol:
//
//  1. validate the candidate structurally
//  2. ask the store for the caller's owned ids (the authoritative
//     ownership boundary, never the in-memory view)
//  3. intersect with the collection filtered by the strict comparison
//  4. empty set means "none found"
//  5. per id: delete from the store, then from the collection, under
//     the per-id lock; a store failure on one id is reported in the
//     aggregate reply and does not abort the remaining ids
//
// There is no rollback: ids already removed stay removed. The reply
// lists the ids that were actually deleted, and any per-id failures.
func (d *Dispatcher) removeComparing(ctx context.Context, env *wire.Envelope, remote string, mode collection.CompareMode) *wire.Reply {
	if env.Group == nil || !d.validator.ValidGroup(env.Group) {
		return wire.Status(StatusInvalidElement)
	}

	owned, err := d.store.IDsOwnedBy(ctx, env.Login)
	if err != nil {
		logger.Error("Owned-id lookup for %q failed: %v", env.Login, err)
		return wire.Status(StatusNoneFound)
	}

	candidates := d.coll.FilterOwnedComparing(owned, env.Group, mode)
	if len(candidates) == 0 {
		return wire.Status(StatusNoneFound)
	}

	var (
		removed  []int
		failures []string
	)
	for _, id := range candidates {
		lock := d.idLocks.lock(id)

		ok, err := d.store.RemoveByID(ctx, id, env.Login)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("failed to remove element with id=%d: %v", id, err))
			logger.Error("Bulk remove of %d for %q failed: %v", id, env.Login, err)
		case !ok:
			// Ownership changed between the owned-id query and the
			// delete. Skip; the mirror must not diverge.
			failures = append(failures, fmt.Sprintf("element with id=%d is no longer yours", id))
		default:
			d.coll.RemoveByID(id)
			removed = append(removed, id)
		}

		lock.Unlock()
	}

	if len(removed) == 0 && len(failures) > 0 {
		return wire.Status(joinLines(failures))
	}

	text := "removed elements: " + formatIDs(removed)
	if len(failures) > 0 {
		text += "\n" + joinLines(failures)
	}
	return wire.Status(text)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
