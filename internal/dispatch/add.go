package dispatch

import (
	"context"
	"time"

	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// add persists a new group owned by the caller and mirrors it into the
// collection. The store assigns the id; the group is invisible to
// readers until the mirror insert, so no per-id lock is needed here.
func (d *Dispatcher) add(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	g := env.Group
	if g == nil || !d.validator.ValidGroup(g) {
		return wire.Status(StatusInvalidElement)
	}

	if g.CreationDate.IsZero() {
		g.CreationDate = time.Now()
	}

	id, err := d.store.AddGroup(ctx, g, env.Login)
	if err != nil {
		logger.Error("ADD for %q failed: %v", env.Login, err)
		return wire.Status(StatusNotAdded)
	}

	g.ID = id
	d.coll.Add(g)
	return wire.Status(StatusAdded)
}
