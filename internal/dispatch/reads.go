package dispatch

import (
	"context"

	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// info returns collection metadata: size, type and last-modified time.
func (d *Dispatcher) info(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	return wire.Status(d.coll.Info())
}

// show returns a snapshot of all groups in insertion order.
func (d *Dispatcher) show(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	return wire.DataGroups(d.coll.Snapshot())
}

// head returns the first group, or an empty indicator when the
// collection has no elements.
func (d *Dispatcher) head(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	return wire.DataGroup(d.coll.Head())
}
