package dispatch

import (
	"context"
	"fmt"

	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// SyncBundle builds the full-collection sync: the ordered group list
// plus the id to owner mapping, tagged with mode ("init" on first
// contact, "regular" on refresh).
//
// This is a read-only broadcast outside the command/reply pairing; no
// auth gate applies here. The transport is expected to have gated the
// connection before asking for one.
func (d *Dispatcher) SyncBundle(ctx context.Context, mode string) (*wire.SyncBundle, error) {
	ownership, err := d.store.Ownership(ctx)
	if err != nil {
		return nil, fmt.Errorf("build sync bundle: %w", err)
	}

	return &wire.SyncBundle{
		Groups:    d.coll.Snapshot(),
		Ownership: ownership,
		Mode:      mode,
	}, nil
}
