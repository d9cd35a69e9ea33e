package dispatch

import (
	"context"

	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// minBySemester returns the group lowest in the semester enum ordering.
func (d *Dispatcher) minBySemester(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	return wire.DataGroup(d.coll.MinBySemester())
}

// maxByGroupAdmin returns the group whose admin name sorts highest.
func (d *Dispatcher) maxByGroupAdmin(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	return wire.DataGroup(d.coll.MaxByGroupAdmin())
}

// countByGroupAdmin counts groups whose admin equals the given person
// by value. The person payload is validated first.
func (d *Dispatcher) countByGroupAdmin(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	if env.Person == nil || !d.validator.ValidPerson(env.Person) {
		return wire.Status(StatusInvalidElement)
	}
	return wire.DataCount(d.coll.CountByGroupAdmin(*env.Person))
}
