package dispatch

import (
	"context"

	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// auth checks the envelope's credentials and reports the result tagged
// "auth". Unlike the gated verbs, a failure here is a normal outcome,
// not a dropped command.
func (d *Dispatcher) auth(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	ok := d.gate.Authenticate(ctx, env.Login, env.Password, remote)
	return wire.AuthResult(ok, wire.TagAuth)
}

// register creates the user and reports the result tagged "reg". A
// taken login yields success=false.
func (d *Dispatcher) register(ctx context.Context, env *wire.Envelope, remote string) *wire.Reply {
	ok, err := d.gate.Register(ctx, env.Login, env.Password)
	if err != nil {
		logger.Error("REGISTER for %q failed: %v", env.Login, err)
		return wire.AuthResult(false, wire.TagReg)
	}
	return wire.AuthResult(ok, wire.TagReg)
}
