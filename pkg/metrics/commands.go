package metrics

import (
	"time"
)

// CommandMetrics observes the command path. The server records one
// observation per envelope plus connection lifecycle events. A nil or
// no-op implementation is always safe to call.
type CommandMetrics interface {
	// RecordCommand records a completed command with its verb, reply
	// kind and duration.
	RecordCommand(verb string, kind string, duration time.Duration)

	// RecordCommandStart / RecordCommandEnd track in-flight commands.
	RecordCommandStart(verb string)
	RecordCommandEnd(verb string)

	// SetActiveConnections updates the current connection gauge.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted / RecordConnectionClosed count the
	// connection lifecycle.
	RecordConnectionAccepted()
	RecordConnectionClosed()

	// RecordSync counts pushed full-collection sync bundles by mode.
	RecordSync(mode string)
}

// noopCommandMetrics discards everything.
type noopCommandMetrics struct{}

// NewNoopCommandMetrics returns a CommandMetrics that records nothing.
func NewNoopCommandMetrics() CommandMetrics {
	return noopCommandMetrics{}
}

func (noopCommandMetrics) RecordCommand(string, string, time.Duration) {}
func (noopCommandMetrics) RecordCommandStart(string)                   {}
func (noopCommandMetrics) RecordCommandEnd(string)                     {}
func (noopCommandMetrics) SetActiveConnections(int32)                  {}
func (noopCommandMetrics) RecordConnectionAccepted()                   {}
func (noopCommandMetrics) RecordConnectionClosed()                     {}
func (noopCommandMetrics) RecordSync(string)                           {}
