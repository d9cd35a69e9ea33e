// Package wire defines the messages exchanged between clients and the
// server, and the framing that carries them over a TCP stream.
//
// Every frame is a 4-byte big-endian length header followed by a JSON
// body. Client frames decode into an Envelope; server frames encode a
// Reply or, outside the command/reply pairing, a SyncBundle.
package wire

import (
	"github.com/exemee/Laba8-server/pkg/group"
)

// Verb identifies the operation an envelope requests. The set is closed:
// the dispatcher builds its handler table once over these constants and
// rejects anything else.
type Verb string

const (
	VerbInfo              Verb = "INFO"
	VerbShow              Verb = "SHOW"
	VerbAdd               Verb = "ADD"
	VerbUpdate            Verb = "UPDATE"
	VerbRemoveByID        Verb = "REMOVE_BY_ID"
	VerbClear             Verb = "CLEAR"
	VerbHead              Verb = "HEAD"
	VerbRemoveGreater     Verb = "REMOVE_GREATER"
	VerbRemoveLower       Verb = "REMOVE_LOWER"
	VerbMinBySemester     Verb = "MIN_BY_SEMESTER_ENUM"
	VerbMaxByGroupAdmin   Verb = "MAX_BY_GROUP_ADMIN"
	VerbCountByGroupAdmin Verb = "COUNT_BY_GROUP_ADMIN"
	VerbAuth              Verb = "AUTH"
	VerbRegister          Verb = "REGISTER"
)

// Envelope is a decoded client command: credentials, a verb, and an
// optional payload. Produced by the transport, consumed once by the
// dispatcher.
type Envelope struct {
	Login    string        `json:"login"`
	Password string        `json:"password"`
	Verb     Verb          `json:"verb"`
	Argument string        `json:"argument,omitempty"`
	Group    *group.Group  `json:"group,omitempty"`
	Person   *group.Person `json:"person,omitempty"`
}

// Reply kinds.
const (
	KindStatus     = "status"
	KindData       = "data"
	KindAuthResult = "auth-result"
)

// Auth-result tags.
const (
	TagAuth = "auth"
	TagReg  = "reg"
)

// Reply is the single response produced per envelope.
type Reply struct {
	Kind    string         `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Group   *group.Group   `json:"group,omitempty"`
	Groups  []*group.Group `json:"groups,omitempty"`
	Count   *int           `json:"count,omitempty"`
	Success bool           `json:"success,omitempty"`
	Tag     string         `json:"tag,omitempty"`
}

// Status builds a status reply carrying human-readable outcome text.
func Status(text string) *Reply {
	return &Reply{Kind: KindStatus, Text: text}
}

// DataGroup builds a data reply carrying a single group (possibly nil,
// meaning "empty collection").
func DataGroup(g *group.Group) *Reply {
	return &Reply{Kind: KindData, Group: g}
}

// DataGroups builds a data reply carrying a snapshot of groups.
func DataGroups(groups []*group.Group) *Reply {
	return &Reply{Kind: KindData, Groups: groups}
}

// DataCount builds a data reply carrying an aggregate count.
func DataCount(n int) *Reply {
	return &Reply{Kind: KindData, Count: &n}
}

// AuthResult builds an auth-result reply tagged TagAuth or TagReg.
func AuthResult(success bool, tag string) *Reply {
	return &Reply{Kind: KindAuthResult, Success: success, Tag: tag}
}

// Sync modes.
const (
	SyncInit    = "init"
	SyncRegular = "regular"
)

// SyncBundle is the full-collection sync pushed outside the
// command/reply pairing: the ordered record list plus the id to owner
// mapping, tagged with why it was sent.
type SyncBundle struct {
	Groups    []*group.Group `json:"groups"`
	Ownership map[int]string `json:"ownership"`
	Mode      string         `json:"mode"`
}
