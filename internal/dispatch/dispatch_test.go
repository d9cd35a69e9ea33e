package dispatch

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exemee/Laba8-server/internal/collection"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
	"github.com/exemee/Laba8-server/internal/session"
	"github.com/exemee/Laba8-server/pkg/group"
	"github.com/exemee/Laba8-server/pkg/store"
	"github.com/exemee/Laba8-server/pkg/store/memory"
)

const testRemote = "127.0.0.1:11111"

type fixture struct {
	store *memory.MemoryStore
	coll  *collection.Collection
	d     *Dispatcher
}

// newFixture wires a dispatcher over a fresh in-memory store with users
// alice and bob registered.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memory.NewMemoryStore()
	require.NoError(t, st.AddUser(ctx, "alice", "alice-pw"))
	require.NoError(t, st.AddUser(ctx, "bob", "bob-pw"))

	coll := collection.New()
	d := New(session.NewGate(st), st, group.NewValidator(), coll)
	return &fixture{store: st, coll: coll, d: d}
}

func validGroup(name string, students int) *group.Group {
	return &group.Group{
		Name:            name,
		Coordinates:     group.Coordinates{X: 10, Y: 20},
		CreationDate:    time.Now(),
		StudentsCount:   students,
		FormOfEducation: group.FullTimeEducation,
		Semester:        group.SemesterFifth,
		GroupAdmin: group.Person{
			Name:        "admin-" + name,
			Weight:      70,
			EyeColor:    group.ColorGreen,
			HairColor:   group.ColorBlack,
			Nationality: group.CountryRussia,
		},
	}
}

func envelope(login, password string, verb wire.Verb) *wire.Envelope {
	return &wire.Envelope{Login: login, Password: password, Verb: verb}
}

func aliceEnv(verb wire.Verb) *wire.Envelope {
	return envelope("alice", "alice-pw", verb)
}

func bobEnv(verb wire.Verb) *wire.Envelope {
	return envelope("bob", "bob-pw", verb)
}

// addAs pushes a group through the full ADD path and returns its
// assigned id, read back from the store's ownership map.
func addAs(t *testing.T, f *fixture, env *wire.Envelope, g *group.Group) int {
	t.Helper()
	env.Group = g
	reply := f.d.Dispatch(context.Background(), env, testRemote)
	require.Equal(t, StatusAdded, reply.Text)
	require.NotZero(t, g.ID)
	return g.ID
}

// requireMirrorMatchesStore asserts the dual-store invariant: the
// collection holds exactly the ids the store does.
func requireMirrorMatchesStore(t *testing.T, f *fixture) {
	t.Helper()
	owners, err := f.store.Ownership(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(owners), f.coll.Size())
	for id := range owners {
		assert.True(t, f.coll.Exists(id), "id %d in store but not in collection", id)
	}
}

func TestAddShowRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("m3234", 25))
	assert.Equal(t, 1, id)

	reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbShow), testRemote)
	require.Equal(t, wire.KindData, reply.Kind)
	require.Len(t, reply.Groups, 1)
	assert.Equal(t, id, reply.Groups[0].ID)
	assert.Equal(t, "m3234", reply.Groups[0].Name)

	requireMirrorMatchesStore(t, f)
}

func TestAddRejectsInvalidElement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("NilGroup", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbAdd), testRemote)
		assert.Equal(t, StatusInvalidElement, reply.Text)
	})

	t.Run("NonPositiveStudentsCount", func(t *testing.T) {
		env := aliceEnv(wire.VerbAdd)
		env.Group = validGroup("bad", 0)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusInvalidElement, reply.Text)
	})

	assert.Equal(t, 0, f.coll.Size())
	requireMirrorMatchesStore(t, f)
}

func TestAuthGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("WrongPasswordGetsExplicitReply", func(t *testing.T) {
		env := envelope("alice", "wrong", wire.VerbShow)
		reply := f.d.Dispatch(ctx, env, testRemote)
		require.Equal(t, wire.KindStatus, reply.Kind)
		assert.Equal(t, StatusAuthFailed, reply.Text)
	})

	t.Run("UnknownUserGetsExplicitReply", func(t *testing.T) {
		env := envelope("mallory", "pw", wire.VerbInfo)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusAuthFailed, reply.Text)
	})

	t.Run("AuthVerbReportsOutcome", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbAuth), testRemote)
		require.Equal(t, wire.KindAuthResult, reply.Kind)
		assert.True(t, reply.Success)
		assert.Equal(t, wire.TagAuth, reply.Tag)

		reply = f.d.Dispatch(ctx, envelope("alice", "wrong", wire.VerbAuth), testRemote)
		assert.False(t, reply.Success)
	})
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("NewLogin", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, envelope("carol", "carol-pw", wire.VerbRegister), testRemote)
		require.Equal(t, wire.KindAuthResult, reply.Kind)
		assert.True(t, reply.Success)
		assert.Equal(t, wire.TagReg, reply.Tag)
	})

	t.Run("TakenLogin", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, envelope("alice", "other", wire.VerbRegister), testRemote)
		assert.False(t, reply.Success)
		assert.Equal(t, wire.TagReg, reply.Tag)
	})

	t.Run("RegisteredUserCanCommand", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, envelope("carol", "carol-pw", wire.VerbInfo), testRemote)
		assert.Equal(t, wire.KindStatus, reply.Kind)
		assert.NotEqual(t, StatusAuthFailed, reply.Text)
	})
}

func TestUnknownVerb(t *testing.T) {
	f := newFixture(t)

	reply := f.d.Dispatch(context.Background(), aliceEnv(wire.Verb("EXPLODE")), testRemote)
	assert.Equal(t, StatusInvalidArg, reply.Text)
}

func TestUpdateOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("orig", 10))

	t.Run("StrangerRejected", func(t *testing.T) {
		env := bobEnv(wire.VerbUpdate)
		env.Argument = strconv.Itoa(id)
		env.Group = validGroup("hijack", 99)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusOwnedByAnother, reply.Text)

		// Neither side changed.
		groups, err := f.store.LoadGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "orig", groups[0].Name)
		assert.Equal(t, "orig", f.coll.Snapshot()[0].Name)
	})

	t.Run("OwnerUpdates", func(t *testing.T) {
		env := aliceEnv(wire.VerbUpdate)
		env.Argument = strconv.Itoa(id)
		env.Group = validGroup("renamed", 30)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusUpdated, reply.Text)

		groups, err := f.store.LoadGroups(ctx)
		require.NoError(t, err)
		assert.Equal(t, "renamed", groups[0].Name)
		assert.Equal(t, "renamed", f.coll.Snapshot()[0].Name)
	})

	t.Run("MissingID", func(t *testing.T) {
		env := aliceEnv(wire.VerbUpdate)
		env.Argument = "777"
		env.Group = validGroup("nowhere", 5)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusNoSuchID, reply.Text)
	})

	t.Run("MalformedID", func(t *testing.T) {
		env := aliceEnv(wire.VerbUpdate)
		env.Argument = "not-a-number"
		env.Group = validGroup("x", 5)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusInvalidArg, reply.Text)
	})

	requireMirrorMatchesStore(t, f)
}

func TestRemoveByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aliceID := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("a", 10))
	bobID := addAs(t, f, bobEnv(wire.VerbAdd), validGroup("b", 20))

	t.Run("StrangerRejected", func(t *testing.T) {
		env := bobEnv(wire.VerbRemoveByID)
		env.Argument = strconv.Itoa(aliceID)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusOwnedByAnother, reply.Text)
		assert.True(t, f.coll.Exists(aliceID))
	})

	t.Run("OwnerRemoves", func(t *testing.T) {
		env := aliceEnv(wire.VerbRemoveByID)
		env.Argument = strconv.Itoa(aliceID)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusRemoved, reply.Text)
		assert.False(t, f.coll.Exists(aliceID))
		assert.True(t, f.coll.Exists(bobID))
	})

	t.Run("RemovedIDIsGone", func(t *testing.T) {
		env := aliceEnv(wire.VerbRemoveByID)
		env.Argument = strconv.Itoa(aliceID)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusNoSuchID, reply.Text)
	})

	requireMirrorMatchesStore(t, f)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("a1", 1))
	addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("a2", 2))
	bobID := addAs(t, f, bobEnv(wire.VerbAdd), validGroup("b1", 3))

	t.Run("RemovesOnlyCallersElements", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbClear), testRemote)
		assert.Equal(t, StatusCleared, reply.Text)
		assert.Equal(t, 1, f.coll.Size())
		assert.True(t, f.coll.Exists(bobID))
	})

	t.Run("SecondClearIsNoop", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbClear), testRemote)
		assert.Equal(t, StatusNothingToClear, reply.Text)
	})

	requireMirrorMatchesStore(t, f)
}

func TestHead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("EmptyCollection", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbHead), testRemote)
		require.Equal(t, wire.KindData, reply.Kind)
		assert.Nil(t, reply.Group)
	})

	t.Run("FirstInserted", func(t *testing.T) {
		first := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("first", 10))
		addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("second", 20))

		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbHead), testRemote)
		require.NotNil(t, reply.Group)
		assert.Equal(t, first, reply.Group.ID)
	})
}

func TestRemoveGreaterAndLower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// alice: 10, 20, 30; bob: 40.
	id10 := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("s10", 10))
	id20 := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("s20", 20))
	id30 := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("s30", 30))
	bobID := addAs(t, f, bobEnv(wire.VerbAdd), validGroup("s40", 40))

	t.Run("GreaterRemovesStrictlyAbove", func(t *testing.T) {
		env := aliceEnv(wire.VerbRemoveGreater)
		env.Group = validGroup("pivot", 20)
		reply := f.d.Dispatch(ctx, env, testRemote)

		require.Equal(t, wire.KindStatus, reply.Kind)
		assert.Equal(t, "removed elements: "+strconv.Itoa(id30), reply.Text)

		assert.True(t, f.coll.Exists(id10))
		assert.True(t, f.coll.Exists(id20), "ties must survive")
		assert.False(t, f.coll.Exists(id30))
		assert.True(t, f.coll.Exists(bobID), "other users' elements must survive")
	})

	t.Run("LowerRemovesStrictlyBelow", func(t *testing.T) {
		env := aliceEnv(wire.VerbRemoveLower)
		env.Group = validGroup("pivot", 20)
		reply := f.d.Dispatch(ctx, env, testRemote)

		assert.Equal(t, "removed elements: "+strconv.Itoa(id10), reply.Text)
		assert.True(t, f.coll.Exists(id20))
	})

	t.Run("NoMatchesReported", func(t *testing.T) {
		env := aliceEnv(wire.VerbRemoveGreater)
		env.Group = validGroup("pivot", 1000)
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusNoneFound, reply.Text)
	})

	requireMirrorMatchesStore(t, f)
}

func TestAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	early := validGroup("early", 10)
	early.Semester = group.SemesterFirst
	late := validGroup("late", 20)
	late.Semester = group.SemesterSeventh

	earlyID := addAs(t, f, aliceEnv(wire.VerbAdd), early)
	addAs(t, f, aliceEnv(wire.VerbAdd), late)

	t.Run("MinBySemester", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbMinBySemester), testRemote)
		require.Equal(t, wire.KindData, reply.Kind)
		require.NotNil(t, reply.Group)
		assert.Equal(t, earlyID, reply.Group.ID)
	})

	t.Run("MaxByGroupAdmin", func(t *testing.T) {
		reply := f.d.Dispatch(ctx, aliceEnv(wire.VerbMaxByGroupAdmin), testRemote)
		require.NotNil(t, reply.Group)
		assert.Equal(t, "admin-late", reply.Group.GroupAdmin.Name)
	})

	t.Run("CountByGroupAdmin", func(t *testing.T) {
		env := aliceEnv(wire.VerbCountByGroupAdmin)
		admin := early.GroupAdmin
		env.Person = &admin
		reply := f.d.Dispatch(ctx, env, testRemote)
		require.NotNil(t, reply.Count)
		assert.Equal(t, 1, *reply.Count)
	})

	t.Run("CountRequiresValidPerson", func(t *testing.T) {
		env := aliceEnv(wire.VerbCountByGroupAdmin)
		env.Person = &group.Person{Name: "", Weight: -1}
		reply := f.d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusInvalidElement, reply.Text)
	})
}

// TestMixedSequenceConsistency runs an interleaved mutation sequence by
// two users and checks the collection stays set-equal to the store
// throughout.
func TestMixedSequenceConsistency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("a", i*10))
		requireMirrorMatchesStore(t, f)
	}
	for i := 1; i <= 3; i++ {
		addAs(t, f, bobEnv(wire.VerbAdd), validGroup("b", i*15))
		requireMirrorMatchesStore(t, f)
	}

	env := aliceEnv(wire.VerbRemoveLower)
	env.Group = validGroup("pivot", 30)
	f.d.Dispatch(ctx, env, testRemote)
	requireMirrorMatchesStore(t, f)

	env = bobEnv(wire.VerbRemoveGreater)
	env.Group = validGroup("pivot", 15)
	f.d.Dispatch(ctx, env, testRemote)
	requireMirrorMatchesStore(t, f)

	f.d.Dispatch(ctx, aliceEnv(wire.VerbClear), testRemote)
	requireMirrorMatchesStore(t, f)

	f.d.Dispatch(ctx, bobEnv(wire.VerbClear), testRemote)
	requireMirrorMatchesStore(t, f)
	assert.Equal(t, 0, f.coll.Size())
}

func TestSyncBundle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := addAs(t, f, aliceEnv(wire.VerbAdd), validGroup("g", 10))

	bundle, err := f.d.SyncBundle(ctx, wire.SyncInit)
	require.NoError(t, err)
	assert.Equal(t, wire.SyncInit, bundle.Mode)
	require.Len(t, bundle.Groups, 1)
	assert.Equal(t, id, bundle.Groups[0].ID)
	assert.Equal(t, map[int]string{id: "alice"}, bundle.Ownership)
}

var _ store.Store = (*memory.MemoryStore)(nil)

var errOutage = errors.New("connection refused")

// outageStore wraps a healthy store and fails selected operations,
// standing in for a database that went away mid-session.
type outageStore struct {
	store.Store
	failRemove bool
	failClear  bool
}

func (s *outageStore) RemoveByID(ctx context.Context, id int, owner string) (bool, error) {
	if s.failRemove {
		return false, errOutage
	}
	return s.Store.RemoveByID(ctx, id, owner)
}

func (s *outageStore) ClearOwnedBy(ctx context.Context, owner string) ([]int, error) {
	if s.failClear {
		return nil, errOutage
	}
	return s.Store.ClearOwnedBy(ctx, owner)
}

// TestStoreFailureReplies drives the mutating verbs through a store
// outage. The reply must be the dedicated storage-failure status, never
// one of the normal outcomes, and neither side loses the record.
func TestStoreFailureReplies(t *testing.T) {
	ctx := context.Background()

	mem := memory.NewMemoryStore()
	require.NoError(t, mem.AddUser(ctx, "alice", "alice-pw"))
	st := &outageStore{Store: mem}

	coll := collection.New()
	d := New(session.NewGate(st), st, group.NewValidator(), coll)

	env := aliceEnv(wire.VerbAdd)
	env.Group = validGroup("survivor", 10)
	require.Equal(t, StatusAdded, d.Dispatch(ctx, env, testRemote).Text)
	id := env.Group.ID

	st.failRemove = true
	st.failClear = true

	t.Run("RemoveByID", func(t *testing.T) {
		env := aliceEnv(wire.VerbRemoveByID)
		env.Argument = strconv.Itoa(id)
		reply := d.Dispatch(ctx, env, testRemote)
		assert.Equal(t, StatusStoreFailure, reply.Text)
	})

	t.Run("Clear", func(t *testing.T) {
		reply := d.Dispatch(ctx, aliceEnv(wire.VerbClear), testRemote)
		assert.Equal(t, StatusStoreFailure, reply.Text)
	})

	// The record survived in both the store and the mirror.
	assert.True(t, coll.Exists(id))
	owners, err := mem.Ownership(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", owners[id])
}
