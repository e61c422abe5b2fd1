package lobby

import (
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonroll/tonroll/internal/dice"
	"github.com/tonroll/tonroll/internal/ledger"
	"github.com/tonroll/tonroll/internal/settlement"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testEnv wires a manager to a real ledger and settler, the way main does.
type testEnv struct {
	ledger  *ledger.Ledger
	manager *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	l := ledger.New()
	s := settlement.New(l, settlement.Rake{Rate: settlement.DefaultFeeRate})
	m := NewManager(l, s, dice.NewSeededDie(1), log)
	return &testEnv{ledger: l, manager: m}
}

// fundedUser creates a user with the given balance.
func (e *testEnv) fundedUser(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := e.ledger.Deposit(id, dec(balance), "")
	require.NoError(t, err)
	return id
}

func TestCreateValidation(t *testing.T) {
	e := newTestEnv(t)
	creator := uuid.New()

	_, err := e.manager.Create(creator, "alice", decimal.Zero, 2, VisibilityPublic, "")
	assert.ErrorIs(t, err, ErrInvalidWager)

	_, err = e.manager.Create(creator, "alice", dec("-1"), 2, VisibilityPublic, "")
	assert.ErrorIs(t, err, ErrInvalidWager)

	_, err = e.manager.Create(creator, "alice", dec("1"), 3, VisibilityPublic, "")
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = e.manager.Create(creator, "alice", dec("1"), 2, VisibilityPrivate, "12ab")
	assert.ErrorIs(t, err, ErrInvalidPin)

	_, err = e.manager.Create(creator, "alice", dec("1"), 2, VisibilityPrivate, "123")
	assert.ErrorIs(t, err, ErrInvalidPin)
}

func TestCreateSeatsCreator(t *testing.T) {
	e := newTestEnv(t)
	creator := uuid.New()

	snap, err := e.manager.Create(creator, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, snap.Status)
	assert.Equal(t, creator, snap.CreatorID)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, creator, snap.Players[0].ID)
	assert.True(t, snap.Players[0].IsReady, "creator is implicitly ready")
	assert.True(t, snap.AutoStart)

	// IDs are assigned monotonically
	snap2, err := e.manager.Create(creator, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)
	assert.Equal(t, snap.ID+1, snap2.ID)
}

// TestAutoStartFlow walks scenario 1: second join starts a ~10s countdown,
// and once the deadline passes the next observation finishes the game and
// settles both balances.
func TestAutoStartFlow(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)

	snap, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCountdown, snap.Status)
	require.NotNil(t, snap.AutoStartAt)
	assert.WithinDuration(t, time.Now().Add(DefaultCountdown), *snap.AutoStartAt, time.Second)

	// nothing advances while the deadline is in the future
	snap, err = e.manager.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCountdown, snap.Status)

	// jump past the deadline; the next read resolves the game
	e.manager.Now = func() time.Time { return time.Now().Add(DefaultCountdown + time.Second) }
	snap, err = e.manager.Get(snap.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusFinished, snap.Status)
	require.NotNil(t, snap.Outcome)
	assert.Contains(t, []uuid.UUID{alice, bob}, snap.Outcome.WinnerID)
	assert.Nil(t, snap.AutoStartAt)

	// pot 2.0, rake 0.1: winner nets +0.9, loser -1.0
	winner, loser := alice, bob
	if snap.Outcome.WinnerID == bob {
		winner, loser = bob, alice
	}
	assert.True(t, e.ledger.Balance(winner).Equal(dec("10.9")), "winner balance %s", e.ledger.Balance(winner))
	assert.True(t, e.ledger.Balance(loser).Equal(dec("9")), "loser balance %s", e.ledger.Balance(loser))

	// each seated player carries their final-round roll
	for _, p := range snap.Players {
		assert.Equal(t, snap.Outcome.FinalRolls[p.ID], p.LastRoll)
	}

	// repeated observation must not settle twice
	_, err = e.manager.Get(snap.ID)
	require.NoError(t, err)
	assert.True(t, e.ledger.Balance(winner).Equal(dec("10.9")))
}

func TestJoinIsIdempotentForSeatedUser(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)

	_, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)

	// lobby is now in countdown; a seated player re-joining still gets the
	// snapshot back instead of a not-open error
	again, err := e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCountdown, again.Status)
	assert.Len(t, again.Players, 2)
}

func TestJoinFullLobbyConflict(t *testing.T) {
	e := newTestEnv(t)
	creator := e.fundedUser(t, "10")

	snap, err := e.manager.Create(creator, "alice", dec("1.0"), 4, VisibilityPublic, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = e.manager.Join(snap.ID, e.fundedUser(t, "10"), "p", "")
		require.NoError(t, err)
	}

	late := e.fundedUser(t, "10")
	_, err = e.manager.Join(snap.ID, late, "late", "")
	assert.ErrorIs(t, err, ErrFull)

	snap, err = e.manager.Get(snap.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 4, "refused join must not mutate players")
}

func TestJoinPrivateLobbyPin(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPrivate, "4321")
	require.NoError(t, err)

	_, err = e.manager.Join(snap.ID, bob, "bob", "0000")
	assert.ErrorIs(t, err, ErrWrongPin)

	snap, err = e.manager.Get(snap.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 1)

	snap, err = e.manager.Join(snap.ID, bob, "bob", "4321")
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)
}

func TestJoinInsufficientFunds(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	poor := e.fundedUser(t, "0.5")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)

	_, err = e.manager.Join(snap.ID, poor, "poor", "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	snap, err = e.manager.Get(snap.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 1, "rejected join must not seat the player")
	assert.True(t, e.ledger.Balance(poor).Equal(dec("0.5")))
}

func TestCreatorCannotLeave(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)

	_, err = e.manager.Leave(snap.ID, alice)
	assert.ErrorIs(t, err, ErrCreatorCannotLeave)

	snap, err = e.manager.Get(snap.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 1)
	assert.Equal(t, StatusOpen, snap.Status)
}

// TestLeaveDuringCountdownResets covers the Countdown -> Open reset: the
// departure clears the deadline and any staged state.
func TestLeaveDuringCountdownResets(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)

	snap, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)
	require.Equal(t, StatusCountdown, snap.Status)

	snap, err = e.manager.Leave(snap.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, snap.Status)
	assert.Nil(t, snap.AutoStartAt)
	assert.Nil(t, snap.Outcome)
	assert.Len(t, snap.Players, 1)

	// no balances moved
	assert.True(t, e.ledger.Balance(alice).Equal(dec("10")))
	assert.True(t, e.ledger.Balance(bob).Equal(dec("10")))
}

func TestSetReadyToggles(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 4, VisibilityPublic, "")
	require.NoError(t, err)

	_, err = e.manager.SetReady(snap.ID, bob)
	assert.ErrorIs(t, err, ErrNotInLobby)

	_, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)

	snap, err = e.manager.SetReady(snap.ID, bob)
	require.NoError(t, err)
	assert.True(t, snap.Players[1].IsReady)

	snap, err = e.manager.SetReady(snap.ID, bob)
	require.NoError(t, err)
	assert.False(t, snap.Players[1].IsReady)

	// the creator is always ready; toggling is a no-op
	snap, err = e.manager.SetReady(snap.ID, alice)
	require.NoError(t, err)
	assert.True(t, snap.Players[0].IsReady)
}

// TestManualStartFlow covers the 4-seat variant: the creator starts once
// enough players are ready, and a seated-but-unready player is neither
// rolled for nor charged.
func TestManualStartFlow(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")
	carol := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("2.0"), 4, VisibilityPublic, "")
	require.NoError(t, err)
	assert.False(t, snap.AutoStart)

	_, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)
	_, err = e.manager.Join(snap.ID, carol, "carol", "")
	require.NoError(t, err)

	// nobody ready besides the creator: not enough to start
	_, err = e.manager.Start(snap.ID, alice)
	assert.ErrorIs(t, err, ErrNotEnoughReady)

	// only the creator may start
	_, err = e.manager.Start(snap.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.manager.SetReady(snap.ID, bob)
	require.NoError(t, err)

	snap, err = e.manager.Start(snap.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, snap.Status)
	require.NotNil(t, snap.Outcome)

	// alice and bob played; carol sat out
	require.Len(t, snap.Outcome.FinalRolls, 2)
	assert.Contains(t, []uuid.UUID{alice, bob}, snap.Outcome.WinnerID)
	assert.True(t, e.ledger.Balance(carol).Equal(dec("10")), "unready player must not be charged")

	// pot 4.0, rake 0.2: winner +1.8, loser -2.0
	winner, loser := alice, bob
	if snap.Outcome.WinnerID == bob {
		winner, loser = bob, alice
	}
	assert.True(t, e.ledger.Balance(winner).Equal(dec("11.8")))
	assert.True(t, e.ledger.Balance(loser).Equal(dec("8")))
}

func TestCancel(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 4, VisibilityPublic, "")
	require.NoError(t, err)
	_, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)

	err = e.manager.Cancel(snap.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, e.manager.Cancel(snap.ID, alice))

	_, err = e.manager.Get(snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// cancel is surfaced as not-found once the lobby is gone
	err = e.manager.Cancel(snap.ID, alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelFinishedLobby(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)
	_, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)

	e.manager.Now = func() time.Time { return time.Now().Add(DefaultCountdown + time.Second) }
	finished, err := e.manager.Get(snap.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFinished, finished.Status)

	err = e.manager.Cancel(snap.ID, alice)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestJoinAfterFinishedRejected(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")
	late := e.fundedUser(t, "10")

	snap, err := e.manager.Create(alice, "alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)
	_, err = e.manager.Join(snap.ID, bob, "bob", "")
	require.NoError(t, err)

	e.manager.Now = func() time.Time { return time.Now().Add(DefaultCountdown + time.Second) }

	_, err = e.manager.Join(snap.ID, late, "late", "")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestListFilter(t *testing.T) {
	e := newTestEnv(t)
	alice := e.fundedUser(t, "10")
	bob := e.fundedUser(t, "10")

	_, err := e.manager.Create(alice, "Alice", dec("1.0"), 2, VisibilityPublic, "")
	require.NoError(t, err)
	_, err = e.manager.Create(bob, "Bob", dec("5.0"), 4, VisibilityPublic, "")
	require.NoError(t, err)

	all := e.manager.List(Filter{})
	require.Len(t, all, 2)
	assert.Less(t, all[0].ID, all[1].ID, "creation order")

	max := dec("2.0")
	cheap := e.manager.List(Filter{MaxWager: &max})
	require.Len(t, cheap, 1)
	assert.True(t, cheap[0].Wager.Equal(dec("1.0")))

	byName := e.manager.List(Filter{Query: "bo"})
	require.Len(t, byName, 1)
	assert.Equal(t, bob, byName[0].CreatorID)

	byCap := e.manager.List(Filter{Capacity: 4})
	require.Len(t, byCap, 1)
	assert.Equal(t, 4, byCap[0].Capacity)
}
