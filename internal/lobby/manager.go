package lobby

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tonroll/tonroll/internal/dice"
	"github.com/tonroll/tonroll/internal/game"
)

// BalanceSource answers whether a user can cover a wager. Satisfied by
// *ledger.Ledger.
type BalanceSource interface {
	Balance(userID uuid.UUID) decimal.Decimal
}

// Settler applies a finished outcome to user balances, exactly once per
// lobby. Satisfied by *settlement.Settler.
type Settler interface {
	Apply(lobbyID int64, wager decimal.Decimal, out *game.Outcome) error
}

// Manager coordinates the registry, the ledger, the die, and settlement.
// Time-driven transitions are evaluated lazily: a countdown lobby advances
// whenever it is next observed (get, list, join, or a websocket tick), never
// from a background timer, so resolution cannot double-fire.
type Manager struct {
	registry *Registry
	funds    BalanceSource
	settler  Settler
	roller   dice.Roller
	log      *logrus.Logger

	// Countdown and Now are set by NewManager and only overridden in tests.
	Countdown time.Duration
	Now       func() time.Time
}

func NewManager(funds BalanceSource, settler Settler, roller dice.Roller, log *logrus.Logger) *Manager {
	return &Manager{
		registry:  NewRegistry(),
		funds:     funds,
		settler:   settler,
		roller:    roller,
		log:       log,
		Countdown: DefaultCountdown,
		Now:       time.Now,
	}
}

// Create validates the parameters, seats the creator as the first player,
// and registers the lobby as Open. Two-seat lobbies auto-start on fill;
// four-seat lobbies wait for the creator's manual start.
func (m *Manager) Create(creatorID uuid.UUID, displayName string, wager decimal.Decimal, capacity int, visibility Visibility, pin string) (Snapshot, error) {
	if wager.LessThanOrEqual(decimal.Zero) {
		return Snapshot{}, ErrInvalidWager
	}
	if capacity != 2 && capacity != 4 {
		return Snapshot{}, ErrInvalidCapacity
	}
	switch visibility {
	case VisibilityPublic:
		pin = ""
	case VisibilityPrivate:
		if !validPin(pin) {
			return Snapshot{}, ErrInvalidPin
		}
	default:
		return Snapshot{}, fmt.Errorf("%w: unknown visibility %q", ErrInvalidPin, visibility)
	}
	if displayName == "" {
		displayName = "Player"
	}

	l := &Lobby{
		Status:     StatusOpen,
		CreatorID:  creatorID,
		Capacity:   capacity,
		Wager:      wager,
		Visibility: visibility,
		pin:        pin,
		AutoStart:  capacity == 2,
		CreatedAt:  m.Now(),
	}
	// the creator is always a seated player and counts as ready
	creator := l.seatLocked(creatorID, displayName)
	creator.IsReady = true

	m.registry.add(l)

	m.log.WithFields(logrus.Fields{
		"lobby":    l.ID,
		"creator":  creatorID,
		"wager":    wager,
		"capacity": capacity,
	}).Info("lobby created")

	return l.snapshotLocked(), nil
}

// Get returns a lobby snapshot, advancing any due countdown first.
func (m *Manager) Get(id int64) (Snapshot, error) {
	l, ok := m.registry.get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := m.advanceLocked(l); err != nil {
		return Snapshot{}, err
	}
	return l.snapshotLocked(), nil
}

// List returns snapshots of every lobby passing the filter, in creation
// order. Listing is an observation, so due countdowns advance here too.
func (m *Manager) List(f Filter) []Snapshot {
	var out []Snapshot
	for _, l := range m.registry.all() {
		l.mu.Lock()
		if err := m.advanceLocked(l); err != nil {
			m.log.WithError(err).WithField("lobby", l.ID).Error("advance during list failed")
		}
		if l.matchesLocked(f) {
			out = append(out, l.snapshotLocked())
		}
		l.mu.Unlock()
	}
	return out
}

// Join seats a user. Already-seated users get the current snapshot back (an
// idempotent no-op). The join that fills an auto-start lobby stamps the
// countdown deadline. Nothing is mutated on any refusal.
func (m *Manager) Join(id int64, userID uuid.UUID, displayName, pin string) (Snapshot, error) {
	l, ok := m.registry.get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := m.advanceLocked(l); err != nil {
		return Snapshot{}, err
	}

	if l.playerLocked(userID) != nil {
		return l.snapshotLocked(), nil
	}
	if l.Status != StatusOpen {
		return Snapshot{}, ErrNotOpen
	}
	if len(l.Players) == l.Capacity {
		return Snapshot{}, ErrFull
	}
	if l.Visibility == VisibilityPrivate && pin != l.pin {
		return Snapshot{}, ErrWrongPin
	}
	if m.funds.Balance(userID).LessThan(l.Wager) {
		return Snapshot{}, ErrInsufficientFunds
	}
	if displayName == "" {
		displayName = "Player"
	}

	l.seatLocked(userID, displayName)

	if l.AutoStart && len(l.Players) == l.Capacity {
		at := m.Now().Add(m.Countdown)
		l.Status = StatusCountdown
		l.AutoStartAt = &at
		m.log.WithFields(logrus.Fields{
			"lobby":         l.ID,
			"auto_start_at": at,
		}).Info("lobby filled, countdown started")
	}

	return l.snapshotLocked(), nil
}

// Leave removes a non-creator player. Leaving a staging lobby resets it to
// Open; leaving a finished lobby just vacates the seat, and an emptied
// terminal lobby is dropped from the registry.
func (m *Manager) Leave(id int64, userID uuid.UUID) (Snapshot, error) {
	l, ok := m.registry.get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := m.advanceLocked(l); err != nil {
		return Snapshot{}, err
	}

	if l.playerLocked(userID) == nil {
		return Snapshot{}, ErrNotInLobby
	}
	if userID == l.CreatorID {
		return Snapshot{}, ErrCreatorCannotLeave
	}

	l.unseatLocked(userID)

	switch l.Status {
	case StatusFinished, StatusCancelled:
		if len(l.Players) == 0 {
			m.registry.remove(l.ID)
		}
	default:
		l.resetLocked()
	}

	m.log.WithFields(logrus.Fields{"lobby": l.ID, "user": userID}).Info("player left lobby")
	return l.snapshotLocked(), nil
}

// SetReady toggles a player's ready flag. The creator is always ready, so
// for them this is a no-op. Only meaningful while the lobby is Open.
func (m *Manager) SetReady(id int64, userID uuid.UUID) (Snapshot, error) {
	l, ok := m.registry.get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := m.advanceLocked(l); err != nil {
		return Snapshot{}, err
	}

	p := l.playerLocked(userID)
	if p == nil {
		return Snapshot{}, ErrNotInLobby
	}
	if userID == l.CreatorID {
		return l.snapshotLocked(), nil
	}
	if l.Status != StatusOpen {
		return Snapshot{}, ErrNotOpen
	}

	p.IsReady = !p.IsReady
	return l.snapshotLocked(), nil
}

// Start lets the creator trigger resolution. At least two eligible
// participants are required: every seated player in the auto variant, the
// creator plus ready players in the manual variant.
func (m *Manager) Start(id int64, userID uuid.UUID) (Snapshot, error) {
	l, ok := m.registry.get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := m.advanceLocked(l); err != nil {
		return Snapshot{}, err
	}

	if userID != l.CreatorID {
		return Snapshot{}, ErrForbidden
	}
	if l.Status != StatusOpen && l.Status != StatusCountdown {
		return Snapshot{}, ErrNotOpen
	}

	eligible := l.eligibleLocked()
	if len(eligible) < 2 {
		return Snapshot{}, ErrNotEnoughReady
	}

	if err := m.resolveLocked(l, eligible); err != nil {
		return Snapshot{}, err
	}
	return l.snapshotLocked(), nil
}

// Cancel removes the lobby entirely. Creator only; a finished game cannot
// be cancelled.
func (m *Manager) Cancel(id int64, userID uuid.UUID) error {
	l, ok := m.registry.get(id)
	if !ok {
		return ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := m.advanceLocked(l); err != nil {
		return err
	}

	if userID != l.CreatorID {
		return ErrForbidden
	}
	if l.Status == StatusFinished {
		return ErrNotCancellable
	}

	l.Status = StatusCancelled
	m.registry.remove(l.ID)
	m.log.WithFields(logrus.Fields{"lobby": l.ID}).Info("lobby cancelled")
	return nil
}

// advanceLocked fires the lazy Countdown -> Resolving transition when the
// deadline has passed and the lobby still holds its full complement.
func (m *Manager) advanceLocked(l *Lobby) error {
	if l.Status != StatusCountdown || l.AutoStartAt == nil {
		return nil
	}
	if m.Now().Before(*l.AutoStartAt) {
		return nil
	}
	if len(l.Players) != l.Capacity {
		return nil
	}
	return m.resolveLocked(l, l.eligibleLocked())
}

// resolveLocked runs the resolution protocol and settles the result as one
// transaction: either the lobby ends Finished with an outcome and ledger
// entries for every participant, or the lobby is left as it was.
func (m *Manager) resolveLocked(l *Lobby, contenders []game.Contender) error {
	prev := l.Status
	prevAt := l.AutoStartAt
	l.Status = StatusResolving
	l.AutoStartAt = nil

	out, err := game.Resolve(contenders, m.roller)
	if err != nil {
		l.Status = prev
		l.AutoStartAt = prevAt
		m.log.WithError(err).WithField("lobby", l.ID).Error("resolution failed")
		return fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	if err := m.settler.Apply(l.ID, l.Wager, out); err != nil {
		l.Status = prev
		l.AutoStartAt = prevAt
		m.log.WithError(err).WithField("lobby", l.ID).Error("settlement failed")
		return fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	for _, p := range l.Players {
		if roll, ok := out.FinalRolls[p.ID]; ok {
			p.LastRoll = roll
		}
	}
	l.Outcome = out
	l.Status = StatusFinished

	m.log.WithFields(logrus.Fields{
		"lobby":  l.ID,
		"winner": out.WinnerID,
		"roll":   out.WinningRoll,
		"rounds": len(out.Rounds),
	}).Info("game finished")
	return nil
}
