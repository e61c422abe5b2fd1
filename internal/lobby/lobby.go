// Package lobby holds the matchmaking core: the Lobby aggregate, its state
// machine, the in-memory registry, and the manager that drives game
// resolution and settlement. Each lobby is its own unit of mutual exclusion;
// every read-modify-write on one lobby happens under its mutex, including
// the synchronous resolution-plus-settlement step, so no partial state is
// ever observable.
package lobby

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tonroll/tonroll/internal/game"
)

// Status is the lobby lifecycle state. Transitions are one-directional
// except Countdown -> Open when a player leaves mid-countdown; Finished and
// Cancelled are terminal.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCountdown Status = "countdown"
	StatusResolving Status = "resolving"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Visibility controls who may join.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// DefaultCountdown is how long a filled auto-start lobby waits before the
// dice roll.
const DefaultCountdown = 10 * time.Second

// Player is one seated user. LastRoll is the final-round roll once the game
// has finished.
type Player struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	IsReady     bool      `json:"is_ready"`
	LastRoll    int       `json:"last_roll,omitempty"`
}

// Lobby is the aggregate root. All fields are guarded by mu; callers go
// through the Manager, which locks per operation.
type Lobby struct {
	mu sync.Mutex

	ID         int64
	Status     Status
	CreatorID  uuid.UUID
	Players    []*Player
	Capacity   int
	Wager      decimal.Decimal
	Visibility Visibility
	pin        string

	// AutoStart marks the fixed-size variant: the lobby counts down and
	// resolves on its own once it fills. The alternative is the
	// manual-ready variant where the creator triggers the start.
	AutoStart   bool
	AutoStartAt *time.Time

	Outcome   *game.Outcome
	CreatedAt time.Time
}

// Snapshot is the serializable view of a lobby handed out to clients. The
// PIN is never included.
type Snapshot struct {
	ID          int64           `json:"id"`
	Status      Status          `json:"status"`
	CreatorID   uuid.UUID       `json:"creator_id"`
	Players     []Player        `json:"players"`
	Capacity    int             `json:"capacity"`
	Wager       decimal.Decimal `json:"wager"`
	Visibility  Visibility      `json:"visibility"`
	AutoStart   bool            `json:"auto_start"`
	AutoStartAt *time.Time      `json:"auto_start_at,omitempty"`
	Outcome     *game.Outcome   `json:"outcome,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// playerLocked returns the seated player with the given ID, or nil.
func (l *Lobby) playerLocked(userID uuid.UUID) *Player {
	for _, p := range l.Players {
		if p.ID == userID {
			return p
		}
	}
	return nil
}

// seatLocked appends a player. Capacity must already have been checked.
func (l *Lobby) seatLocked(userID uuid.UUID, displayName string) *Player {
	p := &Player{ID: userID, DisplayName: displayName}
	l.Players = append(l.Players, p)
	return p
}

// unseatLocked removes a player, preserving seat order.
func (l *Lobby) unseatLocked(userID uuid.UUID) {
	for i, p := range l.Players {
		if p.ID == userID {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			return
		}
	}
}

// resetLocked reverts an in-flight match back to Open: a departure during
// the countdown invalidates the fairness of a fixed-size match, so the whole
// staging state is cleared rather than renegotiated.
func (l *Lobby) resetLocked() {
	l.Status = StatusOpen
	l.AutoStartAt = nil
	l.Outcome = nil
	for _, p := range l.Players {
		p.LastRoll = 0
		if p.ID != l.CreatorID {
			p.IsReady = false
		}
	}
}

// eligibleLocked is the set of participants a start would roll for. In the
// auto-start variant every seated player plays; in the manual variant the
// creator (implicitly ready) plus every ready player plays.
func (l *Lobby) eligibleLocked() []game.Contender {
	var cs []game.Contender
	for _, p := range l.Players {
		if l.AutoStart || p.IsReady || p.ID == l.CreatorID {
			cs = append(cs, game.Contender{ID: p.ID, DisplayName: p.DisplayName})
		}
	}
	return cs
}

// matchesLocked reports whether the lobby passes the list filter.
func (l *Lobby) matchesLocked(f Filter) bool {
	if f.Capacity != 0 && l.Capacity != f.Capacity {
		return false
	}
	if f.MaxWager != nil && l.Wager.GreaterThan(*f.MaxWager) {
		return false
	}
	if f.Query != "" && !l.anyNameContainsLocked(f.Query) {
		return false
	}
	return true
}

// snapshotLocked copies the lobby into a Snapshot. Outcome is shared by
// pointer: it is immutable once set.
func (l *Lobby) snapshotLocked() Snapshot {
	players := make([]Player, len(l.Players))
	for i, p := range l.Players {
		players[i] = *p
	}
	var autoStartAt *time.Time
	if l.AutoStartAt != nil {
		at := *l.AutoStartAt
		autoStartAt = &at
	}
	return Snapshot{
		ID:          l.ID,
		Status:      l.Status,
		CreatorID:   l.CreatorID,
		Players:     players,
		Capacity:    l.Capacity,
		Wager:       l.Wager,
		Visibility:  l.Visibility,
		AutoStart:   l.AutoStart,
		AutoStartAt: autoStartAt,
		Outcome:     l.Outcome,
		CreatedAt:   l.CreatedAt,
	}
}

func validPin(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
