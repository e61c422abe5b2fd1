// Package game implements the dice resolution protocol: every contender
// rolls, the highest roll wins, and ties reroll among the tied players only,
// round after round, until a single winner remains.
package game

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tonroll/tonroll/internal/dice"
)

// maxRounds caps the reroll loop. With a uniform die the chance of reaching
// it is astronomically small; hitting the cap means the Roller is broken.
const maxRounds = 128

var (
	ErrNotEnoughContenders = errors.New("need at least 2 contenders")
	ErrRollOutOfRange      = errors.New("die produced a roll outside the valid range")
	ErrNoWinner            = errors.New("resolution did not converge to a winner")
)

// Contender identifies one participant in a resolution.
type Contender struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

// Roll is one contender's roll within a round.
type Roll struct {
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Face        int       `json:"face"`
}

// RoundSnapshot records every contender's roll for one iteration, so the
// reroll sequence can be replayed in the UI or audited afterwards.
type RoundSnapshot struct {
	Round int    `json:"round"`
	Rolls []Roll `json:"rolls"`
}

// Outcome is the immutable result of a resolution. FinalRolls holds, for
// every original participant, the roll from the last round in which they were
// still a contender.
type Outcome struct {
	WinnerID    uuid.UUID         `json:"winner_id"`
	WinningRoll int               `json:"winning_roll"`
	FinalRolls  map[uuid.UUID]int `json:"final_rolls"`
	Rounds      []RoundSnapshot   `json:"rounds"`
}

// Participants returns the IDs of everyone who took part, in no particular
// order.
func (o *Outcome) Participants() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.FinalRolls))
	for id := range o.FinalRolls {
		ids = append(ids, id)
	}
	return ids
}

// Resolve runs the protocol over the given contenders with the given die.
// It returns an error only when the caller supplied fewer than two
// contenders or a Roller that violates its contract.
func Resolve(contenders []Contender, roller dice.Roller) (*Outcome, error) {
	if len(contenders) < 2 {
		return nil, ErrNotEnoughContenders
	}

	out := &Outcome{FinalRolls: make(map[uuid.UUID]int, len(contenders))}

	remaining := make([]Contender, len(contenders))
	copy(remaining, contenders)

	for round := 1; round <= maxRounds; round++ {
		snapshot := RoundSnapshot{Round: round, Rolls: make([]Roll, 0, len(remaining))}

		highest := 0
		for _, c := range remaining {
			face := roller.Roll()
			if face < 1 || face > dice.Faces {
				return nil, fmt.Errorf("%w: got %d in round %d", ErrRollOutOfRange, face, round)
			}
			snapshot.Rolls = append(snapshot.Rolls, Roll{PlayerID: c.ID, DisplayName: c.DisplayName, Face: face})
			// a contender's final roll is from the last round they contended
			out.FinalRolls[c.ID] = face
			if face > highest {
				highest = face
			}
		}
		out.Rounds = append(out.Rounds, snapshot)

		var top []Contender
		for _, r := range snapshot.Rolls {
			if r.Face == highest {
				top = append(top, Contender{ID: r.PlayerID, DisplayName: r.DisplayName})
			}
		}

		if len(top) == 1 {
			out.WinnerID = top[0].ID
			out.WinningRoll = highest
			return out, nil
		}
		remaining = top
	}

	return nil, fmt.Errorf("%w after %d rounds", ErrNoWinner, maxRounds)
}
