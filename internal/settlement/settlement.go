// Package settlement applies a finished game's outcome to the ledger,
// exactly once per lobby. The payout formula sits behind the Payout
// interface so the house policy can change without touching the lobby state
// machine.
package settlement

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tonroll/tonroll/internal/game"
	"github.com/tonroll/tonroll/internal/ledger"
)

// DefaultFeeRate is the house rake charged against the pot.
var DefaultFeeRate = decimal.RequireFromString("0.05")

// Payout computes the winner's net profit for a game of n participants at a
// fixed per-player wager. Losers always lose exactly their wager.
type Payout interface {
	WinnerProfit(wager decimal.Decimal, n int) decimal.Decimal
}

// Rake takes a fee from the pot first: profit = wager*n*(1-Rate) - wager.
type Rake struct {
	Rate decimal.Decimal
}

func (r Rake) WinnerProfit(wager decimal.Decimal, n int) decimal.Decimal {
	pot := wager.Mul(decimal.NewFromInt(int64(n)))
	rake := pot.Mul(r.Rate)
	return pot.Sub(rake).Sub(wager)
}

// WinnerTakesAll pays the winner every other stake with no fee:
// profit = wager*(n-1).
type WinnerTakesAll struct{}

func (WinnerTakesAll) WinnerProfit(wager decimal.Decimal, n int) decimal.Decimal {
	return wager.Mul(decimal.NewFromInt(int64(n - 1)))
}

// Settler pushes outcomes into the ledger. The applied set keeps settlement
// idempotent: an outcome is produced exactly once per lobby and is immutable,
// so the lobby ID is a sufficient key.
type Settler struct {
	mu      sync.Mutex
	ledger  *ledger.Ledger
	payout  Payout
	applied map[int64]bool
}

func New(l *ledger.Ledger, payout Payout) *Settler {
	return &Settler{
		ledger:  l,
		payout:  payout,
		applied: make(map[int64]bool),
	}
}

// Apply records one bet_win entry for the winner and one bet_loss entry per
// loser. Re-applying the same lobby is a no-op.
func (s *Settler) Apply(lobbyID int64, wager decimal.Decimal, out *game.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied[lobbyID] {
		return nil
	}

	n := len(out.FinalRolls)
	profit := s.payout.WinnerProfit(wager, n)
	ref := fmt.Sprintf("lobby:%d", lobbyID)

	if _, err := s.ledger.RecordWin(out.WinnerID, profit, ref); err != nil {
		return fmt.Errorf("settle winner %s: %w", out.WinnerID, err)
	}
	for _, id := range out.Participants() {
		if id == out.WinnerID {
			continue
		}
		if _, err := s.ledger.RecordLoss(id, wager, ref); err != nil {
			return fmt.Errorf("settle loser %s: %w", id, err)
		}
	}

	s.applied[lobbyID] = true
	return nil
}
