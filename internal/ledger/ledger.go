// Package ledger owns the financial truth: one account per user with a
// decimal balance and an append-only history of balance-affecting entries.
// Everything is in memory; swapping in durable storage means replacing this
// package behind the same methods.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is the single currency the service accounts in.
const Currency = "TON"

// historyCap bounds how many entries are retained per user, newest first.
const historyCap = 100

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindBetWin   Kind = "bet_win"
	KindBetLoss  Kind = "bet_loss"
)

// Entry is one immutable balance-affecting event. Amount is always a
// positive magnitude; Kind determines the sign of the balance change.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      Kind            `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	// TxRef links the entry to its counterparty: a chain tx hash for
	// deposits/withdrawals, a lobby reference for bet results.
	TxRef string `json:"tx_ref,omitempty"`
}

// account holds one user's balance and history. Its mutex serializes all
// mutations for that user, including settlements from different lobbies.
type account struct {
	mu      sync.Mutex
	balance decimal.Decimal
	entries []Entry
}

// Ledger is the in-memory account store.
type Ledger struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account
}

func New() *Ledger {
	return &Ledger{accounts: make(map[uuid.UUID]*account)}
}

// acct returns the user's account, creating it with a zero balance on first
// touch.
func (l *Ledger) acct(userID uuid.UUID) *account {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[userID]
	if !ok {
		a = &account{balance: decimal.Zero}
		l.accounts[userID] = a
	}
	return a
}

func (a *account) append(e Entry) {
	// newest first, keep the last historyCap
	a.entries = append([]Entry{e}, a.entries...)
	if len(a.entries) > historyCap {
		a.entries = a.entries[:historyCap]
	}
}

func newEntry(userID uuid.UUID, kind Kind, amount decimal.Decimal, txRef string) Entry {
	return Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Currency:  Currency,
		CreatedAt: time.Now(),
		TxRef:     txRef,
	}
}

// Deposit credits an externally-verified amount.
func (l *Ledger) Deposit(userID uuid.UUID, amount decimal.Decimal, txRef string) (Entry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, ErrInvalidAmount
	}
	a := l.acct(userID)
	a.mu.Lock()
	defer a.mu.Unlock()

	a.balance = a.balance.Add(amount)
	e := newEntry(userID, KindDeposit, amount, txRef)
	a.append(e)
	return e, nil
}

// Withdraw debits the user's balance. It fails if the balance would go
// negative; no entry is recorded on failure.
func (l *Ledger) Withdraw(userID uuid.UUID, amount decimal.Decimal, txRef string) (Entry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, ErrInvalidAmount
	}
	a := l.acct(userID)
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.balance.LessThan(amount) {
		return Entry{}, ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(amount)
	e := newEntry(userID, KindWithdraw, amount, txRef)
	a.append(e)
	return e, nil
}

// RecordWin credits a game profit. Settlement already validated the amount,
// so the only rejection is a non-positive magnitude.
func (l *Ledger) RecordWin(userID uuid.UUID, amount decimal.Decimal, txRef string) (Entry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, ErrInvalidAmount
	}
	a := l.acct(userID)
	a.mu.Lock()
	defer a.mu.Unlock()

	a.balance = a.balance.Add(amount)
	e := newEntry(userID, KindBetWin, amount, txRef)
	a.append(e)
	return e, nil
}

// RecordLoss debits a lost stake. Unlike Withdraw it never fails on funds:
// settlement of a finished game must not be blockable, so a user who joined
// two lobbies at once may settle below zero.
func (l *Ledger) RecordLoss(userID uuid.UUID, amount decimal.Decimal, txRef string) (Entry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, ErrInvalidAmount
	}
	a := l.acct(userID)
	a.mu.Lock()
	defer a.mu.Unlock()

	a.balance = a.balance.Sub(amount)
	e := newEntry(userID, KindBetLoss, amount, txRef)
	a.append(e)
	return e, nil
}

// Balance returns the user's current balance. Unknown users have a zero
// balance.
func (l *Ledger) Balance(userID uuid.UUID) decimal.Decimal {
	a := l.acct(userID)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// History returns a copy of the user's entries, newest first.
func (l *Ledger) History(userID uuid.UUID) []Entry {
	a := l.acct(userID)
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}
