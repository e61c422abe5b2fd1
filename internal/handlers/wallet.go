package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tonroll/tonroll/internal/ledger"
)

type walletState struct {
	Balance decimal.Decimal `json:"balance"`
	History []ledger.Entry  `json:"history"`
}

// WalletState returns the caller's balance and entry history.
func (s *Server) WalletState(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	history := s.Wallet.History(userID)
	if history == nil {
		history = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, walletState{
		Balance: s.Wallet.Balance(userID),
		History: history,
	})
}

// Deposit credits an externally-verified amount. The chain transfer itself
// is someone else's problem; we only record the ref we are handed.
func (s *Server) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		TxHash string          `json:"tx_hash"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "bad deposit payload")
		return
	}

	if _, err := s.Wallet.Deposit(userID, req.Amount, req.TxHash); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletState{
		Balance: s.Wallet.Balance(userID),
		History: s.Wallet.History(userID),
	})
}

// Withdraw debits the caller's balance and records the destination address
// on the entry; the actual transfer happens out of band.
func (s *Server) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount        decimal.Decimal `json:"amount"`
		WalletAddress string          `json:"wallet_address"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "bad withdraw payload")
		return
	}

	if _, err := s.Wallet.Withdraw(userID, req.Amount, req.WalletAddress); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletState{
		Balance: s.Wallet.Balance(userID),
		History: s.Wallet.History(userID),
	})
}
