package lobby

import "errors"

// Sentinel errors for every way a lobby operation can be refused. Handlers
// map these onto the HTTP error taxonomy.
var (
	ErrNotFound           = errors.New("lobby not found")
	ErrNotOpen            = errors.New("lobby is not open")
	ErrFull               = errors.New("lobby is full")
	ErrWrongPin           = errors.New("wrong PIN")
	ErrInvalidWager       = errors.New("wager must be positive")
	ErrInvalidCapacity    = errors.New("capacity must be 2 or 4")
	ErrInvalidPin         = errors.New("private lobbies need a 4-digit PIN")
	ErrNotInLobby         = errors.New("user is not seated in this lobby")
	ErrForbidden          = errors.New("only the lobby creator may do this")
	ErrCreatorCannotLeave = errors.New("creator cannot leave, cancel the lobby instead")
	ErrNotEnoughReady     = errors.New("need at least 2 ready players to start")
	ErrNotCancellable     = errors.New("lobby has already finished")
	ErrInsufficientFunds  = errors.New("balance is below the lobby wager")
	ErrResolutionFailed   = errors.New("game resolution failed")
)
