package prizepool

import (
	"errors"

	"prizepool/core/runtime"
	"prizepool/core/state"
	"prizepool/native/token"
)

var (
	ErrInvalidInput       = errors.New("prizepool: invalid input")
	ErrWinnersAlreadySet  = errors.New("prizepool: winners already set for this game")
	ErrWinnersNotSet      = errors.New("prizepool: winners not set for this game")
	ErrInvalidGameID      = errors.New("prizepool: game id does not match record")
	ErrNotAWinner         = errors.New("prizepool: not a winner")
	ErrAlreadyClaimed     = errors.New("prizepool: prize already claimed")
	ErrCapacityExceeded   = errors.New("prizepool: record exceeds allocated space")
	ErrUnauthorized       = errors.New("prizepool: unauthorized")
	ErrInvalidDestination = errors.New("prizepool: destination not owned by claimer")
	ErrInvalidAccounts    = errors.New("prizepool: unexpected account list")
	ErrUnknownMethod      = errors.New("prizepool: unknown method")
)

var codes = []struct {
	err  error
	name string
}{
	{ErrInvalidInput, "InvalidInput"},
	{ErrWinnersAlreadySet, "WinnersAlreadySet"},
	{ErrWinnersNotSet, "WinnersNotSet"},
	{ErrInvalidGameID, "InvalidGameId"},
	{ErrNotAWinner, "NotAWinner"},
	{ErrAlreadyClaimed, "AlreadyClaimed"},
	{ErrCapacityExceeded, "CapacityExceeded"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidDestination, "InvalidDestination"},
	{ErrInvalidAccounts, "InvalidAccounts"},
	{ErrUnknownMethod, "UnknownMethod"},
	{ErrInvalidRecord, "InvalidRecord"},
	{token.ErrInsufficientFunds, "InsufficientFunds"},
	{token.ErrUnauthorized, "Unauthorized"},
	{token.ErrAccountNotFound, "AccountNotFound"},
	{token.ErrNotTokenAccount, "InvalidTokenAccount"},
	{token.ErrOverflow, "Overflow"},
	{token.ErrInvalidAccounts, "InvalidAccounts"},
	{token.ErrUnknownMethod, "UnknownMethod"},
	{runtime.ErrAlreadyProcessed, "AlreadyProcessed"},
	{runtime.ErrMissingSigner, "MissingSigner"},
	{runtime.ErrUnknownProgram, "UnknownProgram"},
	{state.ErrSpaceTooLarge, "CapacityExceeded"},
}

// Code maps an error returned while executing a prize transaction to its
// stable name. Unrecognised errors map to the empty string.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return ""
}
