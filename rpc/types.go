package rpc

import (
	"prizepool/core/events"
	"prizepool/crypto"
	"prizepool/native/prizepool"
)

// GameParams selects a game by id.
type GameParams struct {
	GameID prizepool.GameID `json:"gameId"`
}

// BalanceParams selects a wallet by owner.
type BalanceParams struct {
	Owner crypto.Address `json:"owner"`
}

// EventsParams pages through the committed event log.
type EventsParams struct {
	After uint64 `json:"after"`
	Type  string `json:"type,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type WinnerView struct {
	Address crypto.Address `json:"address"`
	Amount  uint64         `json:"amount"`
	Claimed bool           `json:"claimed"`
}

type GameResult struct {
	GameID        prizepool.GameID `json:"gameId"`
	Record        crypto.Address   `json:"record"`
	WinnersSet    bool             `json:"winnersSet"`
	Winners       []WinnerView     `json:"winners"`
	PoolAuthority crypto.Address   `json:"poolAuthority"`
	PoolAccount   crypto.Address   `json:"poolAccount"`
	PoolBalance   uint64           `json:"poolBalance"`
}

type BalanceResult struct {
	Owner   crypto.Address `json:"owner"`
	Wallet  crypto.Address `json:"wallet"`
	Exists  bool           `json:"exists"`
	Balance uint64         `json:"balance"`
}

type PoolAuthorityResult struct {
	GameID      prizepool.GameID `json:"gameId"`
	Authority   crypto.Address   `json:"authority"`
	Bump        uint8            `json:"bump"`
	PoolAccount crypto.Address   `json:"poolAccount"`
	Record      crypto.Address   `json:"record"`
}

type StatusResult struct {
	Height uint64 `json:"height"`
	Root   string `json:"root"`
	// Admin is empty when any signer may register winners.
	Admin string `json:"admin,omitempty"`
}

type EventsResult struct {
	Events []events.Record `json:"events"`
}
