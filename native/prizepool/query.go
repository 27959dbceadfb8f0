package prizepool

import (
	"fmt"

	"prizepool/crypto"
	"prizepool/native/token"
)

// View is the read-side summary of a game.
type View struct {
	Game          *Game
	Record        crypto.Address
	PoolAuthority crypto.Address
	PoolBump      uint8
	PoolAccount   crypto.Address
	PoolBalance   uint64
	PoolExists    bool
}

// LoadView reads the committed record and escrow of a game. A game without a
// record returns ErrWinnersNotSet.
func LoadView(reader token.Reader, id GameID) (*View, error) {
	record, err := GameAddress(id)
	if err != nil {
		return nil, err
	}
	authority, bump, err := PoolAuthority(id)
	if err != nil {
		return nil, err
	}
	view := &View{Record: record, PoolAuthority: authority, PoolBump: bump}
	view.PoolAccount, view.PoolBalance, view.PoolExists, err = token.Balance(reader, authority)
	if err != nil {
		return nil, err
	}

	account, ok, err := reader.Account(record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return view, ErrWinnersNotSet
	}
	if account.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s not owned by prize program", ErrInvalidRecord, record)
	}
	game := new(Game)
	if err := game.UnmarshalBinary(account.Data); err != nil {
		return nil, err
	}
	view.Game = game
	return view, nil
}
