package prizepool

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"prizepool/core/events"
	"prizepool/core/state"
	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/native/token"
)

// host is the slice of the runtime invocation the engine needs. Tests
// substitute an in-memory implementation.
type host interface {
	ProgramID() crypto.Address
	IsSigner(crypto.Address) bool
	Account(crypto.Address) (*state.Account, bool, error)
	Allocate(seeds [][]byte, space uint64, payer crypto.Address) (crypto.Address, error)
	WriteData(crypto.Address, []byte) error
	InvokeSigned(ix types.Instruction, seeds [][]byte) error
	Emit(events.Event)
}

// Engine implements registration and claiming of game prizes.
type Engine struct {
	admin crypto.Address
}

// NewEngine returns an engine. When admin is non-zero only that key may
// register winners; otherwise any signer may.
func NewEngine(admin crypto.Address) *Engine {
	return &Engine{admin: admin}
}

// Admin returns the designated admin, zero when registration is open.
func (e *Engine) Admin() crypto.Address { return e.admin }

// SetWinners records the winners and awards of a game. The record is
// allocated at its derived address in the same step, so a second
// registration for the same game fails with ErrWinnersAlreadySet.
func (e *Engine) SetWinners(h host, admin crypto.Address, id GameID, winners []crypto.Address, amounts []uint64) error {
	if len(winners) != len(amounts) {
		return fmt.Errorf("%w: %d winners, %d amounts", ErrInvalidInput, len(winners), len(amounts))
	}
	if !h.IsSigner(admin) {
		return fmt.Errorf("%w: admin %s did not sign", ErrUnauthorized, admin)
	}
	if !e.admin.IsZero() && admin != e.admin {
		return fmt.Errorf("%w: %s is not the designated admin", ErrUnauthorized, admin)
	}

	game := &Game{
		GameID:     id,
		Winners:    append([]crypto.Address(nil), winners...),
		Amounts:    append([]uint64(nil), amounts...),
		Claimed:    make([]bool, len(winners)),
		WinnersSet: true,
	}
	if n := game.EncodedLength(); n > RecordSpace {
		return fmt.Errorf("%w: %d bytes, %d allocated", ErrCapacityExceeded, n, RecordSpace)
	}
	total := new(uint256.Int)
	for _, amount := range amounts {
		if _, overflow := total.AddOverflow(total, uint256.NewInt(amount)); overflow {
			return fmt.Errorf("%w: award total overflows", ErrInvalidInput)
		}
	}

	addr, err := GameAddress(id)
	if err != nil {
		return err
	}
	if _, exists, err := h.Account(addr); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: %s", ErrWinnersAlreadySet, id)
	}
	if _, err := h.Allocate(gameSeeds(id), RecordSpace, admin); err != nil {
		if errors.Is(err, state.ErrAccountExists) {
			return fmt.Errorf("%w: %s", ErrWinnersAlreadySet, id)
		}
		return err
	}
	if err := writeGame(h, addr, game); err != nil {
		return err
	}
	h.Emit(winnersSetEvent(game, addr, total))
	return nil
}

// ClaimAccounts lists the accounts a claim operates on.
type ClaimAccounts struct {
	Game        crypto.Address
	Pool        crypto.Address
	Destination crypto.Address
	Claimer     crypto.Address
}

// Claim pays the claimer's award out of the game escrow. The claimed flag is
// written only after the transfer succeeded.
func (e *Engine) Claim(h host, accounts ClaimAccounts, id GameID) error {
	if !h.IsSigner(accounts.Claimer) {
		return fmt.Errorf("%w: claimer %s did not sign", ErrUnauthorized, accounts.Claimer)
	}
	game, err := loadGame(h, accounts.Game)
	if err != nil {
		return err
	}
	if !game.WinnersSet {
		return ErrWinnersNotSet
	}
	if game.GameID != id {
		return fmt.Errorf("%w: record holds %s, got %s", ErrInvalidGameID, game.GameID, id)
	}
	index, ok := game.WinnerIndex(accounts.Claimer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAWinner, accounts.Claimer)
	}
	if game.Claimed[index] {
		return fmt.Errorf("%w: %s", ErrAlreadyClaimed, accounts.Claimer)
	}
	if err := checkDestination(h, accounts.Destination, accounts.Claimer); err != nil {
		return err
	}

	authority, _, err := PoolAuthority(id)
	if err != nil {
		return err
	}
	amount := game.Amounts[index]
	transfer := token.Transfer(accounts.Pool, accounts.Destination, authority, amount)
	if err := h.InvokeSigned(transfer, poolSeeds(id)); err != nil {
		return err
	}

	game.Claimed[index] = true
	if err := writeGame(h, accounts.Game, game); err != nil {
		return err
	}
	h.Emit(claimedEvent(id, accounts.Claimer, accounts.Destination, index, amount))
	return nil
}

func checkDestination(h host, destination, claimer crypto.Address) error {
	account, ok, err := h.Account(destination)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s does not exist", ErrInvalidDestination, destination)
	}
	wallet, err := token.DecodeAccount(account)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	if wallet.Owner != claimer {
		return fmt.Errorf("%w: %s belongs to %s", ErrInvalidDestination, destination, wallet.Owner)
	}
	return nil
}

func loadGame(h host, addr crypto.Address) (*Game, error) {
	account, ok, err := h.Account(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWinnersNotSet
	}
	if account.Owner != h.ProgramID() {
		return nil, fmt.Errorf("%w: %s not owned by prize program", ErrInvalidRecord, addr)
	}
	game := new(Game)
	if err := game.UnmarshalBinary(account.Data); err != nil {
		return nil, err
	}
	return game, nil
}

func writeGame(h host, addr crypto.Address, game *Game) error {
	data, err := game.MarshalBinary()
	if err != nil {
		return err
	}
	if len(data) > RecordSpace {
		return fmt.Errorf("%w: %d bytes, %d allocated", ErrCapacityExceeded, len(data), RecordSpace)
	}
	return h.WriteData(addr, data)
}
