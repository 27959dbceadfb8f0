package token

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"

	"prizepool/core/events"
	"prizepool/core/runtime"
	"prizepool/core/state"
	"prizepool/core/types"
	"prizepool/crypto"
)

const (
	EventTypeTransfer = "token.transfer"
	EventTypeMinted   = "token.minted"
)

// host is the slice of the runtime invocation the token program uses.
type host interface {
	IsSigner(crypto.Address) bool
	Account(crypto.Address) (*state.Account, bool, error)
	Allocate(seeds [][]byte, space uint64, payer crypto.Address) (crypto.Address, error)
	WriteData(crypto.Address, []byte) error
	Emit(events.Event)
}

// Program implements the single-token ledger.
type Program struct {
	mintAuthority crypto.Address
}

// New returns a token program whose supply can only be minted by
// mintAuthority.
func New(mintAuthority crypto.Address) *Program {
	return &Program{mintAuthority: mintAuthority}
}

func (p *Program) ID() crypto.Address { return ProgramID }

func (p *Program) Name() string { return Name }

// Execute implements runtime.Program.
func (p *Program) Execute(inv *runtime.Invocation, ix types.Instruction) error {
	return p.execute(inv, ix)
}

func (p *Program) execute(h host, ix types.Instruction) error {
	switch ix.Method {
	case MethodCreateAccount:
		if len(ix.Accounts) != 2 {
			return ErrInvalidAccounts
		}
		return p.createAccount(h, ix.Accounts[0], ix.Accounts[1])
	case MethodTransfer:
		if len(ix.Accounts) != 3 {
			return ErrInvalidAccounts
		}
		args, err := decodeAmount(ix.Data)
		if err != nil {
			return err
		}
		return p.transfer(h, ix.Accounts[0], ix.Accounts[1], ix.Accounts[2], args.Amount)
	case MethodMintTo:
		if len(ix.Accounts) != 2 {
			return ErrInvalidAccounts
		}
		args, err := decodeAmount(ix.Data)
		if err != nil {
			return err
		}
		return p.mintTo(h, ix.Accounts[0], ix.Accounts[1], args.Amount)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, ix.Method)
	}
}

func decodeAmount(data []byte) (AmountArgs, error) {
	var args AmountArgs
	if err := rlp.DecodeBytes(data, &args); err != nil {
		return AmountArgs{}, fmt.Errorf("token: decode arguments: %w", err)
	}
	return args, nil
}

func (p *Program) createAccount(h host, payer, owner crypto.Address) error {
	addr, err := h.Allocate([][]byte{walletSeed, owner.Bytes()}, AccountSpace, payer)
	if err != nil {
		return err
	}
	return store(h, addr, &Account{Owner: owner})
}

func (p *Program) transfer(h host, source, destination, authority crypto.Address, amount uint64) error {
	if !h.IsSigner(authority) {
		return fmt.Errorf("%w: authority %s did not sign", ErrUnauthorized, authority)
	}
	from, err := load(h, source)
	if err != nil {
		return err
	}
	if from.Owner != authority {
		return fmt.Errorf("%w: %s does not own %s", ErrUnauthorized, authority, source)
	}
	to, err := load(h, destination)
	if err != nil {
		return err
	}
	if amount == 0 || source == destination {
		return nil
	}
	if from.Amount < amount {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, from.Amount, amount)
	}
	next, err := credit(to.Amount, amount)
	if err != nil {
		return err
	}
	from.Amount -= amount
	to.Amount = next
	if err := store(h, source, from); err != nil {
		return err
	}
	if err := store(h, destination, to); err != nil {
		return err
	}
	h.Emit(events.Static{Payload: &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"from":   source.String(),
			"to":     destination.String(),
			"amount": strconv.FormatUint(amount, 10),
		},
	}})
	return nil
}

func (p *Program) mintTo(h host, destination, authority crypto.Address, amount uint64) error {
	if authority != p.mintAuthority || !h.IsSigner(authority) {
		return fmt.Errorf("%w: %s is not the mint authority", ErrUnauthorized, authority)
	}
	to, err := load(h, destination)
	if err != nil {
		return err
	}
	next, err := credit(to.Amount, amount)
	if err != nil {
		return err
	}
	to.Amount = next
	if err := store(h, destination, to); err != nil {
		return err
	}
	h.Emit(events.Static{Payload: &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"to":     destination.String(),
			"amount": strconv.FormatUint(amount, 10),
		},
	}})
	return nil
}

func load(h host, addr crypto.Address) (*Account, error) {
	account, ok, err := h.Account(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return DecodeAccount(account)
}

func store(h host, addr crypto.Address, wallet *Account) error {
	data, err := rlp.EncodeToBytes(wallet)
	if err != nil {
		return err
	}
	return h.WriteData(addr, data)
}
