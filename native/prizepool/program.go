package prizepool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"prizepool/core/runtime"
	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/native/token"
)

const (
	Name = "prizepool"

	MethodSetWinners = "set_winners"
	MethodClaim      = "claim"
)

// SetWinnersArgs is the instruction data of set_winners.
type SetWinnersArgs struct {
	GameID  GameID
	Winners []crypto.Address
	Amounts []uint64
}

// ClaimArgs is the instruction data of claim.
type ClaimArgs struct {
	GameID GameID
}

// Program adapts the engine to the runtime.
type Program struct {
	engine *Engine
}

// NewProgram hosts engine as a runtime program.
func NewProgram(engine *Engine) *Program {
	if engine == nil {
		engine = NewEngine(crypto.Address{})
	}
	return &Program{engine: engine}
}

func (p *Program) ID() crypto.Address { return ProgramID }

func (p *Program) Name() string { return Name }

// Execute implements runtime.Program.
func (p *Program) Execute(inv *runtime.Invocation, ix types.Instruction) error {
	return p.execute(inv, ix)
}

func (p *Program) execute(h host, ix types.Instruction) error {
	switch ix.Method {
	case MethodSetWinners:
		if len(ix.Accounts) != 1 {
			return ErrInvalidAccounts
		}
		var args SetWinnersArgs
		if err := rlp.DecodeBytes(ix.Data, &args); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return p.engine.SetWinners(h, ix.Accounts[0], args.GameID, args.Winners, args.Amounts)
	case MethodClaim:
		if len(ix.Accounts) != 4 {
			return ErrInvalidAccounts
		}
		var args ClaimArgs
		if err := rlp.DecodeBytes(ix.Data, &args); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return p.engine.Claim(h, ClaimAccounts{
			Game:        ix.Accounts[0],
			Pool:        ix.Accounts[1],
			Destination: ix.Accounts[2],
			Claimer:     ix.Accounts[3],
		}, args.GameID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, ix.Method)
	}
}

// SetWinners builds a registration instruction signed by admin.
func SetWinners(admin crypto.Address, id GameID, winners []crypto.Address, amounts []uint64) (types.Instruction, error) {
	data, err := rlp.EncodeToBytes(SetWinnersArgs{GameID: id, Winners: winners, Amounts: amounts})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		Program:  ProgramID,
		Method:   MethodSetWinners,
		Accounts: []crypto.Address{admin},
		Data:     data,
	}, nil
}

// Claim builds a claim instruction paying into the claimer's own wallet.
func Claim(id GameID, claimer crypto.Address) (types.Instruction, error) {
	destination, err := token.WalletAddress(claimer)
	if err != nil {
		return types.Instruction{}, err
	}
	return ClaimTo(id, claimer, destination)
}

// ClaimTo builds a claim instruction with an explicit destination wallet.
func ClaimTo(id GameID, claimer, destination crypto.Address) (types.Instruction, error) {
	game, err := GameAddress(id)
	if err != nil {
		return types.Instruction{}, err
	}
	pool, err := PoolAccount(id)
	if err != nil {
		return types.Instruction{}, err
	}
	data, err := rlp.EncodeToBytes(ClaimArgs{GameID: id})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		Program:  ProgramID,
		Method:   MethodClaim,
		Accounts: []crypto.Address{game, pool, destination, claimer},
		Data:     data,
	}, nil
}

// FundInstructions builds the instructions that create the game's escrow
// wallet, paid for by payer.
func FundInstructions(id GameID, payer crypto.Address) ([]types.Instruction, error) {
	authority, _, err := PoolAuthority(id)
	if err != nil {
		return nil, err
	}
	return []types.Instruction{token.CreateAccount(payer, authority)}, nil
}
