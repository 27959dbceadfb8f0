package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"prizepool/core/state"
	"prizepool/core/types"
	"prizepool/crypto"
)

const (
	Name = "token"

	MethodCreateAccount = "create_account"
	MethodTransfer      = "transfer"
	MethodMintTo        = "mint_to"

	// AccountSpace is the allocation for one wallet.
	AccountSpace = 64
)

// ProgramID identifies the token program on the ledger.
var ProgramID = crypto.LabelAddress("prizepool/program/token")

var walletSeed = []byte("wallet")

var (
	ErrUnknownMethod     = errors.New("token: unknown method")
	ErrInvalidAccounts   = errors.New("token: unexpected account list")
	ErrUnauthorized      = errors.New("token: unauthorized")
	ErrAccountNotFound   = errors.New("token: account not found")
	ErrNotTokenAccount   = errors.New("token: account not owned by token program")
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	ErrOverflow          = errors.New("token: balance overflow")
)

// Account is the payload stored in a wallet.
type Account struct {
	Owner  crypto.Address
	Amount uint64
}

// AmountArgs is the instruction data for transfer and mint_to.
type AmountArgs struct {
	Amount uint64
}

// WalletAddress returns the wallet address of owner.
func WalletAddress(owner crypto.Address) (crypto.Address, error) {
	addr, _, err := crypto.FindProgramAddress([][]byte{walletSeed, owner.Bytes()}, ProgramID)
	return addr, err
}

// DecodeAccount parses a ledger account as a wallet.
func DecodeAccount(account *state.Account) (*Account, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ErrNotTokenAccount, account.Address)
	}
	wallet := new(Account)
	if err := rlp.DecodeBytes(account.Data, wallet); err != nil {
		return nil, fmt.Errorf("token: decode account %s: %w", account.Address, err)
	}
	return wallet, nil
}

// Reader loads ledger accounts.
type Reader interface {
	Account(addr crypto.Address) (*state.Account, bool, error)
}

// Balance returns the wallet address and balance of owner. A missing wallet
// reports a zero balance and exists=false.
func Balance(reader Reader, owner crypto.Address) (crypto.Address, uint64, bool, error) {
	addr, err := WalletAddress(owner)
	if err != nil {
		return crypto.Address{}, 0, false, err
	}
	account, ok, err := reader.Account(addr)
	if err != nil || !ok {
		return addr, 0, false, err
	}
	wallet, err := DecodeAccount(account)
	if err != nil {
		return addr, 0, false, err
	}
	return addr, wallet.Amount, true, nil
}

// CreateAccount builds an instruction allocating the wallet of owner, paid
// for by payer.
func CreateAccount(payer, owner crypto.Address) types.Instruction {
	return types.Instruction{
		Program:  ProgramID,
		Method:   MethodCreateAccount,
		Accounts: []crypto.Address{payer, owner},
	}
}

// Transfer builds an instruction moving amount between two wallets. The
// authority must own the source wallet.
func Transfer(source, destination, authority crypto.Address, amount uint64) types.Instruction {
	return types.Instruction{
		Program:  ProgramID,
		Method:   MethodTransfer,
		Accounts: []crypto.Address{source, destination, authority},
		Data:     mustEncode(AmountArgs{Amount: amount}),
	}
}

// MintTo builds an instruction crediting destination with new supply.
func MintTo(destination, authority crypto.Address, amount uint64) types.Instruction {
	return types.Instruction{
		Program:  ProgramID,
		Method:   MethodMintTo,
		Accounts: []crypto.Address{destination, authority},
		Data:     mustEncode(AmountArgs{Amount: amount}),
	}
}

func mustEncode(v interface{}) []byte {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		panic(fmt.Sprintf("token: encode instruction data: %v", err))
	}
	return data
}

func credit(balance, amount uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(balance), uint256.NewInt(amount))
	if overflow || !sum.IsUint64() {
		return 0, ErrOverflow
	}
	return sum.Uint64(), nil
}
