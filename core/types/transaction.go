package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"prizepool/crypto"
)

// txDomain separates transaction digests from any other keccak preimage.
const txDomain = "prizepool/tx/v1"

var (
	ErrNoInstructions    = errors.New("tx: at least one instruction required")
	ErrNoSigners         = errors.New("tx: at least one signer required")
	ErrDuplicateSigner   = errors.New("tx: duplicate signer")
	ErrSignatureMismatch = errors.New("tx: signature does not match signer")
	ErrMissingSignature  = errors.New("tx: missing signature")
	ErrNotASigner        = errors.New("tx: key is not a declared signer")
)

// Instruction addresses one program method together with the accounts it
// operates on. Data carries the rlp-encoded arguments.
type Instruction struct {
	Program  crypto.Address   `json:"program"`
	Method   string           `json:"method"`
	Accounts []crypto.Address `json:"accounts"`
	Data     hexutil.Bytes    `json:"data"`
}

// Transaction bundles instructions that commit or abort together. Every
// declared signer must provide a signature over Hash.
type Transaction struct {
	Nonce        uint64           `json:"nonce"`
	Instructions []Instruction    `json:"instructions"`
	Signers      []crypto.Address `json:"signers"`
	Signatures   []hexutil.Bytes  `json:"signatures"`
}

type hashedInstruction struct {
	Program  crypto.Address
	Method   string
	Accounts []crypto.Address
	Data     []byte
}

type hashedTransaction struct {
	Domain       string
	Nonce        uint64
	Instructions []hashedInstruction
	Signers      []crypto.Address
}

// NewTransaction declares the signer set up front because it is part of the
// signed digest.
func NewTransaction(nonce uint64, signers []crypto.Address, instructions ...Instruction) *Transaction {
	return &Transaction{
		Nonce:        nonce,
		Instructions: append([]Instruction(nil), instructions...),
		Signers:      append([]crypto.Address(nil), signers...),
		Signatures:   make([]hexutil.Bytes, len(signers)),
	}
}

// Hash returns the digest every signer signs.
func (tx *Transaction) Hash() (common.Hash, error) {
	payload := hashedTransaction{
		Domain:       txDomain,
		Nonce:        tx.Nonce,
		Instructions: make([]hashedInstruction, 0, len(tx.Instructions)),
		Signers:      tx.Signers,
	}
	for _, ix := range tx.Instructions {
		payload.Instructions = append(payload.Instructions, hashedInstruction{
			Program:  ix.Program,
			Method:   ix.Method,
			Accounts: ix.Accounts,
			Data:     ix.Data,
		})
	}
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return common.Hash{}, err
	}
	return ethcrypto.Keccak256Hash(encoded), nil
}

// Sign attaches key's signature at the slot of its declared signer.
func (tx *Transaction) Sign(key *crypto.PrivateKey) error {
	addr := key.PubKey().Address()
	slot := -1
	for i, signer := range tx.Signers {
		if signer == addr {
			slot = i
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("%w: %s", ErrNotASigner, addr)
	}
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := key.Sign(hash.Bytes())
	if err != nil {
		return err
	}
	if len(tx.Signatures) != len(tx.Signers) {
		resized := make([]hexutil.Bytes, len(tx.Signers))
		copy(resized, tx.Signatures)
		tx.Signatures = resized
	}
	tx.Signatures[slot] = sig
	return nil
}

// Verify checks the structure of the transaction and every signature. It
// returns the transaction hash on success.
func (tx *Transaction) Verify() (common.Hash, error) {
	if len(tx.Instructions) == 0 {
		return common.Hash{}, ErrNoInstructions
	}
	if len(tx.Signers) == 0 {
		return common.Hash{}, ErrNoSigners
	}
	if len(tx.Signatures) != len(tx.Signers) {
		return common.Hash{}, fmt.Errorf("%w: %d signers, %d signatures", ErrMissingSignature, len(tx.Signers), len(tx.Signatures))
	}
	seen := make(map[crypto.Address]struct{}, len(tx.Signers))
	for _, signer := range tx.Signers {
		if _, dup := seen[signer]; dup {
			return common.Hash{}, fmt.Errorf("%w: %s", ErrDuplicateSigner, signer)
		}
		seen[signer] = struct{}{}
	}
	hash, err := tx.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	for i, signer := range tx.Signers {
		if len(tx.Signatures[i]) == 0 {
			return common.Hash{}, fmt.Errorf("%w: %s", ErrMissingSignature, signer)
		}
		recovered, err := crypto.RecoverAddress(hash.Bytes(), tx.Signatures[i])
		if err != nil {
			return common.Hash{}, err
		}
		if recovered != signer {
			return common.Hash{}, fmt.Errorf("%w: slot %d", ErrSignatureMismatch, i)
		}
	}
	return hash, nil
}

// Receipt reports a committed transaction.
type Receipt struct {
	Hash   common.Hash `json:"hash"`
	Height uint64      `json:"height"`
	Root   common.Hash `json:"root"`
	Events []Event     `json:"events"`
}
