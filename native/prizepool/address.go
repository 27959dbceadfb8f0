package prizepool

import (
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"prizepool/crypto"
	"prizepool/native/token"
)

// ProgramID identifies the prize program on the ledger.
var ProgramID = crypto.LabelAddress("prizepool/program/prize")

var (
	gameSeed = []byte("game")
	poolSeed = []byte("pool")
)

// GameID is the opaque identifier of one game.
type GameID [32]byte

// ParseGameID decodes a 32-byte hex identifier with an optional 0x prefix.
func ParseGameID(raw string) (GameID, error) {
	var id GameID
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("prizepool: game id: %w", err)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("prizepool: game id must be %d bytes, got %d", len(id), len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

// GameIDFromLabel hashes a human readable label into a game id.
func GameIDFromLabel(label string) GameID {
	var id GameID
	copy(id[:], ethcrypto.Keccak256([]byte(label)))
	return id
}

func (id GameID) String() string { return "0x" + hex.EncodeToString(id[:]) }

func (id GameID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *GameID) UnmarshalText(text []byte) error {
	parsed, err := ParseGameID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func gameSeeds(id GameID) [][]byte { return [][]byte{gameSeed, id[:]} }

func poolSeeds(id GameID) [][]byte { return [][]byte{poolSeed, id[:]} }

// GameAddress returns the address of the game record.
func GameAddress(id GameID) (crypto.Address, error) {
	addr, _, err := crypto.FindProgramAddress(gameSeeds(id), ProgramID)
	return addr, err
}

// PoolAuthority returns the derived authority controlling the game's escrow
// together with its bump.
func PoolAuthority(id GameID) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(poolSeeds(id), ProgramID)
}

// PoolAccount returns the escrow wallet of the game: the token wallet owned by
// the pool authority.
func PoolAccount(id GameID) (crypto.Address, error) {
	authority, _, err := PoolAuthority(id)
	if err != nil {
		return crypto.Address{}, err
	}
	return token.WalletAddress(authority)
}
