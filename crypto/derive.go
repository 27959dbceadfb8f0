package crypto

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds bounds the number of seeds, bump included.
	MaxSeeds = 16
	// MaxSeedLength bounds the size of a single seed.
	MaxSeedLength = 32

	derivedAddressMarker = "ProgramDerivedAddress"

	// compressedEvenHeader prefixes a compressed point with an even y.
	compressedEvenHeader = 0x02
)

var (
	ErrTooManySeeds  = errors.New("crypto: too many seeds")
	ErrSeedTooLong   = errors.New("crypto: seed exceeds maximum length")
	ErrOnCurve       = errors.New("crypto: derived address lies on the curve")
	ErrNoViableBump  = errors.New("crypto: unable to find a viable bump")
	ErrZeroProgramID = errors.New("crypto: program id required")
)

// IsOnCurve reports whether b is the x-coordinate of a secp256k1 point, i.e.
// whether some private key could sign for it.
func IsOnCurve(b []byte) bool {
	if len(b) != AddressLength {
		return false
	}
	var compressed [AddressLength + 1]byte
	compressed[0] = compressedEvenHeader
	copy(compressed[1:], b)
	_, err := secp256k1.ParsePubKey(compressed[:])
	return err == nil
}

// CreateProgramAddress hashes seeds with the owning program id. It fails with
// ErrOnCurve when the result could have a private key.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	if programID.IsZero() {
		return Address{}, ErrZeroProgramID
	}
	if len(seeds) > MaxSeeds {
		return Address{}, fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}
	parts := make([][]byte, 0, len(seeds)+2)
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, fmt.Errorf("%w: seed %d has %d bytes", ErrSeedTooLong, i, len(seed))
		}
		parts = append(parts, seed)
	}
	parts = append(parts, programID[:], []byte(derivedAddressMarker))
	hash := crypto.Keccak256(parts...)
	if IsOnCurve(hash) {
		return Address{}, ErrOnCurve
	}
	var addr Address
	copy(addr[:], hash)
	return addr, nil
}

// FindProgramAddress searches bumps from 255 downwards and returns the first
// off-curve address together with the bump that produced it.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}
