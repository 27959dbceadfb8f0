package prizepool

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"prizepool/crypto"
)

const (
	// MaxWinners is the number of winners the fixed allocation was sized for.
	MaxWinners = 10

	discriminatorLength = 8
	lengthPrefix        = 4

	// RecordSpace is the byte size allocated for every game record.
	RecordSpace = discriminatorLength + 32 +
		lengthPrefix + crypto.AddressLength*MaxWinners +
		lengthPrefix + 8*MaxWinners +
		lengthPrefix + 1*MaxWinners +
		1
)

var gameDiscriminator = func() [discriminatorLength]byte {
	var out [discriminatorLength]byte
	copy(out[:], ethcrypto.Keccak256([]byte("account:Game")))
	return out
}()

var (
	ErrInvalidRecord = errors.New("prizepool: invalid game record")
)

// Game is the on-ledger record of one game's winners and claims. Winners,
// Amounts and Claimed are parallel sequences.
type Game struct {
	GameID     GameID
	Winners    []crypto.Address
	Amounts    []uint64
	Claimed    []bool
	WinnersSet bool
}

// Clone returns a deep copy of the record.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	return &Game{
		GameID:     g.GameID,
		Winners:    append([]crypto.Address(nil), g.Winners...),
		Amounts:    append([]uint64(nil), g.Amounts...),
		Claimed:    append([]bool(nil), g.Claimed...),
		WinnersSet: g.WinnersSet,
	}
}

// WinnerIndex returns the first position of addr among the winners.
func (g *Game) WinnerIndex(addr crypto.Address) (int, bool) {
	for i, winner := range g.Winners {
		if winner == addr {
			return i, true
		}
	}
	return 0, false
}

// EncodedLength is the size of the record's binary encoding.
func (g *Game) EncodedLength() int {
	return discriminatorLength + len(g.GameID) +
		lengthPrefix + crypto.AddressLength*len(g.Winners) +
		lengthPrefix + 8*len(g.Amounts) +
		lengthPrefix + len(g.Claimed) +
		1
}

// MarshalBinary encodes the record in its little-endian account layout.
func (g *Game) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, g.EncodedLength()))
	buf.Write(gameDiscriminator[:])
	buf.Write(g.GameID[:])

	putLen(buf, len(g.Winners))
	for _, winner := range g.Winners {
		buf.Write(winner[:])
	}
	putLen(buf, len(g.Amounts))
	var word [8]byte
	for _, amount := range g.Amounts {
		binary.LittleEndian.PutUint64(word[:], amount)
		buf.Write(word[:])
	}
	putLen(buf, len(g.Claimed))
	for _, claimed := range g.Claimed {
		buf.WriteByte(boolByte(claimed))
	}
	buf.WriteByte(boolByte(g.WinnersSet))
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a record written by MarshalBinary. Trailing bytes
// beyond the encoding are the unused part of the allocation and are ignored.
func (g *Game) UnmarshalBinary(data []byte) error {
	r := &reader{data: data}
	disc := r.next(discriminatorLength)
	if r.err == nil && !bytes.Equal(disc, gameDiscriminator[:]) {
		return fmt.Errorf("%w: discriminator mismatch", ErrInvalidRecord)
	}
	var out Game
	copy(out.GameID[:], r.next(len(out.GameID)))

	n := r.length(crypto.AddressLength)
	out.Winners = make([]crypto.Address, 0, n)
	for i := 0; i < n; i++ {
		var winner crypto.Address
		copy(winner[:], r.next(crypto.AddressLength))
		out.Winners = append(out.Winners, winner)
	}
	n = r.length(8)
	out.Amounts = make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		if word := r.next(8); word != nil {
			out.Amounts = append(out.Amounts, binary.LittleEndian.Uint64(word))
		}
	}
	n = r.length(1)
	out.Claimed = make([]bool, 0, n)
	for i := 0; i < n; i++ {
		out.Claimed = append(out.Claimed, r.flag())
	}
	out.WinnersSet = r.flag()
	if r.err != nil {
		return r.err
	}
	if len(out.Winners) != len(out.Amounts) || len(out.Winners) != len(out.Claimed) {
		return fmt.Errorf("%w: sequence lengths %d/%d/%d differ", ErrInvalidRecord,
			len(out.Winners), len(out.Amounts), len(out.Claimed))
	}
	*g = out
	return nil
}

func putLen(buf *bytes.Buffer, n int) {
	var word [lengthPrefix]byte
	binary.LittleEndian.PutUint32(word[:], uint32(n))
	buf.Write(word[:])
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.pos < n {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrInvalidRecord, r.pos)
		return nil
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out
}

// length reads a sequence prefix and rejects counts that cannot fit in the
// remaining data.
func (r *reader) length(elemSize int) int {
	word := r.next(lengthPrefix)
	if word == nil {
		return 0
	}
	n := binary.LittleEndian.Uint32(word)
	if uint64(n)*uint64(elemSize) > uint64(len(r.data)-r.pos) {
		r.err = fmt.Errorf("%w: sequence of %d overruns data", ErrInvalidRecord, n)
		return 0
	}
	return int(n)
}

func (r *reader) flag() bool {
	b := r.next(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		r.err = fmt.Errorf("%w: invalid bool byte %d", ErrInvalidRecord, b[0])
		return false
	}
}
