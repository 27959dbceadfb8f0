package prizepool

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"prizepool/crypto"
)

func sampleGame(n int) *Game {
	game := &Game{GameID: GameIDFromLabel("sample"), WinnersSet: true}
	for i := 0; i < n; i++ {
		game.Winners = append(game.Winners, crypto.LabelAddress(string(rune('a'+i))))
		game.Amounts = append(game.Amounts, uint64(100*(i+1)))
		game.Claimed = append(game.Claimed, i%2 == 0)
	}
	return game
}

func TestRecordSpaceMatchesLayout(t *testing.T) {
	require.Equal(t, 463, RecordSpace)
	require.Equal(t, RecordSpace, sampleGame(MaxWinners).EncodedLength())
}

func TestGameBinaryRoundTrip(t *testing.T) {
	game := sampleGame(3)
	data, err := game.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, game.EncodedLength())

	// The allocation is zero padded past the encoding.
	padded := make([]byte, RecordSpace)
	copy(padded, data)

	var decoded Game
	require.NoError(t, decoded.UnmarshalBinary(padded))
	if diff := cmp.Diff(game, &decoded); diff != "" {
		t.Fatalf("decoded record mismatch (-want +got):\n%s", diff)
	}
}

func TestGameLayoutIsLittleEndian(t *testing.T) {
	game := &Game{
		GameID:     GameIDFromLabel("layout"),
		Winners:    []crypto.Address{crypto.LabelAddress("w")},
		Amounts:    []uint64{0x0102},
		Claimed:    []bool{true},
		WinnersSet: true,
	}
	data, err := game.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, gameDiscriminator[:], data[:8])
	require.Equal(t, game.GameID[:], data[8:40])
	require.Equal(t, []byte{1, 0, 0, 0}, data[40:44])
	amountOffset := 44 + 32
	require.Equal(t, []byte{1, 0, 0, 0}, data[amountOffset:amountOffset+4])
	require.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, data[amountOffset+4:amountOffset+12])
	require.Equal(t, byte(1), data[len(data)-1])
}

func TestGameUnmarshalRejectsCorruptData(t *testing.T) {
	data, err := sampleGame(2).MarshalBinary()
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":     nil,
		"truncated": data[:len(data)-3],
		"discriminator": func() []byte {
			out := append([]byte(nil), data...)
			out[0] ^= 0xff
			return out
		}(),
		"bad flag": func() []byte {
			out := append([]byte(nil), data...)
			out[len(out)-1] = 7
			return out
		}(),
		"huge length": func() []byte {
			out := append([]byte(nil), data...)
			out[40], out[41], out[42], out[43] = 0xff, 0xff, 0xff, 0x7f
			return out
		}(),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var game Game
			require.ErrorIs(t, game.UnmarshalBinary(raw), ErrInvalidRecord)
		})
	}
}

func TestGameUnmarshalRejectsMismatchedLengths(t *testing.T) {
	game := sampleGame(2)
	game.Claimed = game.Claimed[:1]
	data, err := game.MarshalBinary()
	require.NoError(t, err)
	var decoded Game
	require.ErrorIs(t, decoded.UnmarshalBinary(data), ErrInvalidRecord)
}

func TestWinnerIndexReturnsFirstMatch(t *testing.T) {
	a := crypto.LabelAddress("a")
	game := &Game{Winners: []crypto.Address{crypto.LabelAddress("b"), a, a}}
	index, ok := game.WinnerIndex(a)
	require.True(t, ok)
	require.Equal(t, 1, index)
	_, ok = game.WinnerIndex(crypto.LabelAddress("z"))
	require.False(t, ok)
}

func TestParseGameID(t *testing.T) {
	id := GameIDFromLabel("round-1")
	parsed, err := ParseGameID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseGameID("0x1234")
	require.Error(t, err)
	_, err = ParseGameID("not-hex")
	require.Error(t, err)
}
