package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindProgramAddressIsDeterministicAndOffCurve(t *testing.T) {
	program := LabelAddress("program")
	seeds := [][]byte{[]byte("pool"), bytes.Repeat([]byte{0x07}, 32)}

	first, bump, err := FindProgramAddress(seeds, program)
	require.NoError(t, err)
	second, bump2, err := FindProgramAddress(seeds, program)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, bump, bump2)
	require.False(t, IsOnCurve(first[:]))

	recreated, err := CreateProgramAddress(append(seeds, []byte{bump}), program)
	require.NoError(t, err)
	require.Equal(t, first, recreated)
}

func TestFindProgramAddressDependsOnSeedsAndProgram(t *testing.T) {
	program := LabelAddress("program")
	a, _, err := FindProgramAddress([][]byte{[]byte("pool"), {1}}, program)
	require.NoError(t, err)
	b, _, err := FindProgramAddress([][]byte{[]byte("pool"), {2}}, program)
	require.NoError(t, err)
	c, _, err := FindProgramAddress([][]byte{[]byte("pool"), {1}}, LabelAddress("other"))
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)
}

func TestCreateProgramAddressRejectsOnCurveBumps(t *testing.T) {
	program := LabelAddress("program")
	seeds := [][]byte{[]byte("game")}
	onCurve := 0
	for bump := 0; bump < 256; bump++ {
		_, err := CreateProgramAddress(append(seeds, []byte{byte(bump)}), program)
		if err != nil {
			require.ErrorIs(t, err, ErrOnCurve)
			onCurve++
		}
	}
	// Roughly half of all x values are valid curve points.
	require.Greater(t, onCurve, 0)
	require.Less(t, onCurve, 256)
}

func TestCreateProgramAddressValidatesSeeds(t *testing.T) {
	program := LabelAddress("program")

	_, err := CreateProgramAddress([][]byte{make([]byte, MaxSeedLength+1)}, program)
	require.ErrorIs(t, err, ErrSeedTooLong)

	tooMany := make([][]byte, MaxSeeds+1)
	_, err = CreateProgramAddress(tooMany, program)
	require.ErrorIs(t, err, ErrTooManySeeds)

	_, _, err = FindProgramAddress(make([][]byte, MaxSeeds), program)
	require.ErrorIs(t, err, ErrTooManySeeds)

	_, err = CreateProgramAddress(nil, Address{})
	require.ErrorIs(t, err, ErrZeroProgramID)
}

func TestGeneratedKeysAreOnCurve(t *testing.T) {
	for i := 0; i < 8; i++ {
		key, err := GeneratePrivateKey()
		require.NoError(t, err)
		addr := key.PubKey().Address()
		require.True(t, IsOnCurve(addr[:]))
	}
}
