package crypto

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	encoded := addr.String()
	require.Contains(t, encoded, string(PrizePrefix)+"1")

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)

	fromHex, err := DecodeAddress("0x" + addr.Hex())
	require.NoError(t, err)
	require.Equal(t, addr, fromHex)
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	addr := LabelAddress("foreign")
	conv, err := bech32.ConvertBits(addr.Bytes(), 8, 5, true)
	require.NoError(t, err)
	foreign, err := bech32.Encode("cosmos", conv)
	require.NoError(t, err)

	_, err = DecodeAddress(foreign)
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = DecodeAddress("   ")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddressJSON(t *testing.T) {
	addr := LabelAddress("json")
	payload, err := json.Marshal(struct {
		Owner Address `json:"owner"`
	}{addr})
	require.NoError(t, err)

	var decoded struct {
		Owner Address `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, addr, decoded.Owner)
}

func TestSignAndRecover(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	digest := ethcrypto.Keccak256([]byte("claim"))

	sig, err := key.Sign(digest)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	recovered, err := RecoverAddress(digest, sig)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address(), recovered)
	require.True(t, IsOnCurve(recovered[:]))

	_, err = RecoverAddress(digest, sig[:10])
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "keys", "admin.json")

	require.NoError(t, SaveToKeystore(path, key, "secret"))
	loaded, err := LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address(), loaded.PubKey().Address())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
