package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBlockOrderIndependent(t *testing.T) {
	a, err := HashBlock(1, "two", []interface{}{3})
	require.NoError(t, err)
	b, err := HashBlock("two", []interface{}{3}, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashBlockValueSensitive(t *testing.T) {
	a, err := HashBlock(1, "two")
	require.NoError(t, err)
	b, err := HashBlock(1, "three")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHexToBinaryLength(t *testing.T) {
	hash, err := HashBlock("anything")
	require.NoError(t, err)
	binary, err := HexToBinary(hash)
	require.NoError(t, err)
	assert.Len(t, binary, 256)
}

func TestHexToBinaryRejectsInvalidHex(t *testing.T) {
	_, err := HexToBinary("not-hex")
	assert.Error(t, err)
}

func TestMeetsDifficultyZeroAlwaysTrue(t *testing.T) {
	hash, err := HashBlock("anything")
	require.NoError(t, err)
	ok, err := MeetsDifficulty(hash, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	data := map[string]float64{"alice": 10, "bob": 5}
	sig, err := Sign(key, data)
	require.NoError(t, err)

	ok, err := Verify(&key.PublicKey, data, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedData(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	sig, err := Sign(key, map[string]float64{"alice": 10})
	require.NoError(t, err)

	ok, err := Verify(&key.PublicKey, map[string]float64{"alice": 11}, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncodeDecodePublicKeyRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	encoded := EncodePublicKey(&key.PublicKey)
	decoded, err := DecodePublicKey(encoded)
	require.NoError(t, err)

	assert.Equal(t, key.PublicKey.X, decoded.X)
	assert.Equal(t, key.PublicKey.Y, decoded.Y)
}
