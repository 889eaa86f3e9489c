package transaction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainnode/internal/cryptoutil"
)

func TestCreateAndIsValid(t *testing.T) {
	key, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	pubHex := cryptoutil.EncodePublicKey(&key.PublicKey)

	tx, err := Create(key, pubHex, "alice", 50, 20, "bob")
	require.NoError(t, err)
	assert.NoError(t, IsValid(tx))
	assert.Equal(t, float64(20), tx.Output["bob"])
	assert.Equal(t, float64(30), tx.Output["alice"])
}

func TestCreateRejectsAmountAboveBalance(t *testing.T) {
	key, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	pubHex := cryptoutil.EncodePublicKey(&key.PublicKey)

	_, err = Create(key, pubHex, "alice", 10, 20, "bob")
	assert.Error(t, err)
}

func TestUpdateAccumulatesOntoSameTransaction(t *testing.T) {
	key, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	pubHex := cryptoutil.EncodePublicKey(&key.PublicKey)

	tx, err := Create(key, pubHex, "alice", 50, 20, "bob")
	require.NoError(t, err)

	err = Update(tx, key, pubHex, "alice", 10, "carol")
	require.NoError(t, err)

	assert.Equal(t, float64(10), tx.Output["carol"])
	assert.Equal(t, float64(20), tx.Output["alice"])
	assert.NoError(t, IsValid(tx))
}

func TestUpdateRejectsAmountAboveRemaining(t *testing.T) {
	key, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	pubHex := cryptoutil.EncodePublicKey(&key.PublicKey)

	tx, err := Create(key, pubHex, "alice", 50, 40, "bob")
	require.NoError(t, err)

	err = Update(tx, key, pubHex, "alice", 20, "carol")
	assert.Error(t, err)
}

func TestIsValidRejectsTamperedOutput(t *testing.T) {
	key, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	pubHex := cryptoutil.EncodePublicKey(&key.PublicKey)

	tx, err := Create(key, pubHex, "alice", 50, 20, "bob")
	require.NoError(t, err)

	tx.Output["bob"] = 999
	assert.Error(t, IsValid(tx))
}

func TestRewardMiningIsValid(t *testing.T) {
	reward := RewardMining("minerAddr", 50)
	assert.True(t, reward.IsReward())
	assert.NoError(t, IsValid(reward))
	assert.Equal(t, float64(50), reward.Output["minerAddr"])
}

func TestRewardMiningRejectsSignedVariant(t *testing.T) {
	reward := RewardMining("minerAddr", 50)
	reward.Input.Amount = 50
	assert.Error(t, IsValid(reward))
}

func TestUUIDRoundTripsThroughJSON(t *testing.T) {
	reward := RewardMining("minerAddr", 50)
	raw, err := json.Marshal(reward)
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, reward.UUID.String(), decoded.UUID.String())
}

func TestFromBlockDataRoundTrips(t *testing.T) {
	reward := RewardMining("minerAddr", 50)
	raw, err := json.Marshal([]*Transaction{reward})
	require.NoError(t, err)

	var data interface{}
	require.NoError(t, json.Unmarshal(raw, &data))

	txs, err := FromBlockData(data)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, reward.UUID.String(), txs[0].UUID.String())
}
