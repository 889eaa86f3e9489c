package mempool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainnode/internal/block"
	"github.com/chainforge/chainnode/internal/cryptoutil"
	"github.com/chainforge/chainnode/internal/transaction"
)

func TestAddAndGetBySender(t *testing.T) {
	m := New()
	key, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	pubHex := cryptoutil.EncodePublicKey(&key.PublicKey)

	tx, err := transaction.Create(key, pubHex, "alice", 50, 10, "bob")
	require.NoError(t, err)
	m.Add(tx)

	found := m.GetBySender("alice")
	require.NotNil(t, found)
	assert.Equal(t, tx.UUID.String(), found.UUID.String())
	assert.Nil(t, m.GetBySender("nobody"))
}

func TestDataReturnsAllPending(t *testing.T) {
	m := New()
	m.Add(transaction.RewardMining("miner", 50))
	m.Add(transaction.RewardMining("miner2", 50))
	assert.Len(t, m.Data(), 2)
}

func TestClearAgainstRemovesMinedTransactions(t *testing.T) {
	m := New()
	reward := transaction.RewardMining("miner", 50)
	m.Add(reward)

	genesis, err := block.Genesis()
	require.NoError(t, err)
	mined, err := block.Mine(context.Background(), genesis, []*transaction.Transaction{reward}, 10*1000, func() int64 { return genesis.Timestamp + 1 })
	require.NoError(t, err)

	m.ClearAgainst([]*block.Block{genesis, mined})
	assert.Empty(t, m.Data())
}
