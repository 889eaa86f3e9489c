package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainnode/internal/block"
	"github.com/chainforge/chainnode/internal/transaction"
)

func TestNewWalletHasAddressAndKey(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	assert.Len(t, w.Address, 32)
	assert.NotNil(t, w.PrivateKey)
}

func TestBalanceStartsAtZero(t *testing.T) {
	genesis, err := block.Genesis()
	require.NoError(t, err)
	assert.Equal(t, StartingBalance, Balance([]*block.Block{genesis}, "anyone"))
}

func TestBalanceAccumulatesAsRecipient(t *testing.T) {
	genesis, err := block.Genesis()
	require.NoError(t, err)

	reward := transaction.RewardMining("miner", 50)
	mined, err := block.Mine(context.Background(), genesis, []*transaction.Transaction{reward}, 10*1000, func() int64 { return genesis.Timestamp + 1 })
	require.NoError(t, err)

	assert.Equal(t, float64(50), Balance([]*block.Block{genesis, mined}, "miner"))
}

func TestBalanceResetsWhenActingAsSender(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	genesis, err := block.Genesis()
	require.NoError(t, err)
	reward := transaction.RewardMining(w.Address, 50)
	chain1, err := block.Mine(context.Background(), genesis, []*transaction.Transaction{reward}, 10*1000, func() int64 { return genesis.Timestamp + 1 })
	require.NoError(t, err)

	tx, err := w.CreateTransaction([]*block.Block{genesis, chain1}, 20, "bob")
	require.NoError(t, err)
	chain2, err := block.Mine(context.Background(), chain1, []*transaction.Transaction{tx}, 10*1000, func() int64 { return chain1.Timestamp + 1 })
	require.NoError(t, err)

	full := []*block.Block{genesis, chain1, chain2}
	assert.Equal(t, float64(30), Balance(full, w.Address))
	assert.Equal(t, float64(20), Balance(full, "bob"))
}

func TestAddressesCollectsEveryOutputKey(t *testing.T) {
	genesis, err := block.Genesis()
	require.NoError(t, err)
	reward := transaction.RewardMining("miner", 50)
	mined, err := block.Mine(context.Background(), genesis, []*transaction.Transaction{reward}, 10*1000, func() int64 { return genesis.Timestamp + 1 })
	require.NoError(t, err)

	addrs := Addresses([]*block.Block{genesis, mined})
	assert.Contains(t, addrs, "miner")
}
