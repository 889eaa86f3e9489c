// Package mempool holds pending transactions not yet mined into a
// block, deduplicated per sender.
package mempool

import (
	"sync"

	"github.com/chainforge/chainnode/internal/block"
	"github.com/chainforge/chainnode/internal/transaction"
)

// Mempool is a uuid-keyed pool of pending transactions.
type Mempool struct {
	mu   sync.RWMutex
	pool map[string]*transaction.Transaction
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{pool: make(map[string]*transaction.Transaction)}
}

// Add inserts or overwrites tx in the pool, keyed by its uuid.
func (m *Mempool) Add(tx *transaction.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool[tx.UUID.String()] = tx
}

// GetBySender linearly scans the pool for a pending, non-reward
// transaction already authored by address, so a sender's repeated
// transfers accumulate onto one pending transaction instead of minting
// a new one each time.
func (m *Mempool) GetBySender(address string) *transaction.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tx := range m.pool {
		if tx.Input.Address == address {
			return tx
		}
	}
	return nil
}

// Data returns every pending transaction, for mining into a block or
// for the HTTP read surface.
func (m *Mempool) Data() []*transaction.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*transaction.Transaction, 0, len(m.pool))
	for _, tx := range m.pool {
		out = append(out, tx)
	}
	return out
}

// ClearAgainst removes every pooled transaction whose uuid already
// appears in chain, so only transactions the chain has not yet
// observed remain pending.
func (m *Mempool) ClearAgainst(chain []*block.Block) {
	mined := make(map[string]bool)
	for _, b := range chain {
		txs, err := transaction.FromBlockData(b.Data)
		if err != nil {
			continue
		}
		for _, tx := range txs {
			mined[tx.UUID.String()] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.pool {
		if mined[id] {
			delete(m.pool, id)
		}
	}
}
