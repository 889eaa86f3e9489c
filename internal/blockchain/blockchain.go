// Package blockchain holds the ordered chain of blocks and the rules
// for appending to and replacing it.
package blockchain

import (
	"context"
	"sync"

	"github.com/chainforge/chainnode/internal/block"
	"github.com/chainforge/chainnode/internal/chainerr"
	"github.com/chainforge/chainnode/internal/config"
	"github.com/chainforge/chainnode/internal/transaction"
	"github.com/chainforge/chainnode/internal/wallet"
)

// Blockchain is the mutex-guarded ordered list of blocks.
type Blockchain struct {
	mu     sync.RWMutex
	blocks []*block.Block
	cfg    *config.Config
}

// New starts a fresh chain at its genesis block.
func New(cfg *config.Config) (*Blockchain, error) {
	genesis, err := block.Genesis()
	if err != nil {
		return nil, err
	}
	return &Blockchain{blocks: []*block.Block{genesis}, cfg: cfg}, nil
}

// Blocks returns a snapshot copy of the chain.
func (bc *Blockchain) Blocks() []*block.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	out := make([]*block.Block, len(bc.blocks))
	copy(out, bc.blocks)
	return out
}

// LastBlock returns the tip of the chain.
func (bc *Blockchain) LastBlock() *block.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.blocks[len(bc.blocks)-1]
}

// AddBlock mines a new block over data and appends it to the chain.
func (bc *Blockchain) AddBlock(ctx context.Context, data interface{}, nowMs func() int64) (*block.Block, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	last := bc.blocks[len(bc.blocks)-1]
	mined, err := block.Mine(ctx, last, data, bc.cfg.BlockMiningRateMs, nowMs)
	if err != nil {
		return nil, err
	}
	bc.blocks = append(bc.blocks, mined)
	return mined, nil
}

// SetValidChain replaces the local chain with candidate if candidate is
// both structurally valid and strictly longer than the local chain.
// Shorter or invalid candidates are rejected without propagating
// further (the caller must not rebroadcast a rejected chain).
func (bc *Blockchain) SetValidChain(candidate []*block.Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if len(candidate) <= len(bc.blocks) {
		return chainerr.BlockchainError("replacement chain must be longer than the current chain")
	}
	if err := IsValid(candidate); err != nil {
		return err
	}
	bc.blocks = candidate
	return nil
}

// IsValid checks chain-wide structural validity: the genesis block must
// match exactly, every consecutive pair must satisfy block.IsValid, and
// the accumulated transaction history must be internally consistent (no
// duplicate uuids, at most one mining reward per block, and every
// sender's claimed input amount matching its actual historic balance).
func IsValid(chain []*block.Block) error {
	if len(chain) == 0 {
		return chainerr.BlockchainError("chain must not be empty")
	}

	genesis, err := block.Genesis()
	if err != nil {
		return err
	}
	if chain[0].Hash != genesis.Hash {
		return chainerr.BlockchainError("chain does not start with the expected genesis block")
	}

	seenUUIDs := make(map[string]bool)

	for i := 1; i < len(chain); i++ {
		if err := block.IsValid(chain[i-1], chain[i]); err != nil {
			return err
		}

		txs, err := transaction.FromBlockData(chain[i].Data)
		if err != nil {
			return err
		}

		rewardCount := 0
		for _, tx := range txs {
			key := tx.UUID.String()
			if seenUUIDs[key] {
				return chainerr.BlockchainError("Repetead transaction uuid", key)
			}
			seenUUIDs[key] = true

			if tx.IsReward() {
				rewardCount++
				if rewardCount > 1 {
					return chainerr.BlockchainError("Multiple mining rewards")
				}
				continue
			}

			sender := tx.Input.Address
			actualBalance := wallet.Balance(chain[:i], sender)
			if tx.Input.Amount != actualBalance {
				return chainerr.BlockchainError("historic balance inconsistency", sender)
			}
		}
	}
	return nil
}
