// Package block implements the proof-of-work block: mining, difficulty
// adjustment, and pairwise inter-block validation.
package block

import (
	"context"
	"time"

	"github.com/chainforge/chainnode/internal/chainerr"
	"github.com/chainforge/chainnode/internal/config"
	"github.com/chainforge/chainnode/internal/cryptoutil"
)

// Block is one entry in the chain.
type Block struct {
	Index      int64       `json:"index"`
	Timestamp  int64       `json:"timestamp"`
	LastHash   string      `json:"last_hash"`
	Hash       string      `json:"hash"`
	Data       interface{} `json:"data"`
	Nonce      int64       `json:"nonce"`
	Difficulty int         `json:"difficulty"`
}

// Genesis returns the fixed genesis block, hashed the same way as any
// other block over its own field values.
func Genesis() (*Block, error) {
	b := &Block{
		Index:      0,
		Timestamp:  1,
		LastHash:   config.GenesisLastHash,
		Data:       []interface{}{},
		Nonce:      0,
		Difficulty: 1,
	}
	hash, err := cryptoutil.HashBlock(b.Index, b.Timestamp, b.LastHash, b.Data, b.Nonce, b.Difficulty)
	if err != nil {
		return nil, err
	}
	b.Hash = hash
	return b, nil
}

// Mine performs proof-of-work over lastBlock+data: it increments Nonce,
// refreshing timestamp and difficulty every iteration, until the
// resulting hash meets Difficulty leading zero bits. It yields to ctx
// cancellation every 4096 iterations so callers can bound shutdown
// latency.
func Mine(ctx context.Context, lastBlock *Block, data interface{}, rateMs int64, nowMs func() int64) (*Block, error) {
	b := &Block{
		Index:    lastBlock.Index + 1,
		LastHash: lastBlock.Hash,
		Data:     data,
		Nonce:    0,
	}

	var iterations int64
	for {
		b.Nonce++
		b.Timestamp = nowMs()
		b.Difficulty = AdjustDifficulty(lastBlock, b.Timestamp, rateMs)

		hash, err := cryptoutil.HashBlock(b.Index, b.Timestamp, b.LastHash, b.Data, b.Nonce, b.Difficulty)
		if err != nil {
			return nil, err
		}
		ok, err := cryptoutil.MeetsDifficulty(hash, b.Difficulty)
		if err != nil {
			return nil, err
		}
		if ok {
			b.Hash = hash
			return b, nil
		}

		iterations++
		if iterations%4096 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
	}
}

// AdjustDifficulty raises difficulty by one when the previous block was
// mined faster than the target rate, and lowers it by one (floored at 1)
// otherwise.
func AdjustDifficulty(lastBlock *Block, timestamp, rateMs int64) int {
	if lastBlock.Timestamp+rateMs > timestamp {
		return lastBlock.Difficulty + 1
	}
	if lastBlock.Difficulty > 1 {
		return lastBlock.Difficulty - 1
	}
	return 1
}

// IsValid checks that block correctly extends lastBlock: last_hash
// linkage, difficulty adjustment within +/-1, and the recomputed hash
// both matching the stored hash and meeting its own difficulty.
func IsValid(lastBlock, b *Block) error {
	if b.Index != lastBlock.Index+1 {
		return chainerr.BlockError("index must be one greater than the previous block's index")
	}

	if b.LastHash != lastBlock.Hash {
		return chainerr.BlockError("last hash must match previous block hash")
	}

	diff := b.Difficulty - lastBlock.Difficulty
	if diff > 1 || diff < -1 {
		return chainerr.BlockError("difficulty must adjust by at most 1")
	}

	hash, err := cryptoutil.HashBlock(b.Index, b.Timestamp, b.LastHash, b.Data, b.Nonce, b.Difficulty)
	if err != nil {
		return err
	}
	if hash != b.Hash {
		return chainerr.BlockError("block hash does not match its contents")
	}

	ok, err := cryptoutil.MeetsDifficulty(hash, b.Difficulty)
	if err != nil {
		return err
	}
	if !ok {
		return chainerr.BlockError("block hash does not meet its stated difficulty")
	}
	return nil
}

// NowMillis is the default clock used by Mine outside of tests.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
