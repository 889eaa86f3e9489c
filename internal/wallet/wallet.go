// Package wallet holds a node's signing identity and computes its
// balance by walking the chain.
package wallet

import (
	"crypto/ecdsa"
	"strings"

	"github.com/google/uuid"

	"github.com/chainforge/chainnode/internal/block"
	"github.com/chainforge/chainnode/internal/config"
	"github.com/chainforge/chainnode/internal/cryptoutil"
	"github.com/chainforge/chainnode/internal/transaction"
)

// StartingBalance is the balance an address has before it ever appears
// as a transaction output.
const StartingBalance float64 = 0

// Wallet holds one keypair and its derived address.
type Wallet struct {
	Address    string
	PrivateKey *ecdsa.PrivateKey
	PublicKey  string
}

// New mints a fresh keypair and a 32-hex address.
func New() (*Wallet, error) {
	key, err := cryptoutil.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{
		Address:    generateAddress(),
		PrivateKey: key,
		PublicKey:  cryptoutil.EncodePublicKey(&key.PublicKey),
	}, nil
}

func generateAddress() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreateTransaction signs a new transaction moving amount from w to
// recipient, given w's current balance on chain.
func (w *Wallet) CreateTransaction(chain []*block.Block, amount float64, recipient string) (*transaction.Transaction, error) {
	balance := Balance(chain, w.Address)
	return transaction.Create(w.PrivateKey, w.PublicKey, w.Address, balance, amount, recipient)
}

// Balance walks chain from genesis forward, resetting an address's
// balance to its own change output whenever it appears as a sender and
// accumulating whenever it appears as a recipient.
func Balance(chain []*block.Block, address string) float64 {
	balance := StartingBalance

	for _, b := range chain {
		txs, err := transaction.FromBlockData(b.Data)
		if err != nil {
			continue
		}
		for _, tx := range txs {
			if tx.Input.Address == address {
				balance = tx.Output[address]
				continue
			}
			if amount, ok := tx.Output[address]; ok {
				balance += amount
			}
		}
	}
	return balance
}

// Addresses returns the set of every address ever seen as a transaction
// output key across chain.
func Addresses(chain []*block.Block) []string {
	seen := make(map[string]bool)
	for _, b := range chain {
		txs, err := transaction.FromBlockData(b.Data)
		if err != nil {
			continue
		}
		for _, tx := range txs {
			for addr := range tx.Output {
				seen[addr] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	return out
}

// RewardAddress is the sentinel sender used to identify mining-reward
// transactions; exported here so callers building one reward
// transaction per mined block don't need to import internal/config
// directly for this single constant.
const RewardAddress = config.RewardSentinel
