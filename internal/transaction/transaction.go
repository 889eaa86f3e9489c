// Package transaction implements signed value transfers: the account-
// balance transaction model, its mining-reward variant, and update-in-
// place re-signing semantics.
package transaction

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/chainforge/chainnode/internal/chainerr"
	"github.com/chainforge/chainnode/internal/config"
	"github.com/chainforge/chainnode/internal/cryptoutil"
)

// UUID wraps a 128-bit unsigned integer minted from a random uuid.
type UUID struct {
	*big.Int
}

func newUUID() UUID {
	raw := uuid.New()
	bytes := raw[:]
	return UUID{new(big.Int).SetBytes(bytes)}
}

func (u UUID) String() string {
	if u.Int == nil {
		return ""
	}
	return u.Int.Text(10)
}

func (u UUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *UUID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return chainerr.TransactionError("invalid transaction uuid", s)
	}
	u.Int = v
	return nil
}

// Input identifies the sender of a transaction. Signature/Amount/
// PublicKey are omitted on the wire for mining-reward transactions.
type Input struct {
	Timestamp int64      `json:"timestamp"`
	Address   string     `json:"address"`
	Amount    float64    `json:"amount,omitempty"`
	Signature *Signature `json:"signature,omitempty"`
	PublicKey string     `json:"public_key,omitempty"`
}

// Signature is the wire form of an ECDSA (r, s) pair.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
}

func toSignature(sig *cryptoutil.Signature) *Signature {
	if sig == nil {
		return nil
	}
	return &Signature{R: hex.EncodeToString(sig.R.Bytes()), S: hex.EncodeToString(sig.S.Bytes())}
}

func (s *Signature) toCrypto() (*cryptoutil.Signature, error) {
	if s == nil {
		return nil, nil
	}
	rBytes, err := hex.DecodeString(s.R)
	if err != nil {
		return nil, chainerr.TransactionError("invalid signature r value")
	}
	sBytes, err := hex.DecodeString(s.S)
	if err != nil {
		return nil, chainerr.TransactionError("invalid signature s value")
	}
	return &cryptoutil.Signature{R: new(big.Int).SetBytes(rBytes), S: new(big.Int).SetBytes(sBytes)}, nil
}

// Transaction moves value from one sender to one or more recipients.
// Output maps address -> amount: the sender's address holds its change
// (remaining balance) and each recipient's address holds the amount
// sent to it.
type Transaction struct {
	UUID   UUID               `json:"uuid"`
	Output map[string]float64 `json:"output"`
	Input  Input              `json:"input"`
}

// IsReward reports whether tx is a mining-reward transaction.
func (tx *Transaction) IsReward() bool {
	return tx.Input.Address == config.RewardSentinel
}

// Create builds a signed transaction moving amount from sender's wallet
// to recipient, keeping the remainder as the sender's own change output.
func Create(privKey *ecdsa.PrivateKey, pubKeyHex, senderAddress string, senderBalance, amount float64, recipient string) (*Transaction, error) {
	if amount > senderBalance {
		return nil, chainerr.TransactionError("amount exceeds sender balance")
	}

	output := map[string]float64{
		recipient:     amount,
		senderAddress: senderBalance - amount,
	}

	tx := &Transaction{
		UUID:   newUUID(),
		Output: output,
		Input: Input{
			Timestamp: nowMillis(),
			Address:   senderAddress,
			Amount:    senderBalance,
			PublicKey: pubKeyHex,
		},
	}
	if err := tx.sign(privKey); err != nil {
		return nil, err
	}
	return tx, nil
}

// Update mutates tx in place: it adds amount to recipient's output
// (creating it, or summing with an existing one), subtracts amount from
// the sender's existing change output, and re-signs.
func Update(tx *Transaction, privKey *ecdsa.PrivateKey, pubKeyHex, senderAddress string, amount float64, recipient string) error {
	if tx.Input.Address != senderAddress {
		return chainerr.TransactionError("only the original sender may update a transaction")
	}
	remaining, ok := tx.Output[senderAddress]
	if !ok {
		return chainerr.TransactionError("transaction has no change output for sender")
	}
	if amount > remaining {
		return chainerr.TransactionError("amount exceeds remaining transaction balance")
	}

	if existing, ok := tx.Output[recipient]; ok {
		tx.Output[recipient] = existing + amount
	} else {
		tx.Output[recipient] = amount
	}
	tx.Output[senderAddress] = remaining - amount
	tx.Input.Timestamp = nowMillis()

	return tx.sign(privKey)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// RewardMining creates the fixed-amount mining-reward transaction paid
// to minerAddress, carrying no signature, amount, or public key.
func RewardMining(minerAddress string, reward float64) *Transaction {
	return &Transaction{
		UUID:   newUUID(),
		Output: map[string]float64{minerAddress: reward},
		Input: Input{
			Timestamp: nowMillis(),
			Address:   config.RewardSentinel,
		},
	}
}

func (tx *Transaction) sign(key *ecdsa.PrivateKey) error {
	sig, err := cryptoutil.Sign(key, tx.Output)
	if err != nil {
		return err
	}
	tx.Input.Signature = toSignature(sig)
	return nil
}

// IsValid checks schema shape and, for non-reward transactions, that
// the output total equals the claimed input amount and the signature
// verifies over the output under the claimed public key.
func IsValid(tx *Transaction) error {
	if tx.IsReward() {
		if tx.Input.Amount != 0 || tx.Input.Signature != nil || tx.Input.PublicKey != "" {
			return chainerr.TransactionError("mining reward transaction must not carry amount, signature or public key")
		}
		return nil
	}

	if tx.Input.Signature == nil || tx.Input.PublicKey == "" {
		return chainerr.TransactionError("non-reward transaction must carry a signature and public key")
	}

	var total float64
	for _, v := range tx.Output {
		total += v
	}
	if total != tx.Input.Amount {
		return chainerr.TransactionError("output total does not match input amount")
	}

	pub, err := cryptoutil.DecodePublicKey(tx.Input.PublicKey)
	if err != nil {
		return err
	}
	sig, err := tx.Input.Signature.toCrypto()
	if err != nil {
		return err
	}
	ok, err := cryptoutil.Verify(pub, tx.Output, sig)
	if err != nil {
		return err
	}
	if !ok {
		return chainerr.TransactionError("invalid transaction signature")
	}
	return nil
}

// FromBlockData decodes a block's opaque Data payload back into the
// list of transactions it carries.
func FromBlockData(data interface{}) ([]*Transaction, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, chainerr.BlockchainError("failed to encode block data")
	}
	var txs []*Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, chainerr.BlockchainError("block data is not a valid transaction list")
	}
	return txs, nil
}
