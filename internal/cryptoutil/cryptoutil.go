// Package cryptoutil provides the hashing and signing primitives shared
// by the block, transaction and wallet packages: canonical block
// hashing, hex-to-binary difficulty encoding, and SECP256K1 ECDSA
// keypair generation/sign/verify.
package cryptoutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chainforge/chainnode/internal/chainerr"
)

// Curve returns the SECP256K1 curve used for every keypair in this node.
func Curve() elliptic.Curve {
	return btcec.S256()
}

// GenerateKey mints a new SECP256K1 ECDSA private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(Curve(), rand.Reader)
	if err != nil {
		return nil, chainerr.WalletError("failed to generate private key").WithBody(err.Error())
	}
	return key, nil
}

// HashBlock renders each argument to canonical JSON text (record keys
// sorted, no extra whitespace), sorts the
// resulting strings lexicographically, concatenates them and returns the
// SHA-256 hex digest. Sorting before concatenation makes the digest
// independent of argument order while remaining sensitive to every
// argument's value — the same algorithm as the original node's
// hash_block(*args).
func HashBlock(args ...interface{}) (string, error) {
	rendered := make([]string, 0, len(args))
	for _, arg := range args {
		text, err := json.Marshal(arg)
		if err != nil {
			return "", chainerr.BlockError("failed to encode hash argument").WithBody(err.Error())
		}
		// Re-encode through a generic value so every record's keys come
		// out sorted, whether arg was a struct or already-decoded JSON.
		var generic interface{}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return "", chainerr.BlockError("failed to encode hash argument").WithBody(err.Error())
		}
		if text, err = json.Marshal(generic); err != nil {
			return "", chainerr.BlockError("failed to encode hash argument").WithBody(err.Error())
		}
		rendered = append(rendered, string(text))
	}
	sort.Strings(rendered)
	sum := sha256.Sum256([]byte(strings.Join(rendered, "")))
	return fmt.Sprintf("%x", sum), nil
}

// HexToBinary converts a hex-encoded SHA-256 digest into its 256-bit,
// zero-padded binary string representation, so difficulty can be
// measured in leading zero bits rather than leading zero hex digits.
func HexToBinary(hexHash string) (string, error) {
	value, ok := new(big.Int).SetString(hexHash, 16)
	if !ok {
		return "", chainerr.BlockError("invalid hex hash", hexHash)
	}
	binary := value.Text(2)
	if pad := 256 - len(binary); pad > 0 {
		binary = strings.Repeat("0", pad) + binary
	}
	return binary, nil
}

// MeetsDifficulty reports whether hexHash has at least difficulty
// leading zero bits once expanded to its 256-bit binary form.
func MeetsDifficulty(hexHash string, difficulty int) (bool, error) {
	binary, err := HexToBinary(hexHash)
	if err != nil {
		return false, err
	}
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > len(binary) {
		difficulty = len(binary)
	}
	return strings.HasPrefix(binary, strings.Repeat("0", difficulty)), nil
}

// EncodePublicKey renders pub as an uncompressed-point hex string
// suitable for carrying on the wire inside a transaction input.
func EncodePublicKey(pub *ecdsa.PublicKey) string {
	return fmt.Sprintf("%x", elliptic.Marshal(pub.Curve, pub.X, pub.Y))
}

// DecodePublicKey parses the hex form produced by EncodePublicKey back
// into a public key on the SECP256K1 curve.
func DecodePublicKey(hexKey string) (*ecdsa.PublicKey, error) {
	data, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, chainerr.WalletError("invalid public key encoding").WithBody(err.Error())
	}
	curve := Curve()
	x, y := elliptic.Unmarshal(curve, data)
	if x == nil {
		return nil, chainerr.WalletError("invalid public key point encoding")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// Signature is the (r, s) pair produced by signing a digest.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Sign signs the canonical-JSON encoding of data with key.
func Sign(key *ecdsa.PrivateKey, data interface{}) (*Signature, error) {
	digest, err := digestOf(data)
	if err != nil {
		return nil, err
	}
	r, s, err := ecdsa.Sign(rand.Reader, key, digest)
	if err != nil {
		return nil, chainerr.WalletError("failed to sign data").WithBody(err.Error())
	}
	return &Signature{R: r, S: s}, nil
}

// Verify reports whether sig is a valid signature over data's canonical
// encoding under the given public key.
func Verify(pub *ecdsa.PublicKey, data interface{}, sig *Signature) (bool, error) {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false, nil
	}
	digest, err := digestOf(data)
	if err != nil {
		return false, err
	}
	return ecdsa.Verify(pub, digest, sig.R, sig.S), nil
}

func digestOf(data interface{}) ([]byte, error) {
	text, err := json.Marshal(data)
	if err != nil {
		return nil, chainerr.WalletError("failed to encode data for signing").WithBody(err.Error())
	}
	sum := sha256.Sum256(text)
	return sum[:], nil
}
