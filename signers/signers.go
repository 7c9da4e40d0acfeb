// This file contains
// LocalSigner, a single secp256k1 key that implements the Signer interface
// Recover, the counterpart used by bridge endpoints to identify the signer
package signers

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/TEENet-io/tokenbridge/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const SignatureLength = crypto.SignatureLength

var (
	ErrInvalidHashLength      = errors.New("hash must be 32 bytes")
	ErrInvalidSignatureLength = errors.New("signature must be 65 bytes")
	ErrInvalidRecoveryID      = errors.New("invalid recovery id")
)

// Signer produces validator attestations.
type Signer interface {
	Address() ethcommon.Address
	Sign(hash []byte) ([]byte, error)
}

// Implementation: local secp256k1 key
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address ethcommon.Address
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Create a signer from a hex encoded private key, with or without 0x prefix.
func NewLocalSignerFromHex(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(common.Trim0xPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewLocalSigner(key), nil
}

func NewRandomLocalSigner() (*LocalSigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(key), nil
}

func (s *LocalSigner) Address() ethcommon.Address {
	return s.address
}

// Sign returns [R || S || V] with V in {27, 28}.
func (s *LocalSigner) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, ErrInvalidHashLength
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Recover returns the address that produced sig over hash. V may be given
// as 0/1 or 27/28.
func Recover(hash []byte, sig []byte) (ethcommon.Address, error) {
	if len(hash) != 32 {
		return ethcommon.Address{}, ErrInvalidHashLength
	}
	if len(sig) != SignatureLength {
		return ethcommon.Address{}, ErrInvalidSignatureLength
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	v := normalized[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return ethcommon.Address{}, ErrInvalidRecoveryID
	}
	normalized[crypto.RecoveryIDOffset] = v

	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return ethcommon.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
