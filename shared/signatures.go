package shared

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

// DevSealSeed is the seed both sides fall back to when no sealing key is
// configured. Receipts sealed with it prove nothing about who ran the guest.
const DevSealSeed = "zkcat development seal"

const sealKeyInfo = "zkcat/seal-key/v1"

// SignatureLength is the size of an Ethereum-style signature with recovery id
const SignatureLength = 65

// SigningKeyPair represents a cryptographic ECDSA signing key pair for Ethereum-style signatures
type SigningKeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
}

// GenerateSigningKeyPair generates a new ECDSA signing key pair using secp256k1 curve (ETH compatible)
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key pair: %v", err)
	}
	return newKeyPair(privateKey), nil
}

// SigningKeyFromHex loads a secp256k1 private key, with or without 0x prefix
func SigningKeyFromHex(s string) (*SigningKeyPair, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid sealing key: %v", err)
	}
	return newKeyPair(privateKey), nil
}

// DeriveSigningKey deterministically derives a key pair from a seed with
// HKDF-SHA256. The same seed always yields the same address.
func DeriveSigningKey(seed string) (*SigningKeyPair, error) {
	if seed == "" {
		return nil, fmt.Errorf("empty sealing seed")
	}
	kdf := hkdf.New(sha256.New, []byte(seed), nil, []byte(sealKeyInfo))
	for i := 0; i < 8; i++ {
		buf := make([]byte, 32)
		if _, err := io.ReadFull(kdf, buf); err != nil {
			return nil, fmt.Errorf("failed to derive sealing key: %v", err)
		}
		// out-of-range scalars are skipped, the next block is tried
		privateKey, err := crypto.ToECDSA(buf)
		if err == nil {
			return newKeyPair(privateKey), nil
		}
	}
	return nil, fmt.Errorf("failed to derive sealing key: no valid scalar")
}

// SealingKey resolves the configured sealing key: explicit key first, seed otherwise.
func (c *Config) SealingKey() (*SigningKeyPair, error) {
	if c.SealKeyHex != "" {
		return SigningKeyFromHex(c.SealKeyHex)
	}
	return DeriveSigningKey(c.SealSeed)
}

// TrustedSignerSet returns the addresses a verifier should accept. With no
// explicit list the configured sealing key's own address is trusted.
func (c *Config) TrustedSignerSet() ([]common.Address, error) {
	if len(c.TrustedSigners) > 0 {
		return c.TrustedSigners, nil
	}
	kp, err := c.SealingKey()
	if err != nil {
		return nil, err
	}
	return []common.Address{kp.GetEthAddress()}, nil
}

func newKeyPair(privateKey *ecdsa.PrivateKey) *SigningKeyPair {
	return &SigningKeyPair{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}
}

// SignData signs the given data using Ethereum-style signatures
func (kp *SigningKeyPair) SignData(data []byte) ([]byte, error) {
	// Use standard Ethereum message signing (includes prefix)
	hash := accounts.TextHash(data)

	signature, err := crypto.Sign(hash, kp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign data with ETH style: %v", err)
	}

	return signature, nil
}

// GetEthAddress returns the Ethereum address for this key pair
func (kp *SigningKeyPair) GetEthAddress() common.Address {
	return crypto.PubkeyToAddress(*kp.PublicKey)
}

// RecoverSigner returns the address that produced signature over data
func RecoverSigner(data []byte, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid ETH signature length: expected %d bytes, got %d", SignatureLength, len(signature))
	}

	hash := accounts.TextHash(data)

	recoveredPubKey, err := crypto.SigToPub(hash, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key from signature: %v", err)
	}

	return crypto.PubkeyToAddress(*recoveredPubKey), nil
}

// VerifyEthSignature verifies an Ethereum-style signature against the given data and address
func VerifyEthSignature(data []byte, signature []byte, expectedAddress common.Address) error {
	recoveredAddress, err := RecoverSigner(data, signature)
	if err != nil {
		return err
	}

	if recoveredAddress != expectedAddress {
		return fmt.Errorf("signature verification failed: expected address %s, got %s",
			expectedAddress.Hex(), recoveredAddress.Hex())
	}

	return nil
}
