// Package zkvm is the contract between zkcat and a verifiable computation
// backend: programs are identified by an ImageID, run on private input,
// and publish an ordered journal sealed into a Receipt that any Verifier
// holding the same ImageID can check later.
package zkvm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// ImageIDSize is the length of a program identity.
const ImageIDSize = 32

// ImageID fingerprints a guest program. Proving and verifying runs only
// interoperate when they agree on it.
type ImageID [ImageIDSize]byte

// ComputeImageID derives an ImageID from a program manifest.
func ComputeImageID(manifest []byte) ImageID {
	return ImageID(blake3.Sum256(manifest))
}

func (id ImageID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseImageID decodes a hex image id.
func ParseImageID(s string) (ImageID, error) {
	var id ImageID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid image id: %v", err)
	}
	if len(b) != ImageIDSize {
		return id, fmt.Errorf("invalid image id length %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Program is a deterministic guest.
type Program interface {
	Name() string
	ImageID() ImageID
	// Run reads private input from env and commits public outputs to it.
	Run(env *Env) error
}

// Prover runs a program on private input and returns a sealed receipt.
type Prover interface {
	Prove(ctx context.Context, program Program, input []byte) (*Receipt, error)
}

// Verifier checks that a receipt was produced by the program with the given id.
type Verifier interface {
	Verify(receipt *Receipt, id ImageID) error
}

// Engine proves and verifies. The host orchestrator is handed one explicitly.
type Engine interface {
	Prover
	Verifier
}

type engine struct {
	Prover
	Verifier
}

// NewEngine pairs a prover with the verifier for its seals.
func NewEngine(p Prover, v Verifier) Engine {
	return engine{Prover: p, Verifier: v}
}

// SealKind names the backend that sealed a receipt.
type SealKind string

const (
	SealSecp256k1 SealKind = "secp256k1"
	SealNitro     SealKind = "nitro"
)

// Seal is the backend-specific evidence binding a receipt's claim.
type Seal struct {
	Kind        SealKind
	Signature   []byte
	Attestation []byte
}

// ReceiptVersion is bumped whenever the serialized layout changes.
const ReceiptVersion = 1

// Receipt is the proof artifact: an image id, the public journal and a seal
// over both.
type Receipt struct {
	Version   uint32
	SessionID string
	ImageID   ImageID
	Journal   []byte
	Seal      Seal
}

// Claim returns the digest every seal must bind.
func (r *Receipt) Claim() [32]byte {
	return ClaimDigest(r.ImageID, r.Journal)
}

// Verification failures shared by every backend
var (
	ErrImageMismatch   = errors.New("receipt image id does not match expected program")
	ErrSealKind        = errors.New("unsupported seal kind")
	ErrUntrustedSigner = errors.New("receipt sealed by untrusted signer")
	ErrClaimMismatch   = errors.New("seal does not bind receipt claim")
)

// CheckImage rejects receipts for other programs.
func (r *Receipt) CheckImage(id ImageID) error {
	if r.ImageID != id {
		return fmt.Errorf("%w: got %s, want %s", ErrImageMismatch, r.ImageID, id)
	}
	return nil
}
