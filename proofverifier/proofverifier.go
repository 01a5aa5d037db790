// Package proofverifier checks a stored proof artifact without access to
// the document it was produced from.
package proofverifier

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"zkcat/enclave"
	"zkcat/guest"
	"zkcat/shared"
	"zkcat/zkvm"
)

// Report is what a verified artifact publicly establishes.
type Report struct {
	ArtifactPath string           `json:"artifact_path"`
	Commitment   guest.Commitment `json:"commitment"`
	SessionID    string           `json:"session_id"`
	ImageID      string           `json:"image_id"`
	SealKind     zkvm.SealKind    `json:"seal_kind"`
}

// Validator verifies artifacts against the redaction program identity.
type Validator struct {
	verifier zkvm.Verifier
	program  zkvm.Program
	logger   *shared.Logger
}

// NewValidator wraps verifier. A nil logger discards output.
func NewValidator(verifier zkvm.Verifier, logger *shared.Logger) *Validator {
	if logger == nil {
		logger = shared.NewNopLogger()
	}
	return &Validator{
		verifier: verifier,
		program:  guest.NewRedactionProgram(),
		logger:   logger,
	}
}

// NewVerifier accepts signer seals from the configured trusted set. Nitro
// seals are accepted only when an enclave PCR0 is pinned.
func NewVerifier(cfg *shared.Config) (*zkvm.Dispatcher, error) {
	trusted, err := cfg.TrustedSignerSet()
	if err != nil {
		return nil, err
	}
	d := zkvm.NewDispatcher().Register(zkvm.SealSecp256k1, zkvm.NewSignerVerifier(trusted...))
	if cfg.ExpectedPCR0 != "" {
		d.Register(zkvm.SealNitro, enclave.NewVerifier(cfg.ExpectedPCR0))
	}
	return d, nil
}

// Validate reads, decodes and verifies the artifact at path.
func (v *Validator) Validate(ctx context.Context, path string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := v.logger.With(zap.String("artifact", path))

	data, err := readArtifact(path)
	if err != nil {
		return nil, err
	}

	receipt, err := zkvm.UnmarshalReceipt(data)
	if err != nil {
		return nil, shared.NewVerificationError(shared.PhaseDecode, "failed to deserialize proof", err)
	}
	log = log.With(zap.String("session_id", receipt.SessionID), zap.String("seal_kind", string(receipt.Seal.Kind)))

	if err := v.verifier.Verify(receipt, v.program.ImageID()); err != nil {
		log.Warn("Proof rejected", zap.Error(err))
		return nil, shared.NewVerificationError(shared.PhaseVerify, "proof verification failed", err)
	}

	commitment, err := guest.DecodeCommitment(receipt.Journal)
	if err != nil {
		return nil, shared.NewVerificationError(shared.PhaseDecode, "verified journal is not a redaction commitment", err)
	}

	log.Info("Proof verified",
		zap.String("full_digest", commitment.FullDigest.String()),
		zap.String("redacted_digest", commitment.RedactedDigest.String()),
		zap.Uint64s("indices", commitment.Indices))

	return &Report{
		ArtifactPath: path,
		Commitment:   *commitment,
		SessionID:    receipt.SessionID,
		ImageID:      receipt.ImageID.String(),
		SealKind:     receipt.Seal.Kind,
	}, nil
}

func readArtifact(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, shared.NewIOError(shared.PhaseRead, path, "cannot open proof file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxArtifactSize+1))
	if err != nil {
		return nil, shared.NewIOError(shared.PhaseRead, path, "failed to read proof file", err)
	}
	if len(data) > MaxArtifactSize {
		return nil, shared.NewIOError(shared.PhaseRead, path, fmt.Sprintf("proof exceeds %d bytes:", MaxArtifactSize), nil)
	}
	return data, nil
}
