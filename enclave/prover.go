package enclave

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zkcat/shared"
	"zkcat/zkvm"
)

// Prover executes guests in the enclave and seals the receipt claim in an
// attestation document's user data.
type Prover struct {
	attester Attester
	logger   *shared.Logger
}

// NewProver creates a prover backed by attester.
func NewProver(attester Attester, logger *shared.Logger) *Prover {
	if logger == nil {
		logger = shared.NewNopLogger()
	}
	return &Prover{attester: attester, logger: logger}
}

// Prove implements zkvm.Prover.
func (p *Prover) Prove(ctx context.Context, program zkvm.Program, input []byte) (*zkvm.Receipt, error) {
	sessionID := uuid.NewString()
	log := p.logger.WithSession(sessionID)
	start := time.Now()

	journal, err := zkvm.Execute(ctx, program, input)
	if err != nil {
		return nil, err
	}

	receipt := &zkvm.Receipt{
		Version:   zkvm.ReceiptVersion,
		SessionID: sessionID,
		ImageID:   program.ImageID(),
		Journal:   journal,
	}
	claim := receipt.Claim()
	doc, err := p.attester.Attest(claim[:], []byte(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to attest receipt: %v", err)
	}
	receipt.Seal = zkvm.Seal{Kind: zkvm.SealNitro, Attestation: doc}

	log.Debug("Receipt attested",
		zap.String("program", program.Name()),
		zap.String("image_id", receipt.ImageID.String()),
		zap.Int("attestation_bytes", len(doc)),
		zap.Duration("elapsed", time.Since(start)))
	return receipt, nil
}

// NewNitroEngine opens the NSM and pairs an enclave prover with a verifier
// pinned to cfg.ExpectedPCR0. The returned closer releases the NSM session.
func NewNitroEngine(cfg *shared.Config, logger *shared.Logger) (zkvm.Engine, io.Closer, error) {
	if cfg.ExpectedPCR0 == "" {
		return nil, nil, shared.NewConfigurationError("ZKCAT_EXPECTED_PCR0", "nitro engine needs the enclave PCR0 to verify against")
	}
	handle, err := OpenNSM()
	if err != nil {
		return nil, nil, err
	}
	prover := zkvm.WithTimeout(NewProver(handle, logger), cfg.ProveTimeout)
	return zkvm.NewEngine(prover, NewVerifier(cfg.ExpectedPCR0)), handle, nil
}
