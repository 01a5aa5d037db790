package zkvm

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"zkcat/shared"
)

// SignerProver runs guests in-process and seals the claim with a secp256k1
// key. It is as trustworthy as the holder of that key.
type SignerProver struct {
	key    *shared.SigningKeyPair
	logger *shared.Logger
}

// NewSignerProver creates a prover sealing with key.
func NewSignerProver(key *shared.SigningKeyPair, logger *shared.Logger) *SignerProver {
	if logger == nil {
		logger = shared.NewNopLogger()
	}
	return &SignerProver{key: key, logger: logger}
}

// Address is the signer address verifiers must trust.
func (p *SignerProver) Address() common.Address {
	return p.key.GetEthAddress()
}

// Prove implements Prover.
func (p *SignerProver) Prove(ctx context.Context, program Program, input []byte) (*Receipt, error) {
	sessionID := uuid.NewString()
	log := p.logger.WithSession(sessionID)
	start := time.Now()

	journal, err := Execute(ctx, program, input)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Version:   ReceiptVersion,
		SessionID: sessionID,
		ImageID:   program.ImageID(),
		Journal:   journal,
	}
	claim := receipt.Claim()
	sig, err := p.key.SignData(claim[:])
	if err != nil {
		return nil, fmt.Errorf("failed to seal receipt: %v", err)
	}
	receipt.Seal = Seal{Kind: SealSecp256k1, Signature: sig}

	log.Debug("Receipt sealed",
		zap.String("program", program.Name()),
		zap.String("image_id", receipt.ImageID.String()),
		zap.String("signer", p.Address().Hex()),
		zap.Int("journal_bytes", len(journal)),
		zap.Duration("elapsed", time.Since(start)))
	return receipt, nil
}

// SignerVerifier accepts secp256k1 seals from a fixed set of signers.
type SignerVerifier struct {
	trusted map[common.Address]struct{}
}

// NewSignerVerifier trusts the given signer addresses.
func NewSignerVerifier(trusted ...common.Address) *SignerVerifier {
	v := &SignerVerifier{trusted: make(map[common.Address]struct{}, len(trusted))}
	for _, a := range trusted {
		v.trusted[a] = struct{}{}
	}
	return v
}

// Verify implements Verifier.
func (v *SignerVerifier) Verify(receipt *Receipt, id ImageID) error {
	if receipt == nil {
		return fmt.Errorf("nil receipt")
	}
	if err := receipt.CheckImage(id); err != nil {
		return err
	}
	if receipt.Seal.Kind != SealSecp256k1 {
		return fmt.Errorf("%w: %q", ErrSealKind, receipt.Seal.Kind)
	}
	claim := receipt.Claim()
	signer, err := shared.RecoverSigner(claim[:], receipt.Seal.Signature)
	if err != nil {
		return fmt.Errorf("invalid seal: %w", err)
	}
	if _, ok := v.trusted[signer]; !ok {
		return fmt.Errorf("%w: %s", ErrUntrustedSigner, signer.Hex())
	}
	return nil
}

// NewLocalEngine builds the in-process engine from config: the sealing key
// proves, the trusted signer set verifies.
func NewLocalEngine(cfg *shared.Config, logger *shared.Logger) (Engine, error) {
	key, err := cfg.SealingKey()
	if err != nil {
		return nil, err
	}
	trusted, err := cfg.TrustedSignerSet()
	if err != nil {
		return nil, err
	}
	// the prover's own seals always verify locally
	trusted = append(append([]common.Address(nil), trusted...), key.GetEthAddress())
	prover := WithTimeout(NewSignerProver(key, logger), cfg.ProveTimeout)
	return NewEngine(prover, NewSignerVerifier(trusted...)), nil
}
