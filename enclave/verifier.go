package enclave

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/anjuna-security/go-nitro-attestation/verifier"

	"zkcat/zkvm"
)

// Nitro verification failures
var (
	ErrPCR0Mismatch  = errors.New("enclave PCR0 does not match expected measurement")
	ErrPCR0NotPinned = errors.New("no expected enclave PCR0 configured")
)

// attestedFields is what verification needs from a validated document.
type attestedFields struct {
	UserData []byte
	PCR0     string
}

type documentValidator func(doc []byte) (*attestedFields, error)

// Verifier accepts Nitro seals whose document chains to the AWS root and
// whose user data is the receipt claim.
type Verifier struct {
	expectedPCR0 string
	validate     documentValidator
}

// NewVerifier creates a verifier pinned to expectedPCR0 (lowercase hex). Any
// Nitro enclave can produce a valid document, so an empty pin rejects every
// seal.
func NewVerifier(expectedPCR0 string) *Verifier {
	return &Verifier{expectedPCR0: strings.ToLower(expectedPCR0), validate: validateNitroDocument}
}

// Verify implements zkvm.Verifier.
func (v *Verifier) Verify(receipt *zkvm.Receipt, id zkvm.ImageID) error {
	if receipt == nil {
		return fmt.Errorf("nil receipt")
	}
	if err := receipt.CheckImage(id); err != nil {
		return err
	}
	if receipt.Seal.Kind != zkvm.SealNitro {
		return fmt.Errorf("%w: %q", zkvm.ErrSealKind, receipt.Seal.Kind)
	}
	if v.expectedPCR0 == "" {
		return ErrPCR0NotPinned
	}
	if len(receipt.Seal.Attestation) == 0 {
		return fmt.Errorf("nitro seal carries no attestation document")
	}

	fields, err := v.validate(receipt.Seal.Attestation)
	if err != nil {
		return err
	}
	claim := receipt.Claim()
	if !bytes.Equal(fields.UserData, claim[:]) {
		return zkvm.ErrClaimMismatch
	}
	if fields.PCR0 != v.expectedPCR0 {
		return fmt.Errorf("%w: got %s", ErrPCR0Mismatch, fields.PCR0)
	}
	return nil
}

func validateNitroDocument(doc []byte) (*attestedFields, error) {
	sr, err := verifier.NewSignedAttestationReport(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nitro attestation document: %v", err)
	}
	if err := verifier.Validate(sr, nil); err != nil {
		return nil, fmt.Errorf("nitro attestation validation failed: %v", err)
	}
	pcr0 := sr.Document.PCRs[0]
	if pcr0 == nil {
		return nil, fmt.Errorf("PCR0 not found in attestation document")
	}
	return &attestedFields{
		UserData: sr.Document.UserData,
		PCR0:     fmt.Sprintf("%x", pcr0),
	}, nil
}
