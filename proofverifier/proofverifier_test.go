package proofverifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zkcat/guest"
	"zkcat/shared"
	"zkcat/zkvm"
)

const testSeed = "proofverifier test seed"

func writeArtifact(t *testing.T, content string, indices []uint64) (string, *zkvm.Receipt) {
	t.Helper()
	key, err := shared.DeriveSigningKey(testSeed)
	require.NoError(t, err)
	receipt, err := zkvm.NewSignerProver(key, nil).Prove(context.Background(), guest.NewRedactionProgram(), guest.EncodeInput(content, indices))
	require.NoError(t, err)
	data, err := zkvm.MarshalReceipt(receipt)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "doc.txt.proof")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, receipt
}

func newTestValidator(t *testing.T, seed string) *Validator {
	t.Helper()
	verifier, err := NewVerifier(&shared.Config{SealSeed: seed})
	require.NoError(t, err)
	return NewValidator(verifier, shared.WrapLogger(zaptest.NewLogger(t), "verifier-test"))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	const content = "line0\nline1\nline2"

	t.Run("RoundTrip", func(t *testing.T) {
		path, receipt := writeArtifact(t, content, []uint64{2, 0, 2})
		report, err := newTestValidator(t, testSeed).Validate(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, guest.Compute(content, []uint64{2, 0, 2}), report.Commitment)
		assert.Equal(t, []uint64{2, 0, 2}, report.Commitment.Indices)
		assert.Equal(t, receipt.SessionID, report.SessionID)
		assert.Equal(t, guest.NewRedactionProgram().ImageID().String(), report.ImageID)
		assert.Equal(t, zkvm.SealSecp256k1, report.SealKind)
		assert.Equal(t, path, report.ArtifactPath)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := newTestValidator(t, testSeed).Validate(ctx, filepath.Join(t.TempDir(), "none.proof"))
		var ioErr *shared.IOError
		require.True(t, errors.As(err, &ioErr))
	})

	t.Run("Garbage", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.proof")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a receipt"), 0o644))
		_, err := newTestValidator(t, testSeed).Validate(ctx, path)
		var verr *shared.VerificationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, shared.PhaseDecode, verr.Phase)
	})

	t.Run("TamperedJournal", func(t *testing.T) {
		_, receipt := writeArtifact(t, content, []uint64{1})
		c, err := guest.DecodeCommitment(receipt.Journal)
		require.NoError(t, err)

		// claim a different redacted digest under the original seal
		var j zkvm.Journal
		forged := shared.HashBytes([]byte("line0\nline1\nline2"))
		j.Commit(c.FullDigest[:])
		j.Commit(forged[:])
		j.Commit(guest.EncodeIndices(c.Indices))
		receipt.Journal = j.Bytes()

		data, err := zkvm.MarshalReceipt(receipt)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "tampered.proof")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = newTestValidator(t, testSeed).Validate(ctx, path)
		var verr *shared.VerificationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, shared.PhaseVerify, verr.Phase)
	})

	t.Run("UntrustedSigner", func(t *testing.T) {
		path, _ := writeArtifact(t, content, nil)
		_, err := newTestValidator(t, "a different seed").Validate(ctx, path)
		assert.ErrorIs(t, err, zkvm.ErrUntrustedSigner)
	})

	t.Run("NitroSealRejected", func(t *testing.T) {
		_, receipt := writeArtifact(t, content, nil)
		receipt.Seal = zkvm.Seal{Kind: zkvm.SealNitro, Attestation: []byte("not a COSE document")}
		data, err := zkvm.MarshalReceipt(receipt)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "nitro.proof")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = newTestValidator(t, testSeed).Validate(ctx, path)
		var verr *shared.VerificationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("NitroSealWithoutPinnedEnclave", func(t *testing.T) {
		_, receipt := writeArtifact(t, content, nil)
		receipt.Seal = zkvm.Seal{Kind: zkvm.SealNitro, Attestation: []byte("any enclave document")}

		v, err := NewVerifier(&shared.Config{})
		require.NoError(t, err)
		assert.ErrorIs(t, v.Verify(receipt, receipt.ImageID), zkvm.ErrSealKind)
	})

	t.Run("Cancelled", func(t *testing.T) {
		path, _ := writeArtifact(t, content, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newTestValidator(t, testSeed).Validate(cctx, path)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
