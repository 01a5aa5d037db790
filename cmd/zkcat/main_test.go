package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkcat/guest"
	"zkcat/shared"
)

func setEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ZKCAT_ENGINE", "ZKCAT_SEAL_KEY", "ZKCAT_TRUSTED_SIGNERS", "ZKCAT_EXPECTED_PCR0",
		"ZKCAT_PROVER_URL", "ZKCAT_PROVER_VSOCK_CID", "ZKCAT_PROVER_VSOCK_PORT",
		"ZKCAT_PROVE_TIMEOUT", "ZKCAT_LISTEN_ADDR", "ZKCAT_LISTEN_VSOCK_PORT", "ZKCAT_PROVER_BACKEND",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("ZKCAT_SEAL_SEED", "cli test seed")
	t.Setenv("ZKCAT_QUIET", "true")
	pterm.DisableColor()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProveAndVerify(t *testing.T) {
	setEnv(t)
	const content = "alice\nbob\ncarol\n"
	path := writeDoc(t, content)

	out, err := execute(t, path, "-r", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "alice\n"+guest.Sentinel+"\ncarol\n")
	assert.Contains(t, out, "Proof generated and verified!")
	assert.Contains(t, out, shared.HashBytes([]byte(content)).String())
	assert.Contains(t, out, "Redacted line indices: [1]")
	assert.Contains(t, out, "Proof saved to: "+path+".proof")
	assert.FileExists(t, path+".proof")

	out, err = execute(t, path+".proof", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Proof verified successfully!")
	assert.Contains(t, out, shared.HashBytes([]byte("alice\n"+guest.Sentinel+"\ncarol")).String())
}

func TestJSONReport(t *testing.T) {
	setEnv(t)
	path := writeDoc(t, "a\nb\n")

	out, err := execute(t, path, "--redact", "0, 9", "--json", "--stats")
	require.NoError(t, err)

	var rep report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "prove", rep.Mode)
	assert.Equal(t, []uint64{0, 9}, rep.Indices)
	assert.Equal(t, shared.HashBytes([]byte("a\nb\n")).String(), rep.FullDigest)
	assert.Equal(t, []string{guest.Sentinel, "b"}, rep.RedactedLines)
	assert.Equal(t, "secp256k1", rep.SealKind)
	require.NotNil(t, rep.Stats)

	out, err = execute(t, rep.ProofPath, "-v", "--json")
	require.NoError(t, err)
	var verified report
	require.NoError(t, json.Unmarshal([]byte(out), &verified))
	assert.Equal(t, "verify", verified.Mode)
	assert.Equal(t, rep.FullDigest, verified.FullDigest)
	assert.Equal(t, rep.RedactedDigest, verified.RedactedDigest)
	assert.Equal(t, rep.Indices, verified.Indices)
	assert.Nil(t, verified.Stats)
}

func TestOutputFlag(t *testing.T) {
	setEnv(t)
	path := writeDoc(t, "keep\nsecret\n")
	out := filepath.Join(t.TempDir(), "redacted.txt")

	_, err := execute(t, path, "-r", "1", "-o", out)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep\n"+guest.Sentinel, string(got))
}

func TestErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		setEnv(t)
		_, err := execute(t, filepath.Join(t.TempDir(), "nope.txt"))
		var ioErr *shared.IOError
		require.True(t, errors.As(err, &ioErr))
	})

	t.Run("GarbageProof", func(t *testing.T) {
		setEnv(t)
		path := writeDoc(t, "not a receipt")
		_, err := execute(t, path, "--verify")
		var verr *shared.VerificationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("UntrustedSigner", func(t *testing.T) {
		setEnv(t)
		path := writeDoc(t, "a\n")
		_, err := execute(t, path)
		require.NoError(t, err)

		t.Setenv("ZKCAT_SEAL_SEED", "some other seed")
		_, err = execute(t, path+".proof", "-v")
		var verr *shared.VerificationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("StrictIndices", func(t *testing.T) {
		setEnv(t)
		path := writeDoc(t, "a\n")
		_, err := execute(t, path, "-r", "0,zero", "--strict")
		require.Error(t, err)
		assert.NoFileExists(t, path+".proof")
	})

	t.Run("UnknownEngine", func(t *testing.T) {
		setEnv(t)
		_, err := execute(t, writeDoc(t, "a\n"), "--engine", "quantum")
		var cfgErr *shared.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
	})

	t.Run("EngineFlagOverridesBadEnv", func(t *testing.T) {
		setEnv(t)
		t.Setenv("ZKCAT_ENGINE", "quantum")
		path := writeDoc(t, "a\n")
		_, err := execute(t, path, "--engine", "local")
		require.NoError(t, err)
		assert.FileExists(t, path+".proof")
	})

	t.Run("OutputOverInput", func(t *testing.T) {
		setEnv(t)
		path := writeDoc(t, "secret\n")
		_, err := execute(t, path, "-r", "0", "-o", path)
		var cfgErr *shared.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "secret\n", string(got))
	})

	t.Run("NoArgs", func(t *testing.T) {
		setEnv(t)
		_, err := execute(t)
		require.Error(t, err)
	})
}
