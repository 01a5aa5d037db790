package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	t.Setenv("ZKCAT_SEAL_SEED", "prover cmd test seed")
	t.Setenv("ZKCAT_QUIET", "true")
}

func execute(ctx context.Context, args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func checkFlag(t *testing.T, cmd *cobra.Command, name, shorthand, usage string) {
	t.Helper()
	flag := cmd.Flags().Lookup(name)
	require.NotNil(t, flag)
	assert.Equal(t, shorthand, flag.Shorthand)
	assert.Equal(t, usage, flag.Usage)
	assert.Equal(t, "", flag.DefValue)
}

func TestRootCmdContents(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "zkcat-prover", cmd.Use)

	checkFlag(t, cmd, envFileFlagName, "", envFileFlagUsage)
	checkFlag(t, cmd, listenFlagName, listenFlagShorthand, listenFlagUsage)
	checkFlag(t, cmd, backendFlagName, backendFlagShorthand, backendFlagUsage)
}

func TestStartProver(t *testing.T) {
	t.Run("ServesUntilCancelled", func(t *testing.T) {
		setEnv(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, execute(ctx, "--listen", "127.0.0.1:0"))
	})

	t.Run("MissingEnvFile", func(t *testing.T) {
		setEnv(t)
		err := execute(context.Background(), "--env-file", filepath.Join(t.TempDir(), "absent.env"))
		var cfgErr *shared.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "env_file", cfgErr.Field)
	})

	t.Run("UnsupportedBackend", func(t *testing.T) {
		setEnv(t)
		err := execute(context.Background(), "-b", "remote", "-l", "127.0.0.1:0")
		var cfgErr *shared.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "ZKCAT_PROVER_BACKEND", cfgErr.Field)
	})

	t.Run("BackendFlagOverridesBadEnv", func(t *testing.T) {
		setEnv(t)
		t.Setenv("ZKCAT_PROVER_BACKEND", "quantum")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, execute(ctx, "--backend", "local", "--listen", "127.0.0.1:0"))
	})

	t.Run("BadListenAddr", func(t *testing.T) {
		setEnv(t)
		err := execute(context.Background(), "--listen", "127.0.0.1:-1")
		require.Error(t, err)
	})

	t.Run("BadSealKey", func(t *testing.T) {
		setEnv(t)
		t.Setenv("ZKCAT_SEAL_KEY", "not-hex")
		err := execute(context.Background(), "--listen", "127.0.0.1:0")
		require.Error(t, err)
	})

	t.Run("RejectsArgs", func(t *testing.T) {
		setEnv(t)
		require.Error(t, execute(context.Background(), "extra"))
	})
}
