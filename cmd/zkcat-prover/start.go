package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zkcat/enclave"
	"zkcat/guest"
	"zkcat/remote"
	"zkcat/shared"
	"zkcat/zkvm"
)

const (
	envFileFlagName  = "env-file"
	envFileFlagUsage = "Load settings from a .env file. Variables already set in the process win."

	listenFlagName      = "listen"
	listenEnvKey        = "ZKCAT_LISTEN_ADDR"
	listenFlagShorthand = "l"
	listenFlagUsage     = "TCP address to serve the prover on. Format: HostName:Port." +
		" Alternatively, this can be set with the following environment variable: " + listenEnvKey

	backendFlagName      = "backend"
	backendEnvKey        = "ZKCAT_PROVER_BACKEND"
	backendFlagShorthand = "b"
	backendFlagUsage     = "Sealing backend. Supported options: local, nitro." +
		" Alternatively, this can be set with the following environment variable: " + backendEnvKey
)

type proverParameters struct {
	envFile string
	listen  string
	backend string
}

func newRootCmd() *cobra.Command {
	rootCmd := createRootCmd()

	createFlags(rootCmd)

	return rootCmd
}

func createRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "zkcat-prover",
		Short:         "Serve redaction proofs over WebSocket",
		Long:          "Serve redaction proofs over WebSocket or VSock, sealed by a local key or a Nitro enclave",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := &proverParameters{}
			var err error
			if params.envFile, err = cmd.Flags().GetString(envFileFlagName); err != nil {
				return err
			}
			if params.listen, err = cmd.Flags().GetString(listenFlagName); err != nil {
				return err
			}
			if params.backend, err = cmd.Flags().GetString(backendFlagName); err != nil {
				return err
			}
			return startProver(cmd.Context(), params)
		},
	}
}

func createFlags(rootCmd *cobra.Command) {
	rootCmd.Flags().String(envFileFlagName, "", envFileFlagUsage)
	rootCmd.Flags().StringP(listenFlagName, listenFlagShorthand, "", listenFlagUsage)
	rootCmd.Flags().StringP(backendFlagName, backendFlagShorthand, "", backendFlagUsage)
}

func startProver(ctx context.Context, params *proverParameters) error {
	cfg, err := shared.LoadConfig(params.envFile,
		shared.WithListenAddr(params.listen),
		shared.WithProverBackend(params.backend))
	if err != nil {
		return err
	}

	logger, err := shared.NewLoggerFromEnv("zkcat-prover")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	prover, closer, err := newBackend(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize %s prover backend: %w", cfg.ProverBackend, err)
	}
	defer closer.Close()

	ln, err := remote.Listen(cfg)
	if err != nil {
		return err
	}

	program := guest.NewRedactionProgram()
	logger.Info("Starting zkcat prover",
		zap.String("backend", cfg.ProverBackend),
		zap.String("image_id", program.ImageID().String()))
	if err := remote.NewServer(prover, logger, program).Serve(ctx, ln); err != nil {
		return fmt.Errorf("prover stopped: %w", err)
	}
	logger.Info("Prover shut down")
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newBackend(cfg *shared.Config, logger *shared.Logger) (zkvm.Prover, io.Closer, error) {
	if cfg.ProverBackend == shared.EngineNitro {
		handle, err := enclave.OpenNSM()
		if err != nil {
			return nil, nil, err
		}
		return zkvm.WithTimeout(enclave.NewProver(handle, logger), cfg.ProveTimeout), handle, nil
	}
	key, err := cfg.SealingKey()
	if err != nil {
		return nil, nil, err
	}
	p := zkvm.NewSignerProver(key, logger)
	logger.Info("Sealing with local key", zap.String("signer", p.Address().Hex()))
	return zkvm.WithTimeout(p, cfg.ProveTimeout), nopCloser{}, nil
}
