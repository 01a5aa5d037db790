package main

import (
	"io"

	"zkcat/enclave"
	"zkcat/proofverifier"
	"zkcat/remote"
	"zkcat/shared"
	"zkcat/zkvm"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newEngine builds the engine named by cfg.Engine. Verification always runs
// locally.
func newEngine(cfg *shared.Config, logger *shared.Logger) (zkvm.Engine, io.Closer, error) {
	switch cfg.Engine {
	case shared.EngineNitro:
		return enclave.NewNitroEngine(cfg, logger)
	case shared.EngineRemote:
		client, err := remote.NewClientFromConfig(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		verifier, err := proofverifier.NewVerifier(cfg)
		if err != nil {
			return nil, nil, err
		}
		return zkvm.NewEngine(zkvm.WithTimeout(client, cfg.ProveTimeout), verifier), nopCloser{}, nil
	default:
		engine, err := zkvm.NewLocalEngine(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return engine, nopCloser{}, nil
	}
}
