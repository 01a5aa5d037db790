package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Engine backends
const (
	EngineLocal  = "local"
	EngineNitro  = "nitro"
	EngineRemote = "remote"
)

// Config holds the settings shared by the CLI and the prover service.
type Config struct {
	Engine string

	// Local sealing. SealKeyHex wins over SealSeed.
	SealKeyHex     string
	SealSeed       string
	TrustedSigners []common.Address

	// Nitro attestation
	ExpectedPCR0 string

	// Remote prover
	ProverURL       string
	ProverVsockCID  uint32
	ProverVsockPort uint32
	ProveTimeout    time.Duration

	// Prover service
	ListenAddr      string
	ListenVsockPort uint32
	ProverBackend   string
}

// Option overrides a loaded setting before validation.
type Option func(*Config)

// WithEngine overrides ZKCAT_ENGINE. An empty name keeps the environment value.
func WithEngine(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Engine = name
		}
	}
}

// WithListenAddr overrides ZKCAT_LISTEN_ADDR. An empty address keeps the
// environment value.
func WithListenAddr(addr string) Option {
	return func(c *Config) {
		if addr != "" {
			c.ListenAddr = addr
		}
	}
}

// WithProverBackend overrides ZKCAT_PROVER_BACKEND. An empty name keeps the
// environment value.
func WithProverBackend(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.ProverBackend = name
		}
	}
}

// LoadConfig reads the configuration from the environment. If envFile is
// non-empty it is loaded first; variables already set in the process win.
// Options are applied before the config is validated.
func LoadConfig(envFile string, opts ...Option) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, NewConfigurationError("env_file", fmt.Sprintf("cannot load %s: %v", envFile, err))
		}
	}

	config := &Config{
		Engine:          GetEnvOrDefault("ZKCAT_ENGINE", EngineLocal),
		SealKeyHex:      os.Getenv("ZKCAT_SEAL_KEY"),
		SealSeed:        GetEnvOrDefault("ZKCAT_SEAL_SEED", DevSealSeed),
		ExpectedPCR0:    strings.ToLower(os.Getenv("ZKCAT_EXPECTED_PCR0")),
		ProverURL:       os.Getenv("ZKCAT_PROVER_URL"),
		ProverVsockCID:  GetEnvUint32OrDefault("ZKCAT_PROVER_VSOCK_CID", 0),
		ProverVsockPort: GetEnvUint32OrDefault("ZKCAT_PROVER_VSOCK_PORT", 0),
		ListenAddr:      GetEnvOrDefault("ZKCAT_LISTEN_ADDR", ":8090"),
		ListenVsockPort: GetEnvUint32OrDefault("ZKCAT_LISTEN_VSOCK_PORT", 0),
		ProverBackend:   GetEnvOrDefault("ZKCAT_PROVER_BACKEND", EngineLocal),
	}

	timeout := GetEnvOrDefault("ZKCAT_PROVE_TIMEOUT", "0")
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, NewConfigurationError("ZKCAT_PROVE_TIMEOUT", err.Error())
	}
	config.ProveTimeout = d

	signers, err := ParseSignerList(os.Getenv("ZKCAT_TRUSTED_SIGNERS"))
	if err != nil {
		return nil, err
	}
	config.TrustedSigners = signers

	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the cross-field rules.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineLocal, EngineNitro:
	case EngineRemote:
		if c.ProverURL == "" && c.ProverVsockPort == 0 {
			return NewConfigurationError("ZKCAT_PROVER_URL", "remote engine needs a prover URL or vsock port")
		}
	default:
		return NewConfigurationError("ZKCAT_ENGINE", fmt.Sprintf("unknown engine %q", c.Engine))
	}
	switch c.ProverBackend {
	case EngineLocal, EngineNitro:
	default:
		return NewConfigurationError("ZKCAT_PROVER_BACKEND", fmt.Sprintf("unsupported backend %q", c.ProverBackend))
	}
	if c.ProveTimeout < 0 {
		return NewConfigurationError("ZKCAT_PROVE_TIMEOUT", "must not be negative")
	}
	return nil
}

// ParseSignerList parses a comma-separated list of 0x addresses.
func ParseSignerList(s string) ([]common.Address, error) {
	var out []common.Address
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !common.IsHexAddress(tok) {
			return nil, NewConfigurationError("ZKCAT_TRUSTED_SIGNERS", fmt.Sprintf("invalid address %q", tok))
		}
		out = append(out, common.HexToAddress(tok))
	}
	return out, nil
}

// Helper functions for environment variable handling
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvUint32OrDefault(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(intValue)
		}
	}
	return defaultValue
}
