package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"zkcat/host"
	"zkcat/proofverifier"
	"zkcat/shared"
)

type options struct {
	redact  string
	verify  bool
	output  string
	json    bool
	stats   bool
	strict  bool
	engine  string
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "zkcat <file>",
		Short: "Zero-knowledge file viewer with redaction proofs",
		Long: `zkcat prints a text file with chosen lines redacted and proves that the
redacted view was derived from a file with a given SHA-256 digest.

Examples:
  zkcat notes.txt -r 1,3        # prove, writes notes.txt.proof
  zkcat notes.txt.proof -v      # verify a stored proof
  zkcat notes.txt -r 0 --json   # machine readable report`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.redact, "redact", "r", "", "comma-separated zero-based line indices to redact")
	f.BoolVarP(&opts.verify, "verify", "v", false, "treat <file> as a proof artifact and verify it")
	f.StringVarP(&opts.output, "output", "o", "", "also write the redacted text to this file")
	f.BoolVar(&opts.json, "json", false, "print a JSON report instead of coloured text")
	f.BoolVar(&opts.stats, "stats", false, "include per-phase timings")
	f.BoolVar(&opts.strict, "strict", false, "reject malformed redaction indices instead of skipping them")
	f.StringVar(&opts.engine, "engine", "", "proving engine: local, nitro or remote (default from ZKCAT_ENGINE)")
	f.StringVar(&opts.envFile, "env-file", "", "load settings from a .env file")
	return cmd
}

func run(cmd *cobra.Command, opts *options, path string) error {
	cfg, err := shared.LoadConfig(opts.envFile, shared.WithEngine(opts.engine))
	if err != nil {
		return err
	}

	logger, err := shared.NewLogger(shared.LoggerConfig{
		ServiceName: "zkcat",
		Development: shared.GetEnvOrDefault("DEVELOPMENT", "false") == "true",
		Quiet:       shared.GetEnvOrDefault("ZKCAT_QUIET", "true") == "true",
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}
	defer logger.Close()

	if opts.json {
		pterm.DisableColor()
	}
	out := cmd.OutOrStdout()

	if opts.verify {
		verifier, err := proofverifier.NewVerifier(cfg)
		if err != nil {
			return err
		}
		report, err := proofverifier.NewValidator(verifier, logger).Validate(cmd.Context(), path)
		if err != nil {
			return err
		}
		if opts.json {
			return writeJSON(out, verifyReport(report))
		}
		printVerified(out, report)
		return nil
	}

	engine, closer, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	res, err := host.NewOrchestrator(engine, logger).GenerateProof(cmd.Context(), host.Request{
		Path:       path,
		Redact:     opts.redact,
		Strict:     opts.strict,
		OutputPath: opts.output,
	})
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSON(out, proveReport(res, opts.stats))
	}
	printProved(out, res, opts.stats)
	return nil
}
