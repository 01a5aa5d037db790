// Package host drives a proving run: it reads the document, hands it to the
// engine, cross-checks the engine's public outputs against its own view of
// the input and only then persists the receipt.
package host

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"zkcat/guest"
	"zkcat/shared"
	"zkcat/zkvm"
)

// ProofSuffix is appended to the document path to name its artifact.
const ProofSuffix = ".proof"

// ProofPath returns where the artifact for documentPath is stored.
func ProofPath(documentPath string) string {
	return documentPath + ProofSuffix
}

// Request describes one proving run.
type Request struct {
	Path       string
	Redact     string // comma-separated line indices
	Strict     bool   // fail on malformed index tokens instead of skipping them
	OutputPath string // optional file for the redacted text
}

// Stats holds per-phase timings.
type Stats struct {
	Read       time.Duration `json:"read"`
	Prove      time.Duration `json:"prove"`
	SelfVerify time.Duration `json:"self_verify"`
	Persist    time.Duration `json:"persist"`
	Total      time.Duration `json:"total"`
}

// Result is what a successful run produced.
type Result struct {
	Commitment    guest.Commitment
	Requested     []uint64
	ProofPath     string
	OutputPath    string
	SessionID     string
	ImageID       zkvm.ImageID
	SealKind      zkvm.SealKind
	RedactedLines []string
	Stats         Stats
}

// Orchestrator is the prover host.
type Orchestrator struct {
	engine  zkvm.Engine
	program zkvm.Program
	logger  *shared.Logger
}

// NewOrchestrator binds the host to an engine handle.
func NewOrchestrator(engine zkvm.Engine, logger *shared.Logger) *Orchestrator {
	if logger == nil {
		logger = shared.NewNopLogger()
	}
	return &Orchestrator{
		engine:  engine,
		program: guest.NewRedactionProgram(),
		logger:  logger,
	}
}

// GenerateProof runs the full pipeline. On any error nothing is left on disk.
func (o *Orchestrator) GenerateProof(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{ImageID: o.program.ImageID()}

	// 1. read
	content, err := readDocument(req.Path)
	if err != nil {
		return nil, err
	}
	res.Stats.Read = time.Since(start)

	if err := checkOutputPath(req); err != nil {
		return nil, err
	}

	// 2. parse
	var indices []uint64
	if req.Strict {
		if indices, err = ParseIndicesStrict(req.Redact); err != nil {
			return nil, err
		}
	} else {
		indices = ParseIndices(req.Redact)
	}
	res.Requested = indices

	// 3. host-side digest before the engine sees anything
	localFull := shared.HashBytes([]byte(content))

	log := o.logger.With(zap.String("document", req.Path))
	log.Info("Proving redaction",
		zap.Int("bytes", len(content)),
		zap.Uint64s("indices", indices),
		zap.String("image_id", res.ImageID.String()))

	// 4. prove
	proveStart := time.Now()
	receipt, err := o.engine.Prove(ctx, o.program, guest.EncodeInput(content, indices))
	if err != nil {
		return nil, shared.NewEngineError(shared.PhaseProve, "proof generation failed", err)
	}
	res.Stats.Prove = time.Since(proveStart)
	res.SessionID = receipt.SessionID
	res.SealKind = receipt.Seal.Kind
	log = log.With(zap.String("session_id", receipt.SessionID))

	// 5. self-verify
	verifyStart := time.Now()
	if err := o.engine.Verify(receipt, o.program.ImageID()); err != nil {
		return nil, shared.NewEngineError(shared.PhaseSelfVerify, "proof verification failed", err)
	}
	res.Stats.SelfVerify = time.Since(verifyStart)

	commitment, err := guest.DecodeCommitment(receipt.Journal)
	if err != nil {
		return nil, shared.NewEngineError(shared.PhaseSelfVerify, "journal does not decode as a redaction commitment", err)
	}

	// 6. I1
	if commitment.FullDigest != localFull {
		o.logger.Security("Engine committed a different document digest",
			zap.String("session_id", receipt.SessionID),
			zap.String("host", localFull.String()),
			zap.String("engine", commitment.FullDigest.String()))
		return nil, shared.NewConsistencyError("full file hash mismatch between host and guest",
			localFull.String(), commitment.FullDigest.String())
	}

	// 7. I2
	if !SameIndexSet(commitment.Indices, indices) {
		o.logger.Security("Engine committed different redaction indices",
			zap.String("session_id", receipt.SessionID),
			zap.Uint64s("host", indices),
			zap.Uint64s("engine", commitment.Indices))
		return nil, shared.NewConsistencyError("redaction indices mismatch between host and guest",
			fmt.Sprint(indices), fmt.Sprint(commitment.Indices))
	}
	res.Commitment = *commitment

	// 8. persist
	persistStart := time.Now()
	data, err := zkvm.MarshalReceipt(receipt)
	if err != nil {
		return nil, shared.NewEngineError(shared.PhasePersist, "cannot serialize receipt", err)
	}
	res.ProofPath = ProofPath(req.Path)
	if err := writeFileAtomic(res.ProofPath, data); err != nil {
		return nil, shared.NewIOError(shared.PhasePersist, res.ProofPath, "failed to save proof file", err)
	}
	o.logger.WithPhase(shared.PhasePersist).Debug("Artifact written",
		zap.String("session_id", receipt.SessionID),
		zap.String("path", res.ProofPath),
		zap.Int("bytes", len(data)))

	// 9. convenience output, same redaction as the guest
	res.RedactedLines = guest.Redact(content, indices)
	if req.OutputPath != "" {
		if err := writeFileAtomic(req.OutputPath, []byte(strings.Join(res.RedactedLines, "\n"))); err != nil {
			os.Remove(res.ProofPath)
			return nil, shared.NewIOError(shared.PhasePersist, req.OutputPath, "failed to write redacted output", err)
		}
		res.OutputPath = req.OutputPath
	}
	res.Stats.Persist = time.Since(persistStart)
	res.Stats.Total = time.Since(start)

	log.Info("Proof generated",
		zap.String("full_digest", hex.EncodeToString(commitment.FullDigest[:])),
		zap.String("redacted_digest", hex.EncodeToString(commitment.RedactedDigest[:])),
		zap.String("proof_path", res.ProofPath),
		zap.Duration("elapsed", res.Stats.Total))
	return res, nil
}

// checkOutputPath rejects an output file that would overwrite the document
// or its artifact.
func checkOutputPath(req Request) error {
	if req.OutputPath == "" {
		return nil
	}
	out, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return shared.NewIOError(shared.PhasePersist, req.OutputPath, "cannot resolve output path", err)
	}
	doc, err := filepath.Abs(req.Path)
	if err != nil {
		return shared.NewIOError(shared.PhaseRead, req.Path, "cannot resolve input path", err)
	}
	switch out {
	case doc:
		return shared.NewConfigurationError("output", "would overwrite the input document "+req.Path)
	case ProofPath(doc):
		return shared.NewConfigurationError("output", "would overwrite the proof artifact "+ProofPath(req.Path))
	}
	if same, _ := sameFile(out, doc); same {
		return shared.NewConfigurationError("output", "would overwrite the input document "+req.Path)
	}
	return nil
}

// sameFile reports whether both paths name an existing file, following links.
func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", shared.NewIOError(shared.PhaseRead, path, "failed to read input file", err)
	}
	if !utf8.Valid(data) {
		return "", shared.NewIOError(shared.PhaseRead, path, "input is not valid UTF-8:", nil)
	}
	return string(data), nil
}

// writeFileAtomic writes through a temp file in the target directory so a
// failed write never leaves a partial file behind.
func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
