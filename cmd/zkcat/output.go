package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"zkcat/guest"
	"zkcat/host"
	"zkcat/proofverifier"
)

type statsReport struct {
	ReadMS       float64 `json:"read_ms"`
	ProveMS      float64 `json:"prove_ms"`
	SelfVerifyMS float64 `json:"self_verify_ms"`
	PersistMS    float64 `json:"persist_ms"`
	TotalMS      float64 `json:"total_ms"`
}

type report struct {
	Mode           string       `json:"mode"`
	Verified       bool         `json:"verified"`
	FullDigest     string       `json:"full_digest"`
	RedactedDigest string       `json:"redacted_digest"`
	Indices        []uint64     `json:"indices"`
	ProofPath      string       `json:"proof_path"`
	OutputPath     string       `json:"output_path,omitempty"`
	SessionID      string       `json:"session_id"`
	ImageID        string       `json:"image_id"`
	SealKind       string       `json:"seal_kind"`
	RedactedLines  []string     `json:"redacted_lines,omitempty"`
	Stats          *statsReport `json:"stats,omitempty"`
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func proveReport(res *host.Result, withStats bool) *report {
	r := &report{
		Mode:           "prove",
		Verified:       true,
		FullDigest:     res.Commitment.FullDigest.String(),
		RedactedDigest: res.Commitment.RedactedDigest.String(),
		Indices:        res.Commitment.Indices,
		ProofPath:      res.ProofPath,
		OutputPath:     res.OutputPath,
		SessionID:      res.SessionID,
		ImageID:        res.ImageID.String(),
		SealKind:       string(res.SealKind),
		RedactedLines:  res.RedactedLines,
	}
	if withStats {
		r.Stats = &statsReport{
			ReadMS:       ms(res.Stats.Read),
			ProveMS:      ms(res.Stats.Prove),
			SelfVerifyMS: ms(res.Stats.SelfVerify),
			PersistMS:    ms(res.Stats.Persist),
			TotalMS:      ms(res.Stats.Total),
		}
	}
	return r
}

func verifyReport(rep *proofverifier.Report) *report {
	return &report{
		Mode:           "verify",
		Verified:       true,
		FullDigest:     rep.Commitment.FullDigest.String(),
		RedactedDigest: rep.Commitment.RedactedDigest.String(),
		Indices:        rep.Commitment.Indices,
		ProofPath:      rep.ArtifactPath,
		SessionID:      rep.SessionID,
		ImageID:        rep.ImageID,
		SealKind:       string(rep.SealKind),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCommitment(w io.Writer, c guest.Commitment) {
	fmt.Fprintf(w, "- Full file SHA-256 hash: %s\n", c.FullDigest)
	fmt.Fprintf(w, "- Redacted file SHA-256 hash: %s\n", c.RedactedDigest)
	fmt.Fprintf(w, "- Redacted line indices: %v\n", c.Indices)
}

func printProved(w io.Writer, res *host.Result, withStats bool) {
	for _, line := range res.RedactedLines {
		if line == guest.Sentinel {
			fmt.Fprintln(w, pterm.Red(line))
		} else {
			fmt.Fprintln(w, pterm.Green(line))
		}
	}

	fmt.Fprintf(w, "\n%s Proof generated and verified!\n", pterm.Green("✓"))
	printCommitment(w, res.Commitment)
	fmt.Fprintf(w, "Proof saved to: %s\n", res.ProofPath)
	if res.OutputPath != "" {
		fmt.Fprintf(w, "Redacted text written to: %s\n", res.OutputPath)
	}

	if withStats {
		table, err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"Phase", "Duration"},
			{"read", res.Stats.Read.String()},
			{"prove", res.Stats.Prove.String()},
			{"self-verify", res.Stats.SelfVerify.String()},
			{"persist", res.Stats.Persist.String()},
			{"total", res.Stats.Total.String()},
		}).Srender()
		if err == nil {
			fmt.Fprintf(w, "\nSession %s (%s seal)\n%s\n", res.SessionID, res.SealKind, table)
		}
	}
}

func printVerified(w io.Writer, rep *proofverifier.Report) {
	fmt.Fprintf(w, "%s Proof verified successfully!\n", pterm.Green("✓"))
	printCommitment(w, rep.Commitment)
}
