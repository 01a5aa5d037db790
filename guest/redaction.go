// Package guest holds the redaction program that runs under the proving
// engine, plus the pure functions it is built from so the host can reuse
// the exact same line convention.
package guest

import (
	"strings"

	"zkcat/shared"
)

// Sentinel replaces every redacted line.
const Sentinel = "***REDACTED***"

// Commitment is the public output of one redaction run, in commit order.
type Commitment struct {
	FullDigest     shared.Digest `json:"full_digest"`
	RedactedDigest shared.Digest `json:"redacted_digest"`
	// Indices echoes the request verbatim, out-of-range entries included.
	Indices []uint64 `json:"indices"`
}

// SplitLines splits content on "\n". A "\r" directly before a "\n" is
// dropped, a final "\n" does not start an empty line, and "" has no lines.
// Blank lines in the middle are kept.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	terminated := len(lines) - 1
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := 0; i < terminated && i < len(lines); i++ {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}

// Redact returns the lines of content with every in-range index replaced by
// Sentinel. Out-of-range indices are ignored.
func Redact(content string, indices []uint64) []string {
	lines := SplitLines(content)
	for _, idx := range indices {
		if idx < uint64(len(lines)) {
			lines[idx] = Sentinel
		}
	}
	return lines
}

// RedactedContent joins the redacted lines with "\n", no trailing newline.
func RedactedContent(content string, indices []uint64) string {
	return strings.Join(Redact(content, indices), "\n")
}

// Compute is the redaction function proven by the engine. It is total and
// deterministic.
func Compute(content string, indices []uint64) Commitment {
	return Commitment{
		FullDigest:     shared.HashBytes([]byte(content)),
		RedactedDigest: shared.HashBytes([]byte(RedactedContent(content, indices))),
		Indices:        append([]uint64{}, indices...),
	}
}
