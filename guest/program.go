package guest

import (
	"fmt"
	"unicode/utf8"

	"zkcat/zkvm"
)

// ProgramName identifies the redaction guest in logs and on the wire.
const ProgramName = "zkcat-redact"

// manifest pins every behaviour the image id stands for. Changing any of
// the redaction semantics means changing this text.
const manifest = "program=" + ProgramName + "\n" +
	"version=1\n" +
	"hash=sha256\n" +
	"sentinel=" + Sentinel + "\n" +
	"split=lf,strip-cr-before-lf,no-trailing-empty\n" +
	"join=lf\n" +
	"journal=full_digest,redacted_digest,indices\n"

var imageID = zkvm.ComputeImageID([]byte(manifest))

// RedactionProgram is the guest proven by every zkcat backend.
type RedactionProgram struct{}

// NewRedactionProgram returns the redaction guest.
func NewRedactionProgram() RedactionProgram {
	return RedactionProgram{}
}

// Name implements zkvm.Program.
func (RedactionProgram) Name() string { return ProgramName }

// ImageID implements zkvm.Program.
func (RedactionProgram) ImageID() zkvm.ImageID { return imageID }

// Run reads (content, indices), computes the commitment and commits it.
func (RedactionProgram) Run(env *zkvm.Env) error {
	content, indices, err := DecodeInput(env.Input())
	if err != nil {
		return err
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("content is not valid UTF-8")
	}

	c := Compute(content, indices)
	env.Commit(c.FullDigest[:])
	env.Commit(c.RedactedDigest[:])
	env.Commit(EncodeIndices(c.Indices))
	return nil
}
