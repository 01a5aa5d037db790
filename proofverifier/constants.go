package proofverifier

// Artifact limits
const (
	MaxArtifactSize = 64 << 20 // upper bound on a serialized receipt
)
