package guest

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"zkcat/shared"
	"zkcat/zkvm"
)

const (
	inputFieldContent protowire.Number = 1
	inputFieldIndices protowire.Number = 2
)

// EncodeInput serializes the private input (content, indices).
func EncodeInput(content string, indices []uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, inputFieldContent, protowire.BytesType)
	b = protowire.AppendString(b, content)
	b = protowire.AppendTag(b, inputFieldIndices, protowire.BytesType)
	b = protowire.AppendBytes(b, EncodeIndices(indices))
	return b
}

// DecodeInput is the inverse of EncodeInput.
func DecodeInput(data []byte) (string, []uint64, error) {
	var content string
	var indices []uint64
	next := inputFieldContent
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", nil, fmt.Errorf("malformed input tag: %v", protowire.ParseError(n))
		}
		if num != next || typ != protowire.BytesType {
			return "", nil, fmt.Errorf("unexpected input field %d", num)
		}
		v, m := protowire.ConsumeBytes(data[n:])
		if m < 0 {
			return "", nil, fmt.Errorf("malformed input field %d: %v", num, protowire.ParseError(m))
		}
		data = data[n+m:]
		switch num {
		case inputFieldContent:
			content = string(v)
		case inputFieldIndices:
			var err error
			if indices, err = DecodeIndices(v); err != nil {
				return "", nil, err
			}
		}
		next++
	}
	if next != inputFieldIndices+1 {
		return "", nil, fmt.Errorf("input is missing fields")
	}
	return content, indices, nil
}

// EncodeIndices packs indices as consecutive varints.
func EncodeIndices(indices []uint64) []byte {
	b := make([]byte, 0, len(indices))
	for _, idx := range indices {
		b = protowire.AppendVarint(b, idx)
	}
	return b
}

// DecodeIndices unpacks EncodeIndices output. An empty list decodes to an
// empty, non-nil slice.
func DecodeIndices(b []byte) ([]uint64, error) {
	out := []uint64{}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("malformed index list: %v", protowire.ParseError(n))
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}

// DecodeCommitment reads a redaction journal: full digest, redacted digest,
// index list, in that order and nothing after.
func DecodeCommitment(journal []byte) (*Commitment, error) {
	r := zkvm.NewJournalReader(journal)

	full, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("full digest: %w", err)
	}
	redacted, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("redacted digest: %w", err)
	}
	packed, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}
	if err := r.Done(); err != nil {
		return nil, err
	}

	c := &Commitment{}
	if c.FullDigest, err = shared.DigestFromBytes(full); err != nil {
		return nil, fmt.Errorf("full digest: %w", err)
	}
	if c.RedactedDigest, err = shared.DigestFromBytes(redacted); err != nil {
		return nil, fmt.Errorf("redacted digest: %w", err)
	}
	if c.Indices, err = DecodeIndices(packed); err != nil {
		return nil, err
	}
	return c, nil
}
