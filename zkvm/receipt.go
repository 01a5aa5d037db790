package zkvm

import (
	"crypto/sha256"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const claimDomain = "zkcat/receipt-claim/v1"

// ClaimDigest binds an image id to a journal:
// SHA-256(domain || image id || SHA-256(journal)).
func ClaimDigest(id ImageID, journal []byte) [32]byte {
	jd := sha256.Sum256(journal)
	h := sha256.New()
	h.Write([]byte(claimDomain))
	h.Write(id[:])
	h.Write(jd[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Receipt wire fields
const (
	fieldVersion   protowire.Number = 1
	fieldSessionID protowire.Number = 2
	fieldImageID   protowire.Number = 3
	fieldJournal   protowire.Number = 4
	fieldSeal      protowire.Number = 5
)

// Seal wire fields
const (
	fieldSealKind        protowire.Number = 1
	fieldSealSignature   protowire.Number = 2
	fieldSealAttestation protowire.Number = 3
)

// MarshalReceipt serializes a receipt in protobuf wire format.
func MarshalReceipt(r *Receipt) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil receipt")
	}
	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Version))
	b = protowire.AppendTag(b, fieldSessionID, protowire.BytesType)
	b = protowire.AppendString(b, r.SessionID)
	b = protowire.AppendTag(b, fieldImageID, protowire.BytesType)
	b = protowire.AppendBytes(b, r.ImageID[:])
	b = protowire.AppendTag(b, fieldJournal, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Journal)

	var seal []byte
	seal = protowire.AppendTag(seal, fieldSealKind, protowire.BytesType)
	seal = protowire.AppendString(seal, string(r.Seal.Kind))
	if len(r.Seal.Signature) > 0 {
		seal = protowire.AppendTag(seal, fieldSealSignature, protowire.BytesType)
		seal = protowire.AppendBytes(seal, r.Seal.Signature)
	}
	if len(r.Seal.Attestation) > 0 {
		seal = protowire.AppendTag(seal, fieldSealAttestation, protowire.BytesType)
		seal = protowire.AppendBytes(seal, r.Seal.Attestation)
	}
	b = protowire.AppendTag(b, fieldSeal, protowire.BytesType)
	b = protowire.AppendBytes(b, seal)
	return b, nil
}

// UnmarshalReceipt parses a serialized receipt. Unknown fields and
// unsupported versions are rejected.
func UnmarshalReceipt(data []byte) (*Receipt, error) {
	r := &Receipt{}
	var seen [fieldSeal + 1]bool
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed receipt tag: %v", protowire.ParseError(n))
		}
		data = data[n:]
		if num < fieldVersion || num > fieldSeal {
			return nil, fmt.Errorf("unknown receipt field %d", num)
		}
		if seen[num] {
			return nil, fmt.Errorf("duplicate receipt field %d", num)
		}
		seen[num] = true

		if num == fieldVersion {
			if typ != protowire.VarintType {
				return nil, fmt.Errorf("receipt field %d has wire type %d", num, typ)
			}
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("malformed receipt version: %v", protowire.ParseError(m))
			}
			r.Version = uint32(v)
			data = data[m:]
			continue
		}

		if typ != protowire.BytesType {
			return nil, fmt.Errorf("receipt field %d has wire type %d", num, typ)
		}
		v, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return nil, fmt.Errorf("malformed receipt field %d: %v", num, protowire.ParseError(m))
		}
		data = data[m:]

		switch num {
		case fieldSessionID:
			r.SessionID = string(v)
		case fieldImageID:
			if len(v) != ImageIDSize {
				return nil, fmt.Errorf("receipt image id has %d bytes", len(v))
			}
			copy(r.ImageID[:], v)
		case fieldJournal:
			r.Journal = append([]byte(nil), v...)
		case fieldSeal:
			seal, err := unmarshalSeal(v)
			if err != nil {
				return nil, err
			}
			r.Seal = seal
		}
	}

	if r.Version != ReceiptVersion {
		return nil, fmt.Errorf("unsupported receipt version %d", r.Version)
	}
	if !seen[fieldImageID] || !seen[fieldSeal] {
		return nil, fmt.Errorf("receipt is missing image id or seal")
	}
	return r, nil
}

func unmarshalSeal(data []byte) (Seal, error) {
	var s Seal
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return s, fmt.Errorf("malformed seal tag: %v", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.BytesType {
			return s, fmt.Errorf("seal field %d has wire type %d", num, typ)
		}
		v, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return s, fmt.Errorf("malformed seal field %d: %v", num, protowire.ParseError(m))
		}
		data = data[m:]
		switch num {
		case fieldSealKind:
			s.Kind = SealKind(v)
		case fieldSealSignature:
			s.Signature = append([]byte(nil), v...)
		case fieldSealAttestation:
			s.Attestation = append([]byte(nil), v...)
		default:
			return s, fmt.Errorf("unknown seal field %d", num)
		}
	}
	if s.Kind == "" {
		return s, fmt.Errorf("seal kind missing")
	}
	return s, nil
}
