package host

import (
	"fmt"
	"strconv"
	"strings"

	"zkcat/shared"
)

// ParseIndices parses a comma-separated list of line indices. Tokens that
// are not non-negative integers are skipped. An empty list yields an empty
// set.
func ParseIndices(list string) []uint64 {
	out := []uint64{}
	if list == "" {
		return out
	}
	for _, tok := range strings.Split(list, ",") {
		n, err := parseIndex(tok)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// ParseIndicesStrict is ParseIndices that fails on the first bad token.
// Empty tokens count as bad.
func ParseIndicesStrict(list string) ([]uint64, error) {
	out := []uint64{}
	if list == "" {
		return out, nil
	}
	for i, tok := range strings.Split(list, ",") {
		n, err := parseIndex(tok)
		if err != nil {
			e := shared.NewConfigurationError("redact", fmt.Sprintf("token %d (%q) is not a line index", i, tok))
			e.Phase = shared.PhaseParse
			return nil, e
		}
		out = append(out, n)
	}
	return out, nil
}

// parseIndex reads one decimal index. A single leading '+' is allowed.
func parseIndex(tok string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(tok), "+"), 10, 64)
}

// SameIndexSet compares two index lists as sets.
func SameIndexSet(a, b []uint64) bool {
	as := make(map[uint64]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[uint64]struct{}, len(b))
	for _, v := range b {
		if _, ok := as[v]; !ok {
			return false
		}
		bs[v] = struct{}{}
	}
	return len(as) == len(bs)
}
