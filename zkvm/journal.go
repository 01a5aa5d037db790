package zkvm

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrJournalExhausted is returned by JournalReader.Next past the last commit.
var ErrJournalExhausted = errors.New("journal exhausted")

// Env is what a guest sees while it runs.
type Env struct {
	input   []byte
	journal Journal
}

func newEnv(input []byte) *Env {
	return &Env{input: input}
}

// Input returns the private input. Guests must not modify it.
func (e *Env) Input() []byte {
	return e.input
}

// Commit appends data to the public journal.
func (e *Env) Commit(data []byte) {
	e.journal.Commit(data)
}

// Journal is the ordered sequence of public commits. Each commit is one
// length-delimited protobuf field; field numbers count up from 1 so a
// reader can tell when the order was changed.
type Journal struct {
	buf  []byte
	next protowire.Number
}

// Commit appends one entry.
func (j *Journal) Commit(data []byte) {
	j.next++
	j.buf = protowire.AppendTag(j.buf, j.next, protowire.BytesType)
	j.buf = protowire.AppendBytes(j.buf, data)
}

// Bytes returns the encoded journal.
func (j *Journal) Bytes() []byte {
	return j.buf
}

// JournalReader consumes a journal in commit order.
type JournalReader struct {
	buf  []byte
	next protowire.Number
}

// NewJournalReader starts reading an encoded journal.
func NewJournalReader(journal []byte) *JournalReader {
	return &JournalReader{buf: journal}
}

// Next returns the next committed entry.
func (r *JournalReader) Next() ([]byte, error) {
	if len(r.buf) == 0 {
		return nil, ErrJournalExhausted
	}
	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		return nil, fmt.Errorf("malformed journal tag: %v", protowire.ParseError(n))
	}
	if num != r.next+1 || typ != protowire.BytesType {
		return nil, fmt.Errorf("journal entry out of order: got field %d, want %d", num, r.next+1)
	}
	v, m := protowire.ConsumeBytes(r.buf[n:])
	if m < 0 {
		return nil, fmt.Errorf("malformed journal entry %d: %v", num, protowire.ParseError(m))
	}
	r.buf = r.buf[n+m:]
	r.next = num
	return v, nil
}

// Done fails if unread entries remain.
func (r *JournalReader) Done() error {
	if len(r.buf) != 0 {
		return fmt.Errorf("journal has %d trailing bytes", len(r.buf))
	}
	return nil
}
