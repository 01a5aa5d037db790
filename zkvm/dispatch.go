package zkvm

import "fmt"

// Dispatcher routes verification to the verifier registered for the
// receipt's seal kind. Offline verification uses it because an artifact
// may come from any backend.
type Dispatcher struct {
	verifiers map[SealKind]Verifier
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{verifiers: make(map[SealKind]Verifier)}
}

// Register sets the verifier for kind.
func (d *Dispatcher) Register(kind SealKind, v Verifier) *Dispatcher {
	d.verifiers[kind] = v
	return d
}

// Verify implements Verifier.
func (d *Dispatcher) Verify(receipt *Receipt, id ImageID) error {
	if receipt == nil {
		return fmt.Errorf("nil receipt")
	}
	v, ok := d.verifiers[receipt.Seal.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSealKind, receipt.Seal.Kind)
	}
	return v.Verify(receipt, id)
}
