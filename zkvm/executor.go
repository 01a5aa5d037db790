package zkvm

import (
	"context"
	"fmt"
	"time"
)

type execResult struct {
	journal []byte
	err     error
}

// Execute runs program on input and returns its journal. The guest runs on
// its own goroutine; if ctx ends first the run is abandoned and its result
// discarded.
func Execute(ctx context.Context, program Program, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("guest %s not started: %w", program.Name(), err)
	}
	done := make(chan execResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- execResult{err: fmt.Errorf("guest %s panicked: %v", program.Name(), r)}
			}
		}()
		env := newEnv(input)
		if err := program.Run(env); err != nil {
			done <- execResult{err: fmt.Errorf("guest %s failed: %w", program.Name(), err)}
			return
		}
		done <- execResult{journal: env.journal.Bytes()}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("guest %s abandoned: %w", program.Name(), ctx.Err())
	case res := <-done:
		return res.journal, res.err
	}
}

type timeoutProver struct {
	inner   Prover
	timeout time.Duration
}

// WithTimeout bounds every Prove call. A zero timeout returns p unchanged.
func WithTimeout(p Prover, timeout time.Duration) Prover {
	if timeout <= 0 {
		return p
	}
	return &timeoutProver{inner: p, timeout: timeout}
}

func (t *timeoutProver) Prove(ctx context.Context, program Program, input []byte) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Prove(ctx, program, input)
}
