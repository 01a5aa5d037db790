// Package enclave runs the redaction guest inside an AWS Nitro enclave and
// seals its claim with an NSM attestation document.
package enclave

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hf/nsm"
	"github.com/hf/nsm/request"
)

// Attester produces an attestation document binding userData.
type Attester interface {
	Attest(userData, nonce []byte) ([]byte, error)
}

// NSMHandle talks to the Nitro Secure Module. Only usable inside an enclave.
type NSMHandle struct {
	mu   sync.Mutex
	sess *nsm.Session
}

// OpenNSM opens the default NSM session.
func OpenNSM() (*NSMHandle, error) {
	sess, err := nsm.OpenDefaultSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open NSM session: %v", err)
	}
	return &NSMHandle{sess: sess}, nil
}

// Attest requests a document with the given user data and nonce. No public
// key is embedded; the claim digest is the only binding.
func (h *NSMHandle) Attest(userData, nonce []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sess == nil {
		return nil, errors.New("NSM session closed")
	}
	res, err := h.sess.Send(&request.Attestation{Nonce: nonce, UserData: userData})
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, errors.New(string(res.Error))
	}
	if res.Attestation == nil || res.Attestation.Document == nil {
		return nil, errors.New("attestation response missing attestation document")
	}
	return res.Attestation.Document, nil
}

// Close releases the session.
func (h *NSMHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil {
		return nil
	}
	err := h.sess.Close()
	h.sess = nil
	return err
}
