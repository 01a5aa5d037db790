// Package remote serves a zkvm.Prover over a websocket so the host can
// hand proving to another machine or to an enclave reachable over vsock.
package remote

import (
	"encoding/json"
	"time"
)

// Message types
const (
	MsgProveRequest  = "prove_request"
	MsgProveResponse = "prove_response"
	MsgError         = "error"
)

// Transport limits
const (
	ProvePath        = "/prove"
	HealthPath       = "/health"
	MaxMessageSize   = 64 << 20
	HandshakeTimeout = 30 * time.Second
)

// Message is the websocket envelope.
type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ProveRequest asks the server to run a registered program.
type ProveRequest struct {
	ImageID string `json:"image_id"`
	Input   []byte `json:"input"` // guest input, already encoded
}

// ProveResponse carries the serialized receipt.
type ProveResponse struct {
	Receipt []byte `json:"receipt"`
}

func newMessage(msgType, requestID string, payload any) (*Message, error) {
	msg := &Message{Type: msgType, RequestID: requestID, Timestamp: time.Now().Unix()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return msg, nil
}

func errorMessage(requestID string, err error) *Message {
	return &Message{Type: MsgError, RequestID: requestID, Error: err.Error(), Timestamp: time.Now().Unix()}
}
