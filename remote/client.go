package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mdlayher/vsock"
	"go.uber.org/zap"

	"zkcat/shared"
	"zkcat/zkvm"
)

// vsockURL is dialed through the vsock NetDialContext; its host is ignored.
const vsockURL = "ws://vsock" + ProvePath

// Client is a zkvm.Prover that delegates to a remote Server.
type Client struct {
	url    string
	dialer *websocket.Dialer
	logger *shared.Logger
}

// NewClient dials a TCP websocket URL such as ws://host:8090/prove.
func NewClient(url string, logger *shared.Logger) *Client {
	if logger == nil {
		logger = shared.NewNopLogger()
	}
	return &Client{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: HandshakeTimeout},
		logger: logger,
	}
}

// NewVsockClient dials the server over vsock.
func NewVsockClient(cid, port uint32, logger *shared.Logger) *Client {
	c := NewClient(vsockURL, logger)
	c.dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := vsock.Dial(cid, port, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial vsock %d:%d: %v", cid, port, err)
		}
		return conn, nil
	}
	return c
}

// NewClientFromConfig prefers the URL over vsock.
func NewClientFromConfig(cfg *shared.Config, logger *shared.Logger) (*Client, error) {
	switch {
	case cfg.ProverURL != "":
		return NewClient(cfg.ProverURL, logger), nil
	case cfg.ProverVsockPort != 0:
		return NewVsockClient(cfg.ProverVsockCID, cfg.ProverVsockPort, logger), nil
	}
	return nil, shared.NewConfigurationError("ZKCAT_PROVER_URL", "no remote prover endpoint configured")
}

// Prove implements zkvm.Prover.
func (c *Client) Prove(ctx context.Context, program zkvm.Program, input []byte) (*zkvm.Receipt, error) {
	requestID := uuid.NewString()
	log := c.logger.With(zap.String("request_id", requestID), zap.String("prover", c.url))
	start := time.Now()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to prover: %v", err)
	}
	defer conn.Close()
	conn.SetReadLimit(MaxMessageSize)

	// unblock ReadJSON when ctx ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	msg, err := newMessage(MsgProveRequest, requestID, ProveRequest{
		ImageID: program.ImageID().String(),
		Input:   input,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.WriteJSON(msg); err != nil {
		return nil, c.connErr(ctx, "send prove request", err)
	}

	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		return nil, c.connErr(ctx, "read prove response", err)
	}
	if reply.RequestID != requestID {
		return nil, fmt.Errorf("response for request %q, want %q", reply.RequestID, requestID)
	}
	switch reply.Type {
	case MsgError:
		return nil, fmt.Errorf("remote prover: %s", reply.Error)
	case MsgProveResponse:
	default:
		return nil, fmt.Errorf("unexpected message type %q", reply.Type)
	}

	var resp ProveResponse
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return nil, fmt.Errorf("invalid prove response: %v", err)
	}
	receipt, err := zkvm.UnmarshalReceipt(resp.Receipt)
	if err != nil {
		return nil, err
	}
	if err := receipt.CheckImage(program.ImageID()); err != nil {
		return nil, err
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	log.Debug("Remote proof received",
		zap.String("session_id", receipt.SessionID),
		zap.String("seal_kind", string(receipt.Seal.Kind)),
		zap.Duration("elapsed", time.Since(start)))
	return receipt, nil
}

func (c *Client) connErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%s: connection closed", op)
	}
	return fmt.Errorf("%s: %v", op, err)
}
