package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mdlayher/vsock"
	"go.uber.org/zap"

	"zkcat/shared"
	"zkcat/zkvm"
)

// Server proves registered programs for websocket clients.
type Server struct {
	prover   zkvm.Prover
	programs map[zkvm.ImageID]zkvm.Program
	logger   *shared.Logger
	upgrader websocket.Upgrader
}

// NewServer exposes prover for the given programs only.
func NewServer(prover zkvm.Prover, logger *shared.Logger, programs ...zkvm.Program) *Server {
	if logger == nil {
		logger = shared.NewNopLogger()
	}
	s := &Server{
		prover:   prover,
		programs: make(map[zkvm.ImageID]zkvm.Program, len(programs)),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// clients are CLIs, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, p := range programs {
		s.programs[p.ImageID()] = p
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ProvePath, s.handleProve)
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "zkcat prover healthy")
	})
	return mux
}

// Listen opens the configured listener: vsock when a port is set, TCP
// otherwise.
func Listen(cfg *shared.Config) (net.Listener, error) {
	if cfg.ListenVsockPort != 0 {
		ln, err := vsock.Listen(cfg.ListenVsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on VSock port %d: %v", cfg.ListenVsockPort, err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %v", cfg.ListenAddr, err)
	}
	return ln, nil
}

// Serve handles connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: HandshakeTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Prover listening", zap.String("addr", ln.Addr().String()), zap.Int("programs", len(s.programs)))
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleProve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxMessageSize)

	log := s.logger.With(zap.String("remote_addr", r.RemoteAddr))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Connection ended", zap.Error(err))
			}
			return
		}

		reply := s.dispatch(r.Context(), &msg, log)
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn("Failed to write reply", zap.Error(err))
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, msg *Message, log *zap.Logger) *Message {
	if msg.Type != MsgProveRequest {
		return errorMessage(msg.RequestID, fmt.Errorf("unknown message type %q", msg.Type))
	}
	var req ProveRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return errorMessage(msg.RequestID, fmt.Errorf("invalid prove request: %v", err))
	}
	id, err := zkvm.ParseImageID(req.ImageID)
	if err != nil {
		return errorMessage(msg.RequestID, err)
	}
	program, ok := s.programs[id]
	if !ok {
		return errorMessage(msg.RequestID, fmt.Errorf("program %s is not registered", id))
	}

	start := time.Now()
	receipt, err := s.prover.Prove(ctx, program, req.Input)
	if err != nil {
		log.Warn("Prove failed", zap.String("request_id", msg.RequestID), zap.Error(err))
		return errorMessage(msg.RequestID, err)
	}
	data, err := zkvm.MarshalReceipt(receipt)
	if err != nil {
		return errorMessage(msg.RequestID, err)
	}
	log.Info("Proved",
		zap.String("request_id", msg.RequestID),
		zap.String("session_id", receipt.SessionID),
		zap.String("program", program.Name()),
		zap.Duration("elapsed", time.Since(start)))

	reply, err := newMessage(MsgProveResponse, msg.RequestID, ProveResponse{Receipt: data})
	if err != nil {
		return errorMessage(msg.RequestID, err)
	}
	return reply
}
