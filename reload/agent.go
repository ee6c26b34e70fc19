package reload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/quic-go/quic-go"
)

// Action performs the reload on the game server host.
type Action interface {
	Reload(ctx context.Context) error
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context) error

func (f ActionFunc) Reload(ctx context.Context) error { return f(ctx) }

// CommandAction runs a program, for example one that types "allowlist reload"
// into the server console.
type CommandAction struct {
	Path string
	Args []string
}

func (a CommandAction) Reload(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, a.Path, a.Args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return fmt.Errorf("run %s: %w", a.Path, err)
		}
		return fmt.Errorf("run %s: %w: %s", a.Path, err, msg)
	}
	return nil
}

// AgentConfig configures an Agent.
type AgentConfig struct {
	Token  string
	Action Action

	// ActionTimeout bounds one Action run. Zero uses DefaultTimeout.
	ActionTimeout time.Duration

	// KeepAlivePeriod for QUIC connections. Zero uses the quic-go default.
	KeepAlivePeriod time.Duration

	Logger *slog.Logger
}

// Agent runs next to the game server and performs reloads on request.
// Concurrent requests run the Action one at a time.
type Agent struct {
	cfg   AgentConfig
	creds *credentials
	certs *leafCache
	log   *slog.Logger

	mu sync.Mutex // Serializes Action.
}

// NewAgent validates cfg and derives the TLS credentials.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.Action == nil {
		return nil, errors.New("reload: agent action is required")
	}
	creds, err := deriveCredentials(cfg.Token)
	if err != nil {
		return nil, err
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Agent{cfg: cfg, creds: creds, certs: newLeafCache(creds, true), log: log}, nil
}

// ListenAndServe listens on the UDP address and serves until ctx is done.
func (a *Agent) ListenAndServe(ctx context.Context, addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("reload: listen: %w", err)
	}
	defer pc.Close()
	a.log.Info("reload agent listening", "addr", pc.LocalAddr().String())
	return a.Serve(ctx, pc)
}

// Serve accepts connections on packetConn until ctx is done.
func (a *Agent) Serve(ctx context.Context, packetConn net.PacketConn) error {
	if _, err := a.certs.certificate(); err != nil {
		return err
	}
	tlsConfig := a.creds.serverTLS(a.certs)
	qc := &quic.Config{KeepAlivePeriod: a.cfg.KeepAlivePeriod}
	listener, err := quic.Listen(packetConn, tlsConfig, qc)
	if err != nil {
		return fmt.Errorf("reload: start QUIC listener: %w", err)
	}
	defer listener.Close()

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reload: accept: %w", err)
		}
		go a.handleConnection(ctx, conn)
	}
}

func (a *Agent) handleConnection(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go a.handleStream(ctx, remote, stream)
	}
}

func (a *Agent) handleStream(ctx context.Context, remote string, stream *quic.Stream) {
	defer stream.Close()

	var req Request
	if err := cbor.NewDecoder(stream).Decode(&req); err != nil {
		a.log.Warn("reload request unreadable", "remote", remote, "err", err)
		stream.CancelRead(0)
		return
	}

	resp := Response{ID: req.ID, OK: true}
	if err := a.run(ctx); err != nil {
		resp.OK = false
		resp.Error = err.Error()
		a.log.Error("reload failed", "remote", remote, "id", req.ID.String(), "err", err)
	} else {
		a.log.Info("reload done", "remote", remote, "id", req.ID.String())
	}

	if err := cbor.NewEncoder(stream).Encode(resp); err != nil {
		a.log.Warn("reload response not sent", "remote", remote, "err", err)
	}
}

func (a *Agent) run(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.ActionTimeout)
	defer cancel()
	return a.cfg.Action.Reload(ctx)
}
