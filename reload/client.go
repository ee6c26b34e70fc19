// Package reload sends the access list reload signal to the game server host
// over QUIC.
//
// Both ends share a token. Each derives the same certificate authority from
// it and authenticates the other with mutual TLS, so no certificate files need
// to be distributed.
package reload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/kardianos/gatelist"
)

// DefaultTimeout bounds one reload round trip.
const DefaultTimeout = 10 * time.Second

var _ gatelist.Reloader = (*Client)(nil)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Addr is the host:port of the agent.
	Addr string

	// Token is the shared secret.
	Token string

	// Timeout bounds one reload. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Client asks a remote Agent to reload.
type Client struct {
	addr    string
	timeout time.Duration
	creds   *credentials
}

// NewClient validates cfg and derives the TLS credentials.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("reload: agent address is empty")
	}
	creds, err := deriveCredentials(cfg.Token)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{addr: cfg.Addr, timeout: cfg.Timeout, creds: creds}, nil
}

// Reload dials the agent, sends one Request and waits for its Response.
func (c *Client) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tlsConfig, err := c.creds.clientTLS(time.Now())
	if err != nil {
		return err
	}
	conn, err := quic.DialAddr(ctx, c.addr, tlsConfig, nil)
	if err != nil {
		return fmt.Errorf("reload: dial agent: %w", err)
	}
	defer conn.CloseWithError(0, "reload done")

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("reload: open stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	}

	req := Request{ID: uuid.New(), SentAt: time.Now()}
	if err := cbor.NewEncoder(stream).Encode(req); err != nil {
		return fmt.Errorf("reload: encode request: %w", err)
	}
	// Close the send side; the response is still readable.
	if err := stream.Close(); err != nil {
		return fmt.Errorf("reload: close stream: %w", err)
	}

	var resp Response
	if err := cbor.NewDecoder(stream).Decode(&resp); err != nil {
		return fmt.Errorf("reload: decode response: %w", err)
	}
	if resp.ID != req.ID {
		return fmt.Errorf("reload: response id %s does not match request %s", resp.ID, req.ID)
	}
	if !resp.OK {
		return fmt.Errorf("reload: agent: %s", resp.Error)
	}
	return nil
}
