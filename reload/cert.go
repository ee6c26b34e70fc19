package reload

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrEmptyToken is returned when no shared token is configured.
var ErrEmptyToken = errors.New("reload: shared token is empty")

// nextProto is the ALPN protocol of the reload channel.
const nextProto = "gatelist-reload"

// ServerName returns the TLS server name both ends derive from token.
func ServerName(token string) string {
	sum := blake2b.Sum256([]byte("gatelist-reload-sni:" + token))
	return "reload-" + hex.EncodeToString(sum[:10])
}

// credentials are the TLS materials derived from one shared token.
type credentials struct {
	ca     *x509.Certificate
	caKey  *ecdsa.PrivateKey
	pool   *x509.CertPool
	server string
}

// Leaf certificates live for leafLifetime and are replaced once less than
// renewBefore remains.
const (
	leafLifetime = 30 * 24 * time.Hour
	renewBefore  = 7 * 24 * time.Hour
)

// The derived CA never expires; its trust is bounded by the token instead.
var (
	caNotBefore = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	caNotAfter  = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// deriveCredentials builds a CA whose key is a pure function of token.
// Each side derives the CA independently and issues its own leaf, so only
// holders of the token can complete the handshake.
func deriveCredentials(token string) (*credentials, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	seed := blake2b.Sum256([]byte("gatelist-reload-ca:" + token))

	params := elliptic.P256().Params()
	d := new(big.Int).SetBytes(seed[:])
	for d.Sign() == 0 || d.Cmp(params.N) >= 0 {
		seed = blake2b.Sum256(seed[:])
		d.SetBytes(seed[:])
	}
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: elliptic.P256()},
		D:         d,
	}
	key.PublicKey.X, key.PublicKey.Y = key.PublicKey.Curve.ScalarBaseMult(d.Bytes())

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "gatelist reload CA"},
		NotBefore:             caNotBefore,
		NotAfter:              caNotAfter,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create reload CA: %w", err)
	}
	ca, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse reload CA: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(ca)

	return &credentials{ca: ca, caKey: key, pool: pool, server: ServerName(token)}, nil
}

// issue creates a fresh leaf signed by the derived CA.
func (c *credentials) issue(now time.Time, isServer bool) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	serial, err := randomSerialNumber()
	if err != nil {
		return tls.Certificate{}, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "gatelist reload client"},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(leafLifetime),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	if isServer {
		template.Subject.CommonName = c.server
		template.DNSNames = []string{c.server}
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, c.ca, &key.PublicKey, c.caKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("issue reload certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse reload certificate: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, nil
}

// leafCache hands out one leaf until it nears expiry, then issues another.
type leafCache struct {
	creds    *credentials
	isServer bool
	now      func() time.Time

	mu   sync.Mutex
	leaf *tls.Certificate
}

func newLeafCache(creds *credentials, isServer bool) *leafCache {
	return &leafCache{creds: creds, isServer: isServer, now: time.Now}
}

func (c *leafCache) certificate() (*tls.Certificate, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leaf != nil && now.Add(renewBefore).Before(c.leaf.Leaf.NotAfter) {
		return c.leaf, nil
	}
	leaf, err := c.creds.issue(now, c.isServer)
	if err != nil {
		return nil, err
	}
	c.leaf = &leaf
	return c.leaf, nil
}

// serverTLS returns the agent side configuration. Clients must present a
// certificate issued under the same token. The server leaf is taken from certs
// on every handshake.
func (c *credentials) serverTLS(certs *leafCache) *tls.Config {
	return &tls.Config{
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return certs.certificate()
		},
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  c.pool,
		NextProtos: []string{nextProto},
		MinVersion: tls.VersionTLS13,
	}
}

func (c *credentials) clientTLS(now time.Time) (*tls.Config, error) {
	leaf, err := c.issue(now, false)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{leaf},
		RootCAs:      c.pool,
		ServerName:   c.server,
		NextProtos:   []string{nextProto},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// randomSerialNumber returns a positive 128-bit serial.
func randomSerialNumber() (*big.Int, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}
	b[0] &= 0x7F
	return new(big.Int).SetBytes(b), nil
}
