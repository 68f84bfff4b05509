package providers

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"trustscan/internal/domain"
)

var errNoCertificate = errors.New("no peer certificate presented")

// TLSInspector handshakes without verification so that broken chains can
// still be described, then verifies the chain itself.
type TLSInspector struct {
	Timeout time.Duration
	Port    string
	Roots   *x509.CertPool // nil means system roots
	Now     func() time.Time
}

func NewTLSInspector(timeout time.Duration) *TLSInspector {
	return &TLSInspector{Timeout: timeout, Port: "443", Now: time.Now}
}

func (t *TLSInspector) Inspect(ctx context.Context, hostname string) (domain.TLSPosture, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	d := &tls.Dialer{Config: &tls.Config{ServerName: hostname, InsecureSkipVerify: true}} //nolint:gosec // inspection only
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(hostname, t.Port))
	if err != nil {
		return domain.TLSPosture{}, fmt.Errorf("tls handshake with %s: %w", hostname, err)
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return domain.TLSPosture{}, errNoCertificate
	}
	leaf := certs[0]
	now := t.Now()

	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}
	_, verr := leaf.Verify(x509.VerifyOptions{
		DNSName:       hostname,
		Roots:         t.Roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	secure := verr == nil
	inWindow := !now.Before(leaf.NotBefore) && now.Before(leaf.NotAfter)

	return domain.TLSPosture{
		IsValid:       secure && inWindow,
		Issuer:        issuerName(leaf),
		DaysRemaining: int(math.Floor(leaf.NotAfter.Sub(now).Hours() / 24)),
		Secure:        secure,
	}, nil
}

func issuerName(c *x509.Certificate) string {
	if len(c.Issuer.Organization) > 0 && c.Issuer.Organization[0] != "" {
		return c.Issuer.Organization[0]
	}
	if c.Issuer.CommonName != "" {
		return c.Issuer.CommonName
	}
	return "Unknown"
}
