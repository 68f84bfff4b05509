package providers

import (
	"context"
	"net/http"

	"trustscan/internal/domain"
	"trustscan/internal/resilience"
)

// HeaderProber reports security header hygiene from a HEAD request.
type HeaderProber struct {
	client *http.Client
	policy resilience.Policy
}

func NewHeaderProber(client *http.Client, policy resilience.Policy) *HeaderProber {
	// any answer from the site carries its headers; only 5xx is worth retrying
	return &HeaderProber{client: client, policy: policy.WithAccept(func(status int) bool { return status < 500 })}
}

func (p *HeaderProber) Probe(ctx context.Context, rawurl string) (domain.SecurityHeaders, error) {
	resp, err := p.policy.DoHTTP(ctx, p.client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodHead, rawurl, nil)
	})
	if err != nil {
		return domain.SecurityHeaders{}, err
	}
	defer resp.Body.Close()

	h := resp.Header
	return domain.SecurityHeaders{
		HSTS:   has(h, "Strict-Transport-Security"),
		CSP:    has(h, "Content-Security-Policy"),
		XFrame: has(h, "X-Frame-Options") || has(h, "Frame-Options"),
	}, nil
}

func has(h http.Header, key string) bool { return len(h.Values(key)) > 0 }
