// Package providers implements the external signal sources used by a scan.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"trustscan/internal/resilience"
)

const maxBody = 4 << 20

// ErrNoAPIKey is returned by keyed providers that were not given a credential.
var ErrNoAPIKey = errors.New("api key not configured")

// NewHTTPClient returns the client shared by HTTP providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// fetchJSON runs build through the retry policy and returns the validated JSON body.
func fetchJSON(ctx context.Context, client *http.Client, policy resilience.Policy, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	resp, err := policy.DoHTTP(ctx, client, build)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed json from %s", resp.Request.URL.Host)
	}
	return data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func stringOr(r gjson.Result, def string) string {
	if s := r.String(); s != "" {
		return s
	}
	return def
}
