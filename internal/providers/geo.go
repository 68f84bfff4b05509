package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"trustscan/internal/domain"
	"trustscan/internal/resilience"
)

// GeoIP resolves hosting country and ISP through ip-api.com. Display only.
type GeoIP struct {
	baseURL string
	client  *http.Client
	policy  resilience.Policy
}

func NewGeoIP(baseURL string, client *http.Client, policy resilience.Policy) *GeoIP {
	return &GeoIP{baseURL: strings.TrimRight(baseURL, "/"), client: client, policy: policy}
}

func (g *GeoIP) Locate(ctx context.Context, hostname string) (domain.Hosting, error) {
	data, err := fetchJSON(ctx, g.client, g.policy, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/json/"+url.PathEscape(hostname), nil)
	})
	if err != nil {
		return domain.Hosting{}, err
	}
	res := gjson.ParseBytes(data)
	if res.Get("status").String() == "fail" {
		return domain.Hosting{}, fmt.Errorf("geoip: %s", res.Get("message").String())
	}
	return domain.Hosting{
		Country: stringOr(res.Get("countryCode"), "Unknown"),
		ISP:     stringOr(res.Get("isp"), "Unknown"),
		IP:      stringOr(res.Get("query"), "0.0.0.0"),
	}, nil
}
