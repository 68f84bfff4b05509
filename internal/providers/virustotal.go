package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"trustscan/internal/config"
	"trustscan/internal/domain"
	"trustscan/internal/resilience"
)

// ErrAnalysisPending is returned when the URL analysis did not complete within the poll budget.
var ErrAnalysisPending = errors.New("virustotal analysis still queued")

const maxEngineNames = 3

// VirusTotal implements ReputationService against the VirusTotal v3 API.
type VirusTotal struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	policy       resilience.Policy
	limiter      *rate.Limiter
	initialDelay time.Duration
	pollInterval time.Duration
	pollAttempts int
	now          func() time.Time
}

func NewVirusTotal(cfg config.VirusTotalConfig, client *http.Client, policy resilience.Policy) *VirusTotal {
	vt := &VirusTotal{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		client:       client,
		policy:       policy,
		initialDelay: cfg.InitialDelay,
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
		now:          time.Now,
	}
	if vt.pollAttempts < 1 {
		vt.pollAttempts = 1
	}
	if cfg.RatePerMinute > 0 {
		vt.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	return vt
}

func (v *VirusTotal) call(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	return fetchJSON(ctx, v.client, v.policy, func(ctx context.Context) (*http.Request, error) {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-apikey", v.apiKey)
		req.Header.Set("Accept", "application/json")
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return req, nil
	})
}

// URLConsensus submits rawurl for analysis and polls until the analysis completes.
func (v *VirusTotal) URLConsensus(ctx context.Context, rawurl string) (domain.Reputation, error) {
	if v.apiKey == "" {
		return domain.Reputation{}, ErrNoAPIKey
	}
	submitted, err := v.call(ctx, http.MethodPost, "/api/v3/urls", url.Values{"url": {rawurl}})
	if err != nil {
		return domain.Reputation{}, fmt.Errorf("submit url: %w", err)
	}
	id := gjson.GetBytes(submitted, "data.id").String()
	if id == "" {
		return domain.Reputation{}, errors.New("submit url: missing analysis id")
	}

	if err := sleep(ctx, v.initialDelay); err != nil {
		return domain.Reputation{}, err
	}
	var analysis []byte
	completed := false
	for i := 0; i < v.pollAttempts; i++ {
		analysis, err = v.call(ctx, http.MethodGet, "/api/v3/analyses/"+url.PathEscape(id), nil)
		if err != nil {
			return domain.Reputation{}, fmt.Errorf("poll analysis: %w", err)
		}
		if gjson.GetBytes(analysis, "data.attributes.status").String() == "completed" {
			completed = true
			break
		}
		if i < v.pollAttempts-1 {
			if err := sleep(ctx, v.pollInterval); err != nil {
				return domain.Reputation{}, err
			}
		}
	}
	if !completed {
		return domain.Reputation{}, ErrAnalysisPending
	}

	attrs := gjson.GetBytes(analysis, "data.attributes")
	var engines []string
	attrs.Get("results").ForEach(func(_, r gjson.Result) bool {
		if r.Get("category").String() == "malicious" {
			engines = append(engines, r.Get("engine_name").String())
		}
		return len(engines) < maxEngineNames
	})
	return domain.Reputation{
		MaliciousCount: int(attrs.Get("stats.malicious").Int()),
		Platform:       "VirusTotal API",
		Details:        engines,
	}, nil
}

// DomainRecord reads the domain object: creation date, registrar, country and
// the last analysis stats.
func (v *VirusTotal) DomainRecord(ctx context.Context, hostname string) (domain.DomainMetadata, error) {
	if v.apiKey == "" {
		return domain.DomainMetadata{}, ErrNoAPIKey
	}
	data, err := v.call(ctx, http.MethodGet, "/api/v3/domains/"+url.PathEscape(hostname), nil)
	if err != nil {
		return domain.DomainMetadata{}, fmt.Errorf("domain record: %w", err)
	}
	attrs := gjson.GetBytes(data, "data.attributes")
	if !attrs.Exists() {
		return domain.DomainMetadata{}, errors.New("domain record: missing attributes")
	}

	md := domain.DomainMetadata{
		CreationDate:  "Unknown",
		Registrar:     stringOr(attrs.Get("registrar"), "Unknown"),
		ServerCountry: stringOr(attrs.Get("country"), "XX"),
	}
	if ts := attrs.Get("creation_date").Int(); ts > 0 {
		created := time.Unix(ts, 0).UTC()
		md.CreationDate = created.Format(time.RFC3339)
		md.AgeYears = yearsSince(created, v.now())
	}
	stats := attrs.Get("last_analysis_stats")
	md.ConsensusStats = domain.ConsensusStats{
		Malicious:  int(stats.Get("malicious").Int()),
		Suspicious: int(stats.Get("suspicious").Int()),
		Clean:      int(stats.Get("harmless").Int()),
		Undetected: int(stats.Get("undetected").Int()),
	}
	c := md.ConsensusStats
	md.ConsensusStats.Total = c.Malicious + c.Suspicious + c.Clean + c.Undetected
	return md, nil
}

func yearsSince(t, now time.Time) float64 {
	return now.Sub(t).Hours() / 24 / 365
}
