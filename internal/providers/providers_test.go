package providers

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustscan/internal/config"
	"trustscan/internal/domain"
	"trustscan/internal/resilience"
)

func fastPolicy() resilience.Policy {
	return resilience.Policy{MaxRetries: 2, Delay: time.Millisecond}
}

func tlsTarget(t *testing.T, srv *httptest.Server) (host, port string) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err = net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func TestTLSInspector(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	host, port := tlsTarget(t, srv)

	trusted := x509.NewCertPool()
	trusted.AddCert(srv.Certificate())

	t.Run("trusted chain", func(t *testing.T) {
		insp := &TLSInspector{Timeout: time.Second, Port: port, Roots: trusted, Now: time.Now}
		got, err := insp.Inspect(context.Background(), host)
		require.NoError(t, err)
		assert.True(t, got.IsValid)
		assert.True(t, got.Secure)
		assert.Equal(t, "Acme Co", got.Issuer)
		assert.Positive(t, got.DaysRemaining)
	})

	t.Run("expired", func(t *testing.T) {
		later := srv.Certificate().NotAfter.Add(48 * time.Hour)
		insp := &TLSInspector{Timeout: time.Second, Port: port, Roots: trusted, Now: func() time.Time { return later }}
		got, err := insp.Inspect(context.Background(), host)
		require.NoError(t, err)
		assert.False(t, got.IsValid)
		assert.False(t, got.Secure)
		assert.Equal(t, -2, got.DaysRemaining)
	})

	t.Run("untrusted", func(t *testing.T) {
		insp := &TLSInspector{Timeout: time.Second, Port: port, Roots: x509.NewCertPool(), Now: time.Now}
		got, err := insp.Inspect(context.Background(), host)
		require.NoError(t, err)
		assert.False(t, got.IsValid)
		assert.False(t, got.Secure)
	})

	t.Run("unreachable", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		_, closedPort, _ := net.SplitHostPort(l.Addr().String())
		l.Close()

		insp := &TLSInspector{Timeout: time.Second, Port: closedPort, Now: time.Now}
		_, err = insp.Inspect(context.Background(), "127.0.0.1")
		assert.Error(t, err)
	})
}

func TestHeaderProber(t *testing.T) {
	t.Run("reads headers from non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodHead, r.Method)
			w.Header().Set("Strict-Transport-Security", "max-age=63072000")
			w.Header().Set("X-Frame-Options", "DENY")
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		got, err := NewHeaderProber(srv.Client(), fastPolicy()).Probe(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, domain.SecurityHeaders{HSTS: true, CSP: false, XFrame: true}, got)
	})

	t.Run("retries 5xx", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
		}))
		defer srv.Close()

		got, err := NewHeaderProber(srv.Client(), fastPolicy()).Probe(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.True(t, got.CSP)
		assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	})
}

func vtConfig(base string) config.VirusTotalConfig {
	return config.VirusTotalConfig{APIKey: "k", BaseURL: base, PollAttempts: 3}
}

func TestVirusTotalURLConsensus(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-apikey"))
		switch r.URL.Path {
		case "/api/v3/urls":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "https://evil.example", r.PostForm.Get("url"))
			fmt.Fprint(w, `{"data":{"id":"an-1"}}`)
		case "/api/v3/analyses/an-1":
			if atomic.AddInt32(&polls, 1) == 1 {
				fmt.Fprint(w, `{"data":{"attributes":{"status":"queued"}}}`)
				return
			}
			fmt.Fprint(w, `{"data":{"attributes":{"status":"completed","stats":{"malicious":4},
				"results":{
					"A":{"category":"malicious","engine_name":"Alpha"},
					"B":{"category":"harmless","engine_name":"Beta"},
					"C":{"category":"malicious","engine_name":"Gamma"},
					"D":{"category":"malicious","engine_name":"Delta"},
					"E":{"category":"malicious","engine_name":"Epsilon"}}}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	vt := NewVirusTotal(vtConfig(srv.URL), srv.Client(), fastPolicy())
	got, err := vt.URLConsensus(context.Background(), "https://evil.example")
	require.NoError(t, err)
	assert.Equal(t, 4, got.MaliciousCount)
	assert.Equal(t, "VirusTotal API", got.Platform)
	assert.Equal(t, []string{"Alpha", "Gamma", "Delta"}, got.Details)
	assert.EqualValues(t, 2, atomic.LoadInt32(&polls))
}

func TestVirusTotalStillQueued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/urls" {
			fmt.Fprint(w, `{"data":{"id":"an-2"}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"attributes":{"status":"queued"}}}`)
	}))
	defer srv.Close()

	_, err := NewVirusTotal(vtConfig(srv.URL), srv.Client(), fastPolicy()).URLConsensus(context.Background(), "https://slow.example")
	assert.ErrorIs(t, err, ErrAnalysisPending)
}

func TestVirusTotalNoKey(t *testing.T) {
	vt := NewVirusTotal(config.VirusTotalConfig{BaseURL: "http://unused"}, http.DefaultClient, fastPolicy())
	_, err := vt.URLConsensus(context.Background(), "https://a.example")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	_, err = vt.DomainRecord(context.Background(), "a.example")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestVirusTotalDomainRecord(t *testing.T) {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/domains/example.com", r.URL.Path)
		fmt.Fprintf(w, `{"data":{"attributes":{"creation_date":%d,"registrar":"Example Registrar",
			"last_analysis_stats":{"malicious":1,"suspicious":2,"harmless":60,"undetected":7}}}}`, created.Unix())
	}))
	defer srv.Close()

	vt := NewVirusTotal(vtConfig(srv.URL), srv.Client(), fastPolicy())
	vt.now = func() time.Time { return created.Add(2 * 365 * 24 * time.Hour) }

	got, err := vt.DomainRecord(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T00:00:00Z", got.CreationDate)
	assert.InDelta(t, 2.0, got.AgeYears, 0.001)
	assert.Equal(t, "Example Registrar", got.Registrar)
	assert.Equal(t, "XX", got.ServerCountry)
	assert.Equal(t, domain.ConsensusStats{Malicious: 1, Suspicious: 2, Clean: 60, Undetected: 7, Total: 70}, got.ConsensusStats)
}

func TestVirusTotalRetriesThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewVirusTotal(vtConfig(srv.URL), srv.Client(), fastPolicy()).DomainRecord(context.Background(), "example.com")
	var se *resilience.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRDAPDomainAge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/domain/example.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/rdap+json")
		fmt.Fprint(w, `{"objectClassName":"domain","ldhName":"example.com","events":[
			{"eventAction":"expiration","eventDate":"2030-01-01T00:00:00Z"},
			{"eventAction":"registration","eventDate":"2024-01-01T00:00:00Z"}]}`)
	}))
	defer srv.Close()

	r, err := NewRDAP(srv.URL, srv.Client(), fastPolicy())
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }

	got, err := r.DomainAge(context.Background(), "example.com")
	require.NoError(t, err)
	assert.InDelta(t, 31.0/365, got.AgeYears, 0.0001)
	assert.Equal(t, "Freshly Registered (<1 Mo)", got.Label)
}

func TestRDAPNoRegistrationEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"objectClassName":"domain","ldhName":"example.com","events":[]}`)
	}))
	defer srv.Close()

	r, err := NewRDAP(srv.URL, srv.Client(), fastPolicy())
	require.NoError(t, err)
	_, err = r.DomainAge(context.Background(), "example.com")
	assert.ErrorIs(t, err, errNoRegistrationEvent)
}

func TestGeoIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/example.com":
			fmt.Fprint(w, `{"status":"success","countryCode":"US","isp":"Example Net","query":"93.184.216.34"}`)
		default:
			fmt.Fprint(w, `{"status":"fail","message":"invalid query"}`)
		}
	}))
	defer srv.Close()

	g := NewGeoIP(srv.URL+"/", srv.Client(), fastPolicy())
	got, err := g.Locate(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.Hosting{Country: "US", ISP: "Example Net", IP: "93.184.216.34"}, got)

	_, err = g.Locate(context.Background(), "bogus")
	assert.ErrorContains(t, err, "invalid query")
}

func geminiReply(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func TestGeminiClassify(t *testing.T) {
	reply := geminiReply("```json\n{\"isImpersonation\": true, \"targetBrand\": \"PayPal\"}\n```")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		fmt.Fprint(w, reply)
	}))
	defer srv.Close()

	g := NewGemini("secret", "gemini-test", srv.URL, srv.Client(), fastPolicy())
	got, err := g.Classify(context.Background(), "paypa1.com")
	require.NoError(t, err)
	assert.True(t, got.Suspicious)
	require.NotNil(t, got.Target)
	assert.Equal(t, "PayPal", *got.Target)
}

func TestGeminiNoKey(t *testing.T) {
	_, err := NewGemini("", "m", "http://unused", http.DefaultClient, fastPolicy()).Classify(context.Background(), "a.com")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestParseVerdict(t *testing.T) {
	got, err := parseVerdict(`{"isImpersonation": false, "targetBrand": null}`)
	require.NoError(t, err)
	assert.False(t, got.Suspicious)
	assert.Nil(t, got.Target)

	for _, bad := range []string{"", "not json", `{"targetBrand":"X"}`, `{"isImpersonation":"yes"}`} {
		_, err := parseVerdict(bad)
		assert.ErrorIs(t, err, errMalformedVerdict, bad)
	}
}

func TestDNSResolverFailure(t *testing.T) {
	r := DNSResolver{Resolver: &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("dns unreachable")
		},
	}}
	err := r.Resolve(context.Background(), "trustscan-resolver-test.example")
	assert.ErrorIs(t, err, domain.ErrResolutionFailed)
}
