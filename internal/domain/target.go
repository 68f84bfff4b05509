package domain

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var (
	ErrInvalidTarget    = errors.New("invalid domain format")
	ErrDomainNotFound   = errors.New("domain does not exist")
	ErrResolutionFailed = errors.New("domain resolution failed")
)

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ScanTarget is a validated scan subject.
type ScanTarget struct {
	Hostname    string // lowercased, cache key
	URL         string // scheme-normalized query
	Registrable string // eTLD+1, or Hostname when it has none
}

// ParseTarget normalizes a URL or bare hostname into a ScanTarget.
func ParseTarget(query string) (ScanTarget, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return ScanTarget{}, ErrInvalidTarget
	}
	if !strings.Contains(q, "://") {
		q = "https://" + q
	}
	u, err := url.Parse(q)
	if err != nil {
		return ScanTarget{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	host := strings.ToLower(u.Hostname())
	if !hostnamePattern.MatchString(host) {
		return ScanTarget{}, ErrInvalidTarget
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	return ScanTarget{Hostname: host, URL: u.String(), Registrable: registrable}, nil
}

// UnknownAge is assumed when registration data cannot be obtained.
var UnknownAge = DomainAge{AgeYears: 5, Label: "Unknown Age"}

func AgeLabel(years float64) string {
	switch {
	case years < 0.1:
		return "Freshly Registered (<1 Mo)"
	case years < 1:
		return "< 1 Year"
	default:
		return fmt.Sprintf("%.1f Years", years)
	}
}
