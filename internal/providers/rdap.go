package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openrdap/rdap"

	"trustscan/internal/domain"
	"trustscan/internal/resilience"
)

var errNoRegistrationEvent = errors.New("rdap: no registration event")

// RDAP looks up domain age from registration data. Queries go to a fixed
// server (rdap.org by default), which redirects to the authoritative registry.
type RDAP struct {
	client *rdap.Client
	server *url.URL
	policy resilience.Policy
	now    func() time.Time
}

func NewRDAP(baseURL string, httpClient *http.Client, policy resilience.Policy) (*RDAP, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	server, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("rdap base url: %w", err)
	}
	return &RDAP{
		client: &rdap.Client{HTTP: httpClient},
		server: server,
		policy: policy,
		now:    time.Now,
	}, nil
}

func (r *RDAP) DomainAge(ctx context.Context, hostname string) (domain.DomainAge, error) {
	var record *rdap.Domain
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		req := (&rdap.Request{Type: rdap.DomainRequest, Query: hostname, Server: r.server}).WithContext(ctx)
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		d, ok := resp.Object.(*rdap.Domain)
		if !ok {
			return resilience.Permanent(fmt.Errorf("rdap: unexpected object %T", resp.Object))
		}
		record = d
		return nil
	})
	if err != nil {
		return domain.DomainAge{}, err
	}

	registered, err := registrationDate(record.Events)
	if err != nil {
		return domain.DomainAge{}, err
	}
	years := yearsSince(registered, r.now())
	return domain.DomainAge{AgeYears: years, Label: domain.AgeLabel(years)}, nil
}

// registrationDate returns the date of the first "registration" or
// "last changed" event.
func registrationDate(events []rdap.Event) (time.Time, error) {
	for _, e := range events {
		if e.Action != "registration" && e.Action != "last changed" {
			continue
		}
		t, err := time.Parse(time.RFC3339, e.Date)
		if err != nil {
			return time.Time{}, fmt.Errorf("rdap: event date %q: %w", e.Date, err)
		}
		return t, nil
	}
	return time.Time{}, errNoRegistrationEvent
}
