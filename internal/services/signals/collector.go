// Package signals gathers every trust signal for a target concurrently.
package signals

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
)

// Providers is the set of signal sources queried for each scan.
type Providers struct {
	TLS           ports.TLSInspector
	Headers       ports.HeaderProber
	Reputation    ports.ReputationService
	Registration  ports.RegistrationLookup
	Geo           ports.GeoLocator
	Impersonation ports.ImpersonationClassifier
}

// Defaults substituted when a provider fails.
var (
	defaultTLS           = domain.TLSPosture{IsValid: false, Issuer: "Error", DaysRemaining: 0, Secure: false}
	defaultReputation    = domain.Reputation{MaliciousCount: 0, Platform: "Reputation service unavailable"}
	defaultHosting       = domain.Hosting{Country: "XX", ISP: "Unknown", IP: "0.0.0.0"}
	defaultImpersonation = domain.Impersonation{Suspicious: false}
)

type Collector struct {
	p   Providers
	log logrus.FieldLogger
}

func NewCollector(p Providers, log logrus.FieldLogger) *Collector {
	return &Collector{p: p, log: log}
}

// Collect queries all providers and waits for every one of them. It never
// fails: a provider that errors or panics contributes its default.
func (c *Collector) Collect(ctx context.Context, target domain.ScanTarget) domain.Signals {
	host := target.Hostname
	log := c.log.WithField("host", host)

	var (
		s  domain.Signals
		wg conc.WaitGroup
	)
	wg.Go(func() {
		s.TLS = gather(ctx, log, "tls", defaultTLS, func(ctx context.Context) (domain.TLSPosture, error) {
			return c.p.TLS.Inspect(ctx, host)
		})
	})
	wg.Go(func() {
		s.Headers = gather(ctx, log, "headers", domain.SecurityHeaders{}, func(ctx context.Context) (domain.SecurityHeaders, error) {
			return c.p.Headers.Probe(ctx, target.URL)
		})
	})
	wg.Go(func() {
		s.Reputation = gather(ctx, log, "reputation", defaultReputation, func(ctx context.Context) (domain.Reputation, error) {
			return c.p.Reputation.URLConsensus(ctx, target.URL)
		})
	})
	wg.Go(func() {
		s.Metadata = gather(ctx, log, "metadata", domain.DomainMetadata{}, func(ctx context.Context) (domain.DomainMetadata, error) {
			return c.p.Reputation.DomainRecord(ctx, host)
		})
	})
	wg.Go(func() {
		s.Age = gather(ctx, log, "domain_age", domain.UnknownAge, func(ctx context.Context) (domain.DomainAge, error) {
			return c.p.Registration.DomainAge(ctx, host)
		})
	})
	wg.Go(func() {
		s.Impersonation = gather(ctx, log, "impersonation", defaultImpersonation, func(ctx context.Context) (domain.Impersonation, error) {
			return c.p.Impersonation.Classify(ctx, host)
		})
	})
	wg.Go(func() {
		s.Hosting = gather(ctx, log, "hosting", defaultHosting, func(ctx context.Context) (domain.Hosting, error) {
			return c.p.Geo.Locate(ctx, host)
		}).Data
	})
	wg.Wait()
	return s
}

// gather runs one provider call, recovering a panic into the fallback.
func gather[T any](ctx context.Context, log logrus.FieldLogger, provider string, fallback T, call func(context.Context) (T, error)) domain.Outcome[T] {
	var (
		pc  panics.Catcher
		out = domain.Failed(fallback)
	)
	pc.Try(func() {
		v, err := call(ctx)
		if err != nil {
			log.WithField("provider", provider).WithError(err).Warn("signal unavailable")
			return
		}
		out = domain.Succeeded(v)
	})
	if r := pc.Recovered(); r != nil {
		log.WithField("provider", provider).WithError(r.AsError()).Error("signal provider panicked")
		return domain.Failed(fallback)
	}
	return out
}
