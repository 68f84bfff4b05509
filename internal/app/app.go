// Package app wires configuration into the scan services shared by the
// server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"trustscan/internal/adapters/memory"
	pg "trustscan/internal/adapters/postgres"
	"trustscan/internal/cache"
	"trustscan/internal/config"
	"trustscan/internal/ports"
	"trustscan/internal/providers"
	"trustscan/internal/resilience"
	profsvc "trustscan/internal/services/profiles"
	scansvc "trustscan/internal/services/scanner"
	"trustscan/internal/services/signals"
	"trustscan/internal/workers/scanrunner"
)

type App struct {
	Scanner   *scansvc.Service
	Profiles  *profsvc.Service
	Jobs      ports.JobRepository
	Processor scanrunner.Processor

	closers []func()
}

// Build assembles the application. A configured database is connected and
// migrated; otherwise in-memory stores are used.
func Build(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{}

	var (
		history ports.ScanRepository
		jobs    ports.JobRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		history, jobs = db, db
	} else {
		history, jobs = memory.NewHistory(cfg.Cache.Capacity), memory.NewJobs()
	}

	var results ports.ResultCache
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		a.closers = append(a.closers, func() { _ = client.Close() })
		results = cache.NewRedis(client, cfg.Cache.TTL, log)
	} else {
		results = cache.NewLRU(cfg.Cache.Capacity, cfg.Cache.TTL)
	}

	collector, err := newCollector(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Scanner = scansvc.New(providers.DNSResolver{}, results, collector, history, log)
	a.Profiles = profsvc.New(history)
	a.Jobs = jobs
	a.Processor = scanrunner.ScanProcessor{Scanner: a.Scanner}
	return a, nil
}

func newCollector(cfg config.Config, log logrus.FieldLogger) (*signals.Collector, error) {
	policy := resilience.Policy{MaxRetries: cfg.Retry.MaxRetries, Delay: cfg.Retry.Delay}
	client := providers.NewHTTPClient(cfg.HTTPTimeout)

	rdap, err := providers.NewRDAP(cfg.RDAPBaseURL, client, policy)
	if err != nil {
		return nil, err
	}
	if cfg.VirusTotal.APIKey == "" {
		log.Warn("VIRUSTOTAL_API_KEY not set, reputation and metadata checks will be unavailable")
	}
	if cfg.Gemini.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set, impersonation checks will be unavailable")
	}
	return signals.NewCollector(signals.Providers{
		TLS:           providers.NewTLSInspector(cfg.TLSTimeout),
		Headers:       providers.NewHeaderProber(client, policy),
		Reputation:    providers.NewVirusTotal(cfg.VirusTotal, client, policy),
		Registration:  rdap,
		Geo:           providers.NewGeoIP(cfg.GeoBaseURL, client, policy),
		Impersonation: providers.NewGemini(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, client, policy),
	}, log), nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
