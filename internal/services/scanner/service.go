package scanner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
	"trustscan/internal/services/risk"
)

// Collector gathers the signals for one target.
type Collector interface {
	Collect(ctx context.Context, target domain.ScanTarget) domain.Signals
}

// Service runs the scan pipeline:
// validate, resolve, cache lookup, then collect, score, cache and record.
type Service struct {
	resolver  ports.Resolver
	cache     ports.ResultCache
	collector Collector
	history   ports.ScanRepository // optional
	now       func() time.Time
	log       logrus.FieldLogger
}

func New(resolver ports.Resolver, cache ports.ResultCache, collector Collector, history ports.ScanRepository, log logrus.FieldLogger) *Service {
	return &Service{
		resolver:  resolver,
		cache:     cache,
		collector: collector,
		history:   history,
		now:       time.Now,
		log:       log,
	}
}

// Scan returns the trust verdict for query. Invalid or unresolvable input is
// returned as an error; an internal failure after validation yields the
// Unknown result instead.
func (s *Service) Scan(ctx context.Context, query string) (domain.ScanResult, error) {
	target, err := domain.ParseTarget(query)
	if err != nil {
		return domain.ScanResult{}, err
	}
	log := s.log.WithField("host", target.Hostname)

	var (
		res domain.ScanResult
		pc  panics.Catcher
	)
	pc.Try(func() { res, err = s.run(ctx, log, target) })
	if r := pc.Recovered(); r != nil {
		log.WithError(r.AsError()).Error("scan failed")
		failed := risk.Failed(target.Hostname)
		failed.ScannedAt = s.now().UTC()
		return failed, nil
	}
	return res, err
}

func (s *Service) run(ctx context.Context, log logrus.FieldLogger, target domain.ScanTarget) (domain.ScanResult, error) {
	if err := s.resolver.Resolve(ctx, target.Hostname); err != nil {
		log.WithError(err).Info("resolution failed")
		return domain.ScanResult{}, err
	}
	if cached, ok := s.cache.Get(ctx, target.Hostname); ok {
		log.Debug("cache hit")
		return cached, nil
	}

	// collection is bounded by per-call provider timeouts, not by the caller
	ctx = context.WithoutCancel(ctx)
	started := s.now()
	signals := s.collector.Collect(ctx, target)
	res := risk.Aggregate(signals, domain.QualityOf(signals))
	res.Hostname = target.Hostname
	res.ScannedAt = s.now().UTC()

	s.cache.Set(ctx, target.Hostname, res)
	if s.history != nil {
		if err := s.history.Save(ctx, target, res); err != nil {
			log.WithError(err).Warn("record scan history")
		}
	}
	log.WithFields(logrus.Fields{
		"score":      res.Score,
		"verdict":    res.RiskLevel,
		"confidence": res.Confidence,
		"took":       s.now().Sub(started).String(),
	}).Info("scan complete")
	return res, nil
}

// Evict drops the cached result for query's hostname.
func (s *Service) Evict(ctx context.Context, query string) error {
	target, err := domain.ParseTarget(query)
	if err != nil {
		return err
	}
	s.cache.Evict(ctx, target.Hostname)
	return nil
}
