package profiles

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/net/publicsuffix"

	"trustscan/internal/domain"
	"trustscan/internal/ports"
)

var ErrNotFound = errors.New("profile not found")

// Service serves the most recent scan recorded for a registrable domain.
type Service struct {
	scans ports.ScanRepository
}

func New(scans ports.ScanRepository) *Service { return &Service{scans: scans} }

// GetLatest accepts either a registrable domain or any hostname under it.
func (s *Service) GetLatest(ctx context.Context, name string) (domain.ScanResult, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	registrable, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		registrable = name
	}
	res, found, err := s.scans.LatestByDomain(ctx, registrable)
	if err != nil {
		return domain.ScanResult{}, err
	}
	if !found {
		return domain.ScanResult{}, ErrNotFound
	}
	return res, nil
}
