package ports

import (
	"context"

	"trustscan/internal/domain"
)

// ScanRepository records computed scans and serves the latest per registrable domain (eTLD+1).
type ScanRepository interface {
	Save(ctx context.Context, target domain.ScanTarget, result domain.ScanResult) error
	LatestByDomain(ctx context.Context, registrable string) (result domain.ScanResult, found bool, err error)
}
