package ports

import (
	"context"

	"trustscan/internal/domain"
)

// Scanner runs a full trust scan for a user query.
type Scanner interface {
	Scan(ctx context.Context, query string) (domain.ScanResult, error)
	Evict(ctx context.Context, query string) error
}

// Profiles returns the latest recorded scan for a registrable domain.
type Profiles interface {
	GetLatest(ctx context.Context, registrable string) (domain.ScanResult, error)
}

// Resolver checks that a hostname exists in DNS.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) error
}

// ResultCache memoizes scan results by normalized hostname. Implementations
// return copies and treat expired entries as absent.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.ScanResult, bool)
	Set(ctx context.Context, key string, result domain.ScanResult)
	Evict(ctx context.Context, key string)
}
