package ports

import (
	"context"

	"trustscan/internal/domain"
)

// Signal providers. A returned error means the signal could not be obtained;
// callers substitute their own defaults.

type TLSInspector interface {
	Inspect(ctx context.Context, hostname string) (domain.TLSPosture, error)
}

type HeaderProber interface {
	Probe(ctx context.Context, rawurl string) (domain.SecurityHeaders, error)
}

// ReputationService is a multi-engine URL/domain reputation source.
type ReputationService interface {
	URLConsensus(ctx context.Context, rawurl string) (domain.Reputation, error)
	DomainRecord(ctx context.Context, hostname string) (domain.DomainMetadata, error)
}

type RegistrationLookup interface {
	DomainAge(ctx context.Context, hostname string) (domain.DomainAge, error)
}

type GeoLocator interface {
	Locate(ctx context.Context, hostname string) (domain.Hosting, error)
}

// ImpersonationClassifier judges whether a hostname imitates a known brand.
type ImpersonationClassifier interface {
	Classify(ctx context.Context, hostname string) (domain.Impersonation, error)
}
