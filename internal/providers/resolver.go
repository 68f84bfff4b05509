package providers

import (
	"context"
	"errors"
	"fmt"
	"net"

	"trustscan/internal/domain"
)

// DNSResolver checks existence of a hostname with the system resolver.
type DNSResolver struct {
	Resolver *net.Resolver
}

func (d DNSResolver) Resolve(ctx context.Context, hostname string) error {
	r := d.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	_, err := r.LookupHost(ctx, hostname)
	if err == nil {
		return nil
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return fmt.Errorf("%w: %s", domain.ErrDomainNotFound, hostname)
	}
	return fmt.Errorf("%w: %v", domain.ErrResolutionFailed, err)
}
