package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/okian/prebook/internal/domain/analytics"
	"github.com/okian/prebook/internal/domain/types"
)

// Prebookings returns the public counter snapshot.
func (s *Service) Prebookings(ctx context.Context) (types.Prebookings, error) {
	return s.ticker.Snapshot(ctx)
}

// CheckLocation returns the geo gate verdict for ip.
func (s *Service) CheckLocation(ctx context.Context, ip string) types.LocationCheck {
	return s.geo.Check(ctx, ip)
}

// Analytics returns mock dashboard data. Any integer seed makes it
// repeatable; anything else draws from the clock.
func (s *Service) Analytics(seed string) analytics.Dashboard {
	return analytics.NewGenerator(parseSeed(seed), s.now).Dashboard()
}

// LiveUsers returns a mock snapshot of current visitors.
func (s *Service) LiveUsers(seed string) analytics.LiveUsers {
	return analytics.NewGenerator(parseSeed(seed), s.now).Live()
}

// zeroSeed stands in for ?seed=0, since the generator reads 0 as "use the clock".
const zeroSeed uint64 = 0x5eed

func parseSeed(raw string) uint64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	if n == 0 {
		return zeroSeed
	}
	return uint64(n)
}
