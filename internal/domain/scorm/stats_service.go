package scorm

import (
	"context"
	"time"

	"scormhub/internal/pkg/lru"
	"scormhub/internal/pkg/session"
)

const (
	DefaultStatsCacheBytes = 1 << 20
	DefaultStatsCacheTTL   = 5 * time.Minute
)

// StatsService serves package statistics through a bounded cache.
type StatsService struct {
	packages PackageRepository
	attempts AttemptRepository
	cache    *lru.Cache[Stats]
	ttl      time.Duration
}

func NewStatsService(packages PackageRepository, attempts AttemptRepository, cacheBytes int64, ttl time.Duration) *StatsService {
	if cacheBytes <= 0 {
		cacheBytes = DefaultStatsCacheBytes
	}
	if ttl <= 0 {
		ttl = DefaultStatsCacheTTL
	}
	return &StatsService{
		packages: packages,
		attempts: attempts,
		cache:    lru.New[Stats](cacheBytes, statsSize),
		ttl:      ttl,
	}
}

// Get returns statistics for a package the user can see. refresh skips the
// cache and stores the recomputed value.
func (s *StatsService) Get(ctx context.Context, user session.User, packageID string, refresh bool) (Stats, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return Stats{}, err
	}
	if !user.MemberOf(pkg.OrganizationID) {
		return Stats{}, ErrPackageNotFound
	}

	if !refresh {
		if st, ok := s.cache.Get(packageID); ok {
			return st, nil
		}
	}

	attempts, err := s.attempts.ListByPackage(ctx, packageID)
	if err != nil {
		return Stats{}, err
	}
	st := ComputeStats(attempts)
	s.cache.Set(packageID, st, s.ttl)
	return st, nil
}

// Invalidate drops the cached statistics of one package.
func (s *StatsService) Invalidate(packageID string) {
	s.cache.Delete(packageID)
}

func statsSize(st Stats) int64 {
	// fixed-width fields plus the two formatted durations
	return 128 + int64(len(st.TotalTime)+len(st.AverageTime))
}
