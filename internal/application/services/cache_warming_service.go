package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/setuhealth/setu/backend/internal/domain/repositories"
)

// CacheWarmingService preloads the hospital read cache on startup
type CacheWarmingService struct {
	hospitals repositories.HospitalRepository
}

// NewCacheWarmingService creates a warmer over a cached hospital repository
func NewCacheWarmingService(hospitals repositories.HospitalRepository) *CacheWarmingService {
	return &CacheWarmingService{hospitals: hospitals}
}

// WarmCache loads the unfiltered hospital list, every district list seen in
// it, and each hospital by ID. Per-item failures are logged and skipped.
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	start := time.Now()

	all, err := s.hospitals.List(ctx, repositories.HospitalFilter{})
	if err != nil {
		return fmt.Errorf("failed to warm hospital list: %w", err)
	}

	districts := map[string]struct{}{}
	for _, h := range all {
		if h.District != "" {
			districts[h.District] = struct{}{}
		}
		if _, err := s.hospitals.GetByID(ctx, h.ID); err != nil {
			log.Warn().Err(err).Str("hospital_id", h.ID).Msg("failed to warm hospital")
		}
	}

	for district := range districts {
		if _, err := s.hospitals.List(ctx, repositories.HospitalFilter{District: district}); err != nil {
			log.Warn().Err(err).Str("district", district).Msg("failed to warm district hospital list")
		}
	}

	log.Info().
		Int("hospitals", len(all)).
		Int("districts", len(districts)).
		Dur("duration", time.Since(start)).
		Msg("hospital cache warmed")
	return nil
}
