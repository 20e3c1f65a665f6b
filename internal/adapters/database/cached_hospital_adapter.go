package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
)

// Cache TTLs (in seconds)
const (
	hospitalByIDTTL   = 300
	hospitalsListTTL  = 60
	hospitalKeyPrefix = "hospital:"
	hospitalsListPref = "hospitals:list:"
)

func hospitalCacheKey(id string) string {
	return hospitalKeyPrefix + id
}

func hospitalsListCacheKey(filter repositories.HospitalFilter) string {
	district := filter.District
	if district == "" {
		district = "all"
	}
	return fmt.Sprintf("%s%s:%d:%d", hospitalsListPref, district, filter.Limit, filter.Offset)
}

// CachedHospitalAdapter wraps a HospitalRepository with read-through caching.
// Bed availability changes often, so list entries are short-lived and every
// write invalidates both the entity and all cached lists.
type CachedHospitalAdapter struct {
	adapter repositories.HospitalRepository
	cache   providers.CacheProvider
}

// NewCachedHospitalAdapter creates a new cached hospital adapter
func NewCachedHospitalAdapter(adapter repositories.HospitalRepository, cache providers.CacheProvider) repositories.HospitalRepository {
	return &CachedHospitalAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Create creates a hospital and drops cached lists
func (a *CachedHospitalAdapter) Create(ctx context.Context, hospital *entities.Hospital) error {
	if err := a.adapter.Create(ctx, hospital); err != nil {
		return err
	}
	a.invalidateLists(ctx)
	return nil
}

// GetByID retrieves a hospital by ID with caching
func (a *CachedHospitalAdapter) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	key := hospitalCacheKey(id)
	var cached entities.Hospital
	if a.read(ctx, key, &cached) {
		return &cached, nil
	}

	hospital, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.write(ctx, key, hospital, hospitalByIDTTL)
	return hospital, nil
}

// GetByIDs is not cached; it serves batched lookups that are already coalesced
func (a *CachedHospitalAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Hospital, error) {
	return a.adapter.GetByIDs(ctx, ids)
}

// List retrieves hospitals with caching
func (a *CachedHospitalAdapter) List(ctx context.Context, filter repositories.HospitalFilter) ([]*entities.Hospital, error) {
	key := hospitalsListCacheKey(filter)
	var cached []*entities.Hospital
	if a.read(ctx, key, &cached) {
		return cached, nil
	}

	hospitals, err := a.adapter.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	a.write(ctx, key, hospitals, hospitalsListTTL)
	return hospitals, nil
}

// UpdateBeds commits beds and invalidates affected cache entries
func (a *CachedHospitalAdapter) UpdateBeds(ctx context.Context, hospital *entities.Hospital) error {
	if err := a.adapter.UpdateBeds(ctx, hospital); err != nil {
		return err
	}
	if err := a.cache.Delete(ctx, hospitalCacheKey(hospital.ID)); err != nil {
		log.Warn().Err(err).Str("hospital_id", hospital.ID).Msg("failed to invalidate cached hospital")
	}
	a.invalidateLists(ctx)
	return nil
}

func (a *CachedHospitalAdapter) invalidateLists(ctx context.Context) {
	if err := a.cache.DeletePrefix(ctx, hospitalsListPref); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate cached hospital lists")
	}
}

func (a *CachedHospitalAdapter) read(ctx context.Context, key string, dest interface{}) bool {
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached hospital data")
		return false
	}
	return true
}

func (a *CachedHospitalAdapter) write(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to cache hospital data")
	}
}
