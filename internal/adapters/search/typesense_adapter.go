package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	tsclient "github.com/setuhealth/setu/backend/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	defaultSearchLimit = 20
	queryFields        = "name,specialties,district,address"
)

// TypesenseAdapter implements hospital search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.HospitalSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts a hospital document
func (a *TypesenseAdapter) Index(ctx context.Context, hospital *entities.Hospital) error {
	_, err := a.client.Client().Collection(tsclient.HospitalsCollection).Documents().Upsert(ctx, hospitalDocument(hospital))
	if err != nil {
		return fmt.Errorf("failed to index hospital: %w", err)
	}
	return nil
}

// Search runs a text query, optionally restricted by district and radius
func (a *TypesenseAdapter) Search(ctx context.Context, params repositories.HospitalSearchParams) ([]*entities.HospitalSearchResult, error) {
	result, err := a.client.Client().Collection(tsclient.HospitalsCollection).Documents().Search(ctx, buildSearchParams(params))
	if err != nil {
		return nil, fmt.Errorf("failed to search hospitals: %w", err)
	}

	results := []*entities.HospitalSearchResult{}
	if result.Hits == nil {
		return results, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		hospital := hospitalFromDocument(*hit.Document)
		item := &entities.HospitalSearchResult{Hospital: hospital}
		if params.Lat != nil && params.Lng != nil {
			d := entities.DistanceKm(entities.Location{Lat: *params.Lat, Lng: *params.Lng}, hospital.Position())
			item.DistanceKm = &d
		}
		results = append(results, item)
	}
	return results, nil
}

func buildSearchParams(params repositories.HospitalSearchParams) *api.SearchCollectionParams {
	q := strings.TrimSpace(params.Query)
	if q == "" {
		q = "*"
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var filters []string
	if params.District != "" {
		filters = append(filters, fmt.Sprintf("district:=`%s`", params.District))
	}
	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(queryFields),
		PerPage: pointer.Int(limit),
	}
	if params.Lat != nil && params.Lng != nil {
		if params.RadiusKm > 0 {
			filters = append(filters, fmt.Sprintf("location:(%f, %f, %f km)", *params.Lat, *params.Lng, params.RadiusKm))
		}
		searchParams.SortBy = pointer.String(fmt.Sprintf("location(%f, %f):asc", *params.Lat, *params.Lng))
	}
	if len(filters) > 0 {
		searchParams.FilterBy = pointer.String(strings.Join(filters, " && "))
	}
	return searchParams
}

func hospitalDocument(h *entities.Hospital) map[string]interface{} {
	specialties := h.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	updated := h.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return map[string]interface{}{
		"id":                 h.ID,
		"name":               h.Name,
		"district":           h.District,
		"address":            h.Address,
		"location":           []float64{h.Lat, h.Lng},
		"specialties":        specialties,
		"available_beds":     h.AvailableBeds,
		"available_icu_beds": h.AvailableICUBeds,
		"updated_at":         updated.Unix(),
	}
}

func hospitalFromDocument(doc map[string]interface{}) *entities.Hospital {
	h := &entities.Hospital{
		ID:               stringField(doc, "id"),
		Name:             stringField(doc, "name"),
		District:         stringField(doc, "district"),
		Address:          stringField(doc, "address"),
		AvailableBeds:    intField(doc, "available_beds"),
		AvailableICUBeds: intField(doc, "available_icu_beds"),
		Specialties:      []string{},
	}
	if loc, ok := doc["location"].([]interface{}); ok && len(loc) == 2 {
		h.Lat, _ = loc[0].(float64)
		h.Lng, _ = loc[1].(float64)
	}
	if specs, ok := doc["specialties"].([]interface{}); ok {
		for _, s := range specs {
			if str, ok := s.(string); ok {
				h.Specialties = append(h.Specialties, str)
			}
		}
	}
	if ts, ok := doc["updated_at"].(float64); ok {
		h.UpdatedAt = time.Unix(int64(ts), 0)
	}
	return h
}

func stringField(doc map[string]interface{}, key string) string {
	v, _ := doc[key].(string)
	return v
}

func intField(doc map[string]interface{}, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
