package search

import (
	"testing"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHospitalDocumentRoundTrip(t *testing.T) {
	hospital := &entities.Hospital{
		ID:               "h1",
		Name:             "Mayaganj Hospital",
		District:         "Bhagalpur",
		Lat:              25.2532,
		Lng:              86.9894,
		AvailableBeds:    42,
		AvailableICUBeds: 3,
		Specialties:      []string{"Cardiology", "Trauma"},
	}

	doc := hospitalDocument(hospital)
	assert.Equal(t, []float64{25.2532, 86.9894}, doc["location"])

	// Typesense returns JSON numbers and arrays as float64 and []interface{}
	decoded := map[string]interface{}{
		"id":                 "h1",
		"name":               "Mayaganj Hospital",
		"district":           "Bhagalpur",
		"location":           []interface{}{25.2532, 86.9894},
		"specialties":        []interface{}{"Cardiology", "Trauma"},
		"available_beds":     float64(42),
		"available_icu_beds": float64(3),
	}
	got := hospitalFromDocument(decoded)
	assert.Equal(t, hospital.ID, got.ID)
	assert.Equal(t, hospital.Lat, got.Lat)
	assert.Equal(t, 42, got.AvailableBeds)
	assert.Equal(t, hospital.Specialties, got.Specialties)
}

func TestBuildSearchParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := buildSearchParams(repositories.HospitalSearchParams{})
		require.NotNil(t, p.Q)
		assert.Equal(t, "*", *p.Q)
		assert.Equal(t, defaultSearchLimit, *p.PerPage)
		assert.Nil(t, p.FilterBy)
		assert.Nil(t, p.SortBy)
	})

	t.Run("district and radius", func(t *testing.T) {
		lat, lng := 25.25, 86.98
		p := buildSearchParams(repositories.HospitalSearchParams{
			Query:    "cardiology",
			District: "Bhagalpur",
			Lat:      &lat,
			Lng:      &lng,
			RadiusKm: 10,
			Limit:    5,
		})
		assert.Equal(t, "cardiology", *p.Q)
		require.NotNil(t, p.FilterBy)
		assert.Contains(t, *p.FilterBy, "district:=`Bhagalpur`")
		assert.Contains(t, *p.FilterBy, "location:(25.250000, 86.980000, 10.000000 km)")
		require.NotNil(t, p.SortBy)
		assert.Equal(t, "location(25.250000, 86.980000):asc", *p.SortBy)
	})
}
