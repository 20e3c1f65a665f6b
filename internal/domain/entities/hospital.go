package entities

import (
	"errors"
	"time"
)

var (
	errInvalidCoordinates = errors.New("coordinates out of range")
	errInvalidStatus      = errors.New("unknown ambulance status")
	errBedsOutOfRange     = errors.New("available beds must be between 0 and total beds")
	errICUBedsOutOfRange  = errors.New("available ICU beds must be between 0 and ICU beds")
	errNothingToCommit    = errors.New("no bed changes to commit")
)

// Hospital represents a facility with bed capacity
type Hospital struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	District         string    `json:"district" db:"district"`
	Address          string    `json:"address" db:"address"`
	Lat              float64   `json:"lat" db:"lat"`
	Lng              float64   `json:"lng" db:"lng"`
	TotalBeds        int       `json:"totalBeds" db:"total_beds"`
	AvailableBeds    int       `json:"availableBeds" db:"available_beds"`
	ICUBeds          int       `json:"icuBeds" db:"icu_beds"`
	AvailableICUBeds int       `json:"availableIcuBeds" db:"available_icu_beds"`
	Contact          string    `json:"contact" db:"contact"`
	Specialties      []string  `json:"specialties" db:"-"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// Position returns the hospital coordinates
func (h *Hospital) Position() Location {
	return Location{Lat: h.Lat, Lng: h.Lng}
}

// HospitalInput is the creation payload. Nil capacity fields take the
// defaults; explicit zeros are kept.
type HospitalInput struct {
	Name             string   `json:"name"`
	District         string   `json:"district"`
	Address          string   `json:"address"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	TotalBeds        *int     `json:"totalBeds"`
	AvailableBeds    *int     `json:"availableBeds"`
	ICUBeds          *int     `json:"icuBeds"`
	AvailableICUBeds *int     `json:"availableIcuBeds"`
	Contact          string   `json:"contact"`
	Specialties      []string `json:"specialties"`
}

// Hospital builds the entity, filling unset fields with defaults
func (in HospitalInput) Hospital() *Hospital {
	h := &Hospital{
		Name:             in.Name,
		District:         in.District,
		Address:          in.Address,
		Lat:              in.Lat,
		Lng:              in.Lng,
		TotalBeds:        intOr(in.TotalBeds, 100),
		AvailableBeds:    intOr(in.AvailableBeds, 50),
		ICUBeds:          intOr(in.ICUBeds, 10),
		AvailableICUBeds: intOr(in.AvailableICUBeds, 5),
		Contact:          in.Contact,
		Specialties:      in.Specialties,
	}
	if h.District == "" {
		h.District = "Lucknow"
	}
	if h.Specialties == nil {
		h.Specialties = []string{}
	}
	return h
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

// BedEdit is a pending change to one hospital's bed availability.
// Nil fields are left untouched on commit.
type BedEdit struct {
	HospitalID       string `json:"-"`
	AvailableBeds    *int   `json:"availableBeds,omitempty"`
	AvailableICUBeds *int   `json:"availableIcuBeds,omitempty"`
}

// Empty reports whether the edit changes nothing
func (e BedEdit) Empty() bool {
	return e.AvailableBeds == nil && e.AvailableICUBeds == nil
}

// ApplyTo validates the edit against h's capacity and returns the edited copy
func (e BedEdit) ApplyTo(h Hospital) (Hospital, error) {
	if e.Empty() {
		return h, errNothingToCommit
	}
	if e.AvailableBeds != nil {
		if *e.AvailableBeds < 0 || *e.AvailableBeds > h.TotalBeds {
			return h, errBedsOutOfRange
		}
		h.AvailableBeds = *e.AvailableBeds
	}
	if e.AvailableICUBeds != nil {
		if *e.AvailableICUBeds < 0 || *e.AvailableICUBeds > h.ICUBeds {
			return h, errICUBedsOutOfRange
		}
		h.AvailableICUBeds = *e.AvailableICUBeds
	}
	return h, nil
}

// HospitalSearchResult is a hospital hit from the search index
type HospitalSearchResult struct {
	Hospital   *Hospital `json:"hospital"`
	DistanceKm *float64  `json:"distanceKm,omitempty"`
}
