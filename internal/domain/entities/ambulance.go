package entities

import (
	"time"
)

// Location is a WGS84 coordinate pair
type Location struct {
	Lat float64 `json:"lat" db:"lat"`
	Lng float64 `json:"lng" db:"lng"`
}

// AmbulanceStatus is the dispatch state of an ambulance
type AmbulanceStatus string

const (
	AmbulanceAvailable AmbulanceStatus = "available"
	AmbulanceEnRoute   AmbulanceStatus = "en-route"
	AmbulanceBusy      AmbulanceStatus = "busy"
	AmbulanceOffline   AmbulanceStatus = "offline"
)

// Valid reports whether s is a known status
func (s AmbulanceStatus) Valid() bool {
	switch s {
	case AmbulanceAvailable, AmbulanceEnRoute, AmbulanceBusy, AmbulanceOffline:
		return true
	}
	return false
}

// Ambulance represents a tracked vehicle
type Ambulance struct {
	ID            string          `json:"id" db:"id"`
	VehicleNumber string          `json:"vehicleNumber" db:"vehicle_number"`
	DriverName    string          `json:"driverName" db:"driver_name"`
	Contact       string          `json:"contact" db:"contact"`
	Lat           float64         `json:"lat" db:"lat"`
	Lng           float64         `json:"lng" db:"lng"`
	Status        AmbulanceStatus `json:"status" db:"status"`
	HospitalID    *string         `json:"hospitalId,omitempty" db:"hospital_id"`
	HospitalName  string          `json:"hospitalName,omitempty" db:"-"`
	District      string          `json:"district" db:"district"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// Position returns the ambulance coordinates
func (a *Ambulance) Position() Location {
	return Location{Lat: a.Lat, Lng: a.Lng}
}

// LocationUpdate is a driver position report
type LocationUpdate struct {
	Lat    float64         `json:"lat"`
	Lng    float64         `json:"lng"`
	Status AmbulanceStatus `json:"status,omitempty"`
}

// Validate checks coordinate ranges and status
func (u LocationUpdate) Validate() error {
	if u.Lat < -90 || u.Lat > 90 || u.Lng < -180 || u.Lng > 180 {
		return errInvalidCoordinates
	}
	if u.Status != "" && !u.Status.Valid() {
		return errInvalidStatus
	}
	return nil
}
