package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/setuhealth/setu/backend/internal/adapters/database"
	"github.com/setuhealth/setu/backend/internal/adapters/search"
	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/postgres"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/typesense"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
	"github.com/setuhealth/setu/backend/pkg/config"
)

const district = "Bhagalpur"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("setu-seed", cfg.Env)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pgClient.Close()

	var searchRepo repositories.HospitalSearchRepository
	if tsClient, err := typesense.NewClient(ctx, &cfg.Typesense); err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable, hospitals will not be indexed")
	} else if err := tsClient.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to init Typesense schema")
	} else {
		searchRepo = search.NewTypesenseAdapter(tsClient)
	}

	hospitalRepo := database.NewHospitalAdapter(pgClient)
	ambulanceRepo := database.NewAmbulanceAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)

	if os.Getenv("SEED_KEEP_DATA") != "true" {
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				patients,
				ambulances,
				users,
				hospitals
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to clear tables")
		}
		log.Info().Msg("cleared existing data")
	}

	hospitals := seedHospitals()
	for _, h := range hospitals {
		if err := hospitalRepo.Create(ctx, h); err != nil {
			log.Fatal().Err(err).Str("hospital", h.Name).Msg("failed to create hospital")
		}
		if searchRepo != nil {
			if err := searchRepo.Index(ctx, h); err != nil {
				log.Warn().Err(err).Str("hospital", h.Name).Msg("failed to index hospital")
			}
		}
	}
	log.Info().Int("count", len(hospitals)).Msg("inserted hospitals")

	ambulances := seedAmbulances(hospitals)
	for _, a := range ambulances {
		if err := ambulanceRepo.Create(ctx, a); err != nil {
			log.Fatal().Err(err).Str("vehicle", a.VehicleNumber).Msg("failed to create ambulance")
		}
	}
	log.Info().Int("count", len(ambulances)).Msg("inserted ambulances")

	users := seedUsers(hospitals)
	for _, u := range users {
		hash, err := services.HashPassword(u.password)
		if err != nil {
			log.Fatal().Err(err).Str("email", u.user.Email).Msg("failed to hash password")
		}
		u.user.PasswordHash = hash
		u.user.CreatedAt = time.Now()
		u.user.UpdatedAt = u.user.CreatedAt
		if err := userRepo.Create(ctx, u.user); err != nil {
			log.Fatal().Err(err).Str("email", u.user.Email).Msg("failed to create user")
		}
		log.Info().Str("role", string(u.user.Role)).Str("email", u.user.Email).Str("password", u.password).Msg("test credentials")
	}

	log.Info().Msg("seeding complete")
}

func seedHospitals() []*entities.Hospital {
	return []*entities.Hospital{
		{
			Name: "Jawaharlal Nehru Medical College & Hospital", District: district,
			Address: "Mayaganj, Bhagalpur, Bihar", Lat: 25.2445, Lng: 86.9718,
			TotalBeds: 200, AvailableBeds: 52, ICUBeds: 25, AvailableICUBeds: 8,
			Contact:     "+91-641-2400733",
			Specialties: []string{"General Surgery", "Orthopedics", "Cardiology", "Neurology"},
		},
		{
			Name: "Mayaganj Hospital", District: district,
			Address: "Mayaganj Road, Bhagalpur", Lat: 25.2510, Lng: 86.9680,
			TotalBeds: 150, AvailableBeds: 38, ICUBeds: 20, AvailableICUBeds: 6,
			Contact:     "+91-641-2401234",
			Specialties: []string{"Pediatrics", "Obstetrics", "ENT", "Ophthalmology"},
		},
		{
			Name: "Sadar Hospital Bhagalpur", District: district,
			Address: "Khalifabagh, Bhagalpur", Lat: 25.2500, Lng: 86.9850,
			TotalBeds: 120, AvailableBeds: 42, ICUBeds: 15, AvailableICUBeds: 5,
			Contact:     "+91-641-2500456",
			Specialties: []string{"Emergency", "Trauma", "General Medicine", "Dermatology"},
		},
		{
			Name: "Apollo Clinic Bhagalpur", District: district,
			Address: "Adampur, Bhagalpur", Lat: 25.2350, Lng: 86.9920,
			TotalBeds: 80, AvailableBeds: 28, ICUBeds: 12, AvailableICUBeds: 4,
			Contact:     "+91-641-2600789",
			Specialties: []string{"Cardiology", "Gastroenterology", "Urology", "Pulmonology"},
		},
		{
			Name: "Sneh Lata Hospital", District: district,
			Address: "Tilkamanjhi, Bhagalpur", Lat: 25.2580, Lng: 87.0010,
			TotalBeds: 100, AvailableBeds: 35, ICUBeds: 10, AvailableICUBeds: 3,
			Contact:     "+91-641-2700321",
			Specialties: []string{"Oncology", "Nephrology", "Endocrinology", "General Surgery"},
		},
	}
}

func seedAmbulances(hospitals []*entities.Hospital) []*entities.Ambulance {
	ambulance := func(number, driver, contact string, lat, lng float64, status entities.AmbulanceStatus, hospital int) *entities.Ambulance {
		return &entities.Ambulance{
			VehicleNumber: number,
			DriverName:    driver,
			Contact:       contact,
			Lat:           lat,
			Lng:           lng,
			Status:        status,
			HospitalID:    &hospitals[hospital].ID,
			District:      district,
		}
	}
	return []*entities.Ambulance{
		ambulance("BR07-AMB-1001", "Rajesh Kumar", "+91-9876543210", 25.2420, 86.9750, entities.AmbulanceAvailable, 0),
		ambulance("BR07-AMB-1002", "Amit Singh", "+91-9876543211", 25.2480, 86.9690, entities.AmbulanceEnRoute, 0),
		ambulance("BR07-AMB-2001", "Suresh Yadav", "+91-9876543212", 25.2550, 86.9640, entities.AmbulanceAvailable, 1),
		ambulance("BR07-AMB-2002", "Vikram Verma", "+91-9876543213", 25.2530, 86.9880, entities.AmbulanceBusy, 1),
		ambulance("BR07-AMB-3001", "Manoj Tiwari", "+91-9876543214", 25.2460, 86.9800, entities.AmbulanceAvailable, 2),
		ambulance("BR07-AMB-4001", "Deepak Sharma", "+91-9876543215", 25.2380, 86.9950, entities.AmbulanceAvailable, 3),
		ambulance("BR07-AMB-4002", "Rahul Gupta", "+91-9876543216", 25.2400, 86.9890, entities.AmbulanceEnRoute, 3),
		ambulance("BR07-AMB-5001", "Arun Mishra", "+91-9876543217", 25.2600, 86.9980, entities.AmbulanceAvailable, 4),
	}
}

type seedUser struct {
	user     *entities.User
	password string
}

func seedUsers(hospitals []*entities.Hospital) []seedUser {
	primary := hospitals[0].ID
	return []seedUser{
		{user: &entities.User{ID: uuid.NewString(), Name: "Admin User", Email: "admin@setu.com", Role: entities.RoleAdmin, Phone: "+91-9000000001"}, password: "admin123"},
		{user: &entities.User{ID: uuid.NewString(), Name: "Dr. Priya Sharma", Email: "doctor@setu.com", Role: entities.RoleDoctor, Phone: "+91-9000000002", HospitalID: &primary}, password: "doctor123"},
		{user: &entities.User{ID: uuid.NewString(), Name: "Rajesh Kumar", Email: "driver@setu.com", Role: entities.RoleDriver, Phone: "+91-9876543210", HospitalID: &primary}, password: "driver123"},
		{user: &entities.User{ID: uuid.NewString(), Name: "Rahul Verma", Email: "patient@setu.com", Role: entities.RolePatient, Phone: "+91-9000000004"}, password: "patient123"},
	}
}
