package routes

import (
	"net/http"

	"github.com/setuhealth/setu/backend/internal/api/handlers"
	"github.com/setuhealth/setu/backend/internal/api/middleware"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
)

// Handlers groups the route handlers
type Handlers struct {
	Patient      *handlers.PatientHandler
	Hospital     *handlers.HospitalHandler
	Ambulance    *handlers.AmbulanceHandler
	AI           *handlers.AIHandler
	Document     *handlers.DocumentHandler
	Auth         *handlers.AuthHandler
	Consultation *handlers.ConsultationHandler
	Tracking     *handlers.TrackingHandler
}

// Options carries the cross-cutting pieces the router wires around handlers
type Options struct {
	Authenticator   middleware.Authenticator
	CacheMiddleware *middleware.CacheMiddleware
	Metrics         *observability.Metrics
	AllowedOrigins  []string
	UploadDir       string
}

// Router holds all route handlers
type Router struct {
	mux      *http.ServeMux
	handlers Handlers
	opts     Options
}

// NewRouter creates a new router
func NewRouter(h Handlers, opts Options) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		handlers: h,
		opts:     opts,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	protect := middleware.Protect(r.opts.Authenticator)
	restrict := func(next http.Handler, roles ...entities.Role) http.Handler {
		return protect(middleware.Authorize(roles...)(next))
	}
	only := func(next http.HandlerFunc, roles ...entities.Role) http.Handler {
		return restrict(next, roles...)
	}
	// compression and ETags buffer the body, so streaming routes stay unwrapped
	read := func(next http.HandlerFunc) http.Handler {
		return middleware.ResponseOptimization(next)
	}
	// cached bodies are stored uncompressed
	cached := func(next http.HandlerFunc) http.Handler {
		if r.opts.CacheMiddleware == nil {
			return read(next)
		}
		return middleware.ResponseOptimization(r.opts.CacheMiddleware.Middleware(next))
	}

	// Health check endpoints
	r.mux.HandleFunc("GET /health", handlers.Health)
	r.mux.HandleFunc("GET /api/health", handlers.APIHealth)

	// Auth endpoints
	r.mux.HandleFunc("POST /api/auth/register", r.handlers.Auth.Register)
	r.mux.HandleFunc("POST /api/auth/login", r.handlers.Auth.Login)
	r.mux.Handle("GET /api/auth/me", protect(http.HandlerFunc(r.handlers.Auth.Me)))

	// Patient endpoints; registration stays public for the intake flow, records are staff only
	r.mux.HandleFunc("POST /api/patients", r.handlers.Patient.CreatePatient)
	r.mux.Handle("GET /api/patients", restrict(read(r.handlers.Patient.ListPatients), entities.RoleAdmin, entities.RoleDoctor))
	r.mux.Handle("GET /api/patients/{id}", restrict(read(r.handlers.Patient.GetPatient), entities.RoleAdmin, entities.RoleDoctor))
	r.mux.Handle("DELETE /api/patients/{id}", only(r.handlers.Patient.DeletePatient, entities.RoleAdmin, entities.RoleDoctor))

	// Hospital endpoints
	r.mux.Handle("GET /api/hospitals", read(r.handlers.Hospital.ListHospitals))
	r.mux.Handle("GET /api/hospitals/search", cached(r.handlers.Hospital.SearchHospitals))
	r.mux.Handle("GET /api/hospitals/nearby", cached(r.handlers.Hospital.NearbyHospitals))
	r.mux.Handle("GET /api/hospitals/{id}", read(r.handlers.Hospital.GetHospital))
	r.mux.Handle("POST /api/hospitals", only(r.handlers.Hospital.CreateHospital, entities.RoleAdmin))
	r.mux.Handle("PUT /api/hospitals/{id}/beds", only(r.handlers.Hospital.UpdateBeds, entities.RoleAdmin, entities.RoleDoctor))

	// Ambulance endpoints
	r.mux.Handle("GET /api/ambulances", read(r.handlers.Ambulance.ListAmbulances))
	r.mux.Handle("POST /api/ambulances", only(r.handlers.Ambulance.CreateAmbulance, entities.RoleAdmin))
	r.mux.HandleFunc("PUT /api/ambulances/{id}/location", r.handlers.Ambulance.UpdateLocation)

	// AI gateway endpoints
	r.mux.HandleFunc("POST /api/ai/analyze", r.handlers.AI.AnalyzeSymptoms)
	r.mux.HandleFunc("POST /api/ai/report", r.handlers.AI.GenerateReport)
	r.mux.HandleFunc("POST /api/ai/chat", r.handlers.AI.Chat)

	// Document endpoints
	r.mux.HandleFunc("POST /api/documents/analyze", r.handlers.Document.AnalyzeDocument)
	if r.opts.UploadDir != "" {
		r.mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(r.opts.UploadDir))))
	}

	// Consultation endpoints
	if c := r.handlers.Consultation; c != nil {
		r.mux.HandleFunc("POST /api/consultations", c.CreateConsultation)
		r.mux.HandleFunc("GET /api/consultations/{id}", c.GetConsultation)
		r.mux.HandleFunc("DELETE /api/consultations/{id}", c.DeleteConsultation)
		r.mux.HandleFunc("POST /api/consultations/{id}/start", c.Start)
		r.mux.HandleFunc("POST /api/consultations/{id}/answer", c.Answer)
		r.mux.HandleFunc("POST /api/consultations/{id}/continue", c.Continue)
		r.mux.HandleFunc("POST /api/consultations/{id}/messages", c.SendMessage)
		r.mux.HandleFunc("POST /api/consultations/{id}/listen", c.Listen)
		r.mux.HandleFunc("POST /api/consultations/{id}/reset", c.Reset)
		r.mux.HandleFunc("POST /api/consultations/{id}/language", c.SetLanguage)
		r.mux.HandleFunc("POST /api/consultations/{id}/speech", c.AckSpeech)
		r.mux.HandleFunc("GET /api/consultations/{id}/events", c.StreamEvents)
	}

	// Real-time tracking endpoints
	r.mux.HandleFunc("GET /api/stream/tracking", r.handlers.Tracking.StreamTracking)
	r.mux.HandleFunc("GET /ws/tracking", r.handlers.Tracking.ServeSocket)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.opts.Metrics)(handler)
	handler = middleware.Recovery(handler)

	// CORS wraps everything so headers are set even on panics
	handler = middleware.CORS(r.opts.AllowedOrigins)(handler)

	return handler
}
