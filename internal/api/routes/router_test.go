package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setuhealth/setu/backend/internal/adapters/events"
	"github.com/setuhealth/setu/backend/internal/api/handlers"
	"github.com/setuhealth/setu/backend/internal/api/routes"
	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

type tokenAuthenticator map[string]*entities.User

func (a tokenAuthenticator) Authenticate(_ context.Context, token string) (*entities.User, error) {
	user, ok := a[token]
	if !ok {
		return nil, apperrors.NewUnauthorizedError("Not authorized, token failed")
	}
	return user, nil
}

func newTestRouter(t *testing.T, uploadDir string) http.Handler {
	t.Helper()
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	h := routes.Handlers{
		Patient:   handlers.NewPatientHandler(nil),
		Hospital:  handlers.NewHospitalHandler(nil, nil),
		Ambulance: handlers.NewAmbulanceHandler(nil),
		AI:        handlers.NewAIHandler(services.NewTriageService(nil, nil, nil)),
		Document:  handlers.NewDocumentHandler(nil, 10<<20),
		Auth:      handlers.NewAuthHandler(nil),
		Tracking:  handlers.NewTrackingHandler(bus, nil, nil),
	}
	auth := tokenAuthenticator{
		"doctor-token": {ID: "u1", Role: entities.RoleDoctor},
		"driver-token": {ID: "u2", Role: entities.RoleDriver},
	}
	return routes.NewRouter(h, routes.Options{
		Authenticator:  auth,
		AllowedOrigins: []string{"http://localhost:5173"},
		UploadDir:      uploadDir,
	}).SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_ProtectedWrites(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantError  string
	}{
		{name: "hospital create without token", method: http.MethodPost, path: "/api/hospitals", wantStatus: http.StatusUnauthorized, wantError: "Not authorized, no token"},
		{name: "hospital create as doctor", method: http.MethodPost, path: "/api/hospitals", token: "doctor-token", wantStatus: http.StatusForbidden, wantError: "Role 'doctor' is not authorized"},
		{name: "bed update as driver", method: http.MethodPut, path: "/api/hospitals/h1/beds", token: "driver-token", wantStatus: http.StatusForbidden},
		{name: "ambulance create with bad token", method: http.MethodPost, path: "/api/ambulances", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "patient delete without token", method: http.MethodDelete, path: "/api/patients/PT-1", wantStatus: http.StatusUnauthorized},
		{name: "patient list without token", method: http.MethodGet, path: "/api/patients", wantStatus: http.StatusUnauthorized, wantError: "Not authorized, no token"},
		{name: "patient read without token", method: http.MethodGet, path: "/api/patients/PT-1", wantStatus: http.StatusUnauthorized},
		{name: "patient list as driver", method: http.MethodGet, path: "/api/patients", token: "driver-token", wantStatus: http.StatusForbidden},
		{name: "me without token", method: http.MethodGet, path: "/api/auth/me", wantStatus: http.StatusUnauthorized},
	}

	router := newTestRouter(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Contains(t, w.Body.String(), tt.wantError)
			}
		})
	}
}

func TestRouter_DoctorReachesBedUpdate(t *testing.T) {
	router := newTestRouter(t, "")

	// malformed body proves the request got past auth into the handler
	req := httptest.NewRequest(http.MethodPut, "/api/hospitals/h1/beds", strings.NewReader(`{`))
	req.Header.Set("Authorization", "Bearer doctor-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request payload")
}

func TestRouter_PublicAIEndpoint(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze", strings.NewReader(`{"symptoms":"headache"}`))
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), `"aiPowered":false`)
}

func TestRouter_ServesUploads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), []byte("Hb 9.1"), 0o644))
	router := newTestRouter(t, dir)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/report.txt", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hb 9.1", w.Body.String())
}
