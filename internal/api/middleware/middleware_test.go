package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

type stubAuthenticator struct {
	users map[string]*entities.User
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*entities.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[token]
	if !ok {
		return nil, apperrors.NewUnauthorizedError("Not authorized, token failed")
	}
	return user, nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	return body["error"].(string)
}

func TestProtectAndAuthorize(t *testing.T) {
	auth := stubAuthenticator{users: map[string]*entities.User{
		"admin-token":   {ID: "u1", Role: entities.RoleAdmin},
		"patient-token": {ID: "u2", Role: entities.RolePatient},
	}}
	handler := Protect(auth)(Authorize(entities.RoleAdmin, entities.RoleDoctor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(user.ID))
	})))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{name: "no token", wantStatus: http.StatusUnauthorized, wantError: "Not authorized, no token"},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantError: "Not authorized, no token"},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantError: "Not authorized, token failed"},
		{name: "wrong role", header: "Bearer patient-token", wantStatus: http.StatusForbidden, wantError: "Role 'patient' is not authorized"},
		{name: "allowed", header: "Bearer admin-token", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, w))
				return
			}
			assert.Equal(t, "u1", w.Body.String())
		})
	}
}

func TestProtect_StoreFailureIsInternal(t *testing.T) {
	auth := stubAuthenticator{err: apperrors.NewInternalError("db down", errors.New("dial tcp"))}
	handler := Protect(auth)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("avatar renderer exploded")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hospitals", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w))
}

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	m.data[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	return nil
}

func TestCacheMiddleware(t *testing.T) {
	cache := &memoryCache{data: map[string][]byte{}}
	calls := 0
	m := NewCacheMiddleware(cache, nil)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, "MISS", serve("/api/hospitals/search?q=icu").Header().Get("X-Cache"))
	hit := serve("/api/hospitals/search?q=icu")
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"success":true}`, hit.Body.String())
	assert.Equal(t, 1, calls)

	serve("/api/patients")
	serve("/api/patients")
	assert.Equal(t, 3, calls)

	require.NoError(t, m.Invalidate(context.Background()))
	assert.Equal(t, "MISS", serve("/api/hospitals/search?q=icu").Header().Get("X-Cache"))
}

func TestETag(t *testing.T) {
	handler := ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"hospitals":[]}`))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hospitals", nil))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
}
