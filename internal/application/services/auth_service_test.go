package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

func TestAuthService_RegisterThenAuthenticate(t *testing.T) {
	users := new(MockUserRepository)
	var stored *entities.User
	users.On("Create", mock.Anything, mock.AnythingOfType("*entities.User")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*entities.User) }).
		Return(nil)

	svc := services.NewAuthService(users, "test-secret", time.Hour)
	result, err := svc.Register(context.Background(), services.RegisterInput{
		Name: "Dr. Priya", Email: " Priya@Setu.IN ", Password: "doctor123", Role: entities.RoleDoctor,
	})
	require.NoError(t, err)
	assert.Equal(t, "priya@setu.in", result.User.Email)
	assert.NotEqual(t, "doctor123", stored.PasswordHash)

	users.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	user, err := svc.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleDoctor, user.Role)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := services.NewAuthService(new(MockUserRepository), "s", time.Hour)

	tests := []struct {
		name  string
		input services.RegisterInput
	}{
		{"missing name", services.RegisterInput{Email: "a@b.in", Password: "secret1"}},
		{"bad email", services.RegisterInput{Name: "A", Email: "nope", Password: "secret1"}},
		{"short password", services.RegisterInput{Name: "A", Email: "a@b.in", Password: "123"}},
		{"unknown role", services.RegisterInput{Name: "A", Email: "a@b.in", Password: "secret1", Role: "nurse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := services.HashPassword("admin123")
	require.NoError(t, err)
	admin := &entities.User{ID: "u-1", Email: "admin@setu.in", PasswordHash: hash, Role: entities.RoleAdmin}

	users := new(MockUserRepository)
	users.On("GetByEmail", mock.Anything, "admin@setu.in").Return(admin, nil)
	users.On("GetByEmail", mock.Anything, "ghost@setu.in").Return(nil, apperrors.NewNotFoundError("User not found"))

	svc := services.NewAuthService(users, "s", time.Hour)

	result, err := svc.Login(context.Background(), "ADMIN@setu.in", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login(context.Background(), "admin@setu.in", "wrong")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	_, err = svc.Login(context.Background(), "ghost@setu.in", "admin123")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestAuthService_Authenticate_RejectsBadTokens(t *testing.T) {
	users := new(MockUserRepository)
	svc := services.NewAuthService(users, "right-secret", time.Hour)
	user := &entities.User{ID: "u-1", Role: entities.RoleAdmin}

	other := services.NewAuthService(users, "wrong-secret", time.Hour)
	forged, err := other.IssueToken(user)
	require.NoError(t, err)

	expiredSvc := services.NewAuthService(users, "right-secret", time.Nanosecond)
	expired, err := expiredSvc.IssueToken(user)
	require.NoError(t, err)
	time.Sleep(time.Second)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "u-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{"forged": forged, "expired": expired, "alg none": unsigned, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), token)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
		})
	}
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
