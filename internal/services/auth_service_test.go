package services_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

func newAuthService() (*services.AuthService, *MockUserRepository) {
	repo := new(MockUserRepository)
	svc := services.NewAuthService(repo, services.AuthConfig{Secret: testJWTSecret, Issuer: "storefront", TTL: time.Hour}, zap.NewNop())
	return svc, repo
}

func TestAuthService_Register(t *testing.T) {
	svc, repo := newAuthService()
	repo.On("GetByEmail", ctx, "new@example.com").Return(nil, repositories.ErrNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := svc.Register(ctx, services.RegisterInput{Name: "New", Email: "new@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Equal(t, []string{models.RoleUser}, user.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	repo.AssertExpectations(t)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	svc, repo := newAuthService()
	repo.On("GetByEmail", ctx, "Jane@Example.com").Return(clone(shopper), nil).Once()

	_, err := svc.Register(ctx, services.RegisterInput{Name: "Jane", Email: "Jane@Example.com", Password: "password123"})

	assertStatus(t, err, http.StatusConflict)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func registeredUser(t *testing.T, active bool) *models.User {
	t.Helper()
	hash, err := services.HashPassword("password123")
	require.NoError(t, err)
	u := clone(shopper)
	u.Password, u.IsActive = hash, active
	return u
}

func TestAuthService_Login(t *testing.T) {
	svc, repo := newAuthService()
	repo.On("GetByEmail", ctx, shopper.Email).Return(registeredUser(t, true), nil)

	user, token, err := svc.Login(ctx, shopper.Email, "password123")
	require.NoError(t, err)
	assert.Equal(t, shopper.ID, user.ID)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, shopper.ID, userID)

	_, _, err = svc.Login(ctx, shopper.Email, "wrong-password")
	se := assertStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid email or password", se.Message)
}

func TestAuthService_Login_UnknownAndInactive(t *testing.T) {
	svc, repo := newAuthService()
	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repositories.ErrNotFound).Once()
	repo.On("GetByEmail", ctx, "off@example.com").Return(registeredUser(t, false), nil).Once()

	_, _, err := svc.Login(ctx, "ghost@example.com", "password123")
	se := assertStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid email or password", se.Message)

	_, _, err = svc.Login(ctx, "off@example.com", "password123")
	assertStatus(t, err, http.StatusForbidden)
}

func TestAuthService_ValidateToken_Rejects(t *testing.T) {
	svc, _ := newAuthService()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1", "iss": "storefront", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1", "iss": "storefront", "exp": time.Now().Add(time.Hour).Unix(),
	})
	foreignToken, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "storefront", "exp": time.Now().Add(time.Hour).Unix(),
	})
	noUserToken, err := noUser.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":         "not-a-token",
		"expired":         expiredToken,
		"wrong secret":    foreignToken,
		"missing user_id": noUserToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, services.ErrInvalidToken)
		})
	}
}

func TestAuthService_ResolveUser_RequeriesStore(t *testing.T) {
	svc, repo := newAuthService()
	token, err := svc.IssueToken(shopper.ID)
	require.NoError(t, err)

	renamed := clone(shopper)
	renamed.Name = "Jane Renamed"
	repo.On("GetByID", ctx, shopper.ID).Return(renamed, nil).Once()
	user, err := svc.ResolveUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Jane Renamed", user.Name)

	repo.On("GetByID", ctx, shopper.ID).Return(nil, repositories.ErrNotFound).Once()
	_, err = svc.ResolveUser(ctx, token)
	assert.ErrorIs(t, err, services.ErrUnknownUser)

	inactive := clone(shopper)
	inactive.IsActive = false
	repo.On("GetByID", ctx, shopper.ID).Return(inactive, nil).Once()
	_, err = svc.ResolveUser(ctx, token)
	assert.ErrorIs(t, err, services.ErrUnknownUser)

	dbErr := errors.New("connection reset")
	repo.On("GetByID", ctx, shopper.ID).Return(nil, dbErr).Once()
	_, err = svc.ResolveUser(ctx, token)
	assert.ErrorIs(t, err, dbErr)
	repo.AssertExpectations(t)
}
