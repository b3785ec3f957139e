package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/response"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	app   *fiber.App
	auth  *services.AuthService
	users repositories.UserRepository
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store, err := database.Open(ctx, config.DB{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close(ctx) })

	set := repositories.NewSet(store)
	log := zap.NewNop()
	auth := services.NewAuthService(set.Users, services.AuthConfig{
		Secret: "test_jwt_secret", Issuer: "storefront", TTL: time.Hour, CookieName: "jwt",
	}, log)

	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(false, log)})
	app.Use(middleware.RequestID(), middleware.AccessLog(log), middleware.Metrics())

	whoami := func(c *fiber.Ctx) error {
		user := middleware.CurrentUser(c)
		if user == nil {
			return response.OK(c, nil, "anonymous")
		}
		return response.OK(c, fiber.Map{"name": user.Name}, "authenticated")
	}
	app.Get("/protected", middleware.Protect(auth, log), whoami)
	app.Get("/optional", middleware.OptionalAuth(auth, log), whoami)
	app.Get("/staff", middleware.Protect(auth, log), middleware.RequireRoles(models.RoleAdmin, models.RoleManager), whoami)

	return fixture{app: app, auth: auth, users: set.Users}
}

func (f fixture) createUser(t *testing.T, name string, roles ...string) (*models.User, string) {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com", Roles: append([]string{models.RoleUser}, roles...), IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), user))
	token, err := f.auth.IssueToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func call(t *testing.T, app *fiber.App, path string, prepare func(*http.Request)) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if prepare != nil {
		prepare(req)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp, body
}

func withCookie(token string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: token}) }
}

func TestProtect(t *testing.T) {
	f := setup(t)
	user, token := f.createUser(t, "jane")

	resp, body := call(t, f.app, "/protected", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authorized, no token", body["message"])
	assert.Equal(t, false, body["success"])

	resp, _ = call(t, f.app, "/protected", withCookie("garbage"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = call(t, f.app, "/protected", withCookie(token))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"name": "jane"}, body["data"])

	resp, _ = call(t, f.app, "/protected", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// profile changes are visible without a new token
	user.Name = "Jane Renamed"
	require.NoError(t, f.users.Update(context.Background(), user))
	_, body = call(t, f.app, "/protected", withCookie(token))
	assert.Equal(t, map[string]any{"name": "Jane Renamed"}, body["data"])

	require.NoError(t, f.users.Delete(context.Background(), user.ID))
	resp, body = call(t, f.app, "/protected", withCookie(token))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authorized, user not found", body["message"])
}

func TestOptionalAuth(t *testing.T) {
	f := setup(t)
	_, token := f.createUser(t, "jane")

	resp, body := call(t, f.app, "/optional", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "anonymous", body["message"])
	assert.Nil(t, body["data"])

	_, body = call(t, f.app, "/optional", withCookie("garbage"))
	assert.Equal(t, "anonymous", body["message"])

	_, body = call(t, f.app, "/optional", withCookie(token))
	assert.Equal(t, "authenticated", body["message"])
}

func TestRequireRoles(t *testing.T) {
	f := setup(t)
	_, shopperToken := f.createUser(t, "jane")
	_, managerToken := f.createUser(t, "mia", models.RoleManager)

	resp, _ := call(t, f.app, "/staff", withCookie(shopperToken))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, f.app, "/staff", withCookie(managerToken))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	f := setup(t)

	resp, _ := call(t, f.app, "/optional", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = call(t, f.app, "/optional", func(r *http.Request) { r.Header.Set("X-Request-ID", "abc-123") })
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestRateLimitPerIP(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(false, zap.NewNop())})
	app.Get("/login", middleware.RateLimitPerIP(0.001, 2, time.Minute), func(c *fiber.Ctx) error {
		return response.OK(c, nil, "ok")
	})

	for i := 0; i < 2; i++ {
		resp, _ := call(t, app, "/login", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := call(t, app, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}
