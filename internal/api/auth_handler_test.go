package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/store"
)

func newAuthRouter(svc service.UserService) chi.Router {
	h := NewAuthHandler(svc)
	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.RefreshToken)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	t.Run("valid registration returns 201 with tokens", func(t *testing.T) {
		t.Parallel()

		svc := &stubUserService{
			user:   testUser(),
			tokens: &service.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
		}
		rec := doRequest(t, newAuthRouter(svc), http.MethodPost, "/auth/register",
			`{"name":"Alice","email":"alice@example.com","password":"correct horse battery"}`, nil)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "access", resp.AccessToken)
		assert.Equal(t, "refresh", resp.RefreshToken)
		assert.Equal(t, "alice@example.com", resp.User.Email)
	})

	t.Run("duplicate email returns 409", func(t *testing.T) {
		t.Parallel()

		svc := &stubUserService{err: fmt.Errorf("failed to create user: %w", store.ErrEmailExists)}
		rec := doRequest(t, newAuthRouter(svc), http.MethodPost, "/auth/register",
			`{"name":"Alice","email":"alice@example.com","password":"correct horse battery"}`, nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password returns 400 before the service runs", func(t *testing.T) {
		t.Parallel()

		svc := &stubUserService{}
		rec := doRequest(t, newAuthRouter(svc), http.MethodPost, "/auth/register",
			`{"name":"Alice","email":"alice@example.com","password":"short"}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("bad credentials return 401", func(t *testing.T) {
		t.Parallel()

		svc := &stubUserService{err: service.ErrInvalidCredentials}
		rec := doRequest(t, newAuthRouter(svc), http.MethodPost, "/auth/login",
			`{"email":"alice@example.com","password":"wrong password"}`, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		t.Parallel()

		svc := &stubUserService{}
		rec := doRequest(t, newAuthRouter(svc), http.MethodPost, "/auth/login", `{"email":`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("valid refresh returns a new pair", func(t *testing.T) {
		t.Parallel()

		svc := &stubUserService{
			tokens: &service.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"},
		}
		rec := doRequest(t, newAuthRouter(svc), http.MethodPost, "/auth/refresh",
			`{"refresh_token":"old-refresh"}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp RefreshTokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "new-access", resp.AccessToken)
	})

	t.Run("missing token returns 400", func(t *testing.T) {
		t.Parallel()

		svc := &stubUserService{}
		rec := doRequest(t, newAuthRouter(svc), http.MethodPost, "/auth/refresh", `{}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
