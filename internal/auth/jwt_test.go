package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlane/catering-ops/internal/lifecycle"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

const testSecret = "test-secret"

func protected(t *testing.T) (http.Handler, *lifecycle.Role, *string) {
	t.Helper()

	var gotRole lifecycle.Role
	var gotSubject string

	m := NewMiddleware(testSecret, logger.NewLogger("error"))

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := RoleFromContext(r.Context())
		subject, _ := SubjectFromContext(r.Context())
		gotRole = role
		gotSubject = subject
		w.WriteHeader(http.StatusOK)
	}))

	return handler, &gotRole, &gotSubject
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("valid token passes role and subject through", func(t *testing.T) {
		handler, gotRole, gotSubject := protected(t)

		token, err := NewToken(testSecret, "drv-7", lifecycle.RoleDriver,
			jwt.NumericDate{Time: time.Now().Add(time.Hour)})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, lifecycle.RoleDriver, *gotRole)
		assert.Equal(t, "drv-7", *gotSubject)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		handler, _, _ := protected(t)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		handler, _, _ := protected(t)

		token, err := NewToken("other-secret", "drv-7", lifecycle.RoleDriver,
			jwt.NumericDate{Time: time.Now().Add(time.Hour)})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		handler, _, _ := protected(t)

		token, err := NewToken(testSecret, "drv-7", lifecycle.RoleDriver,
			jwt.NumericDate{Time: time.Now().Add(-time.Hour)})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		handler, _, _ := protected(t)

		claims := &Claims{
			Role: "janitor",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u-1",
				ExpiresAt: &jwt.NumericDate{Time: time.Now().Add(time.Hour)},
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
