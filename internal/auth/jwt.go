package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kitchenlane/catering-ops/internal/lifecycle"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

type contextKey string

const (
	roleKey    contextKey = "role"
	subjectKey contextKey = "subject"
)

// Claims is the token payload. Role decides what lifecycle transitions the
// caller may drive; Subject identifies the user (the driver ID for drivers).
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware verifies the bearer token and puts the caller's role and
// subject on the request context.
type Middleware struct {
	secret []byte
	logger logger.Logger
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(secret string, logger logger.Logger) *Middleware {
	return &Middleware{
		secret: []byte(secret),
		logger: logger,
	}
}

// Handler rejects requests without a valid token.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractToken(r)

		if err != nil {
			m.unauthorized(w, err.Error())
			return
		}

		claims := &Claims{}

		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})

		if err != nil || !token.Valid {
			m.logger.Warn("Rejected token", "error", err, "path", r.URL.Path)
			m.unauthorized(w, "invalid token")
			return
		}

		role, err := lifecycle.ParseRole(claims.Role)

		if err != nil {
			m.unauthorized(w, "unknown role")
			return
		}

		ctx := context.WithValue(r.Context(), roleKey, role)
		ctx = context.WithValue(ctx, subjectKey, claims.Subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)

	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("malformed authorization header")
	}

	return parts[1], nil
}

func (m *Middleware) unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"success":false,"error":%q}`, msg)
}

// RoleFromContext returns the authenticated role, or false if the request
// did not pass through the middleware.
func RoleFromContext(ctx context.Context) (lifecycle.Role, bool) {
	role, ok := ctx.Value(roleKey).(lifecycle.Role)
	return role, ok
}

// SubjectFromContext returns the authenticated subject.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok
}

// NewToken issues a signed token for a role and subject. Used by tests and
// the local seed tooling.
func NewToken(secret, subject string, role lifecycle.Role, expires jwt.NumericDate) (string, error) {
	claims := &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: &expires,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
