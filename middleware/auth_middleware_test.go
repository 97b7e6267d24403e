package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protectedHandler(m *AuthMiddleware) http.Handler {
	return m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r.Context())
		if claims == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAdmin(t *testing.T) {
	logger := zap.NewNop()
	m := NewAuthMiddleware(testSecret, logger)

	request := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PATCH", "/api/v1/admin/providers/openai", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		protectedHandler(m).ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid admin token passes", func(t *testing.T) {
		token := signToken(t, testSecret, "admin", time.Hour)
		rec := request("Bearer " + token)
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("missing header returns 401", func(t *testing.T) {
		rec := request("")
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("malformed header returns 401", func(t *testing.T) {
		rec := request("Basic dXNlcjpwYXNz")
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("wrong signature returns 401", func(t *testing.T) {
		token := signToken(t, "some-other-secret", "admin", time.Hour)
		rec := request("Bearer " + token)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("expired token returns 401", func(t *testing.T) {
		token := signToken(t, testSecret, "admin", -2*time.Hour)
		rec := request("Bearer " + token)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("non-admin role returns 401", func(t *testing.T) {
		token := signToken(t, testSecret, "viewer", time.Hour)
		rec := request("Bearer " + token)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("unconfigured secret rejects everything", func(t *testing.T) {
		empty := NewAuthMiddleware("", logger)
		token := signToken(t, testSecret, "admin", time.Hour)

		req := httptest.NewRequest("PATCH", "/api/v1/admin/providers/openai", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protectedHandler(empty).ServeHTTP(rec, req)

		assert.Equal(t, 401, rec.Code)
	})
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer token", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"no header", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractToken(req))
		})
	}
}
