package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/utils"
)

// AdminClaims holds the claims carried by admin tokens
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const claimsContextKey contextKey = "admin_claims"

// adminRole is the role required for provider administration
const adminRole = "admin"

// AuthMiddleware guards admin endpoints with HMAC-signed JWTs
type AuthMiddleware struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		logger: logger,
	}
}

// RequireAdmin is a middleware that requires a valid admin JWT
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimiddleware.GetReqID(ctx)

		if len(m.secret) == 0 {
			m.logger.Error("admin endpoints called without a configured secret",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Admin access is not configured")
			return
		}

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing admin token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validateToken(token)
		if err != nil {
			m.logger.Warn("admin token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		if claims.Role != adminRole {
			m.logger.Warn("token lacks admin role",
				zap.String("request_id", requestID),
				zap.String("role", claims.Role))
			_ = utils.WriteUnauthorized(w, "Admin role required")
			return
		}

		ctx = context.WithValue(ctx, claimsContextKey, claims)

		m.logger.Debug("admin authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateToken parses and verifies a signed admin token
func (m *AuthMiddleware) validateToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	return claims, nil
}

// GetClaimsFromContext retrieves admin claims set by RequireAdmin
func GetClaimsFromContext(ctx context.Context) *AdminClaims {
	claims, _ := ctx.Value(claimsContextKey).(*AdminClaims)
	return claims
}

// extractToken pulls the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
