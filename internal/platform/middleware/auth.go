package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"persondb/pkg/domain"
	"persondb/pkg/requestcontext"
)

// Claims are the JWT claims issued by the auth collaborator. The core
// never issues tokens; it only validates and extracts the principal.
type Claims struct {
	Role      string `json:"role"`
	Superuser bool   `json:"superuser"`
	jwt.RegisteredClaims
}

// JWTValidator validates bearer tokens into principals.
type JWTValidator struct {
	signingKey []byte
}

// NewJWTValidator builds a validator for HS256-signed tokens.
func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

// Validate parses and verifies a token, returning the principal it carries.
func (v *JWTValidator) Validate(tokenString string) (domain.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Principal{}, err
	}
	if !token.Valid {
		return domain.Principal{}, jwt.ErrTokenUnverifiable
	}
	userID, err := domain.ParseUserID(claims.Subject)
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{
		UserID:    userID,
		Role:      claims.Role,
		Superuser: claims.Superuser,
	}, nil
}

// RequireAuth rejects requests without a valid bearer token and puts
// the resulting principal into the request context.
func RequireAuth(validator *JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				unauthorized(w)
				return
			}
			principal, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w)
				return
			}
			ctx := requestcontext.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"invalid or missing bearer token"}`))
}
