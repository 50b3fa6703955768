package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"dor/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Subject string
	JTI     string
}

// BasicAuthenticator checks HTTP basic credentials.
type BasicAuthenticator interface {
	Authenticate(user, password string) bool
}

// BcryptCredentials is a single service account whose password is stored as
// a bcrypt hash.
type BcryptCredentials struct {
	User         string
	PasswordHash []byte
}

func (c BcryptCredentials) Authenticate(user, password string) bool {
	if c.User == "" || user != c.User {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) == nil
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// bearerToken looks for "Bearer <token>" in X-Auth first, then Authorization.
func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	for _, header := range []string{"X-Auth", "Authorization"} {
		if token, ok := strings.CutPrefix(r.Header.Get(header), bearerPrefix); ok && token != "" {
			return token, true
		}
	}
	return "", false
}

// RequireAuth admits requests carrying a valid bearer token or, when basic is
// non-nil, valid basic credentials. The caller identity is stored with
// requestcontext.WithSubject.
func RequireAuth(validator JWTValidator, basic BasicAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			if token, ok := bearerToken(r); ok && validator != nil {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}
				ctx = requestcontext.WithSubject(ctx, claims.Subject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if basic != nil {
				if user, password, ok := r.BasicAuth(); ok {
					if !basic.Authenticate(user, password) {
						logger.WarnContext(ctx, "unauthorized access - bad credentials",
							"user", user,
							"request_id", requestID,
						)
						writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
						return
					}
					ctx = requestcontext.WithSubject(ctx, user)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			logger.WarnContext(ctx, "unauthorized access - missing token",
				"request_id", requestID,
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		})
	}
}
