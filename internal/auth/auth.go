// Package auth verifies bearer tokens issued by the identity service and
// resolves them to the acting user. Tokens are never issued here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/httpapi"
)

type UserLookup interface {
	UserByEmail(ctx context.Context, email string) (domain.User, error)
}

type contextKey struct{}

func WithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

func UserFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(contextKey{}).(domain.User)
	return u, ok
}

type Verifier struct {
	secret []byte
	users  UserLookup
	logger *slog.Logger
}

func NewVerifier(secret []byte, users UserLookup, logger *slog.Logger) *Verifier {
	return &Verifier{secret: secret, users: users, logger: logger}
}

// Authenticate validates an Authorization header value and returns the user
// named by the token subject.
func (v *Verifier) Authenticate(ctx context.Context, header string) (domain.User, error) {
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return domain.User{}, fmt.Errorf("%w: bearer token required", domain.ErrUnauthorized)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return domain.User{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return domain.User{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}

	user, err := v.users.UserByEmail(ctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve token subject: %w", err)
	}
	return user, nil
}

func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := v.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			httpapi.WriteDomainError(w, r, v.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin fails with ErrForbidden unless u is an administrator.
func RequireAdmin(u domain.User) error {
	if !u.IsAdmin {
		return fmt.Errorf("%w: administrator role required", domain.ErrForbidden)
	}
	return nil
}
