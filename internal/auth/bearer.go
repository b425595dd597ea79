package auth

import (
	"context"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// TokenVerifier verifies an access token string.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// BearerToken extracts the token from an Authorization header value.
// Only the exact form "Bearer <token>" is accepted.
func BearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMissingBearer
	}
	return token, nil
}

// Authenticate verifies the request's bearer token.
func Authenticate(r *http.Request, tokens TokenVerifier) (*Claims, error) {
	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return tokens.Verify(token)
}

type identityKey struct{}

// WithIdentity returns a context carrying the verified claims.
func WithIdentity(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, identityKey{}, claims)
}

// IdentityFromContext returns the claims stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(identityKey{}).(*Claims)
	return claims, ok && claims != nil
}
