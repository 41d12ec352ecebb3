package authhttp

import (
	"context"
	"errors"
	"strings"
)

// Claims is a typed view of authenticated user information attached by middleware.
type Claims struct {
	UserID    string
	Role      string
	Phone     string
	Email     string
	Name      string
	SessionID string
}

func (c Claims) HasRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Role), strings.TrimSpace(role))
}

type claimsCtxKey struct{}

func setClaims(ctx context.Context, cl Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, cl)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	v := ctx.Value(claimsCtxKey{})
	if v == nil {
		return Claims{}, false
	}
	cl, ok := v.(Claims)
	return cl, ok
}

func getClaims(ctx context.Context) (Claims, error) {
	if cl, ok := ClaimsFromContext(ctx); ok {
		return cl, nil
	}
	return Claims{}, errors.New("unauthenticated")
}
