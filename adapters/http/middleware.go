package authhttp

import (
	"encoding/json"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/servxpert/authcore/core"
)

// Required validates the Bearer token (JWT), enforces iss/aud/exp, and stores
// claims in request context.
func Required(svc *core.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r.Header.Get("Authorization"))
			if tokenStr == "" {
				unauthorized(w, "missing_token")
				return
			}
			claims := jwt.MapClaims{}
			parser := jwt.NewParser(jwt.WithoutClaimsValidation())
			token, err := parser.ParseWithClaims(tokenStr, claims, svc.Keyfunc())
			if err != nil || !token.Valid {
				unauthorized(w, "invalid_token")
				return
			}

			opts := svc.Options()
			if iss, _ := claims["iss"].(string); iss != opts.Issuer {
				unauthorized(w, "bad_issuer")
				return
			}
			if len(opts.ExpectedAudiences) > 0 && !audContainsAny(claims["aud"], opts.ExpectedAudiences) {
				unauthorized(w, "bad_audience")
				return
			}
			expUnix, ok := toUnix(claims["exp"])
			if !ok {
				unauthorized(w, "missing_exp")
				return
			}
			skew := time.Second
			if time.Unix(expUnix, 0).Before(time.Now().Add(-skew)) {
				unauthorized(w, "token_expired")
				return
			}
			if nbfUnix, ok := toUnix(claims["nbf"]); ok {
				if time.Now().Add(skew).Before(time.Unix(nbfUnix, 0)) {
					unauthorized(w, "invalid_token")
					return
				}
			}
			if iatUnix, ok := toUnix(claims["iat"]); ok {
				if time.Unix(iatUnix, 0).After(time.Now().Add(skew)) {
					unauthorized(w, "invalid_token")
					return
				}
			}

			cl := Claims{}
			cl.UserID, _ = claims["sub"].(string)
			cl.Role, _ = claims["role"].(string)
			cl.Phone, _ = claims["phone"].(string)
			cl.Email, _ = claims["email"].(string)
			cl.Name, _ = claims["name"].(string)
			cl.SessionID, _ = claims["sid"].(string)
			if cl.UserID == "" {
				unauthorized(w, "invalid_token")
				return
			}

			r = r.WithContext(setClaims(r.Context(), cl))
			next.ServeHTTP(w, r)
		})
	}
}

// Optional validates when Authorization is present; otherwise passes through.
func Optional(svc *core.Service) func(http.Handler) http.Handler {
	req := Required(svc)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bearerToken(r.Header.Get("Authorization")) == "" {
				next.ServeHTTP(w, r)
				return
			}
			req(next).ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a handler on the role claim. Must run inside Required.
func RequireRole(role core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cl, err := getClaims(r.Context())
			if err != nil {
				unauthorized(w, "unauthorized")
				return
			}
			if !cl.HasRole(string(role)) {
				forbidden(w, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func toUnix(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case int64:
		return x, true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func audContainsAny(v any, expected []string) bool {
	for _, want := range expected {
		if audContains(v, want) {
			return true
		}
	}
	return false
}

func audContains(v any, want string) bool {
	switch aud := v.(type) {
	case string:
		return aud == want
	case []any:
		for _, a := range aud {
			if s, ok := a.(string); ok && s == want {
				return true
			}
		}
	case []string:
		for _, s := range aud {
			if s == want {
				return true
			}
		}
	}
	return false
}
