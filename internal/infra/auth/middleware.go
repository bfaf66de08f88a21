package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey struct{}

const DefaultTenant = "default"

func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenant)
}

func TenantFromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(ctxKey{}).(string); ok && tenant != "" {
		return tenant
	}
	return DefaultTenant
}

// Middleware accepts a bearer token from the Authorization header, falling
// back to the access_token cookie, and stores its tenant claim on the context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if header := r.Header.Get("Authorization"); header != "" {
				parts := strings.Split(header, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					unauthorized(w, "Invalid authorization format")
					return
				}
				token = parts[1]
			} else if cookie, err := r.Cookie("access_token"); err == nil {
				token = cookie.Value
			}
			if token == "" {
				unauthorized(w, "Authorization required")
				return
			}

			claims, err := ParseToken(secret, token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), claims.Tenant)))
		})
	}
}

// HeaderTenant trusts the X-Tenant-ID header. Development only.
func HeaderTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
		if tenant == "" {
			tenant = DefaultTenant
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
