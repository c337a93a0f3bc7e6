package middleware

import (
	"net/http"

	pmsGuard "github.com/MrEthical07/pmsGuard"
)

func gate(decide func(*http.Request) pmsGuard.Decision) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d := decide(r); !d.Allowed() {
				WriteDecision(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireInternal admits requests whose internal secret header matches.
// A nil engine rejects everything.
func RequireInternal(engine *pmsGuard.Engine) Middleware {
	return gate(func(r *http.Request) pmsGuard.Decision {
		if engine == nil {
			return pmsGuard.Reject(pmsGuard.ReasonForbidden, "Forbidden")
		}
		return engine.RequireInternalRequest(r)
	})
}

// RequireExternalAPIKey admits requests presenting the external API key.
func RequireExternalAPIKey(engine *pmsGuard.Engine) Middleware {
	return gate(func(r *http.Request) pmsGuard.Decision {
		if engine == nil {
			return pmsGuard.Reject(pmsGuard.ReasonUnauthorized, "")
		}
		return engine.RequireExternalAPIKey(r)
	})
}

// RateLimit applies the external API request budget.
func RateLimit(engine *pmsGuard.Engine) Middleware {
	return gate(func(r *http.Request) pmsGuard.Decision {
		if engine == nil {
			return pmsGuard.Continue()
		}
		return engine.CheckAPIRateLimit(r.Context(), r)
	})
}

// AllowIPs enforces the external API IP allowlist.
func AllowIPs(engine *pmsGuard.Engine) Middleware {
	return gate(func(r *http.Request) pmsGuard.Decision {
		if engine == nil {
			return pmsGuard.Continue()
		}
		return engine.AllowIP(r)
	})
}
