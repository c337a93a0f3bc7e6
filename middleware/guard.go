package middleware

import (
	"context"
	"net/http"
	"strings"

	pmsGuard "github.com/MrEthical07/pmsGuard"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal attached by [RequireSession].
// It is absent when auth is globally disabled.
func PrincipalFromContext(ctx context.Context) (pmsGuard.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(pmsGuard.Principal)
	return p, ok
}

// SessionOptions tunes [RequireSession].
type SessionOptions struct {
	// LoginPath, when set, makes page requests redirect there instead of
	// receiving a 401. API requests (path under /api/) always get JSON.
	LoginPath string
}

// RequireSession admits requests carrying a valid session for an active
// principal. Idle sessions are cleared. Each admitted request refreshes
// the activity cookie.
func RequireSession(engine *pmsGuard.Engine, opts SessionOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteDecision(w, pmsGuard.Reject(pmsGuard.ReasonUnauthenticated, "Unauthorized"))
				return
			}
			if engine.IsAuthDisabled() {
				next.ServeHTTP(w, r)
				return
			}

			p, ok := engine.ResolveSession(r.Context(), r)
			if !ok {
				denySession(w, r, opts, "")
				return
			}
			if engine.SessionIdle(r) {
				for _, c := range engine.ClearSession() {
					http.SetCookie(w, c)
				}
				denySession(w, r, opts, "timeout=1")
				return
			}

			http.SetCookie(w, engine.TouchSession())
			ctx := context.WithValue(r.Context(), principalContextKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func denySession(w http.ResponseWriter, r *http.Request, opts SessionOptions, query string) {
	if opts.LoginPath != "" && r.Method == http.MethodGet && !strings.HasPrefix(r.URL.Path, "/api/") {
		target := opts.LoginPath
		if query != "" {
			target += "?" + query
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	WriteDecision(w, pmsGuard.Reject(pmsGuard.ReasonUnauthenticated, "Unauthorized"))
}

// RequirePermission admits the session principal only when its role grants
// code. It must run after [RequireSession].
func RequirePermission(engine *pmsGuard.Engine, code string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil && engine.IsAuthDisabled() {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if engine == nil || !ok {
				WriteDecision(w, pmsGuard.Reject(pmsGuard.ReasonUnauthenticated, "Unauthorized"))
				return
			}
			if !engine.Can(r.Context(), p.Role, code) {
				WriteDecision(w, pmsGuard.Reject(pmsGuard.ReasonForbidden, "Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
