package httpapi

import (
	"context"
	"net/http"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/internal/logger"
	"github.com/MrEthical07/pmsGuard/middleware"
	"github.com/MrEthical07/pmsGuard/permission"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PasswordUpdater persists a rehashed password after a successful login.
// Stores that cannot do this are simply not passed in.
type PasswordUpdater interface {
	UpdatePasswordHash(ctx context.Context, principalID, hash string) error
}

// Deps are the router collaborators. Only Engine is required.
type Deps struct {
	Engine    *pmsGuard.Engine
	Logger    *zap.Logger
	Passwords PasswordUpdater
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// LoginPath is where page requests without a session are redirected.
	LoginPath string

	// Mount hooks let the host application add routes behind each gate.
	Internal func(chi.Router)
	External func(chi.Router)
	Admin    func(chi.Router)
	Session  func(chi.Router)
}

type server struct {
	engine    *pmsGuard.Engine
	log       *zap.Logger
	passwords PasswordUpdater
}

// NewRouter builds the HTTP handler for every trust boundary.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Named("httpapi")
	}
	s := &server{engine: deps.Engine, log: log, passwords: deps.Passwords}
	session := middleware.RequireSession(s.engine, middleware.SessionOptions{LoginPath: deps.LoginPath})

	r := chi.NewRouter()
	r.Use(middleware.RequestID(), middleware.Logging(log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/is-disabled", s.handleIsDisabled)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/staff/google", s.handleStaffGoogle)
		})

		r.Group(func(r chi.Router) {
			r.Use(session)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", s.handleMe)
				r.Get("/permissions", s.handleMyPermissions)
				r.Get("/totp", s.handleTOTPStatus)
				r.Post("/totp/begin", s.handleTOTPBegin)
				r.Post("/totp/confirm", s.handleTOTPConfirm)
				r.Delete("/totp", s.handleTOTPDisable)
			})
			if deps.Session != nil {
				deps.Session(r)
			}
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(session)

			r.With(middleware.RequirePermission(s.engine, permission.AdminSettings)).
				Get("/auth-disabled", s.handleGetAuthDisabled)
			r.With(middleware.RequirePermission(s.engine, permission.AdminSettings)).
				Put("/auth-disabled", s.handleSetAuthDisabled)
			r.With(middleware.RequirePermission(s.engine, permission.AdminUsers)).
				Post("/permissions/invalidate", s.handleInvalidatePermissions)
			r.With(middleware.RequirePermission(s.engine, permission.ReservationCheckIn)).
				Post("/guest-tokens/check-in", s.handleIssueCheckIn)
			r.With(middleware.RequirePermission(s.engine, permission.FinancePost)).
				Post("/guest-tokens/payment", s.handleIssuePayment)
			if deps.Admin != nil {
				deps.Admin(r)
			}
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(middleware.RequireInternal(s.engine))

			r.Get("/auth-disabled", s.handleInternalAuthDisabled)
			r.Post("/permissions/invalidate", s.handleInvalidatePermissions)
			if deps.Internal != nil {
				deps.Internal(r)
			}
		})

		r.Route("/v1/external", func(r chi.Router) {
			r.Use(
				middleware.AllowIPs(s.engine),
				middleware.RateLimit(s.engine),
				middleware.RequireExternalAPIKey(s.engine),
			)

			r.Get("/ping", s.handleExternalPing)
			if deps.External != nil {
				deps.External(r)
			}
		})
	})

	r.Get("/check-in/guest/{token}", s.handleGuestResolve(pmsGuard.GuestCheckIn))
	r.Post("/check-in/guest/{token}", s.handleGuestRedeem(pmsGuard.GuestCheckIn))
	r.Get("/pay/{token}", s.handleGuestResolve(pmsGuard.GuestPayment))
	r.Post("/pay/{token}", s.handleGuestRedeem(pmsGuard.GuestPayment))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.engine.Health(r.Context())
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
