package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/pkg/authsdk"
	"github.com/aussiebroadwan/tokenward/pkg/httpx"
	"github.com/aussiebroadwan/tokenward/pkg/slogx"

	_ "github.com/aussiebroadwan/tokenward/api/session" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       httpx.RateLimitProfiles
	checks       map[string]HealthCheck
	cookies      CookieConfig

	Sessions *service.Coordinator
}

func NewRouter(
	sessions *service.Coordinator,
	limits httpx.RateLimitProfiles,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		limits:       limits,
		checks:       map[string]HealthCheck{"ledger": sessions.Ready},
		Sessions:     sessions,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover,
	}

	return r
}

// AddReadinessCheck registers a dependency reported by /readyz.
func (r *Router) AddReadinessCheck(name string, check HealthCheck) {
	r.checks[name] = check
}

// UseCookies turns on cookie delivery. Call it before ApplyRoutes.
func (r *Router) UseCookies(c CookieConfig) {
	r.cookies = c
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			tokenward Session API
//	@version		0.1.0
//	@description	Issues, rotates and revokes bearer tokens. Refresh tokens are single use;
//	@description	presenting a spent refresh token revokes every token rotated from it.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	// Login is limited per IP and identifier to slow credential stuffing.
	r.Mux.Handle("POST "+authsdk.PathLogin,
		httpx.Chain(&LoginHandler{Sessions: r.Sessions, Cookies: r.cookies},
			httpx.RateLimitByIPAndFormField(r.limits.Login, "identifier"),
		),
	)

	r.Mux.Handle("POST "+authsdk.PathRefresh,
		httpx.Chain(&RefreshHandler{Sessions: r.Sessions, Cookies: r.cookies},
			httpx.RateLimitByIP(r.limits.Session),
		),
	)

	r.Mux.Handle("POST "+authsdk.PathLogout,
		httpx.Chain(&LogoutHandler{Sessions: r.Sessions, Cookies: r.cookies},
			httpx.RateLimitByIP(r.limits.Session),
		),
	)

	r.Mux.Handle("GET "+authsdk.PathMe,
		httpx.Chain(MeHandler(),
			httpx.RateLimitByIP(r.limits.Public),
			httpx.AuthnMiddleware(r.Sessions, writeAuthError, r.cookies.sources()...),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET "+authsdk.PathLivez,
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
	r.Mux.Handle("GET "+authsdk.PathReadyz,
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.checks),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
}
