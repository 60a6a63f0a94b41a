package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/comilla/site-backend/internal/api/handlers"
	"github.com/comilla/site-backend/internal/api/middleware"
	"github.com/comilla/site-backend/internal/audit"
	"github.com/comilla/site-backend/internal/auth"
	"github.com/comilla/site-backend/internal/config"
	"github.com/comilla/site-backend/internal/domain/contact"
	"github.com/comilla/site-backend/internal/domain/events"
	"github.com/comilla/site-backend/internal/domain/projects"
	"github.com/comilla/site-backend/internal/domain/users"
	"github.com/comilla/site-backend/internal/metrics"
)

// Dependencies are the services the HTTP surface is built from. The caller
// owns their lifecycle.
type Dependencies struct {
	Config   config.Config
	Logger   zerolog.Logger
	Tokens   *auth.JWTManager
	Users    *users.Service
	Projects *projects.Service
	Events   *events.Service
	Contact  *contact.Service
	Health   *handlers.HealthChecker

	Version   string
	GitCommit string
	BuildDate string
}

// NewRouter wires every route. ctx bounds background work started by the
// middleware, such as rate limiter pruning.
func NewRouter(ctx context.Context, deps Dependencies) http.Handler {
	cfg := deps.Config
	env := cfg.Environment

	authHandler := handlers.NewAuthHandler(deps.Users, env, cfg.Auth.SecureCookie)
	projectsHandler := handlers.NewProjectsHandler(deps.Projects, env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, env)
	contactHandler := handlers.NewContactHandler(deps.Contact, env)

	auditLog := audit.NewLogger(deps.Logger, cfg.RateLimit.TrustedProxyCIDRs)
	limit := middleware.RateLimit(ctx, cfg.RateLimit, env)
	session := middleware.Session(deps.Tokens, env)
	uploadLimit := middleware.RequestSize(cfg.Server.MaxUploadSize)
	bodyLimit := middleware.RequestSize(middleware.DefaultMaxBodySize)

	public := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierPublic)(limit(bodyLimit(h)))
	}
	login := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierLogin)(limit(bodyLimit(h)))
	}
	admin := func(action, resource string, h http.HandlerFunc) http.Handler {
		audited := auditLog.Middleware(action, resource)(bodyLimit(h))
		return middleware.WithRateLimitTierHandler(middleware.TierAdmin)(limit(session(audited)))
	}
	adminUpload := func(action, resource string, h http.HandlerFunc) http.Handler {
		audited := auditLog.Middleware(action, resource)(uploadLimit(h))
		return middleware.WithRateLimitTierHandler(middleware.TierAdmin)(limit(session(audited)))
	}

	register := admin("user.register", "user", authHandler.Register)
	if cfg.Auth.OpenRegistration {
		register = login(authHandler.Register)
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	if deps.Health != nil {
		mux.Handle("/readyz", deps.Health.Readyz())
	}
	mux.Handle("/version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate))
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/login", methodMux(map[string]http.Handler{http.MethodPost: login(authHandler.Login)}))
	mux.Handle("/logout", methodMux(map[string]http.Handler{http.MethodPost: public(authHandler.Logout)}))
	mux.Handle("/register", methodMux(map[string]http.Handler{http.MethodPost: register}))
	mux.Handle("/edit-email", methodMux(map[string]http.Handler{http.MethodPost: admin("user.edit_email", "user", authHandler.EditEmail)}))
	mux.Handle("/change-password", methodMux(map[string]http.Handler{http.MethodPost: admin("user.change_password", "user", authHandler.ChangePassword)}))
	mux.Handle("/contact", methodMux(map[string]http.Handler{http.MethodPost: public(contactHandler.Send)}))

	mux.Handle("/project", methodMux(map[string]http.Handler{
		http.MethodGet:   public(projectsHandler.List),
		http.MethodPost:  adminUpload("project.create", "project", projectsHandler.Create),
		http.MethodPatch: adminUpload("project.update", "project", projectsHandler.Update),
	}))
	mux.Handle("/project/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(projectsHandler.Get),
		http.MethodDelete: admin("project.delete", "project", projectsHandler.Delete),
	}))
	mux.Handle("/events", methodMux(map[string]http.Handler{
		http.MethodGet:   public(eventsHandler.List),
		http.MethodPost:  adminUpload("event.create", "event", eventsHandler.Create),
		http.MethodPatch: adminUpload("event.update", "event", eventsHandler.Update),
	}))
	mux.Handle("/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(eventsHandler.Get),
		http.MethodDelete: admin("event.delete", "event", eventsHandler.Delete),
	}))

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORS)(handler)
	handler = middleware.SecurityHeaders(env == "production")(handler)
	handler = middleware.RequestLogging(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
