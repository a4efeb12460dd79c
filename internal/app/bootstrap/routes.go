// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	articlesfeature "github.com/dalemusser/automationhub/internal/app/features/articles"
	contactfeature "github.com/dalemusser/automationhub/internal/app/features/contact"
	errorsfeature "github.com/dalemusser/automationhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/automationhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/automationhub/internal/app/features/login"
	newsletterfeature "github.com/dalemusser/automationhub/internal/app/features/newsletter"
	productsfeature "github.com/dalemusser/automationhub/internal/app/features/products"
	profilefeature "github.com/dalemusser/automationhub/internal/app/features/profile"
	systemusersfeature "github.com/dalemusser/automationhub/internal/app/features/systemusers"
	articlestore "github.com/dalemusser/automationhub/internal/app/store/articles"
	contactstore "github.com/dalemusser/automationhub/internal/app/store/contacts"
	productstore "github.com/dalemusser/automationhub/internal/app/store/products"
	subscriberstore "github.com/dalemusser/automationhub/internal/app/store/subscribers"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/assets"
	"github.com/dalemusser/automationhub/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the shared services built in Startup
// are available.
//
// AutomationHub mounts a JSON API under /api (auth, articles, products,
// contact, newsletter) plus /health, /metrics and, for the local storage
// backend, the uploaded images under their URL prefix.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("bootstrap: BuildHandler called before Startup")
	}
	return newRouter(appCfg, deps, svc, logger), nil
}

func newRouter(appCfg AppConfig, deps DBDeps, s *services, logger *zap.Logger) chi.Router {
	db := deps.MongoDatabase

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	users := userstore.New(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if appCfg.TrustProxyHeaders {
		// Clients can forge these headers unless a proxy overwrites them.
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	// Global auth middleware: resolves the bearer token into an identity.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(s.sessions.LoadIdentity)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", metrics.Handler(s.registry))

	// Locally stored images with pre-compressed file support
	if local, ok := s.assets.(*assets.Local); ok {
		prefix := local.URLPrefix()
		r.Handle(prefix+"/*", fileserver.Handler(prefix, local.Dir()))
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			loginHandler := loginfeature.NewHandler(users, s.sessions, s.auditLog, errLog, logger)
			loginfeature.MountRoutes(ar, loginHandler, s.authLimiter)

			profileHandler := profilefeature.NewHandler(users, s.auditLog, errLog, logger)
			profilefeature.MountRoutes(ar, profileHandler)

			sysUsersHandler := systemusersfeature.NewHandler(users, s.auditLog, errLog, logger)
			systemusersfeature.MountRoutes(ar, sysUsersHandler)
		})

		articlesHandler := articlesfeature.NewHandler(articlestore.New(db), users, s.uploader, s.metrics, s.auditLog, errLog, logger)
		api.Mount("/articles", articlesfeature.Routes(articlesHandler))

		productsHandler := productsfeature.NewHandler(productstore.New(db), s.uploader, s.auditLog, errLog, logger)
		api.Mount("/products", productsfeature.Routes(productsHandler))

		contactHandler := contactfeature.NewHandler(contactstore.New(db), users, s.dispatcher, s.site, appCfg.AdminEmail, s.auditLog, errLog, logger)
		api.Mount("/contact", contactfeature.Routes(contactHandler, s.publicLimiter))

		newsletterHandler := newsletterfeature.NewHandler(subscriberstore.New(db), s.dispatcher, s.batch, s.site, s.auditLog, errLog, logger)
		api.Mount("/newsletter", newsletterfeature.Routes(newsletterHandler, s.publicLimiter))
	})

	return r
}
