// Package api wires the management and retrieval endpoints onto a
// single chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/coreybb/newsfeeds/route-handlers"
	"github.com/coreybb/newsfeeds/webutil"
)

const (
	companiesBasePath = "/companies"
	sourcesBasePath   = "/sources"
	newsBasePath      = "/news"
)

const requestTimeout = 60 * time.Second

// SetupRoutes builds the full API surface: company/source management
// over Postgres and read-only news retrieval over the object store.
func SetupRoutes(
	companyHandler *rh.CompanyHandler,
	sourceHandler *rh.SourceHandler,
	newsHandler *rh.NewsHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	configureCompanyRoutes(r, companyHandler)
	configureSourceRoutes(r, sourceHandler)
	configureNewsRoutes(r, newsHandler)

	r.Get("/healthz", handleHealthCheck)

	return r
}

func configureCompanyRoutes(r chi.Router, handler *rh.CompanyHandler) {
	r.Route(companiesBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetCompanies))
		r.Post("/", webutil.MakeHandler(handler.HandleCreateCompany))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetCompany))
			r.Put("/", webutil.MakeHandler(handler.HandleUpdateCompany))
			r.Delete("/", webutil.MakeHandler(handler.HandleDeleteCompany))
		})
	})
}

func configureSourceRoutes(r chi.Router, handler *rh.SourceHandler) {
	r.Route(sourcesBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetSources))
		r.Post("/", webutil.MakeHandler(handler.HandleCreateSource))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetSource))
			r.Delete("/", webutil.MakeHandler(handler.HandleDeleteSource))
		})
	})
}

func configureNewsRoutes(r chi.Router, handler *rh.NewsHandler) {
	r.Route(newsBasePath, func(r chi.Router) {
		r.Get(companiesBasePath, webutil.MakeHandler(handler.HandleListCompanies))
		r.Route(companiesBasePath+"/{company}", func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetCompanyNews))
			r.Get(sourcesBasePath, webutil.MakeHandler(handler.HandleListSources))
			r.Get(sourcesBasePath+"/{source}", webutil.MakeHandler(handler.HandleGetSourceNews))
		})
	})
}

func handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	webutil.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
