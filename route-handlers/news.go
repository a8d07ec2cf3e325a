package routehandlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/coreybb/newsfeeds/storage"
	"github.com/coreybb/newsfeeds/webutil"
)

// NewsHandler serves the read-only article retrieval endpoints backed by
// the object store.
type NewsHandler struct {
	Store storage.ArticleStore
}

func NewNewsHandler(store storage.ArticleStore) *NewsHandler {
	return &NewsHandler{Store: store}
}

type companiesResponse struct {
	Companies []string `json:"companies"`
	Count     int      `json:"count"`
}

type sourcesResponse struct {
	Company string   `json:"company"`
	Sources []string `json:"sources"`
	Count   int      `json:"count"`
}

func (h *NewsHandler) HandleListCompanies(w http.ResponseWriter, r *http.Request) error {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		log.Printf("ERROR: Failed to list stored companies: %v", err)
		return webutil.ErrInternalServerWrap("Failed to list companies", err)
	}
	if companies == nil {
		companies = []string{}
	}

	webutil.RespondWithJSON(w, http.StatusOK, companiesResponse{Companies: companies, Count: len(companies)})
	return nil
}

func (h *NewsHandler) HandleListSources(w http.ResponseWriter, r *http.Request) error {
	company, err := pathValue(r, "company")
	if err != nil {
		return err
	}

	sources, err := h.Store.ListSources(r.Context(), company)
	if err != nil {
		log.Printf("ERROR: Failed to list sources for %q: %v", company, err)
		return webutil.ErrInternalServerWrap("Failed to list sources", err)
	}
	if sources == nil {
		sources = []string{}
	}

	webutil.RespondWithJSON(w, http.StatusOK, sourcesResponse{Company: company, Sources: sources, Count: len(sources)})
	return nil
}

func (h *NewsHandler) HandleGetCompanyNews(w http.ResponseWriter, r *http.Request) error {
	company, err := pathValue(r, "company")
	if err != nil {
		return err
	}

	batches, err := h.Store.GetCompanyBatches(r.Context(), company)
	if err != nil {
		log.Printf("ERROR: Failed to get batches for %q: %v", company, err)
		return webutil.ErrInternalServerWrap("Failed to retrieve articles", err)
	}
	if len(batches) == 0 {
		return webutil.ErrNotFound("No articles stored for company '" + company + "'")
	}

	webutil.RespondWithJSON(w, http.StatusOK, batches)
	return nil
}

func (h *NewsHandler) HandleGetSourceNews(w http.ResponseWriter, r *http.Request) error {
	company, err := pathValue(r, "company")
	if err != nil {
		return err
	}
	source, err := pathValue(r, "source")
	if err != nil {
		return err
	}

	batch, err := h.Store.Get(r.Context(), company, source)
	if err != nil {
		if errors.Is(err, storage.ErrBatchNotFound) {
			return webutil.ErrNotFound("No articles stored for '" + company + "/" + source + "'")
		}
		log.Printf("ERROR: Failed to get batch for %q/%q: %v", company, source, err)
		return webutil.ErrInternalServerWrap("Failed to retrieve articles", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, batch)
	return nil
}

// pathValue extracts and unescapes a URL path parameter. Company names
// appear verbatim in object keys, so spaces and punctuation are expected.
func pathValue(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	value, err := url.PathUnescape(raw)
	if err != nil || value == "" {
		return "", webutil.ErrBadRequest("Invalid " + name + " path segment")
	}
	return value, nil
}
