package routehandlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coreybb/newsfeeds/datastore"
	"github.com/coreybb/newsfeeds/webutil"
)

// SourceHandler serves the news source management endpoints.
type SourceHandler struct {
	Repo *datastore.SourceRepository
}

func NewSourceHandler(repo *datastore.SourceRepository) *SourceHandler {
	return &SourceHandler{Repo: repo}
}

type createSourceRequest struct {
	Name string `json:"name"`
}

func (h *SourceHandler) HandleCreateSource(w http.ResponseWriter, r *http.Request) error {
	var req createSourceRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if req.Name == "" {
		return webutil.ErrBadRequest("Missing required field: name")
	}

	source, err := h.Repo.CreateSource(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, datastore.ErrDuplicateName) {
			return webutil.ErrConflict("Source '" + req.Name + "' already exists")
		}
		log.Printf("ERROR: Failed to create source %q: %v", req.Name, err)
		return webutil.ErrInternalServerWrap("Failed to create source", err)
	}

	log.Printf("INFO: Source created: ID=%d, Name=%s", source.ID, source.Name)
	webutil.RespondWithJSON(w, http.StatusCreated, source)
	return nil
}

func (h *SourceHandler) HandleGetSources(w http.ResponseWriter, r *http.Request) error {
	sources, err := h.Repo.GetSources(r.Context())
	if err != nil {
		log.Printf("ERROR: Failed to get sources: %v", err)
		return webutil.ErrInternalServerWrap("Failed to retrieve sources", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, sources)
	return nil
}

func (h *SourceHandler) HandleGetSource(w http.ResponseWriter, r *http.Request) error {
	id, err := sourceID(r)
	if err != nil {
		return err
	}

	source, err := h.Repo.GetSourceByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("Source not found")
		}
		log.Printf("ERROR: Failed to get source %d: %v", id, err)
		return webutil.ErrInternalServerWrap("Failed to retrieve source", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, source)
	return nil
}

func (h *SourceHandler) HandleDeleteSource(w http.ResponseWriter, r *http.Request) error {
	id, err := sourceID(r)
	if err != nil {
		return err
	}

	if err := h.Repo.DeleteSource(r.Context(), id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("Source not found")
		}
		log.Printf("ERROR: Failed to delete source %d: %v", id, err)
		return webutil.ErrInternalServerWrap("Failed to delete source", err)
	}

	log.Printf("INFO: Source deleted: ID=%d", id)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func sourceID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, webutil.ErrBadRequest("Invalid source ID")
	}
	return id, nil
}
