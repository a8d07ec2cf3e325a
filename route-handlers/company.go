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

// CompanyHandler serves the company management endpoints.
type CompanyHandler struct {
	Repo *datastore.CompanyRepository
}

func NewCompanyHandler(repo *datastore.CompanyRepository) *CompanyHandler {
	return &CompanyHandler{Repo: repo}
}

type createCompanyRequest struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources"`
}

type updateCompanyRequest struct {
	Name    *string   `json:"name"`
	Sources *[]string `json:"sources"`
}

func (h *CompanyHandler) HandleCreateCompany(w http.ResponseWriter, r *http.Request) error {
	var req createCompanyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if req.Name == "" {
		return webutil.ErrBadRequest("Missing required field: name")
	}

	company, err := h.Repo.CreateCompany(r.Context(), req.Name, req.Sources)
	if err != nil {
		if errors.Is(err, datastore.ErrDuplicateName) {
			return webutil.ErrConflict("Company '" + req.Name + "' already exists")
		}
		log.Printf("ERROR: Failed to create company %q: %v", req.Name, err)
		return webutil.ErrInternalServerWrap("Failed to create company", err)
	}

	log.Printf("INFO: Company created: ID=%d, Name=%s", company.ID, company.Name)
	webutil.RespondWithJSON(w, http.StatusCreated, company)
	return nil
}

func (h *CompanyHandler) HandleGetCompanies(w http.ResponseWriter, r *http.Request) error {
	companies, err := h.Repo.GetCompanies(r.Context())
	if err != nil {
		log.Printf("ERROR: Failed to get companies: %v", err)
		return webutil.ErrInternalServerWrap("Failed to retrieve companies", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, companies)
	return nil
}

func (h *CompanyHandler) HandleGetCompany(w http.ResponseWriter, r *http.Request) error {
	id, err := companyID(r)
	if err != nil {
		return err
	}

	company, err := h.Repo.GetCompanyByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("Company not found")
		}
		log.Printf("ERROR: Failed to get company %d: %v", id, err)
		return webutil.ErrInternalServerWrap("Failed to retrieve company", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, company)
	return nil
}

func (h *CompanyHandler) HandleUpdateCompany(w http.ResponseWriter, r *http.Request) error {
	id, err := companyID(r)
	if err != nil {
		return err
	}

	var req updateCompanyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if req.Name != nil && *req.Name == "" {
		return webutil.ErrBadRequest("Company name cannot be empty")
	}

	company, err := h.Repo.UpdateCompany(r.Context(), id, req.Name, req.Sources)
	if err != nil {
		switch {
		case errors.Is(err, datastore.ErrNotFound):
			return webutil.ErrNotFound("Company not found")
		case errors.Is(err, datastore.ErrDuplicateName):
			return webutil.ErrConflict("Company name already exists")
		}
		log.Printf("ERROR: Failed to update company %d: %v", id, err)
		return webutil.ErrInternalServerWrap("Failed to update company", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, company)
	return nil
}

func (h *CompanyHandler) HandleDeleteCompany(w http.ResponseWriter, r *http.Request) error {
	id, err := companyID(r)
	if err != nil {
		return err
	}

	if err := h.Repo.DeleteCompany(r.Context(), id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("Company not found")
		}
		log.Printf("ERROR: Failed to delete company %d: %v", id, err)
		return webutil.ErrInternalServerWrap("Failed to delete company", err)
	}

	log.Printf("INFO: Company deleted: ID=%d", id)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func companyID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, webutil.ErrBadRequest("Invalid company ID")
	}
	return id, nil
}
