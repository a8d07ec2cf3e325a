// Command searchstub runs a deterministic stand-in for the external
// search provider. It serves plausible article payloads for any
// company/source pair so the pipeline can run end to end without a real
// provider subscription.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coreybb/newsfeeds/models"
	"github.com/coreybb/newsfeeds/storage"
	"github.com/coreybb/newsfeeds/webutil"
)

const (
	defaultPort    = "8002"
	defaultResults = 5
	maxResults     = 10
)

func main() {
	port := os.Getenv("SEARCH_STUB_PORT")
	if port == "" {
		port = defaultPort
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/search", handleSearch)
	r.Get("/health", handleHealth)

	log.Printf("Search stub listening on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	source := r.URL.Query().Get("source")
	if company == "" || source == "" {
		webutil.RespondWithJSON(w, http.StatusBadRequest,
			map[string]string{"error": "company and source query parameters are required"})
		return
	}

	limit := defaultResults
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxResults {
			webutil.RespondWithJSON(w, http.StatusBadRequest,
				map[string]string{"error": "limit must be an integer between 1 and 10"})
			return
		}
		limit = n
	}

	webutil.RespondWithJSON(w, http.StatusOK, searchResponse{
		Company:   company,
		Source:    source,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
		Articles:  generateArticles(company, source, limit),
	})
}

// searchResponse matches the envelope the worker's provider client decodes.
type searchResponse struct {
	Company   string           `json:"company"`
	Source    string           `json:"source"`
	FetchedAt string           `json:"fetched_at"`
	Articles  []models.Article `json:"articles"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	webutil.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// generateArticles produces the same articles for the same inputs, so
// repeated fetches exercise the overwrite path rather than accumulating.
func generateArticles(company, source string, limit int) []models.Article {
	slug := storage.NormalizeSourceKey(source)
	day := time.Now().UTC().Truncate(24 * time.Hour)

	articles := make([]models.Article, 0, limit)
	for i := 1; i <= limit; i++ {
		articles = append(articles, models.Article{
			Title:       fmt.Sprintf("%s coverage roundup #%d", company, i),
			URL:         fmt.Sprintf("https://%s.example.com/%s/article-%d", slug, slug, i),
			Snippet:     fmt.Sprintf("Latest reporting on %s from %s.", company, source),
			PublishedAt: day.AddDate(0, 0, -(i - 1)).Format(time.RFC3339),
		})
	}
	return articles
}
