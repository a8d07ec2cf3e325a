package webutil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coreybb/newsfeeds/datastore"
	"github.com/coreybb/newsfeeds/storage"
)

// AppHandler represents a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc
// signature, translating returned errors into standardized JSON error
// responses. Known datastore/storage sentinels map to their natural
// HTTP statuses so handlers can return them directly.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}

		var httpErr *HTTPError
		var publicMessage string
		var statusCode int

		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			logLevel := slog.LevelWarn
			if statusCode >= 500 {
				logLevel = slog.LevelError
			}
			slog.Log(r.Context(), logLevel, "Client error response",
				"code", httpErr.Code,
				"msg", httpErr.Message,
				"cause", errors.Unwrap(httpErr),
				"path", r.URL.Path,
				"method", r.Method,
			)

		case errors.Is(err, datastore.ErrNotFound), errors.Is(err, storage.ErrBatchNotFound):
			statusCode = http.StatusNotFound
			publicMessage = msgNotFound
			slog.Info("Resource not found", "path", r.URL.Path, "method", r.Method, "error", err)

		case errors.Is(err, datastore.ErrDuplicateName):
			statusCode = http.StatusConflict
			publicMessage = err.Error()
			slog.Info("Duplicate name conflict", "path", r.URL.Path, "method", r.Method, "error", err)

		default:
			statusCode = http.StatusInternalServerError
			publicMessage = msgInternalServer
			slog.Error("Unhandled internal error", "path", r.URL.Path, "method", r.Method, "error", err)
		}

		RespondWithJSON(w, statusCode, map[string]string{"error": publicMessage})
	}
}
