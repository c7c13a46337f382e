package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/proyectos-la/digital-world/pkg/httputil"
)

// MediaSource serves stored objects. *storage.MemoryStorage implements it.
type MediaSource interface {
	Open(key string) (io.Reader, string, bool)
}

// serveMedia handles GET /media/* for storage backends without their own CDN.
func serveMedia(src MediaSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		body, contentType, ok := src.Open(key)
		if !ok || key == "" {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "media not found"},
			})
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, body)
	}
}
