package api

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	apperrors "election-insights/pkg/errors"
)

// spa serves files from the static bundle and falls back to index.html for
// any other path so client-side routes resolve.
func (s *Server) spa() http.Handler {
	static := s.deps.Static
	if static == nil {
		return s.handle("static", func(w http.ResponseWriter, r *http.Request) error {
			return apperrors.NewNotFound("api.spa", "Not found", nil)
		})
	}
	files := http.FileServer(http.FS(static))
	return s.handle("static", func(w http.ResponseWriter, r *http.Request) error {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name != "" {
			if fi, err := fs.Stat(static, name); err == nil && !fi.IsDir() {
				files.ServeHTTP(w, r)
				return nil
			}
		}
		index, err := fs.ReadFile(static, "index.html")
		if err != nil {
			return apperrors.NewNotFound("api.spa", "Not found", err)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(index)
		return nil
	})
}
