package handlers

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"pinflow/pkg/ziputil"
)

// ServeMedia streams an archived original or edited image back to the
// operator UI.
func (a *App) ServeMedia(w http.ResponseWriter, r *http.Request) {
	if a.Media == nil {
		a.error(w, http.StatusNotFound, "not_found", "media archive is not configured")
		return
	}
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "media key is required")
		return
	}
	data, err := a.Media.Read(r.Context(), key)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "no media stored under that key")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// MediaBundle zips whatever was archived for a run (the original upload and
// the edited image) into a single download.
func (a *App) MediaBundle(w http.ResponseWriter, r *http.Request) {
	if a.Media == nil {
		a.error(w, http.StatusNotFound, "not_found", "media archive is not configured")
		return
	}
	runID := strings.TrimSpace(chi.URLParam(r, "runID"))
	if runID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "run id is required")
		return
	}

	var assets []ziputil.Asset
	for _, dir := range []string{"originals", "generated"} {
		key, err := a.Media.FindKey(r.Context(), dir, runID)
		if err != nil {
			continue
		}
		data, err := a.Media.Read(r.Context(), key)
		if err != nil {
			continue
		}
		assets = append(assets, ziputil.Asset{Filename: path.Base(key), Data: data})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no media archived for that run")
		return
	}

	raw, err := ziputil.Archive(assets)
	if err != nil {
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("handlers: failed to build media bundle")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build the media bundle")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+runID+`.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
