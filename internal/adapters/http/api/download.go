package api

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/tradedigest/internal/adapters/files"
	"github.com/okian/tradedigest/internal/adapters/report"
	"github.com/okian/tradedigest/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DownloadHandler serves rendered reports.
type DownloadHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(deps Dependencies) *DownloadHandler {
	return &DownloadHandler{deps: deps, logger: logger.Nop()}
}

// HandleDownload handles GET /download/{id} requests.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, err := h.deps.Download(r.Context(), id)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) || errors.Is(err, files.ErrInvalidID) {
			writeError(w, r, http.StatusNotFound, codeNotFound, err)
			return
		}
		h.logger.Error(r.Context(), "download failed", logger.String("report", id), logger.Error(err))
		writeError(w, r, http.StatusInternalServerError, codeInternal, nil)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.DownloadName}))
	http.ServeFile(w, r, path)
}
