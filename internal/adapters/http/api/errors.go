package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrMissingUpload = errors.New("missing logfile")
	ErrTooLarge      = errors.New("upload too large")
	ErrRateLimited   = errors.New("too many uploads, retry shortly")
)

// Error codes carried in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeTooLarge         = "too_large"
	codeUnprocessable    = "unprocessable"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeUnavailable      = "unavailable"
	codeRateLimited      = "rate_limited"
	codeInternal         = "internal"
)

type errorResponse struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Render implements render.Renderer.
func (e *errorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	_ = render.Render(w, r, &errorResponse{Status: status, Code: code, Message: msg})
}
