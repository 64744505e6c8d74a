package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	service "github.com/okian/tradedigest/internal/app"
	"github.com/okian/tradedigest/internal/engine"
	"github.com/okian/tradedigest/pkg/logger"
)

const (
	defaultMaxUploadBytes = 32 << 20
	multipartMemory       = 8 << 20

	formFile        = "logfile"
	formItemLimit   = "itemlimit"
	formPlayerLimit = "playerlimit"
	formIncludeID   = "includeid"
)

// uploadForm holds the optional digest fields of POST /upload; nil means "use the default".
type uploadForm struct {
	ItemLimit   *int `validate:"omitempty,min=0,max=1000"`
	PlayerLimit *int `validate:"omitempty,min=0,max=1000"`
	IncludeID   *bool
}

// uploadResponse is the body of a successful upload.
type uploadResponse struct {
	service.Summary
	DownloadURL string `json:"download_url"`
}

// UploadHandler handles log uploads.
type UploadHandler struct {
	deps     Dependencies
	validate *validator.Validate
	maxBytes int64
	logger   logger.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps Dependencies) *UploadHandler {
	return &UploadHandler{
		deps:     deps,
		validate: validator.New(),
		maxBytes: defaultMaxUploadBytes,
		logger:   logger.Nop(),
	}
}

// HandleUpload handles POST /upload requests.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, tooLarge.Limit))
			return
		}
		writeError(w, r, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	params, err := h.params(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	file, header, err := r.FormFile(formFile)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, ErrMissingUpload)
		return
	}
	defer func() { _ = file.Close() }()

	sum, err := h.deps.Process(r.Context(), file, params)
	if err != nil {
		h.logger.Warn(r.Context(), "upload failed",
			logger.String("file", header.Filename),
			logger.Int64("size", header.Size),
			logger.Error(err),
		)
		switch {
		case errors.Is(err, engine.ErrInputUnavailable):
			writeError(w, r, http.StatusUnprocessableEntity, codeUnprocessable, err)
		case errors.Is(err, service.ErrNotStarted), errors.Is(err, engine.ErrAborted):
			writeError(w, r, http.StatusServiceUnavailable, codeUnavailable, err)
		default:
			writeError(w, r, http.StatusInternalServerError, codeInternal, nil)
		}
		return
	}

	render.JSON(w, r, uploadResponse{
		Summary:     sum,
		DownloadURL: "/download/" + sum.ReportID,
	})
}

// params merges the form fields over the service defaults.
func (h *UploadHandler) params(r *http.Request) (service.Params, error) {
	var form uploadForm
	var err error
	if form.ItemLimit, err = formInt(r, formItemLimit); err != nil {
		return service.Params{}, err
	}
	if form.PlayerLimit, err = formInt(r, formPlayerLimit); err != nil {
		return service.Params{}, err
	}
	if form.IncludeID, err = formBool(r, formIncludeID); err != nil {
		return service.Params{}, err
	}

	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return service.Params{}, fmt.Errorf("%w: %s", ErrBadRequest, describe(verrs[0]))
		}
		return service.Params{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	p := h.deps.Defaults()
	if form.ItemLimit != nil {
		p.ItemLimit = *form.ItemLimit
	}
	if form.PlayerLimit != nil {
		p.PlayerLimit = *form.PlayerLimit
	}
	if form.IncludeID != nil {
		p.IncludeIdentifier = *form.IncludeID
	}
	return p, nil
}

func formInt(r *http.Request, key string) (*int, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, key)
	}
	return &n, nil
}

func formBool(r *http.Request, key string) (*bool, error) {
	raw := strings.ToLower(strings.TrimSpace(r.FormValue(key)))
	if raw == "" {
		return nil, nil
	}
	var b bool
	switch raw {
	case "on", "yes", "true", "1":
		b = true
	case "off", "no", "false", "0":
		b = false
	default:
		return nil, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, key)
	}
	return &b, nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
