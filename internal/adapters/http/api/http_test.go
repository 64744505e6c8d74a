package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/tradedigest/internal/adapters/files"
	"github.com/okian/tradedigest/internal/adapters/http/api"
	service "github.com/okian/tradedigest/internal/app"
	"github.com/okian/tradedigest/internal/engine"
	"github.com/okian/tradedigest/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	defaults service.Params

	gotParams service.Params
	gotBody   string
	summary   service.Summary
	err       error

	path    string
	pathErr error
}

func (m *mockDependencies) Defaults() service.Params { return m.defaults }

func (m *mockDependencies) Process(_ context.Context, r io.Reader, p service.Params) (service.Summary, error) {
	data, _ := io.ReadAll(r)
	m.gotBody = string(data)
	m.gotParams = p
	return m.summary, m.err
}

func (m *mockDependencies) Download(_ context.Context, _ string) (string, error) {
	return m.path, m.pathErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newHandler(deps *mockDependencies, opts ...api.Option) http.Handler {
	stats := &mockStatsProvider{stats: map[string]interface{}{"processed": 3}}
	r := api.NewRouter(logger.Nop())
	api.NewServer(deps, stats, opts...).Register(context.Background(), r)
	return r
}

func multipartUpload(fields map[string]string, log string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if log != "" {
		fw, _ := mw.CreateFormFile("logfile", "game.log")
		_, _ = io.WriteString(fw, log)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	_ = json.NewDecoder(w.Body).Decode(&body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newHandler(&mockDependencies{})

		Convey("Then health endpoint should serve metrics", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats endpoint should serve JSON", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

			var stats map[string]interface{}
			So(json.NewDecoder(w.Body).Decode(&stats), ShouldBeNil)
			So(stats["processed"], ShouldEqual, float64(3))
		})

		Convey("Then unknown routes should return JSON 404", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, "/reports", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Code, ShouldEqual, "not_found")
		})

		Convey("Then a wrong method should return 405", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, "/upload", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestUploadHandler(t *testing.T) {
	const log = "[2024-01-01 10:00:00] - Alice sold 1 x Hat for $1.00\n"

	Convey("Given an upload handler", t, func() {
		deps := &mockDependencies{
			defaults: service.Params{PlayerLimit: 5, IncludeIdentifier: true},
			summary:  service.Summary{ReportID: "0b0d3a4c-1111-4222-8333-444455556666"},
		}
		h := newHandler(deps)

		Convey("When a log is uploaded with some fields", func() {
			body, ct := multipartUpload(map[string]string{"itemlimit": "3", "includeid": "false"}, log)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := do(h, req)

			Convey("Then it should succeed with a download url", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp["download_url"], ShouldEqual, "/download/0b0d3a4c-1111-4222-8333-444455556666")
				So(resp["report_id"], ShouldEqual, "0b0d3a4c-1111-4222-8333-444455556666")
			})

			Convey("Then missing fields should fall back to defaults", func() {
				So(deps.gotParams, ShouldResemble, service.Params{ItemLimit: 3, PlayerLimit: 5, IncludeIdentifier: false})
				So(deps.gotBody, ShouldEqual, log)
			})
		})

		Convey("When the checkbox value is sent", func() {
			deps.defaults.IncludeIdentifier = false
			body, ct := multipartUpload(map[string]string{"includeid": "on"}, log)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := do(h, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotParams.IncludeIdentifier, ShouldBeTrue)
		})

		badFields := []struct {
			name   string
			fields map[string]string
		}{
			{"a non-numeric limit", map[string]string{"itemlimit": "abc"}},
			{"a negative limit", map[string]string{"playerlimit": "-1"}},
			{"an oversized limit", map[string]string{"itemlimit": "5000"}},
			{"a malformed flag", map[string]string{"includeid": "maybe"}},
		}
		for _, tc := range badFields {
			Convey("When the form has "+tc.name, func() {
				body, ct := multipartUpload(tc.fields, log)
				req := httptest.NewRequest(http.MethodPost, "/upload", body)
				req.Header.Set("Content-Type", ct)
				w := do(h, req)

				Convey("Then it should be rejected", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decodeError(w).Code, ShouldEqual, "bad_request")
				})
			})
		}

		Convey("When no file is attached", func() {
			body, ct := multipartUpload(map[string]string{"itemlimit": "1"}, "")
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := do(h, req)

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Message, ShouldEqual, api.ErrMissingUpload.Error())
			})
		})

		Convey("When the body is not multipart", func() {
			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"log":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			w := do(h, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the input cannot be read", func() {
			deps.err = fmt.Errorf("%w: boom", engine.ErrInputUnavailable)
			body, ct := multipartUpload(nil, log)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := do(h, req)

			Convey("Then it should be unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w).Code, ShouldEqual, "unprocessable")
			})
		})

		Convey("When processing fails unexpectedly", func() {
			deps.err = service.ErrReport
			body, ct := multipartUpload(nil, log)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := do(h, req)

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})

	Convey("Given a small upload limit", t, func() {
		h := newHandler(&mockDependencies{}, api.WithMaxUploadBytes(64))
		body, ct := multipartUpload(nil, strings.Repeat(log, 10))
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		w := do(h, req)

		Convey("Then large uploads should be refused", func() {
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(decodeError(w).Code, ShouldEqual, "too_large")
		})
	})
}

func TestDownloadHandler(t *testing.T) {
	Convey("Given a download handler", t, func() {
		deps := &mockDependencies{}
		h := newHandler(deps)

		Convey("When the report exists", func() {
			deps.path = filepath.Join(t.TempDir(), "report.xlsx")
			So(os.WriteFile(deps.path, []byte("PK-workbook"), 0o600), ShouldBeNil)

			w := do(h, httptest.NewRequest(http.MethodGet, "/download/0b0d3a4c-1111-4222-8333-444455556666", nil))

			Convey("Then it should be served as an attachment", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Disposition"), ShouldEqual, `attachment; filename=transaction_summary.xlsx`)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/vnd.openxmlformats")
				So(w.Body.String(), ShouldEqual, "PK-workbook")
			})
		})

		Convey("When the report is unknown", func() {
			deps.pathErr = files.ErrNotFound
			w := do(h, httptest.NewRequest(http.MethodGet, "/download/nope", nil))

			Convey("Then it should return 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When storage fails", func() {
			deps.pathErr = files.ErrStorage
			w := do(h, httptest.NewRequest(http.MethodGet, "/download/x", nil))

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestUploadRateLimit(t *testing.T) {
	const log = "[2024-01-01 10:00:00] - Alice sold 1 x Hat for $1.00\n"

	upload := func(h http.Handler) *httptest.ResponseRecorder {
		body, ct := multipartUpload(nil, log)
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		return do(h, req)
	}

	Convey("Given an upload limit of one per burst", t, func() {
		deps := &mockDependencies{summary: service.Summary{ReportID: "r1"}}
		h := newHandler(deps, api.WithUploadRateLimit(0.001, 1))

		Convey("Then the second upload is rejected", func() {
			So(upload(h).Code, ShouldEqual, http.StatusOK)

			w := upload(h)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
			So(decodeError(w).Code, ShouldEqual, "rate_limited")
		})

		Convey("Then other routes are not limited", func() {
			So(upload(h).Code, ShouldEqual, http.StatusOK)
			w := do(h, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
		})
	})

	Convey("Given a zero rate", t, func() {
		h := newHandler(&mockDependencies{}, api.WithUploadRateLimit(0, 0))

		Convey("Then uploads are never limited", func() {
			for range 5 {
				So(upload(h).Code, ShouldEqual, http.StatusOK)
			}
		})
	})
}
