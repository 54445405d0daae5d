package server

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/export"
)

type ocrResponse struct {
	Text     string        `json:"text"`
	Document *documentBody `json:"document,omitempty"`
	Pages    []pageBody    `json:"pages,omitempty"`
}

type documentBody struct {
	Name   string `json:"name,omitempty"`
	Kind   string `json:"kind"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	Pages  int    `json:"pages"`
	Failed []int  `json:"failed_pages,omitempty"`
}

type pageBody struct {
	Page       int    `json:"page"`
	Status     string `json:"status"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// respond writes the result as JSON ({"text": ...} unless ?detail=pages) or,
// with ?format=xlsx, as a per-page workbook.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res Result) {
	q := r.URL.Query()
	if q.Get("format") == "xlsx" {
		h.writeXLSX(w, r, res)
		return
	}

	out := ocrResponse{Text: res.Text.Text}
	if q.Get("detail") == "pages" {
		out.Document = &documentBody{
			Name:   res.Document.Name,
			Kind:   res.Document.Kind,
			Size:   res.Document.Size,
			SHA256: res.Document.HashHex,
			Pages:  len(res.Text.Pages),
			Failed: res.Text.FailedPages(),
		}
		for _, p := range res.Text.Pages {
			pb := pageBody{Page: p.Page, Status: string(p.Status()), Text: p.Text, DurationMs: p.Duration.Milliseconds()}
			if p.Err != nil {
				pb.Error = p.Err.Error()
			}
			out.Pages = append(out.Pages, pb)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeXLSX(w http.ResponseWriter, r *http.Request, res Result) {
	data, err := h.exporter.PagesXLSX(r.Context(), []export.Report{{
		SourcePath: res.Document.Name,
		Kind:       res.Document.Kind,
		Size:       res.Document.Size,
		HashHex:    res.Document.HashHex,
		Result:     res.Text,
	}})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ocr-pages.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	logger := common.LoggerFromContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{
		Error:     errorMessage(err),
		Code:      common.ErrorCode(err),
		RequestID: common.RequestIDFromContext(r.Context()),
	})
}

func errorMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
