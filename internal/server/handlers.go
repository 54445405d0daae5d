package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/export"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/pipeline"
)

const (
	// headroom for multipart boundaries and form fields on top of the file limit
	multipartOverhead = 1 << 20
	maxFieldBytes     = 256
)

var formFields = map[string]bool{
	"lang":        true,
	"dpi":         true,
	"color_mode":  true,
	"concurrency": true,
}

type Handler struct {
	svc      *OCRService
	exporter *export.Service
	cfg      common.ServerConfig
	logger   *slog.Logger
}

// OCRUpload handles POST /ocr. The file part is streamed straight into the
// ingestor; option fields may come from the query string or the form, and
// form values win.
func (h *Handler) OCRUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := common.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartOverhead)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, r, common.InvalidArgumentErrorf("expected multipart/form-data: %v", err))
		return
	}

	fields := map[string]string{}
	for name := range formFields {
		if v := strings.TrimSpace(r.URL.Query().Get(name)); v != "" {
			fields[name] = v
		}
	}

	var doc *ocr.SourceDocument
	defer func() {
		if doc != nil {
			_ = doc.Close()
		}
	}()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeError(w, r, common.IngestionErrorf("read multipart: %v", err))
			return
		}

		name := part.FormName()
		switch {
		case name == "file":
			if doc != nil {
				_ = part.Close()
				h.writeError(w, r, common.InvalidArgumentError("only one file per request"))
				return
			}
			doc, err = h.svc.Ingest(ctx, part, part.FileName())
			if err != nil {
				_ = part.Close()
				h.writeError(w, r, err)
				return
			}
		case formFields[name]:
			b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				_ = part.Close()
				h.writeError(w, r, common.IngestionErrorf("read field %s: %v", name, err))
				return
			}
			if v := strings.TrimSpace(string(b)); v != "" {
				fields[name] = v
			}
		}
		_ = part.Close()
	}

	if doc == nil {
		h.writeError(w, r, common.InvalidArgumentError("file is required"))
		return
	}
	req, err := parseRequest(func(k string) string { return fields[k] })
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.Process(ctx, doc, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, res)
}

type jsonRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Lang     string `json:"lang"`
	Options  struct {
		DPI         int    `json:"dpi"`
		ColorMode   string `json:"color_mode"`
		Concurrency string `json:"concurrency"`
	} `json:"options"`
}

// OCRJSON handles POST /ocr/json for clients that cannot send multipart.
func (h *Handler) OCRJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := common.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if h.cfg.MaxUploadBytes > 0 {
		// base64 inflates by 4/3
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes/3*4+multipartOverhead)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, common.IngestionErrorf("request body exceeds %s", humanize.IBytes(uint64(tooLarge.Limit))))
			return
		}
		h.writeError(w, r, common.IngestionErrorf("read body: %v", err))
		return
	}

	if err := validateRequestJSON(body); err != nil {
		h.writeError(w, r, err)
		return
	}
	var in jsonRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.writeError(w, r, common.InvalidArgumentErrorf("invalid json: %v", err))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(in.Content)
	if err != nil {
		h.writeError(w, r, common.InvalidArgumentError("content is not valid base64"))
		return
	}

	opts := map[string]string{
		"lang":        in.Lang,
		"color_mode":  in.Options.ColorMode,
		"concurrency": in.Options.Concurrency,
	}
	if in.Options.DPI != 0 {
		opts["dpi"] = strconv.Itoa(in.Options.DPI)
	}
	req, err := parseRequest(func(k string) string { return opts[k] })
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.Recognize(ctx, bytes.NewReader(raw), in.Filename, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, res)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"engines": ocr.Engines(),
	})
}

// parseRequest reads the per-request options; empty values keep the pipeline
// defaults.
func parseRequest(get func(string) string) (pipeline.Request, error) {
	var req pipeline.Request
	req.Language = strings.TrimSpace(get("lang"))

	if s := strings.TrimSpace(get("dpi")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, common.InvalidArgumentErrorf("dpi must be an integer, got %q", s)
		}
		req.DPI = n
	}
	if s := get("color_mode"); s != "" {
		m, err := ocr.ParseColorMode(s)
		if err != nil {
			return req, err
		}
		req.ColorMode = m
	}
	if s := get("concurrency"); s != "" {
		m, err := pipeline.ParseMode(s)
		if err != nil {
			return req, err
		}
		req.Mode = m
	}
	return req, nil
}
