package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ingest"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/pipeline"
	"github.com/joseph-ayodele/pageocr/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRasterizer struct{}

func (stubRasterizer) Rasterize(_ context.Context, _ *ocr.SourceDocument, page, dpi int, mode ocr.ColorMode) (*ocr.Bitmap, error) {
	return ocr.NewBitmap(image.NewGray(image.Rect(0, 0, 2, 2)), page, dpi, mode), nil
}

// stubRecognizer answers "Hello" for page 1 and "page N" otherwise.
type stubRecognizer struct {
	mu    sync.Mutex
	langs []string
}

func (s *stubRecognizer) Recognize(_ context.Context, bmp *ocr.Bitmap, lang string) (string, error) {
	s.mu.Lock()
	s.langs = append(s.langs, lang)
	s.mu.Unlock()
	if bmp.Page == 1 {
		return "Hello", nil
	}
	return fmt.Sprintf("page %d", bmp.Page), nil
}

type countingCounter struct {
	next  pipeline.PageCounter
	calls atomic.Int32
}

func (c *countingCounter) CountPages(ctx context.Context, doc *ocr.SourceDocument) (int, error) {
	c.calls.Add(1)
	return c.next.CountPages(ctx, doc)
}

type testEnv struct {
	handler http.Handler
	tempDir string
	counter *countingCounter
	rec     *stubRecognizer
}

func newTestEnv(t *testing.T, mutate func(*common.ServerConfig)) *testEnv {
	t.Helper()
	cfg := common.ServerConfig{
		MaxUploadBytes: 1 << 20,
		RequestTimeout: 10 * time.Second,
		AllowedOrigins: []string{"*"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	env := &testEnv{
		tempDir: t.TempDir(),
		counter: &countingCounter{next: pipeline.NewPDFCounter()},
		rec:     &stubRecognizer{},
	}
	logger := discardLogger()
	pipe := pipeline.New(stubRasterizer{}, env.rec, env.counter, logger, pipeline.WithWorkers(2))
	svc := NewOCRService(ingest.NewTempIngestor(env.tempDir, cfg.MaxUploadBytes, logger), pipe, logger)
	env.handler = NewRouter(svc, nil, cfg, logger)
	return env
}

func (e *testEnv) assertTempDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir has %d leftover files", len(entries))
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestOCRUpload_Image(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(env.handler, multipartRequest(t, "/ocr", "hello.png", pngBytes(t), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff(map[string]any{"text": "Hello"}, decode(t, rec)); diff != "" {
		t.Errorf("response (-want +got):\n%s", diff)
	}
	if env.counter.calls.Load() != 0 {
		t.Error("page counter must not run for images")
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
	env.assertTempDirEmpty(t)
}

func TestOCRUpload_PDFWithPageDetail(t *testing.T) {
	env := newTestEnv(t, nil)

	req := multipartRequest(t, "/ocr?detail=pages", "scan.pdf", testutil.BuildPDF(2), map[string]string{"concurrency": "sequential"})
	rec := do(env.handler, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got ocrResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := "\n--- Page 1 ---\nHello\n--- Page 2 ---\npage 2"; got.Text != want {
		t.Errorf("text = %q, want %q", got.Text, want)
	}
	if got.Document == nil || got.Document.Kind != "PDF" || got.Document.Pages != 2 || got.Document.SHA256 == "" {
		t.Errorf("document = %+v", got.Document)
	}
	if len(got.Pages) != 2 || got.Pages[1].Page != 2 || got.Pages[1].Status != "OK" {
		t.Errorf("pages = %+v", got.Pages)
	}
	if env.counter.calls.Load() != 1 {
		t.Errorf("page counter calls = %d, want 1", env.counter.calls.Load())
	}
	env.assertTempDirEmpty(t)
}

func TestOCRUpload_LanguageFromQueryAndForm(t *testing.T) {
	env := newTestEnv(t, nil)

	do(env.handler, multipartRequest(t, "/ocr?lang=deu", "a.png", pngBytes(t), nil))
	do(env.handler, multipartRequest(t, "/ocr?lang=deu", "b.png", pngBytes(t), map[string]string{"lang": "fra"}))
	do(env.handler, multipartRequest(t, "/ocr", "c.png", pngBytes(t), nil))

	if diff := cmp.Diff([]string{"deu", "fra", "eng"}, env.rec.langs); diff != "" {
		t.Errorf("languages (-want +got):\n%s", diff)
	}
}

func TestOCRUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		filename string
		content  []byte
		fields   map[string]string
		status   int
		code     string
	}{
		{"missing file", "/ocr", "", nil, map[string]string{"lang": "eng"}, http.StatusBadRequest, common.CodeInvalidInput},
		{"bad dpi", "/ocr", "a.png", nil, map[string]string{"dpi": "high"}, http.StatusBadRequest, common.CodeInvalidInput},
		{"dpi out of range", "/ocr?dpi=5000", "a.png", nil, nil, http.StatusBadRequest, common.CodeInvalidInput},
		{"bad color mode", "/ocr", "a.png", nil, map[string]string{"color_mode": "sepia"}, http.StatusBadRequest, common.CodeInvalidInput},
		{"bad language", "/ocr?lang=e%20n", "a.png", nil, nil, http.StatusBadRequest, common.CodeInvalidInput},
		{"corrupt pdf", "/ocr", "broken.pdf", []byte("%PDF-1.4 garbage"), nil, http.StatusUnprocessableEntity, common.CodeDocumentDecode},
		{"unknown kind", "/ocr", "notes.txt", []byte("plain words"), nil, http.StatusUnprocessableEntity, common.CodeDocumentDecode},
		{"empty file", "/ocr", "empty.png", []byte{}, nil, http.StatusBadRequest, common.CodeIngestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			content := tt.content
			if content == nil {
				content = pngBytes(t)
			}
			rec := do(env.handler, multipartRequest(t, tt.target, tt.filename, content, tt.fields))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			body := decode(t, rec)
			if body["code"] != tt.code {
				t.Errorf("code = %v, want %s", body["code"], tt.code)
			}
			if body["error"] == "" {
				t.Error("empty error message")
			}
			env.assertTempDirEmpty(t)
		})
	}
}

func TestOCRUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *common.ServerConfig) { c.MaxUploadBytes = 16 })

	rec := do(env.handler, multipartRequest(t, "/ocr", "big.png", pngBytes(t), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if code := decode(t, rec)["code"]; code != common.CodeIngestion {
		t.Errorf("code = %v", code)
	}
	env.assertTempDirEmpty(t)
}

func TestOCRUpload_NotMultipart(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/ocr", bytes.NewReader(pngBytes(t)))
	req.Header.Set("Content-Type", "image/png")

	if rec := do(env.handler, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOCRUpload_XLSX(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(env.handler, multipartRequest(t, "/ocr?format=xlsx", "scan.pdf", testutil.BuildPDF(3), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Pages")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("rows = %d, want header + 3 pages", len(rows))
	}
}

func jsonRequestBody(t *testing.T, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ocr/json", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestOCRJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	content := base64.StdEncoding.EncodeToString(pngBytes(t))

	rec := do(env.handler, jsonRequestBody(t, map[string]any{
		"filename": "hello.png",
		"content":  content,
		"lang":     "eng",
		"options":  map[string]any{"dpi": 300, "color_mode": "color"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff(map[string]any{"text": "Hello"}, decode(t, rec)); diff != "" {
		t.Errorf("response (-want +got):\n%s", diff)
	}
	env.assertTempDirEmpty(t)
}

func TestOCRJSON_SniffsKindWithoutFilename(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := do(env.handler, jsonRequestBody(t, map[string]any{
		"content": base64.StdEncoding.EncodeToString(testutil.BuildPDF(1)),
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["text"]; got != "\n--- Page 1 ---\nHello" {
		t.Errorf("text = %q", got)
	}
}

func TestOCRJSON_Rejects(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte("x"))
	tests := []struct {
		name string
		body any
	}{
		{"missing content", map[string]any{"filename": "a.png"}},
		{"unknown field", map[string]any{"content": valid, "profile": "x"}},
		{"dpi too high", map[string]any{"content": valid, "options": map[string]any{"dpi": 1200}}},
		{"bad mode", map[string]any{"content": valid, "options": map[string]any{"concurrency": "batch"}}},
		{"bad base64", map[string]any{"content": "@@not base64@@"}},
		{"not an object", []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := do(env.handler, jsonRequestBody(t, tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if code := decode(t, rec)["code"]; code != common.CodeInvalidInput {
				t.Errorf("code = %v", code)
			}
		})
	}
}

func TestOCRJSON_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/ocr/json", bytes.NewReader([]byte("{")))
	if rec := do(env.handler, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")

	rec := do(env.handler, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want echo", got)
	}
	if decode(t, rec)["status"] != "ok" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *common.ServerConfig) { c.RateLimit = 1 })

	first := do(env.handler, multipartRequest(t, "/ocr", "a.png", pngBytes(t), nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := do(env.handler, multipartRequest(t, "/ocr", "b.png", pngBytes(t), nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.Code)
	}
}

func TestParseRequest(t *testing.T) {
	vals := url.Values{"lang": {" deu "}, "dpi": {"300"}, "color_mode": {"color"}, "concurrency": {"sequential"}}
	got, err := parseRequest(vals.Get)
	if err != nil {
		t.Fatalf("parseRequest: %v", err)
	}
	want := pipeline.Request{Language: "deu", DPI: 300, ColorMode: ocr.Color, Mode: pipeline.Sequential}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request (-want +got):\n%s", diff)
	}

	empty, err := parseRequest(url.Values{}.Get)
	if err != nil {
		t.Fatalf("parseRequest(empty): %v", err)
	}
	if diff := cmp.Diff(pipeline.Request{}, empty); diff != "" {
		t.Errorf("empty request should keep defaults (-want +got):\n%s", diff)
	}
}
