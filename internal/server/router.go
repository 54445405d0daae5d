package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/export"
)

const requestIDHeader = "X-Request-ID"

// NewRouter builds the HTTP API:
//
//	POST /ocr       multipart upload (field "file")
//	POST /ocr/json  base64 content in a JSON body
//	GET  /healthz
func NewRouter(svc *OCRService, exporter *export.Service, cfg common.ServerConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	h := &Handler{svc: svc, exporter: exporter, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestContext(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}
		r.Post("/ocr", h.OCRUpload)
		r.Post("/ocr/json", h.OCRJSON)
	})
	return r
}

// requestContext tags each request with an ID and a logger carrying it.
func requestContext(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 128 {
				id = common.NewRequestID()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := common.WithRequestID(r.Context(), id)
			ctx = common.WithLogger(ctx, logger.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
