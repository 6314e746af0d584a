package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/longregen/creditexplain/internal/adapters/http/handlers"
	"github.com/longregen/creditexplain/internal/config"
	"github.com/longregen/creditexplain/internal/ingest"
	"github.com/longregen/creditexplain/internal/ports"
)

const readTimeout = 30 * time.Second

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

func NewServer(
	cfg *config.Config,
	pipeline handlers.Pipeline,
	index ports.VectorIndex,
	audit ports.AuditSink,
	redactor *ingest.Redactor,
) *Server {
	router := chi.NewRouter()

	router.Use(Recovery)
	router.Use(Logger)
	router.Use(Metrics)
	router.Use(CORS(cfg.Server.CORSOrigins))

	healthH := handlers.NewHealthHandler(map[string]handlers.Check{
		"vector_index": handlers.IndexCheck(index),
		"audit_dir":    handlers.DirWritableCheck(cfg.Audit.Dir),
		"llm":          handlers.EndpointCheck(cfg.LLM.URL),
		"embedding":    handlers.EndpointCheck(cfg.Embedding.URL),
		"reranker":     handlers.EndpointCheck(cfg.Rerank.URL),
	})
	router.Get("/health", healthH.Liveness)
	router.Get("/health/detailed", healthH.Detailed)

	queryH := handlers.NewQueryHandler(pipeline)
	router.Post("/query", queryH.Query)

	docH := handlers.NewDocumentHandler(cfg.Documents.UploadDir)
	router.Post("/upload", docH.Upload)
	router.Get("/documents", docH.List)
	router.Get("/documents/{name}", docH.Get)

	auditH := handlers.NewAuditHandler(audit)
	router.Get("/audit/{run_id}", auditH.Get)

	piiH := handlers.NewPIIHandler(redactor)
	router.Get("/pii-stats", piiH.Stats)

	router.Handle("/metrics", promhttp.Handler())

	return &Server{cfg: cfg, router: router}
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: 0,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
