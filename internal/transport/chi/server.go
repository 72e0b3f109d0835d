// Package chi exposes the retrieval engine over HTTP. Handlers are thin:
// decode, call a usecase, encode; domain errors map to status codes via an
// ordered handler chain.
package chi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	answeruc "github.com/kailas-cloud/docdex/internal/usecase/answer"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/docdex/internal/usecase/usage"
)

// Error response codes returned by the API.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeSourceNotFound   = "source_not_found"
	CodeUnsupportedFile  = "unsupported_file"
	CodeChatProviderErr  = "chat_provider_error"
	CodeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hosts the HTTP API handlers.
type Server struct {
	documents     *documentuc.Service
	ingest        *ingestuc.Service
	search        *searchuc.Service
	answer        *answeruc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *documentuc.Service,
	ingest *ingestuc.Service,
	search *searchuc.Service,
	answer *answeruc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		documents: documents,
		ingest:    ingest,
		search:    search,
		answer:    answer,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSourceNotFound, http.StatusNotFound, CodeSourceNotFound),
		sentinelHandler(fs.ErrNotExist, http.StatusNotFound, CodeSourceNotFound),
		sentinelHandler(domain.ErrUnsupportedFile, http.StatusUnprocessableEntity, CodeUnsupportedFile),
		sentinelHandler(domain.ErrEmptyExtraction, http.StatusUnprocessableEntity, CodeUnsupportedFile),
		sentinelHandler(domain.ErrChatProviderError, http.StatusBadGateway, CodeChatProviderErr),
		sentinelHandler(domain.ErrStoreClosed, http.StatusServiceUnavailable, CodeInternalError),
	}
	return s
}

// Routes mounts all API handlers onto r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/documents", s.AddDocuments)
	r.Get("/v1/documents", s.ListSources)
	r.Delete("/v1/documents", s.DeleteDocuments)
	r.Post("/v1/ingest", s.IngestFile)
	r.Post("/v1/search", s.SearchDocuments)
	r.Post("/v1/ask", s.Ask)
	r.Get("/v1/usage", s.GetUsage)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// --- Request / response bodies ---

type addDocumentsRequest struct {
	Texts     []string         `json:"texts"`
	Metadatas []map[string]any `json:"metadatas,omitempty"`
}

type addDocumentsResponse struct {
	Added int `json:"added"`
}

type ingestRequest struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

type ingestResponse struct {
	Processed bool `json:"processed"`
	Chunks    int  `json:"chunks"`
}

type sourcesResponse struct {
	Sources map[string]int `json:"sources"`
	Total   int            `json:"total"`
}

type deleteResponse struct {
	Removed int `json:"removed"`
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type searchResultItem struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Total   int                `json:"total"`
}

type askRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id,omitempty"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

type usageResponse struct {
	Period           string `json:"period"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
	ResetsAt         string `json:"resets_at,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Handlers ---

// AddDocuments handles POST /v1/documents.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var req addDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "texts must not be empty")
		return
	}

	added := s.documents.AddTexts(r.Context(), req.Texts, req.Metadatas)
	writeJSON(w, http.StatusCreated, addDocumentsResponse{Added: added})
}

// IngestFile handles POST /v1/ingest.
func (s *Server) IngestFile(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "path is required")
		return
	}
	name := req.Name
	if name == "" {
		name = filepath.Base(req.Path)
	}

	result, err := s.ingest.ProcessFile(r.Context(), req.Path, "", name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{Processed: result.Processed, Chunks: result.Chunks})
}

// ListSources handles GET /v1/documents.
func (s *Server) ListSources(w http.ResponseWriter, r *http.Request) {
	sources := s.documents.Sources(r.Context())
	writeJSON(w, http.StatusOK, sourcesResponse{
		Sources: sources,
		Total:   s.documents.Count(r.Context()),
	})
}

// DeleteDocuments handles DELETE /v1/documents. With ?source=name it removes
// one document's chunks; without it the whole store is cleared.
func (s *Server) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	if source == "" {
		count := s.documents.Count(r.Context())
		if err := s.documents.Clear(r.Context()); err != nil {
			s.handleDomainError(w, err)
			return
		}
		s.ingest.Reset()
		writeJSON(w, http.StatusOK, deleteResponse{Removed: count})
		return
	}

	removed, err := s.documents.RemoveBySource(r.Context(), source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.ingest.Forget(source)
	writeJSON(w, http.StatusOK, deleteResponse{Removed: removed})
}

// SearchDocuments handles POST /v1/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.K < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "k must not be negative")
		return
	}

	hits := s.search.Search(r.Context(), req.Query, req.K)

	items := make([]searchResultItem, len(hits))
	for i, hit := range hits {
		items[i] = searchResultItem{
			Text:     hit.Document.Text,
			Metadata: hit.Document.Metadata,
			Score:    hit.Score,
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: items, Total: len(items)})
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "question is required")
		return
	}

	resp := s.answer.Answer(r.Context(), req.Question, req.ThreadID)
	writeJSON(w, http.StatusOK, askResponse{Answer: resp.Answer, Sources: resp.Sources})
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := usageuc.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = usageuc.PeriodDay
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := usageResponse{
		Period:           string(report.Period),
		PromptTokens:     report.PromptTokens,
		CompletionTokens: report.CompletionTokens,
		TotalTokens:      report.TotalTokens,
		Requests:         report.Requests,
	}
	if !report.ResetsAt.IsZero() {
		resp.ResetsAt = report.ResetsAt.Format("2006-01-02T15:04:05Z07:00")
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSourceNotFound,
		fs.ErrNotExist,
		domain.ErrAlreadyProcessed,
		domain.ErrUnsupportedFile,
		domain.ErrEmptyExtraction,
		domain.ErrChatProviderError,
		domain.ErrStoreClosed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
