package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	appanalysis "github.com/fixedyet/fixedyet/internal/application/analysis"
	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
	"github.com/fixedyet/fixedyet/internal/middleware"
)

type Router struct {
	svc     *appanalysis.Service
	limiter *middleware.Limiter
}

// NewRouter wires the HTTP surface. healthCheckers feed /health; the limiter
// guards only the analyze endpoint.
func NewRouter(svc *appanalysis.Service, limiter *middleware.Limiter, healthCheckers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{svc: svc, limiter: limiter}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(healthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/progress/{requestId}", r.wrap(r.handleProgress))
		rt.Get("/history", r.wrap(r.handleHistory))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// apiError carries an HTTP status chosen by a handler.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(format string, args ...any) error {
	return &apiError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func notFound(message string) error {
	return &apiError{status: http.StatusNotFound, message: message}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var ae *apiError
		switch {
		case errors.As(err, &ae):
			writeError(w, ae.status, ae.message)
		case errors.Is(err, domain.ErrUnsupportedSDK):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrAIQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded, please try again later")
		case errors.Is(err, domain.ErrTagListUnavailable):
			writeError(w, http.StatusBadGateway, "upstream repository data is unavailable")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// POST /api/analyze
// Body: {"sdk": "...", "version": "...", "description": "...", "requestId": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	decision := r.limiter.Admit(clientIP(req))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(r.limiter.Limit()))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetTime.Unix(), 10))
	if !decision.Allowed {
		retryAfter := int(time.Until(decision.ResetTime).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return &apiError{status: http.StatusTooManyRequests, message: "rate limit exceeded, please try again later"}
	}

	var body struct {
		SDK         string `json:"sdk"`
		Version     string `json:"version"`
		Description string `json:"description"`
		RequestID   string `json:"requestId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}

	if err := middleware.ValidateSDK(body.SDK); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateVersion(body.Version); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateDescription(body.Description); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateRequestID(body.RequestID); err != nil {
		return badRequest("%v", err)
	}
	if body.RequestID == "" {
		body.RequestID = uuid.NewString()
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	defer middleware.DecrementAnalysesRunning()

	result, err := r.svc.RunAnalysis(req.Context(), appanalysis.Command{
		RequestID:   body.RequestID,
		SDK:         body.SDK,
		Version:     body.Version,
		Description: middleware.SanitizeString(body.Description),
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	if result.FromCache {
		middleware.IncrementCacheHits()
	}

	return writeJSON(w, http.StatusOK, result)
}

// GET /api/progress/{requestId}
func (r *Router) handleProgress(w http.ResponseWriter, req *http.Request) error {
	requestID := chi.URLParam(req, "requestId")
	if requestID == "" {
		return badRequest("requestId is required")
	}

	rec, err := r.svc.GetProgress(req.Context(), requestID)
	if err != nil {
		return err
	}
	if rec == nil {
		return notFound("no progress found for request")
	}

	return writeJSON(w, http.StatusOK, rec)
}

// GET /api/history?limit=20
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	entries, err := r.svc.History(req.Context(), limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*domain.HistoryEntry{}
	}

	return writeJSON(w, http.StatusOK, entries)
}

// clientIP prefers the first X-Forwarded-For hop so limits follow the caller
// through a proxy.
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
