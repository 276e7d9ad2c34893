package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kazaneza/openchat/internal/config"
	"github.com/kazaneza/openchat/internal/core/domain"
	"github.com/kazaneza/openchat/internal/core/ports"
	"github.com/kazaneza/openchat/internal/observability/metrics"
)

const metricsService = "api"

const defaultAnalyticsWindowDays = 30

type Router struct {
	cfg           config.Config
	answers       ports.AnswerService
	conversations ports.ConversationReader
	feedback      ports.FeedbackService
	metrics       *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	answers ports.AnswerService,
	conversations ports.ConversationReader,
	feedback ports.FeedbackService,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:           cfg,
		answers:       answers,
		conversations: conversations,
		feedback:      feedback,
		metrics:       m,
	}
}

// Handler assembles the middleware chain. Traffic control wraps only the
// /v1 API routes so health probes and metric scrapes are never shed.
func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/answer", rt.answer)
	api.HandleFunc("/v1/answer/stream", rt.answerStream)
	api.HandleFunc("/v1/conversations/", rt.conversationTurns)
	api.HandleFunc("/v1/feedback", rt.submitFeedback)
	api.HandleFunc("/v1/feedback/analytics", rt.feedbackAnalytics)

	var apiHandler http.Handler = api
	apiHandler = backpressureMiddleware(
		apiHandler,
		rt.cfg.APIMaxConcurrent,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
	)
	apiHandler = rateLimitMiddleware(apiHandler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", apiHandler)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(metricsService, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	answer, err := rt.answers.Answer(r.Context(), req)
	if err != nil {
		rt.recordAnswerError("/v1/answer")
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.recordAnswer("/v1/answer", answer, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) conversationTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/conversations/")
	conversationID, tail, found := strings.Cut(rest, "/")
	if !found || tail != "turns" || conversationID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	organizationID := strings.TrimSpace(r.URL.Query().Get("organization_id"))
	if organizationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "organization_id is required"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	turns, err := rt.conversations.ListTurns(r.Context(), organizationID, conversationID, limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"turns":           turns,
	})
}

func (rt *Router) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var fb domain.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.feedback.Submit(r.Context(), fb); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordFeedbackSubmitted(metricsService, string(fb.Kind))
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (rt *Router) feedbackAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -defaultAnalyticsWindowDays)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be YYYY-MM-DD"})
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be YYYY-MM-DD"})
			return
		}
	}
	if to.Before(from) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must not precede from"})
		return
	}

	analytics, err := rt.feedback.Analytics(r.Context(), from, to)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (rt *Router) recordAnswer(endpoint string, answer *domain.EngineAnswer, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAnswer(metricsService, endpoint, len(answer.Sources), string(answer.Confidence.Level), duration)
}

func (rt *Router) recordAnswerError(endpoint string) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAnswerError(metricsService, endpoint)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
