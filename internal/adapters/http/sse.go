package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kazaneza/openchat/internal/core/domain"
)

type streamDeltaFrame struct {
	Delta string `json:"delta"`
}

type streamReportFrame struct {
	Answer *domain.EngineAnswer `json:"answer"`
}

type streamErrorFrame struct {
	Error string `json:"error"`
}

func (rt *Router) answerStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	// Reject invalid input while a plain status code can still be sent;
	// past this point the response is an event stream.
	if strings.TrimSpace(req.OrganizationID) == "" || strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "organization_id and query are required"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported by response writer"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	answer, err := rt.answers.AnswerStream(r.Context(), req, func(delta string) error {
		return writeSSEFrame(w, flusher, streamDeltaFrame{Delta: delta})
	})
	if err != nil {
		rt.recordAnswerError("/v1/answer/stream")
		_ = writeSSEFrame(w, flusher, streamErrorFrame{Error: err.Error()})
		writeSSEDone(w, flusher)
		return
	}

	rt.recordAnswer("/v1/answer/stream", answer, time.Since(start))
	_ = writeSSEFrame(w, flusher, streamReportFrame{Answer: answer})
	writeSSEDone(w, flusher)
}

func writeSSEFrame(w io.Writer, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeSSEDone(w io.Writer, flusher http.Flusher) {
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
	flusher.Flush()
}
