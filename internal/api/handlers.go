package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/metric"

	"github.com/hipnotiq/revisor/internal/observe"
	"github.com/hipnotiq/revisor/internal/review"
	"github.com/hipnotiq/revisor/internal/suggest"
)

// session looks up the session named by the {sid} URL parameter; a nil
// return means a 404 has already been written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *review.Session {
	sid := chi.URLParam(r, "sid")
	sess, ok := s.manager.Get(sid)
	if !ok {
		s.notFound(w, "session not found")
		return nil
	}
	return sess
}

// audioNumber parses the {audioNumber} URL parameter. ok false means a
// response has already been written.
func (s *Server) audioNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "audioNumber"))
	if err != nil {
		s.badRequest(w, "audioNumber must be an integer")
		return 0, false
	}
	return n, true
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	sess, err := s.manager.Open(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, review.ErrRequestNotFound) {
			s.notFound(w, "audio request not found")
			return
		}
		s.metrics.RecordBackendError(r.Context(), "fetch")
		s.badGateway(w, "generation backend unavailable: "+err.Error())
		return
	}

	s.created(w, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	s.success(w, sess.Snapshot())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if !s.manager.Close(sid) {
		s.notFound(w, "session not found")
		return
	}
	s.success(w, map[string]string{"closed": sid})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n, ok := s.audioNumber(w, r)
	if !ok {
		return
	}

	start := time.Now()
	diff, ok := sess.Diff(n)
	s.metrics.DiffDuration.Record(r.Context(), time.Since(start).Seconds())

	if !ok {
		s.notFound(w, "audio number not found")
		return
	}
	s.success(w, diff)
}

// correctionRequest is the PUT body for a correction.
type correctionRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePutCorrection(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n, ok := s.audioNumber(w, r)
	if !ok {
		return
	}

	var body correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}

	if !sess.Correct(n, body.Text) {
		s.notFound(w, "audio number not found")
		return
	}
	s.metrics.RecordLedgerOp(r.Context(), "update")

	diff, _ := sess.Diff(n)
	s.success(w, diff)
}

func (s *Server) handleDeleteCorrection(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n, ok := s.audioNumber(w, r)
	if !ok {
		return
	}

	if !sess.ClearCorrection(n) {
		s.notFound(w, "audio number not found")
		return
	}
	s.metrics.RecordLedgerOp(r.Context(), "remove")

	diff, _ := sess.Diff(n)
	s.success(w, diff)
}

func (s *Server) handleToggleRegen(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n, ok := s.audioNumber(w, r)
	if !ok {
		return
	}

	regen, ok := sess.ToggleRegen(n)
	if !ok {
		s.notFound(w, "audio number not found")
		return
	}
	s.metrics.RecordLedgerOp(r.Context(), "regen")
	s.success(w, map[string]bool{"regen": regen})
}

func (s *Server) handleToggleConfirm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n, ok := s.audioNumber(w, r)
	if !ok {
		return
	}

	confirmed, ok := sess.ToggleConfirm(n)
	if !ok {
		s.notFound(w, "audio number not found")
		return
	}
	s.metrics.RecordLedgerOp(r.Context(), "confirm")
	s.success(w, map[string]bool{"confirmed": confirmed})
}

func (s *Server) handleToggleRemake(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "sectionIndex"))
	if err != nil {
		s.badRequest(w, "sectionIndex must be an integer")
		return
	}

	on, ok := sess.ToggleRemakeAll(idx)
	if !ok {
		s.notFound(w, "section not found")
		return
	}
	s.metrics.RecordLedgerOp(r.Context(), "remake")
	s.success(w, map[string]bool{"remakeAll": on})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n, ok := s.audioNumber(w, r)
	if !ok {
		return
	}

	original, transcription, ok := sess.Line(n)
	if !ok {
		s.notFound(w, "audio number not found")
		return
	}

	suggestions := []suggest.Suggestion{}
	if s.suggester != nil {
		start := time.Now()
		suggestions = s.suggester.Suggest(r.Context(), original, transcription)
		s.metrics.SuggestionDuration.Record(r.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("stage", "pipeline")),
		)
	}
	s.success(w, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	start := time.Now()
	sub, err := s.manager.Submit(r.Context(), sess)
	s.metrics.SubmitDuration.Record(r.Context(), time.Since(start).Seconds())

	if err != nil {
		s.metrics.RecordSubmission(r.Context(), "rejected")
		s.metrics.RecordBackendError(r.Context(), "submit")
		s.badGateway(w, "reprocess submission failed: "+sub.Detail)
		return
	}
	s.metrics.RecordSubmission(r.Context(), "accepted")
	s.success(w, sub)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	subs, err := s.store.Submissions(r.Context(), requestID, limit)
	if err != nil {
		s.logger.Error("list submissions", "request_id", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load submissions", s.logger)
		return
	}
	s.success(w, map[string]any{"submissions": subs})
}
