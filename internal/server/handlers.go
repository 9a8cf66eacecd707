package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/varscope/internal/engine"
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/store"
	"github.com/roach88/varscope/internal/template"
	"github.com/roach88/varscope/internal/trace"
)

type resolveRequest struct {
	Template  string `json:"template"`
	ProfileID string `json:"profile_id,omitempty"`
	RuleID    string `json:"rule_id,omitempty"`
}

type resolveResponse struct {
	Value   string              `json:"value"`
	Success bool                `json:"success"`
	Markers []engine.Marker     `json:"markers,omitempty"`
	Trace   *ir.ResolutionTrace `json:"trace"`
}

type headersRequest struct {
	Headers   []engine.Header `json:"headers"`
	ProfileID string          `json:"profile_id,omitempty"`
	RuleID    string          `json:"rule_id,omitempty"`
}

type templateRequest struct {
	Template string `json:"template"`
}

type syntaxIssue struct {
	Message string  `json:"message"`
	Span    ir.Span `json:"span"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	body := map[string]any{"status": "healthy"}
	if c := s.resolver.Cache(); c != nil {
		if st, ok := c.(interface{ Len() int }); ok {
			body["cache_entries"] = st.Len()
		}
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rctx, err := s.store.LoadContext(r.Context(), req.ProfileID, req.RuleID)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "failed to load variables", err)
		return
	}
	res, err := s.resolver.Resolve(req.Template, rctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "resolve failed", err)
		return
	}
	s.afterResolve(r, rctx, res.Trace)

	respondJSON(w, http.StatusOK, resolveResponse{Value: res.Value, Success: res.Success(), Markers: res.Markers, Trace: res.Trace})
}

func (s *Server) handleResolveHeaders(w http.ResponseWriter, r *http.Request) {
	var req headersRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rctx, err := s.store.LoadContext(r.Context(), req.ProfileID, req.RuleID)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "failed to load variables", err)
		return
	}
	results, err := s.resolver.ResolveHeaders(r.Context(), req.Headers, rctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "resolve failed", err)
		return
	}
	for _, hr := range results {
		s.afterResolve(r, rctx, hr.Trace)
	}
	respondJSON(w, http.StatusOK, map[string]any{"headers": results})
}

// afterResolve records usage and, when enabled, the trace. Failures are
// logged and do not fail the request.
func (s *Server) afterResolve(r *http.Request, rctx *ir.ResolutionContext, tr *ir.ResolutionTrace) {
	if err := s.store.RecordUsage(r.Context(), rctx, tr.ResolvedVariables); err != nil {
		s.logger.Warn("record usage failed", "trace_id", tr.ID, "error", err)
	}
	if !s.saveTraces {
		return
	}
	if err := s.store.SaveTrace(r.Context(), tr); err != nil {
		s.logger.Warn("save trace failed", "trace_id", tr.ID, "error", err)
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	vr := s.resolver.ValidateTemplate(req.Template)
	issues := make([]syntaxIssue, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		issues = append(issues, syntaxIssue{Message: e.Message, Span: e.Span})
	}
	respondJSON(w, http.StatusOK, map[string]any{"valid": vr.IsValid, "errors": issues})
}

func (s *Server) handleRefs(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	names, err := s.resolver.ReferencedVariables(req.Template)
	if err != nil {
		var se *template.SyntaxError
		if errors.As(err, &se) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   "invalid template",
				"span":    se.Span,
				"details": se.Message,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "refs failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"variables": names})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileID string `json:"profile_id,omitempty"`
		RuleID    string `json:"rule_id,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rctx, err := s.store.LoadContext(r.Context(), req.ProfileID, req.RuleID)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "failed to load variables", err)
		return
	}
	report, err := s.resolver.Lint(rctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "lint failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"clean": report.Clean(), "report": report})
}

func (s *Server) handleListVariables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.VariableFilter{
		OwnerID:     q.Get("owner_id"),
		Tag:         q.Get("tag"),
		EnabledOnly: q.Get("enabled") == "true",
	}
	if sc := q.Get("scope"); sc != "" {
		parsed, err := ir.ParseScope(sc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid scope", err)
			return
		}
		filter.Scope = parsed
	}
	vars, err := s.store.ListVariables(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list variables", err)
		return
	}
	for i := range vars {
		if vars[i].IsSecret {
			vars[i].Value = trace.Mask
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"variables": vars})
}

func (s *Server) handlePutVariable(w http.ResponseWriter, r *http.Request) {
	var v ir.Variable
	if err := decode(r, &v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid variable", err)
		return
	}
	v.UpdatedAt = time.Now()
	if err := s.store.PutVariable(r.Context(), v); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store variable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"key": v.Key()})
}

func (s *Server) handleDeleteVariable(w http.ResponseWriter, r *http.Request) {
	sc, err := ir.ParseScope(chi.URLParam(r, "scope"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scope", err)
		return
	}
	name := chi.URLParam(r, "name")
	owner := r.URL.Query().Get("owner_id")

	err = s.store.DeleteVariable(r.Context(), sc, owner, name)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "variable not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete variable", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TraceFilter{
		ProfileID:  q.Get("profile_id"),
		RuleID:     q.Get("rule_id"),
		FailedOnly: q.Get("failed") == "true",
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		filter.Limit = n
	}
	traces, err := s.store.ListTraces(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list traces", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"traces": traces})
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	tr, err := s.store.GetTrace(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "trace not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get trace", err)
		return
	}
	respondJSON(w, http.StatusOK, tr)
}
