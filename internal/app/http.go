package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rvmdesk/api/internal/auth"
	"rvmdesk/api/internal/metrics"
	"rvmdesk/api/internal/rbac"
	"rvmdesk/api/internal/search"
	"rvmdesk/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	metrics    *metrics.Metrics
	corsOrigin string
}

func NewHTTPServer(service *Service, m *metrics.Metrics, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, metrics: m, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/metrics" {
		s.metrics.Handler().ServeHTTP(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Login(r.Context(), body.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Login failed", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":    session.Token,
			"userId":   session.UserID,
			"userName": session.UserName,
			"roles":    rolesOrEmpty(session.Roles),
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      session.UserName,
			"userId":        session.UserID,
			"roles":         rolesOrEmpty(session.Roles),
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	principal := session.Principal()
	parts := splitPath(r.URL.Path)

	if len(parts) == 0 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	parts = parts[1:]

	switch {
	case len(parts) == 1 && parts[0] == "search" && r.Method == http.MethodGet:
		s.handleSearch(w, r)
	case len(parts) == 2 && parts[0] == "dashboard" && parts[1] == "summary" && r.Method == http.MethodGet:
		s.handleDashboardSummary(w, r)
	case len(parts) == 1 && parts[0] == "audit" && r.Method == http.MethodGet:
		s.handleAuditList(w, r, principal)
	case len(parts) >= 1 && parts[0] == "dossiers":
		s.handleDossiers(w, r, principal, parts[1:])
	case len(parts) >= 1 && parts[0] == "meetings":
		s.handleMeetings(w, r, principal, parts[1:])
	case len(parts) >= 1 && parts[0] == "agenda-items":
		s.handleAgendaItems(w, r, principal, parts[1:])
	case len(parts) >= 1 && parts[0] == "decisions":
		s.handleDecisions(w, r, principal, parts[1:])
	case len(parts) >= 1 && parts[0] == "tasks":
		s.handleTasks(w, r, principal, parts[1:])
	case len(parts) >= 2 && parts[0] == "users":
		s.handleUsers(w, r, principal, parts[1:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := search.Query{
		Text:         strings.TrimSpace(r.URL.Query().Get("q")),
		FilterType:   search.ResultType(strings.TrimSpace(r.URL.Query().Get("type"))),
		FilterStatus: strings.TrimSpace(r.URL.Query().Get("status")),
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
		return
	}
	q.Limit = limit
	q.Offset = offset
	writeJSON(w, http.StatusOK, s.service.Search(q))
}

func (s *HTTPServer) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.DashboardSummary(r.Context())
	if err != nil {
		s.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dossiersByStatus": counts.DossiersByStatus,
		"meetingsByStatus": counts.MeetingsByStatus,
		"tasksByStatus":    counts.TasksByStatus,
		"overdueTasks":     counts.OverdueTasks,
	})
}

func (s *HTTPServer) handleAuditList(w http.ResponseWriter, r *http.Request, principal rbac.Principal) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
		return
	}
	events, err := s.service.ListAuditEvents(r.Context(), principal, limit)
	if err != nil {
		s.writeMapped(w, err)
		return
	}
	items := make([]map[string]any, 0, len(events))
	for _, e := range events {
		items = append(items, map[string]any{
			"id":         e.ID,
			"eventType":  e.EventType,
			"actorId":    e.ActorID,
			"actorName":  e.ActorName,
			"entityType": e.EntityType,
			"entityId":   e.EntityID,
			"payload":    e.Payload,
			"createdAt":  e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": items})
}

func (s *HTTPServer) handleDossiers(w http.ResponseWriter, r *http.Request, principal rbac.Principal, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		items, err := s.service.ListDossiers(r.Context(), store.DossierFilters{
			Status:      r.URL.Query().Get("status"),
			ServiceType: r.URL.Query().Get("serviceType"),
			Urgency:     r.URL.Query().Get("urgency"),
		})
		s.respondList(w, items, err)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var input CreateDossierInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateDossier(r.Context(), principal, input)
		s.respondCreated(w, payload, err)
	case len(parts) == 1 && parts[0] == "agenda-eligible" && r.Method == http.MethodGet:
		items, err := s.service.ListAgendaEligibleDossiers(r.Context())
		s.respondList(w, items, err)
	case len(parts) == 1 && r.Method == http.MethodGet:
		payload, err := s.service.GetDossier(r.Context(), parts[0])
		s.respond(w, payload, err)
	case len(parts) == 1 && r.Method == http.MethodPut:
		var input UpdateDossierInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateDossier(r.Context(), principal, parts[0], input)
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "transition" && r.Method == http.MethodPost:
		var body struct {
			Target string `json:"target"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.TransitionDossier(r.Context(), principal, parts[0], body.Target)
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "tasks" && r.Method == http.MethodGet:
		items, err := s.service.ListTasksByDossier(r.Context(), parts[0])
		s.respondList(w, items, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMeetings(w http.ResponseWriter, r *http.Request, principal rbac.Principal, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		if r.URL.Query().Get("upcoming") == "true" {
			items, err := s.service.ListUpcomingMeetings(r.Context())
			s.respondList(w, items, err)
			return
		}
		items, err := s.service.ListMeetings(r.Context(), store.MeetingFilters{
			Status:      r.URL.Query().Get("status"),
			MeetingType: r.URL.Query().Get("meetingType"),
		})
		s.respondList(w, items, err)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var input CreateMeetingInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateMeeting(r.Context(), principal, input)
		s.respondCreated(w, payload, err)
	case len(parts) == 1 && r.Method == http.MethodGet:
		payload, err := s.service.GetMeeting(r.Context(), parts[0])
		s.respond(w, payload, err)
	case len(parts) == 1 && r.Method == http.MethodPut:
		var input UpdateMeetingInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateMeeting(r.Context(), principal, parts[0], input)
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "transition" && r.Method == http.MethodPost:
		var body struct {
			Target string `json:"target"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.TransitionMeeting(r.Context(), principal, parts[0], body.Target)
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "agenda" && r.Method == http.MethodGet:
		items, err := s.service.ListAgendaItems(r.Context(), parts[0])
		s.respondList(w, items, err)
	case len(parts) == 2 && parts[1] == "agenda" && r.Method == http.MethodPost:
		var input AddAgendaItemInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.AddAgendaItem(r.Context(), principal, parts[0], input)
		s.respondCreated(w, payload, err)
	case len(parts) == 3 && parts[1] == "agenda" && parts[2] == "next-number" && r.Method == http.MethodGet:
		number, err := s.service.NextAgendaNumber(r.Context(), parts[0])
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"nextNumber": number})
	case len(parts) == 3 && parts[1] == "agenda" && parts[2] == "order" && r.Method == http.MethodPut:
		var body struct {
			Order []AgendaOrderInput `json:"order"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ReorderAgenda(r.Context(), principal, parts[0], body.Order); err != nil {
			s.writeMapped(w, err)
			return
		}
		items, err := s.service.ListAgendaItems(r.Context(), parts[0])
		s.respondList(w, items, err)
	case len(parts) == 2 && parts[1] == "decisions" && r.Method == http.MethodGet:
		items, err := s.service.ListDecisionsByMeeting(r.Context(), parts[0])
		s.respondList(w, items, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAgendaItems(w http.ResponseWriter, r *http.Request, principal rbac.Principal, parts []string) {
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		var input UpdateAgendaItemInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateAgendaItem(r.Context(), principal, parts[0], input)
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "withdraw" && r.Method == http.MethodPost:
		payload, err := s.service.WithdrawAgendaItem(r.Context(), principal, parts[0])
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "decision" && r.Method == http.MethodGet:
		payload, err := s.service.GetDecisionByAgendaItem(r.Context(), parts[0])
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"decision": payload})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleDecisions(w http.ResponseWriter, r *http.Request, principal rbac.Principal, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodPost:
		var input CreateDecisionInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateDecision(r.Context(), principal, input)
		s.respondCreated(w, payload, err)
	case len(parts) == 1 && r.Method == http.MethodGet:
		payload, err := s.service.GetDecision(r.Context(), parts[0])
		s.respond(w, payload, err)
	case len(parts) == 1 && r.Method == http.MethodPut:
		var input UpdateDecisionInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateDecision(r.Context(), principal, parts[0], input)
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "chair-approval" && r.Method == http.MethodPost:
		payload, err := s.service.RecordChairApproval(r.Context(), principal, parts[0])
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "finalize" && r.Method == http.MethodPost:
		payload, err := s.service.FinalizeDecision(r.Context(), principal, parts[0])
		s.respond(w, payload, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleTasks(w http.ResponseWriter, r *http.Request, principal rbac.Principal, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		switch r.URL.Query().Get("view") {
		case "pending":
			items, err := s.service.ListPendingTasks(r.Context())
			s.respondList(w, items, err)
		case "overdue":
			items, err := s.service.ListOverdueTasks(r.Context())
			s.respondList(w, items, err)
		default:
			items, err := s.service.ListTasks(r.Context(), store.TaskFilters{
				Status:    r.URL.Query().Get("status"),
				TaskType:  r.URL.Query().Get("taskType"),
				Priority:  r.URL.Query().Get("priority"),
				DossierID: r.URL.Query().Get("dossierId"),
			})
			s.respondList(w, items, err)
		}
	case len(parts) == 0 && r.Method == http.MethodPost:
		var input CreateTaskInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateTask(r.Context(), principal, input)
		s.respondCreated(w, payload, err)
	case len(parts) == 1 && r.Method == http.MethodGet:
		payload, err := s.service.GetTask(r.Context(), parts[0])
		s.respond(w, payload, err)
	case len(parts) == 1 && r.Method == http.MethodPut:
		var input UpdateTaskInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateTask(r.Context(), principal, parts[0], input)
		s.respond(w, payload, err)
	case len(parts) == 2 && parts[1] == "transition" && r.Method == http.MethodPost:
		var input TransitionTaskInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.TransitionTask(r.Context(), principal, parts[0], input)
		s.respond(w, payload, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, principal rbac.Principal, parts []string) {
	switch {
	case len(parts) == 2 && parts[1] == "roles" && r.Method == http.MethodGet:
		codes, err := s.service.UserRoles(r.Context(), principal, parts[0])
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": rolesOrEmpty(codes)})
	case len(parts) == 2 && parts[1] == "roles" && r.Method == http.MethodPost:
		var body struct {
			Role string `json:"role"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.GrantRole(r.Context(), principal, parts[0], body.Role); err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case len(parts) == 3 && parts[1] == "roles" && r.Method == http.MethodDelete:
		if err := s.service.RevokeRole(r.Context(), principal, parts[0], parts[2]); err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) respond(w http.ResponseWriter, payload map[string]any, err error) {
	if err != nil {
		s.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) respondCreated(w http.ResponseWriter, payload map[string]any, err error) {
	if err != nil {
		s.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (s *HTTPServer) respondList(w http.ResponseWriter, items []map[string]any, err error) {
	if err != nil {
		s.writeMapped(w, err)
		return
	}
	if items == nil {
		items = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) writeMapped(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("app: %v", err)
	}
	s.metrics.WorkflowError(code)
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.metrics.HTTPRequest(r.Method, statusClass(writer.status))
		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func rolesOrEmpty(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}

func mapError(err error) (status int, code, message string, details any) {
	if mapped := toDomainError(err); mapped != nil {
		return mapped.Status, mapped.Code, mapped.Message, mapped.Details
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "UNEXPECTED", "Server error", nil
}
