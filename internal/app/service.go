package app

import (
	"context"
	"log"
	"strings"
	"time"

	"rvmdesk/api/internal/auth"
	"rvmdesk/api/internal/config"
	"rvmdesk/api/internal/metrics"
	"rvmdesk/api/internal/rbac"
	"rvmdesk/api/internal/search"
	"rvmdesk/api/internal/store"
	"rvmdesk/api/internal/util"
	"rvmdesk/api/internal/workflow"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Roles     []string
	JTI       string
	ExpiresAt time.Time
}

// Principal resolves the session into the identity the permission gate reads.
func (s Session) Principal() rbac.Principal {
	return rbac.NewPrincipal(s.UserID, s.UserName, s.Roles)
}

type dataStore interface {
	Ping(ctx context.Context) error

	EnsureUserByName(ctx context.Context, name string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserRoles(ctx context.Context, userID string) ([]string, error)
	GrantRole(ctx context.Context, userID, roleCode, grantedBy string) error
	RevokeRole(ctx context.Context, userID, roleCode string) error

	ListDossiers(ctx context.Context, filters store.DossierFilters) ([]store.Dossier, error)
	ListAgendaEligibleDossiers(ctx context.Context) ([]store.Dossier, error)
	GetDossier(ctx context.Context, id string) (store.Dossier, error)
	InsertDossier(ctx context.Context, d store.Dossier) (store.Dossier, error)
	UpdateDossierFields(ctx context.Context, id string, patch store.DossierPatch) (store.Dossier, error)
	UpdateDossierStatus(ctx context.Context, id, status string) (store.Dossier, error)

	ListMeetings(ctx context.Context, filters store.MeetingFilters) ([]store.Meeting, error)
	ListUpcomingMeetings(ctx context.Context, from time.Time) ([]store.Meeting, error)
	GetMeeting(ctx context.Context, id string) (store.Meeting, error)
	InsertMeeting(ctx context.Context, m store.Meeting) (store.Meeting, error)
	UpdateMeetingFields(ctx context.Context, id string, patch store.MeetingPatch) (store.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id, status string) (store.Meeting, error)

	ListAgendaItems(ctx context.Context, meetingID string) ([]store.AgendaItem, error)
	GetAgendaItem(ctx context.Context, id string) (store.AgendaItem, error)
	InsertAgendaItem(ctx context.Context, item store.AgendaItem) (store.AgendaItem, error)
	UpdateAgendaItemFields(ctx context.Context, id string, patch store.AgendaItemPatch) (store.AgendaItem, error)
	WithdrawAgendaItem(ctx context.Context, id string) (store.AgendaItem, error)
	MaxAgendaNumber(ctx context.Context, meetingID string) (int, error)
	ReorderAgendaItems(ctx context.Context, meetingID string, order []store.AgendaOrder) error

	GetDecision(ctx context.Context, id string) (store.Decision, error)
	GetDecisionByAgendaItem(ctx context.Context, agendaItemID string) (*store.Decision, error)
	ListDecisionsByMeeting(ctx context.Context, meetingID string) ([]store.Decision, error)
	InsertDecision(ctx context.Context, d store.Decision) (store.Decision, error)
	UpdateDecisionFields(ctx context.Context, id string, patch store.DecisionPatch) (store.Decision, error)
	RecordChairApproval(ctx context.Context, id, chairUserID string, at time.Time) (store.Decision, error)
	FinalizeDecision(ctx context.Context, id string) (store.Decision, error)

	ListTasks(ctx context.Context, filters store.TaskFilters) ([]store.Task, error)
	ListPendingTasks(ctx context.Context) ([]store.Task, error)
	ListOverdueTasks(ctx context.Context, now time.Time) ([]store.Task, error)
	ListTasksByDossier(ctx context.Context, dossierID string) ([]store.Task, error)
	GetTask(ctx context.Context, id string) (store.Task, error)
	InsertTask(ctx context.Context, t store.Task) (store.Task, error)
	UpdateTaskFields(ctx context.Context, id string, patch store.TaskPatch) (store.Task, error)
	UpdateTaskStatus(ctx context.Context, id, status string, stamps store.TaskTimestamps, assignUser *string) (store.Task, error)

	InsertAuditEvent(ctx context.Context, event store.AuditEvent) error
	ListAuditEvents(ctx context.Context, limit int) ([]store.AuditEvent, error)
	GetSummaryCounts(ctx context.Context, now time.Time) (store.SummaryCounts, error)
}

// roleResolver hands back a user's role codes, normally through the Redis
// cache. Invalidate must run after every grant or revocation.
type roleResolver interface {
	Resolve(ctx context.Context, userID string) ([]string, error)
	Invalidate(ctx context.Context, userID string) error
}

// searchService is the subset of the search facade the operations touch.
type searchService interface {
	Search(q search.Query) search.Response
	IndexDossier(d search.DossierRecord)
	IndexDecision(d search.DecisionRecord)
	IndexTask(t search.TaskRecord)
}

type Service struct {
	cfg     config.Config
	store   dataStore
	roles   roleResolver
	search  searchService
	metrics *metrics.Metrics
}

func New(cfg config.Config, dataStore *store.PostgresStore, roles roleResolver, searchSvc *search.Service, m *metrics.Metrics) *Service {
	return &Service{
		cfg:     cfg,
		store:   dataStore,
		roles:   roles,
		search:  searchSvc,
		metrics: m,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Login(ctx context.Context, name string) (Session, error) {
	userName := strings.TrimSpace(name)
	if userName == "" {
		userName = "User"
	}

	user, err := s.store.EnsureUserByName(ctx, userName)
	if err != nil {
		return Session{}, err
	}

	codes, err := s.roles.Resolve(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Roles:     codes,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	codes, err := s.roles.Resolve(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Roles:     codes,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// require is the permission gate. It decides only; a store-level denial later
// in the operation still surfaces as forbidden.
func (s *Service) require(p rbac.Principal, action rbac.Action) error {
	if !rbac.Can(p, action) {
		s.metrics.PermissionDenied(string(action))
		return workflow.Errf(workflow.KindForbidden, "not permitted to %s", action)
	}
	return nil
}

// audit records an event after a successful mutation. Failures are logged,
// never propagated; the mutation already happened.
func (s *Service) audit(ctx context.Context, p rbac.Principal, eventType, entityType, entityID string, payload map[string]any) {
	err := s.store.InsertAuditEvent(ctx, store.AuditEvent{
		EventType:  eventType,
		ActorID:    p.UserID,
		ActorName:  p.Name,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
	})
	if err != nil {
		log.Printf("audit: insert %s on %s/%s: %v", eventType, entityType, entityID, err)
	}
}

func (s *Service) ListAuditEvents(ctx context.Context, p rbac.Principal, limit int) ([]store.AuditEvent, error) {
	if err := s.require(p, rbac.ActionViewAudit); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListAuditEvents(ctx, limit)
}

func (s *Service) DashboardSummary(ctx context.Context) (store.SummaryCounts, error) {
	return s.store.GetSummaryCounts(ctx, time.Now())
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) GrantRole(ctx context.Context, p rbac.Principal, userID, roleCode string) error {
	if err := s.require(p, rbac.ActionManageRoles); err != nil {
		return err
	}
	if !rbac.ValidRole(rbac.Role(roleCode)) {
		return workflow.Errf(workflow.KindValidation, "unknown role code %q", roleCode)
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.store.GrantRole(ctx, userID, roleCode, p.Name); err != nil {
		return err
	}
	if err := s.roles.Invalidate(ctx, userID); err != nil {
		log.Printf("roles: invalidate %s after grant: %v", userID, err)
	}
	s.audit(ctx, p, "role.granted", "user", userID, map[string]any{"role": roleCode})
	return nil
}

func (s *Service) RevokeRole(ctx context.Context, p rbac.Principal, userID, roleCode string) error {
	if err := s.require(p, rbac.ActionManageRoles); err != nil {
		return err
	}
	if !rbac.ValidRole(rbac.Role(roleCode)) {
		return workflow.Errf(workflow.KindValidation, "unknown role code %q", roleCode)
	}
	if err := s.store.RevokeRole(ctx, userID, roleCode); err != nil {
		return err
	}
	if err := s.roles.Invalidate(ctx, userID); err != nil {
		log.Printf("roles: invalidate %s after revoke: %v", userID, err)
	}
	s.audit(ctx, p, "role.revoked", "user", userID, map[string]any{"role": roleCode})
	return nil
}

func (s *Service) UserRoles(ctx context.Context, p rbac.Principal, userID string) ([]string, error) {
	if err := s.require(p, rbac.ActionManageRoles); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.GetUserRoles(ctx, userID)
}

func (s *Service) taskStartedAtPolicy() workflow.StartedAtPolicy {
	if s.cfg.TaskStartedAtFirstEntry {
		return workflow.StartedAtFirstEntry
	}
	return workflow.StartedAtOverwrite
}
