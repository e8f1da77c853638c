package app

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"rvmdesk/api/internal/store"
)

// memStore is a stateful in-memory dataStore used by the HTTP lifecycle
// tests. It mimics the Postgres constraints the service classifies: unique
// agenda numbers per meeting and one decision per agenda item.
type memStore struct {
	mu sync.Mutex

	seq         int
	users       map[string]store.User // by ID
	usersByName map[string]string
	userRoles   map[string][]string

	dossiers    map[string]store.Dossier
	meetings    map[string]store.Meeting
	agendaItems map[string]store.AgendaItem
	decisions   map[string]store.Decision
	tasks       map[string]store.Task

	auditEvents []store.AuditEvent
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]store.User{},
		usersByName: map[string]string{},
		userRoles:   map[string][]string{},
		dossiers:    map[string]store.Dossier{},
		meetings:    map[string]store.Meeting{},
		agendaItems: map[string]store.AgendaItem{},
		decisions:   map[string]store.Decision{},
		tasks:       map[string]store.Task{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// seedUser registers a user with the given roles and returns the user ID.
func (m *memStore) seedUser(name string, roles ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("u")
	m.users[id] = store.User{ID: id, DisplayName: name}
	m.usersByName[name] = id
	m.userRoles[id] = roles
	return id
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) EnsureUserByName(ctx context.Context, name string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.usersByName[name]; ok {
		return m.users[id], nil
	}
	id := m.nextID("u")
	user := store.User{ID: id, DisplayName: name}
	m.users[id] = user
	m.usersByName[name] = id
	return user, nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (m *memStore) GetUserRoles(ctx context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.userRoles[id]...), nil
}

func (m *memStore) GrantRole(ctx context.Context, userID, roleCode, grantedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range m.userRoles[userID] {
		if code == roleCode {
			return nil
		}
	}
	m.userRoles[userID] = append(m.userRoles[userID], roleCode)
	return nil
}

func (m *memStore) RevokeRole(ctx context.Context, userID, roleCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.userRoles[userID][:0]
	for _, code := range m.userRoles[userID] {
		if code != roleCode {
			kept = append(kept, code)
		}
	}
	m.userRoles[userID] = kept
	return nil
}

func (m *memStore) ListDossiers(ctx context.Context, filters store.DossierFilters) ([]store.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Dossier
	for _, d := range m.dossiers {
		if filters.Status != "" && d.Status != filters.Status {
			continue
		}
		if filters.ServiceType != "" && d.ServiceType != filters.ServiceType {
			continue
		}
		if filters.Urgency != "" && d.Urgency != filters.Urgency {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListAgendaEligibleDossiers(ctx context.Context) ([]store.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Dossier
	for _, d := range m.dossiers {
		if d.Status == "in_preparation" || d.Status == "scheduled" {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetDossier(ctx context.Context, id string) (store.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dossiers[id]
	if !ok {
		return store.Dossier{}, sql.ErrNoRows
	}
	return d, nil
}

func (m *memStore) InsertDossier(ctx context.Context, d store.Dossier) (store.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.nextID("d")
	d.DossierNumber = fmt.Sprintf("D-2026-%04d", m.seq)
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.dossiers[d.ID] = d
	return d, nil
}

func (m *memStore) UpdateDossierFields(ctx context.Context, id string, patch store.DossierPatch) (store.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dossiers[id]
	if !ok {
		return store.Dossier{}, sql.ErrNoRows
	}
	if patch.Title != nil {
		d.Title = *patch.Title
	}
	if patch.SenderMinistry != nil {
		d.SenderMinistry = *patch.SenderMinistry
	}
	if patch.Urgency != nil {
		d.Urgency = *patch.Urgency
	}
	if patch.ConfidentialityLevel != nil {
		d.ConfidentialityLevel = *patch.ConfidentialityLevel
	}
	if patch.Summary != nil {
		d.Summary = *patch.Summary
	}
	if patch.ProposalSubtype != nil {
		d.ProposalSubtype = patch.ProposalSubtype
	}
	d.UpdatedAt = time.Now()
	m.dossiers[id] = d
	return d, nil
}

func (m *memStore) UpdateDossierStatus(ctx context.Context, id, status string) (store.Dossier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dossiers[id]
	if !ok {
		return store.Dossier{}, sql.ErrNoRows
	}
	d.Status = status
	d.UpdatedAt = time.Now()
	m.dossiers[id] = d
	return d, nil
}

func (m *memStore) ListMeetings(ctx context.Context, filters store.MeetingFilters) ([]store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Meeting
	for _, meeting := range m.meetings {
		if filters.Status != "" && meeting.Status != filters.Status {
			continue
		}
		out = append(out, meeting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListUpcomingMeetings(ctx context.Context, from time.Time) ([]store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Meeting
	for _, meeting := range m.meetings {
		if !meeting.MeetingDate.Before(from.Truncate(24 * time.Hour)) {
			out = append(out, meeting)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeetingDate.Before(out[j].MeetingDate) })
	return out, nil
}

func (m *memStore) GetMeeting(ctx context.Context, id string) (store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return store.Meeting{}, sql.ErrNoRows
	}
	return meeting, nil
}

func (m *memStore) InsertMeeting(ctx context.Context, meeting store.Meeting) (store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting.ID = m.nextID("m")
	meeting.CreatedAt = time.Now()
	m.meetings[meeting.ID] = meeting
	return meeting, nil
}

func (m *memStore) UpdateMeetingFields(ctx context.Context, id string, patch store.MeetingPatch) (store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return store.Meeting{}, sql.ErrNoRows
	}
	if patch.MeetingDate != nil {
		meeting.MeetingDate = *patch.MeetingDate
	}
	if patch.MeetingType != nil {
		meeting.MeetingType = *patch.MeetingType
	}
	if patch.Location != nil {
		meeting.Location = *patch.Location
	}
	m.meetings[id] = meeting
	return meeting, nil
}

func (m *memStore) UpdateMeetingStatus(ctx context.Context, id, status string) (store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return store.Meeting{}, sql.ErrNoRows
	}
	meeting.Status = status
	m.meetings[id] = meeting
	return meeting, nil
}

func (m *memStore) ListAgendaItems(ctx context.Context, meetingID string) ([]store.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.AgendaItem
	for _, item := range m.agendaItems {
		if item.MeetingID == meetingID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgendaNumber < out[j].AgendaNumber })
	return out, nil
}

func (m *memStore) GetAgendaItem(ctx context.Context, id string) (store.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.agendaItems[id]
	if !ok {
		return store.AgendaItem{}, sql.ErrNoRows
	}
	return item, nil
}

func (m *memStore) InsertAgendaItem(ctx context.Context, item store.AgendaItem) (store.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.agendaItems {
		if existing.MeetingID == item.MeetingID && existing.AgendaNumber == item.AgendaNumber {
			return store.AgendaItem{}, &pgconn.PgError{Code: "23505", ConstraintName: "rvm_agenda_item_meeting_number_key"}
		}
	}
	item.ID = m.nextID("ai")
	item.CreatedAt = time.Now()
	if d, ok := m.dossiers[item.DossierID]; ok {
		item.DossierNumber = d.DossierNumber
		item.DossierTitle = d.Title
	}
	m.agendaItems[item.ID] = item
	return item, nil
}

func (m *memStore) UpdateAgendaItemFields(ctx context.Context, id string, patch store.AgendaItemPatch) (store.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.agendaItems[id]
	if !ok {
		return store.AgendaItem{}, sql.ErrNoRows
	}
	if patch.TitleOverride != nil {
		item.TitleOverride = *patch.TitleOverride
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}
	m.agendaItems[id] = item
	return item, nil
}

func (m *memStore) WithdrawAgendaItem(ctx context.Context, id string) (store.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.agendaItems[id]
	if !ok {
		return store.AgendaItem{}, sql.ErrNoRows
	}
	item.Status = "withdrawn"
	m.agendaItems[id] = item
	return item, nil
}

func (m *memStore) MaxAgendaNumber(ctx context.Context, meetingID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, item := range m.agendaItems {
		if item.MeetingID == meetingID && item.AgendaNumber > max {
			max = item.AgendaNumber
		}
	}
	return max, nil
}

// ReorderAgendaItems applies the whole batch or nothing, like the deferred
// unique constraint in Postgres.
func (m *memStore) ReorderAgendaItems(ctx context.Context, meetingID string, order []store.AgendaOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := make(map[string]store.AgendaItem, len(order))
	for _, entry := range order {
		item, ok := m.agendaItems[entry.ItemID]
		if !ok || item.MeetingID != meetingID {
			return sql.ErrNoRows
		}
		item.AgendaNumber = entry.AgendaNumber
		updated[entry.ItemID] = item
	}

	// Check the constraint against the final state before committing.
	numbers := map[int]string{}
	for id, item := range m.agendaItems {
		if item.MeetingID != meetingID {
			continue
		}
		if next, ok := updated[id]; ok {
			item = next
		}
		if otherID, taken := numbers[item.AgendaNumber]; taken && otherID != id {
			return &pgconn.PgError{Code: "23505", ConstraintName: "rvm_agenda_item_meeting_number_key"}
		}
		numbers[item.AgendaNumber] = id
	}

	for id, item := range updated {
		m.agendaItems[id] = item
	}
	return nil
}

func (m *memStore) GetDecision(ctx context.Context, id string) (store.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return store.Decision{}, sql.ErrNoRows
	}
	return d, nil
}

func (m *memStore) GetDecisionByAgendaItem(ctx context.Context, agendaItemID string) (*store.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.decisions {
		if d.AgendaItemID == agendaItemID {
			out := d
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListDecisionsByMeeting(ctx context.Context, meetingID string) ([]store.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Decision
	for _, d := range m.decisions {
		item, ok := m.agendaItems[d.AgendaItemID]
		if ok && item.MeetingID == meetingID {
			d.AgendaNumber = item.AgendaNumber
			d.DossierID = item.DossierID
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgendaNumber < out[j].AgendaNumber })
	return out, nil
}

func (m *memStore) InsertDecision(ctx context.Context, d store.Decision) (store.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.decisions {
		if existing.AgendaItemID == d.AgendaItemID {
			return store.Decision{}, &pgconn.PgError{Code: "23505", ConstraintName: "rvm_decision_agenda_item_key"}
		}
	}
	d.ID = m.nextID("dec")
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	if item, ok := m.agendaItems[d.AgendaItemID]; ok {
		d.AgendaNumber = item.AgendaNumber
		d.DossierID = item.DossierID
	}
	m.decisions[d.ID] = d
	return d, nil
}

func (m *memStore) UpdateDecisionFields(ctx context.Context, id string, patch store.DecisionPatch) (store.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return store.Decision{}, sql.ErrNoRows
	}
	if patch.DecisionText != nil {
		d.DecisionText = *patch.DecisionText
	}
	if patch.DecisionStatus != nil {
		d.DecisionStatus = *patch.DecisionStatus
	}
	d.UpdatedAt = time.Now()
	m.decisions[id] = d
	return d, nil
}

func (m *memStore) RecordChairApproval(ctx context.Context, id, chairUserID string, at time.Time) (store.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return store.Decision{}, sql.ErrNoRows
	}
	d.ChairApprovedBy = &chairUserID
	d.ChairApprovedAt = &at
	d.UpdatedAt = time.Now()
	m.decisions[id] = d
	return d, nil
}

func (m *memStore) FinalizeDecision(ctx context.Context, id string) (store.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return store.Decision{}, sql.ErrNoRows
	}
	d.IsFinal = true
	d.UpdatedAt = time.Now()
	m.decisions[id] = d
	return d, nil
}

func (m *memStore) ListTasks(ctx context.Context, filters store.TaskFilters) ([]store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Task
	for _, t := range m.tasks {
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		if filters.DossierID != "" && t.DossierID != filters.DossierID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListPendingTasks(ctx context.Context) ([]store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Task
	for _, t := range m.tasks {
		if t.Status == "todo" || t.Status == "in_progress" || t.Status == "blocked" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListOverdueTasks(ctx context.Context, now time.Time) ([]store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Task
	for _, t := range m.tasks {
		if t.DueAt != nil && t.DueAt.Before(now) && t.Status != "done" && t.Status != "cancelled" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListTasksByDossier(ctx context.Context, dossierID string) ([]store.Task, error) {
	return m.ListTasks(ctx, store.TaskFilters{DossierID: dossierID})
}

func (m *memStore) GetTask(ctx context.Context, id string) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	return t, nil
}

func (m *memStore) InsertTask(ctx context.Context, t store.Task) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID("t")
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memStore) UpdateTaskFields(ctx context.Context, id string, patch store.TaskPatch) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.TaskType != nil {
		t.TaskType = *patch.TaskType
	}
	if patch.AssignedRoleCode != nil {
		t.AssignedRoleCode = *patch.AssignedRoleCode
	}
	if patch.AssignedUserID != nil {
		t.AssignedUserID = patch.AssignedUserID
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.DueAt != nil {
		t.DueAt = patch.DueAt
	}
	t.UpdatedAt = time.Now()
	m.tasks[id] = t
	return t, nil
}

func (m *memStore) UpdateTaskStatus(ctx context.Context, id, status string, stamps store.TaskTimestamps, assignUser *string) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	t.Status = status
	t.StartedAt = stamps.StartedAt
	t.CompletedAt = stamps.CompletedAt
	if assignUser != nil {
		t.AssignedUserID = assignUser
	}
	t.UpdatedAt = time.Now()
	m.tasks[id] = t
	return t, nil
}

func (m *memStore) InsertAuditEvent(ctx context.Context, event store.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.auditEvents) + 1)
	event.CreatedAt = time.Now()
	m.auditEvents = append(m.auditEvents, event)
	return nil
}

func (m *memStore) ListAuditEvents(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := append([]store.AuditEvent(nil), m.auditEvents...)
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func (m *memStore) GetSummaryCounts(ctx context.Context, now time.Time) (store.SummaryCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := store.SummaryCounts{
		DossiersByStatus: map[string]int{},
		MeetingsByStatus: map[string]int{},
		TasksByStatus:    map[string]int{},
	}
	for _, d := range m.dossiers {
		counts.DossiersByStatus[d.Status]++
	}
	for _, meeting := range m.meetings {
		counts.MeetingsByStatus[meeting.Status]++
	}
	for _, t := range m.tasks {
		counts.TasksByStatus[t.Status]++
		if t.DueAt != nil && t.DueAt.Before(now) && t.Status != "done" && t.Status != "cancelled" {
			counts.OverdueTasks++
		}
	}
	return counts, nil
}
