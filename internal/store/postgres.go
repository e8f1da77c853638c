package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users and roles ----

func (s *PostgresStore) EnsureUserByName(ctx context.Context, name string) (User, error) {
	const findUser = `SELECT id, display_name, email FROM app_user WHERE display_name = $1`
	var user User
	err := s.db.QueryRowContext(ctx, findUser, name).Scan(&user.ID, &user.DisplayName, &user.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	const insertUser = `
		INSERT INTO app_user (display_name, email)
		VALUES ($1, CONCAT(LOWER(REPLACE($1, ' ', '.')), '@rvmdesk.local'))
		RETURNING id, display_name, email
	`
	if err := s.db.QueryRowContext(ctx, insertUser, name).Scan(&user.ID, &user.DisplayName, &user.Email); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, email FROM app_user WHERE id = $1`, userID,
	).Scan(&user.ID, &user.DisplayName, &user.Email)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role_code FROM user_role WHERE user_id = $1 ORDER BY role_code`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *PostgresStore) GrantRole(ctx context.Context, userID, roleCode, grantedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_role (user_id, role_code, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role_code) DO NOTHING
	`, userID, roleCode, grantedBy)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRole(ctx context.Context, userID, roleCode string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_role WHERE user_id = $1 AND role_code = $2`, userID, roleCode)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}

// ---- dossiers ----

const dossierColumns = `id, dossier_number, title, service_type, proposal_subtype,
	sender_ministry, COALESCE(urgency, 'regular'), COALESCE(confidentiality_level, 'standard_confidential'),
	COALESCE(summary, ''), status, COALESCE(created_by, ''), created_at, updated_at`

func scanDossier(row interface{ Scan(...any) error }) (Dossier, error) {
	var d Dossier
	err := row.Scan(&d.ID, &d.DossierNumber, &d.Title, &d.ServiceType, &d.ProposalSubtype,
		&d.SenderMinistry, &d.Urgency, &d.ConfidentialityLevel,
		&d.Summary, &d.Status, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *PostgresStore) ListDossiers(ctx context.Context, filters DossierFilters) ([]Dossier, error) {
	query := `SELECT ` + dossierColumns + ` FROM rvm_dossier`
	var where []string
	var args []any
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.ServiceType != "" {
		args = append(args, filters.ServiceType)
		where = append(where, fmt.Sprintf("service_type = $%d", len(args)))
	}
	if filters.Urgency != "" {
		args = append(args, filters.Urgency)
		where = append(where, fmt.Sprintf("urgency = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dossiers: %w", err)
	}
	defer rows.Close()

	var items []Dossier
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dossier: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListAgendaEligibleDossiers(ctx context.Context) ([]Dossier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dossierColumns+` FROM rvm_dossier
		WHERE status IN ('in_preparation', 'scheduled')
		ORDER BY dossier_number
	`)
	if err != nil {
		return nil, fmt.Errorf("list agenda-eligible dossiers: %w", err)
	}
	defer rows.Close()

	var items []Dossier
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dossier: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetDossier(ctx context.Context, id string) (Dossier, error) {
	return scanDossier(s.db.QueryRowContext(ctx,
		`SELECT `+dossierColumns+` FROM rvm_dossier WHERE id = $1`, id))
}

// InsertDossier creates the row with a freshly assigned dossier number. The
// number comes from a DB sequence so it is unique and immutable from birth.
func (s *PostgresStore) InsertDossier(ctx context.Context, d Dossier) (Dossier, error) {
	const insert = `
		INSERT INTO rvm_dossier
			(dossier_number, title, service_type, proposal_subtype, sender_ministry,
			 urgency, confidentiality_level, summary, status, created_by)
		VALUES (next_dossier_number(), $1, $2, $3, $4, $5, $6, $7, 'draft', $8)
		RETURNING ` + dossierColumns
	return scanDossier(s.db.QueryRowContext(ctx, insert,
		d.Title, d.ServiceType, d.ProposalSubtype, d.SenderMinistry,
		d.Urgency, d.ConfidentialityLevel, d.Summary, d.CreatedBy))
}

func (s *PostgresStore) UpdateDossierFields(ctx context.Context, id string, patch DossierPatch) (Dossier, error) {
	const update = `
		UPDATE rvm_dossier SET
			title = COALESCE($2, title),
			sender_ministry = COALESCE($3, sender_ministry),
			urgency = COALESCE($4, urgency),
			confidentiality_level = COALESCE($5, confidentiality_level),
			summary = COALESCE($6, summary),
			proposal_subtype = COALESCE($7, proposal_subtype),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + dossierColumns
	return scanDossier(s.db.QueryRowContext(ctx, update, id,
		patch.Title, patch.SenderMinistry, patch.Urgency,
		patch.ConfidentialityLevel, patch.Summary, patch.ProposalSubtype))
}

func (s *PostgresStore) UpdateDossierStatus(ctx context.Context, id, status string) (Dossier, error) {
	return scanDossier(s.db.QueryRowContext(ctx, `
		UPDATE rvm_dossier SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+dossierColumns, id, status))
}

// ---- meetings ----

const meetingColumns = `id, meeting_date, meeting_type, COALESCE(location, ''), status, COALESCE(created_by, ''), created_at`

func scanMeeting(row interface{ Scan(...any) error }) (Meeting, error) {
	var m Meeting
	err := row.Scan(&m.ID, &m.MeetingDate, &m.MeetingType, &m.Location, &m.Status, &m.CreatedBy, &m.CreatedAt)
	return m, err
}

func (s *PostgresStore) ListMeetings(ctx context.Context, filters MeetingFilters) ([]Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM rvm_meeting`
	var where []string
	var args []any
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.MeetingType != "" {
		args = append(args, filters.MeetingType)
		where = append(where, fmt.Sprintf("meeting_type = $%d", len(args)))
	}
	if filters.FromDate != nil {
		args = append(args, *filters.FromDate)
		where = append(where, fmt.Sprintf("meeting_date >= $%d", len(args)))
	}
	if filters.ToDate != nil {
		args = append(args, *filters.ToDate)
		where = append(where, fmt.Sprintf("meeting_date <= $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY meeting_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var items []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListUpcomingMeetings(ctx context.Context, from time.Time) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+meetingColumns+` FROM rvm_meeting
		WHERE status IN ('draft', 'published') AND meeting_date >= $1
		ORDER BY meeting_date ASC
	`, from)
	if err != nil {
		return nil, fmt.Errorf("list upcoming meetings: %w", err)
	}
	defer rows.Close()

	var items []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM rvm_meeting WHERE id = $1`, id))
}

func (s *PostgresStore) InsertMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx, `
		INSERT INTO rvm_meeting (meeting_date, meeting_type, location, status, created_by)
		VALUES ($1, $2, $3, 'draft', $4)
		RETURNING `+meetingColumns,
		m.MeetingDate, m.MeetingType, m.Location, m.CreatedBy))
}

func (s *PostgresStore) UpdateMeetingFields(ctx context.Context, id string, patch MeetingPatch) (Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx, `
		UPDATE rvm_meeting SET
			meeting_date = COALESCE($2, meeting_date),
			meeting_type = COALESCE($3, meeting_type),
			location = COALESCE($4, location)
		WHERE id = $1
		RETURNING `+meetingColumns,
		id, patch.MeetingDate, patch.MeetingType, patch.Location))
}

func (s *PostgresStore) UpdateMeetingStatus(ctx context.Context, id, status string) (Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx, `
		UPDATE rvm_meeting SET status = $2
		WHERE id = $1
		RETURNING `+meetingColumns, id, status))
}

// ---- agenda items ----

const agendaColumns = `a.id, a.meeting_id, a.dossier_id, a.agenda_number,
	COALESCE(a.title_override, ''), COALESCE(a.notes, ''), a.status, a.created_at,
	d.dossier_number, d.title`

func scanAgendaItem(row interface{ Scan(...any) error }) (AgendaItem, error) {
	var item AgendaItem
	err := row.Scan(&item.ID, &item.MeetingID, &item.DossierID, &item.AgendaNumber,
		&item.TitleOverride, &item.Notes, &item.Status, &item.CreatedAt,
		&item.DossierNumber, &item.DossierTitle)
	return item, err
}

func (s *PostgresStore) ListAgendaItems(ctx context.Context, meetingID string) ([]AgendaItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+agendaColumns+`
		FROM rvm_agenda_item a
		JOIN rvm_dossier d ON d.id = a.dossier_id
		WHERE a.meeting_id = $1
		ORDER BY a.agenda_number ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list agenda items: %w", err)
	}
	defer rows.Close()

	var items []AgendaItem
	for rows.Next() {
		item, err := scanAgendaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agenda item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetAgendaItem(ctx context.Context, id string) (AgendaItem, error) {
	return scanAgendaItem(s.db.QueryRowContext(ctx, `
		SELECT `+agendaColumns+`
		FROM rvm_agenda_item a
		JOIN rvm_dossier d ON d.id = a.dossier_id
		WHERE a.id = $1
	`, id))
}

// InsertAgendaItem relies on the (meeting_id, agenda_number) unique
// constraint for duplicate detection; the caller classifies the violation.
func (s *PostgresStore) InsertAgendaItem(ctx context.Context, item AgendaItem) (AgendaItem, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rvm_agenda_item (meeting_id, dossier_id, agenda_number, title_override, notes, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), 'scheduled')
		RETURNING id
	`, item.MeetingID, item.DossierID, item.AgendaNumber, item.TitleOverride, item.Notes).Scan(&id)
	if err != nil {
		return AgendaItem{}, err
	}
	return s.GetAgendaItem(ctx, id)
}

func (s *PostgresStore) UpdateAgendaItemFields(ctx context.Context, id string, patch AgendaItemPatch) (AgendaItem, error) {
	var updatedID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE rvm_agenda_item SET
			title_override = COALESCE($2, title_override),
			notes = COALESCE($3, notes),
			status = COALESCE($4, status)
		WHERE id = $1
		RETURNING id
	`, id, patch.TitleOverride, patch.Notes, patch.Status).Scan(&updatedID)
	if err != nil {
		return AgendaItem{}, err
	}
	return s.GetAgendaItem(ctx, updatedID)
}

func (s *PostgresStore) WithdrawAgendaItem(ctx context.Context, id string) (AgendaItem, error) {
	var updatedID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE rvm_agenda_item SET status = 'withdrawn'
		WHERE id = $1
		RETURNING id
	`, id).Scan(&updatedID)
	if err != nil {
		return AgendaItem{}, err
	}
	return s.GetAgendaItem(ctx, updatedID)
}

// MaxAgendaNumber reads the current maximum against the live set. The
// number it yields is advisory: two concurrent schedulers can still pick the
// same value, and the unique constraint decides the loser on insert.
func (s *PostgresStore) MaxAgendaNumber(ctx context.Context, meetingID string) (int, error) {
	var max int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(agenda_number), 0) FROM rvm_agenda_item WHERE meeting_id = $1
	`, meetingID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max agenda number: %w", err)
	}
	return max, nil
}

// ReorderAgendaItems applies the batch in one transaction with the unique
// constraint deferred, so swaps and rotations renumber atomically: either
// every pair lands or none does.
func (s *PostgresStore) ReorderAgendaItems(ctx context.Context, meetingID string, order []AgendaOrder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SET CONSTRAINTS rvm_agenda_item_meeting_number_key DEFERRED`); err != nil {
		return fmt.Errorf("defer agenda constraint: %w", err)
	}

	for _, pair := range order {
		result, err := tx.ExecContext(ctx, `
			UPDATE rvm_agenda_item SET agenda_number = $3
			WHERE id = $1 AND meeting_id = $2
		`, pair.ItemID, meetingID, pair.AgendaNumber)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("reorder rows affected: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

// ---- decisions ----

const decisionColumns = `dc.id, dc.agenda_item_id, dc.decision_text, dc.decision_status,
	dc.is_final, dc.chair_approved_by, dc.chair_approved_at, dc.created_at, dc.updated_at,
	a.agenda_number, a.dossier_id`

func scanDecision(row interface{ Scan(...any) error }) (Decision, error) {
	var d Decision
	err := row.Scan(&d.ID, &d.AgendaItemID, &d.DecisionText, &d.DecisionStatus,
		&d.IsFinal, &d.ChairApprovedBy, &d.ChairApprovedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.AgendaNumber, &d.DossierID)
	return d, err
}

const decisionFrom = `
	FROM rvm_decision dc
	JOIN rvm_agenda_item a ON a.id = dc.agenda_item_id`

func (s *PostgresStore) GetDecision(ctx context.Context, id string) (Decision, error) {
	return scanDecision(s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+decisionFrom+` WHERE dc.id = $1`, id))
}

// GetDecisionByAgendaItem returns nil when the agenda item has no decision.
func (s *PostgresStore) GetDecisionByAgendaItem(ctx context.Context, agendaItemID string) (*Decision, error) {
	d, err := scanDecision(s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+decisionFrom+` WHERE dc.agenda_item_id = $1`, agendaItemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decision by agenda item: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) ListDecisionsByMeeting(ctx context.Context, meetingID string) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+decisionColumns+decisionFrom+`
		WHERE a.meeting_id = $1
		ORDER BY a.agenda_number ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list decisions by meeting: %w", err)
	}
	defer rows.Close()

	var items []Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// InsertDecision relies on the unique constraint on agenda_item_id for the
// one-live-decision invariant; the caller classifies the violation.
func (s *PostgresStore) InsertDecision(ctx context.Context, d Decision) (Decision, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rvm_decision (agenda_item_id, decision_text, decision_status, is_final)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id
	`, d.AgendaItemID, d.DecisionText, d.DecisionStatus).Scan(&id)
	if err != nil {
		return Decision{}, err
	}
	return s.GetDecision(ctx, id)
}

func (s *PostgresStore) UpdateDecisionFields(ctx context.Context, id string, patch DecisionPatch) (Decision, error) {
	var updatedID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE rvm_decision SET
			decision_text = COALESCE($2, decision_text),
			decision_status = COALESCE($3, decision_status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, id, patch.DecisionText, patch.DecisionStatus).Scan(&updatedID)
	if err != nil {
		return Decision{}, err
	}
	return s.GetDecision(ctx, updatedID)
}

func (s *PostgresStore) RecordChairApproval(ctx context.Context, id, chairUserID string, at time.Time) (Decision, error) {
	var updatedID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE rvm_decision SET chair_approved_by = $2, chair_approved_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, id, chairUserID, at).Scan(&updatedID)
	if err != nil {
		return Decision{}, err
	}
	return s.GetDecision(ctx, updatedID)
}

func (s *PostgresStore) FinalizeDecision(ctx context.Context, id string) (Decision, error) {
	var updatedID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE rvm_decision SET is_final = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, id).Scan(&updatedID)
	if err != nil {
		return Decision{}, err
	}
	return s.GetDecision(ctx, updatedID)
}

// ---- tasks ----

const taskColumns = `t.id, t.dossier_id, t.title, COALESCE(t.description, ''), t.task_type,
	t.assigned_role_code, t.assigned_user_id, t.priority, t.status,
	t.due_at, t.started_at, t.completed_at, COALESCE(t.created_by, ''), t.created_at, t.updated_at,
	d.dossier_number, d.title`

const taskFrom = `
	FROM rvm_task t
	JOIN rvm_dossier d ON d.id = t.dossier_id`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.DossierID, &t.Title, &t.Description, &t.TaskType,
		&t.AssignedRoleCode, &t.AssignedUserID, &t.Priority, &t.Status,
		&t.DueAt, &t.StartedAt, &t.CompletedAt, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		&t.DossierNumber, &t.DossierTitle)
	return t, err
}

func (s *PostgresStore) ListTasks(ctx context.Context, filters TaskFilters) ([]Task, error) {
	query := `SELECT ` + taskColumns + taskFrom
	var where []string
	var args []any
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filters.TaskType != "" {
		args = append(args, filters.TaskType)
		where = append(where, fmt.Sprintf("t.task_type = $%d", len(args)))
	}
	if filters.Priority != "" {
		args = append(args, filters.Priority)
		where = append(where, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if filters.DossierID != "" {
		args = append(args, filters.DossierID)
		where = append(where, fmt.Sprintf("t.dossier_id = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.due_at ASC NULLS LAST, t.priority DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, task)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListPendingTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+taskFrom+`
		WHERE t.status IN ('todo', 'in_progress')
		ORDER BY t.priority DESC, t.due_at ASC NULLS LAST
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, task)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListOverdueTasks(ctx context.Context, now time.Time) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+taskFrom+`
		WHERE t.status IN ('todo', 'in_progress') AND t.due_at < $1
		ORDER BY t.due_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, task)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListTasksByDossier(ctx context.Context, dossierID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+taskFrom+`
		WHERE t.dossier_id = $1
		ORDER BY t.created_at DESC
	`, dossierID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by dossier: %w", err)
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, task)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+taskFrom+` WHERE t.id = $1`, id))
}

func (s *PostgresStore) InsertTask(ctx context.Context, t Task) (Task, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rvm_task
			(dossier_id, title, description, task_type, assigned_role_code,
			 assigned_user_id, priority, status, due_at, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, 'todo', $8, $9)
		RETURNING id
	`, t.DossierID, t.Title, t.Description, t.TaskType, t.AssignedRoleCode,
		t.AssignedUserID, t.Priority, t.DueAt, t.CreatedBy).Scan(&id)
	if err != nil {
		return Task{}, err
	}
	return s.GetTask(ctx, id)
}

func (s *PostgresStore) UpdateTaskFields(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	var updatedID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE rvm_task SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			task_type = COALESCE($4, task_type),
			assigned_role_code = COALESCE($5, assigned_role_code),
			assigned_user_id = COALESCE($6, assigned_user_id),
			priority = COALESCE($7, priority),
			due_at = COALESCE($8, due_at),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, id, patch.Title, patch.Description, patch.TaskType, patch.AssignedRoleCode,
		patch.AssignedUserID, patch.Priority, patch.DueAt).Scan(&updatedID)
	if err != nil {
		return Task{}, err
	}
	return s.GetTask(ctx, updatedID)
}

// UpdateTaskStatus writes the new status with the timestamps the transition
// computed, optionally assigning a user in the same statement.
func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, id, status string, stamps TaskTimestamps, assignUser *string) (Task, error) {
	var updatedID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE rvm_task SET
			status = $2,
			started_at = COALESCE($3, started_at),
			completed_at = COALESCE($4, completed_at),
			assigned_user_id = COALESCE($5, assigned_user_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`, id, status, stamps.StartedAt, stamps.CompletedAt, assignUser).Scan(&updatedID)
	if err != nil {
		return Task{}, err
	}
	return s.GetTask(ctx, updatedID)
}

// ---- audit and dashboard ----

func (s *PostgresStore) InsertAuditEvent(ctx context.Context, event AuditEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_event (event_type, actor_user_id, actor_name, entity_type, entity_id, payload)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
	`, event.EventType, event.ActorID, event.ActorName, event.EntityType, event.EntityID, payload)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, limit int) ([]AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, COALESCE(actor_user_id::text, ''), actor_name, entity_type, entity_id, payload, created_at
		FROM audit_event
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var event AuditEvent
		var payload []byte
		if err := rows.Scan(&event.ID, &event.EventType, &event.ActorID, &event.ActorName,
			&event.EntityType, &event.EntityID, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal audit payload: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *PostgresStore) GetSummaryCounts(ctx context.Context, now time.Time) (SummaryCounts, error) {
	counts := SummaryCounts{
		DossiersByStatus: map[string]int{},
		MeetingsByStatus: map[string]int{},
		TasksByStatus:    map[string]int{},
	}

	countInto := func(query string, into map[string]int) error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			into[status] = n
		}
		return rows.Err()
	}

	if err := countInto(`SELECT status, COUNT(*) FROM rvm_dossier GROUP BY status`, counts.DossiersByStatus); err != nil {
		return SummaryCounts{}, fmt.Errorf("count dossiers: %w", err)
	}
	if err := countInto(`SELECT status, COUNT(*) FROM rvm_meeting GROUP BY status`, counts.MeetingsByStatus); err != nil {
		return SummaryCounts{}, fmt.Errorf("count meetings: %w", err)
	}
	if err := countInto(`SELECT status, COUNT(*) FROM rvm_task GROUP BY status`, counts.TasksByStatus); err != nil {
		return SummaryCounts{}, fmt.Errorf("count tasks: %w", err)
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM rvm_task
		WHERE status IN ('todo', 'in_progress') AND due_at < $1
	`, now).Scan(&counts.OverdueTasks)
	if err != nil {
		return SummaryCounts{}, fmt.Errorf("count overdue tasks: %w", err)
	}
	return counts, nil
}
