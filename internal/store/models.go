package store

import "time"

type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

type RoleAssignment struct {
	UserID    string
	RoleCode  string
	GrantedBy string
	GrantedAt time.Time
}

type Dossier struct {
	ID                   string
	DossierNumber        string
	Title                string
	ServiceType          string
	ProposalSubtype      *string
	SenderMinistry       string
	Urgency              string
	ConfidentialityLevel string
	Summary              string
	Status               string
	CreatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type DossierFilters struct {
	Status      string
	ServiceType string
	Urgency     string
}

// DossierPatch carries the editable core fields of a dossier. Status is
// deliberately absent; it only changes through a transition.
type DossierPatch struct {
	Title                *string
	SenderMinistry       *string
	Urgency              *string
	ConfidentialityLevel *string
	Summary              *string
	ProposalSubtype      *string
}

type Meeting struct {
	ID          string
	MeetingDate time.Time
	MeetingType string
	Location    string
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
}

type MeetingFilters struct {
	Status      string
	MeetingType string
	FromDate    *time.Time
	ToDate      *time.Time
}

type MeetingPatch struct {
	MeetingDate *time.Time
	MeetingType *string
	Location    *string
}

type AgendaItem struct {
	ID            string
	MeetingID     string
	DossierID     string
	AgendaNumber  int
	TitleOverride string
	Notes         string
	Status        string
	CreatedAt     time.Time
	// Joined dossier fields for agenda listings
	DossierNumber string
	DossierTitle  string
}

type AgendaItemPatch struct {
	TitleOverride *string
	Notes         *string
	Status        *string
}

// AgendaOrder is one (item, number) pair in a batch renumbering.
type AgendaOrder struct {
	ItemID       string
	AgendaNumber int
}

type Decision struct {
	ID              string
	AgendaItemID    string
	DecisionText    string
	DecisionStatus  string
	IsFinal         bool
	ChairApprovedBy *string
	ChairApprovedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// Joined agenda fields for per-meeting listings
	AgendaNumber int
	DossierID    string
}

type DecisionPatch struct {
	DecisionText   *string
	DecisionStatus *string
}

type Task struct {
	ID               string
	DossierID        string
	Title            string
	Description      string
	TaskType         string
	AssignedRoleCode string
	AssignedUserID   *string
	Priority         string
	Status           string
	DueAt            *time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	// Joined dossier fields for task listings
	DossierNumber string
	DossierTitle  string
}

type TaskFilters struct {
	Status    string
	TaskType  string
	Priority  string
	DossierID string
}

type TaskPatch struct {
	Title            *string
	Description      *string
	TaskType         *string
	AssignedRoleCode *string
	AssignedUserID   *string
	Priority         *string
	DueAt            *time.Time
}

// TaskTimestamps is what a transition writes back alongside the new status.
type TaskTimestamps struct {
	StartedAt   *time.Time
	CompletedAt *time.Time
}

type AuditEvent struct {
	ID         int64
	EventType  string
	ActorID    string
	ActorName  string
	EntityType string
	EntityID   string
	Payload    map[string]any
	CreatedAt  time.Time
}

type SummaryCounts struct {
	DossiersByStatus map[string]int
	MeetingsByStatus map[string]int
	TasksByStatus    map[string]int
	OverdueTasks     int
}
