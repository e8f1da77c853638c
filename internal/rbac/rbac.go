// Package rbac maps role codes to the actions they may perform. The gate is
// a UI/API-level check duplicating, not replacing, the store's row-level
// authorization: a store-side denial still surfaces as forbidden even after
// an allow here.
package rbac

type Role string

const (
	RoleSecretary       Role = "secretary_rvm"
	RoleDeputySecretary Role = "deputy_secretary"
	RoleChair           Role = "chair_rvm"
	RoleAdminIntake     Role = "admin_intake"
	RoleAdminDossier    Role = "admin_dossier"
	RoleAdminAgenda     Role = "admin_agenda"
	RoleAdminReporting  Role = "admin_reporting"
	RoleAuditReadonly   Role = "audit_readonly"
	RoleSuperAdmin      Role = "super_admin"
)

var knownRoles = map[Role]struct{}{
	RoleSecretary:       {},
	RoleDeputySecretary: {},
	RoleChair:           {},
	RoleAdminIntake:     {},
	RoleAdminDossier:    {},
	RoleAdminAgenda:     {},
	RoleAdminReporting:  {},
	RoleAuditReadonly:   {},
	RoleSuperAdmin:      {},
}

func ValidRole(r Role) bool {
	_, ok := knownRoles[r]
	return ok
}

type Action string

const (
	ActionCreateDossier     Action = "create_dossier"
	ActionEditDossier       Action = "edit_dossier"
	ActionTransitionDossier Action = "transition_dossier"
	ActionCreateMeeting     Action = "create_meeting"
	ActionEditMeeting       Action = "edit_meeting"
	ActionTransitionMeeting Action = "transition_meeting"
	ActionManageAgenda      Action = "manage_agenda"
	ActionCreateTask        Action = "create_task"
	ActionEditTask          Action = "edit_task"
	ActionTransitionTask    Action = "transition_task"
	ActionRecordDecision    Action = "record_decision"
	ActionChairApprove      Action = "chair_approve"
	ActionFinalizeDecision  Action = "finalize_decision"
	ActionViewAudit         Action = "view_audit"
	ActionManageRoles       Action = "manage_roles"
)

// allow is the single source of truth for role eligibility per action,
// replacing the per-screen string checks the old UI scattered around.
// ActionManageRoles has no role entry on purpose: only super_admin may
// administer role assignments.
var allow = map[Action][]Role{
	ActionCreateDossier:     {RoleAdminIntake},
	ActionEditDossier:       {RoleSecretary, RoleAdminDossier},
	ActionTransitionDossier: {RoleSecretary, RoleAdminDossier},
	ActionCreateMeeting:     {RoleSecretary, RoleAdminAgenda},
	ActionEditMeeting:       {RoleSecretary, RoleAdminAgenda},
	ActionTransitionMeeting: {RoleSecretary, RoleAdminAgenda},
	ActionManageAgenda:      {RoleSecretary, RoleAdminAgenda},
	ActionCreateTask:        {RoleSecretary, RoleDeputySecretary},
	ActionEditTask:          {RoleSecretary, RoleDeputySecretary},
	ActionTransitionTask:    {RoleSecretary, RoleDeputySecretary},
	ActionRecordDecision:    {RoleSecretary, RoleAdminReporting},
	ActionChairApprove:      {RoleChair},
	ActionFinalizeDecision:  {RoleChair},
	ActionViewAudit:         {RoleAuditReadonly},
	ActionManageRoles:       {},
}

// Principal is the authenticated caller's resolved identity. It is passed
// explicitly into every core operation; nothing reads ambient auth state.
type Principal struct {
	UserID     string
	Name       string
	Roles      []Role
	SuperAdmin bool
}

func (p Principal) HasRole(r Role) bool {
	for _, role := range p.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Can reports whether the principal may perform the action. Super-admin
// short-circuits every check. The gate decides only; it never mutates and
// raises no side effect.
func Can(p Principal, action Action) bool {
	if p.SuperAdmin || p.HasRole(RoleSuperAdmin) {
		return true
	}
	for _, role := range allow[action] {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// NewPrincipal builds a principal from raw role codes, discarding codes that
// are not part of the closed set.
func NewPrincipal(userID, name string, codes []string) Principal {
	p := Principal{UserID: userID, Name: name}
	for _, code := range codes {
		role := Role(code)
		if !ValidRole(role) {
			continue
		}
		p.Roles = append(p.Roles, role)
		if role == RoleSuperAdmin {
			p.SuperAdmin = true
		}
	}
	return p
}
