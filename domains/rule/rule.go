package rule

import (
	"context"
	"time"
)

// RuleType determines which condition fields are meaningful for a rule.
type RuleType string

const (
	TypeTimeBased     RuleType = "time_based"
	TypeClassBased    RuleType = "class_based"
	TypeRoleBased     RuleType = "role_based"
	TypeLocationBased RuleType = "location_based"
	TypeGradeBased    RuleType = "grade_based"
	TypeEmergency     RuleType = "emergency"
	TypeExamMode      RuleType = "exam_mode"
	TypeLockdown      RuleType = "lockdown"
	TypeSilentMode    RuleType = "silent_mode"
)

// Action is the outcome a matching rule produces. Everything except deny
// ultimately permits entry; they differ in side effects.
type Action string

const (
	ActionAllow       Action = "allow"
	ActionDeny        Action = "deny"
	ActionAlert       Action = "alert"
	ActionSilentLog   Action = "silent_log"
	ActionRequirePin  Action = "require_pin"
	ActionNotifyAdmin Action = "notify_admin"
)

// RoleConstraint restricts a role_based rule to a subject role.
type RoleConstraint string

const (
	RoleAllowAll     RoleConstraint = "allow_all"
	RoleStaffOnly    RoleConstraint = "staff_only"
	RoleStudentsOnly RoleConstraint = "students_only"
)

// Conditions is the optional condition bag attached to a rule. Absent fields
// are unconstrained (wildcard on that dimension). The engine compiles this
// into typed per-dimension conditions before evaluation.
type Conditions struct {
	TimeWindow           *TimeWindow    `json:"time_window,omitempty"`
	AllowedDays          []int          `json:"allowed_days,omitempty"` // 0=Sunday .. 6=Saturday
	BlockedLocationTypes []string       `json:"blocked_location_types,omitempty"`
	AllowedGrades        []string       `json:"allowed_grades,omitempty"`
	AllowedClasses       []string       `json:"allowed_classes,omitempty"`
	MaxEntriesPerDay     *int           `json:"max_entries_per_day,omitempty"`
	RequirePin           bool           `json:"require_pin,omitempty"`
	RoleConstraint       RoleConstraint `json:"role_constraint,omitempty"`
}

// TimeWindow holds a "HH:MM" pair. end < start means the window wraps past
// midnight (e.g. 22:00-06:00).
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AccessRule is one prioritized, conditional access rule for a school.
type AccessRule struct {
	ID              string     `json:"id"`
	SchoolID        string     `json:"school_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	RuleType        RuleType   `json:"rule_type"`
	Conditions      Conditions `json:"conditions"`
	Action          Action     `json:"action"`
	Priority        int        `json:"priority"`
	IsActive        bool       `json:"is_active"`
	IsEmergencyRule bool       `json:"is_emergency_rule"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CreateRuleRequest struct {
	SchoolID        string     `json:"school_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	RuleType        RuleType   `json:"rule_type"`
	Conditions      Conditions `json:"conditions"`
	Action          Action     `json:"action"`
	Priority        int        `json:"priority"`
	IsActive        bool       `json:"is_active"`
	IsEmergencyRule bool       `json:"is_emergency_rule"`
}

// UpdateRuleRequest carries partial updates; nil pointers leave the field
// untouched (the UI sends PATCH with only the toggled fields).
type UpdateRuleRequest struct {
	Name            *string     `json:"name,omitempty"`
	Description     *string     `json:"description,omitempty"`
	RuleType        *RuleType   `json:"rule_type,omitempty"`
	Conditions      *Conditions `json:"conditions,omitempty"`
	Action          *Action     `json:"action,omitempty"`
	Priority        *int        `json:"priority,omitempty"`
	IsActive        *bool       `json:"is_active,omitempty"`
	IsEmergencyRule *bool       `json:"is_emergency_rule,omitempty"`
}

type IRuleUsecase interface {
	Create(ctx context.Context, req CreateRuleRequest) (AccessRule, error)
	GetByID(ctx context.Context, id string) (AccessRule, error)
	List(ctx context.Context, schoolID string) ([]AccessRule, error)
	Update(ctx context.Context, id string, req UpdateRuleRequest) (AccessRule, error)
	Delete(ctx context.Context, id string) error
	// Snapshot returns the active rules for a school from the in-memory
	// cache. It never fails once a cache exists; a storage outage serves
	// the last-known snapshot.
	Snapshot(ctx context.Context, schoolID string) ([]AccessRule, error)
}

// ValidTypes lists every accepted rule type, for validation.
var ValidTypes = []RuleType{
	TypeTimeBased, TypeClassBased, TypeRoleBased, TypeLocationBased,
	TypeGradeBased, TypeEmergency, TypeExamMode, TypeLockdown, TypeSilentMode,
}

// ValidActions lists every accepted action, for validation.
var ValidActions = []Action{
	ActionAllow, ActionDeny, ActionAlert, ActionSilentLog,
	ActionRequirePin, ActionNotifyAdmin,
}
