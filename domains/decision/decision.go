package decision

import (
	"context"
	"time"

	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
)

// SubjectRole identifies who presented the credential.
type SubjectRole string

const (
	RoleStudent SubjectRole = "student"
	RoleStaff   SubjectRole = "staff"
)

// Attempt is one presentation of a credential at a reader: the unit of
// evaluation. It is transient, never persisted as its own entity.
type Attempt struct {
	SchoolID       string      `json:"school_id"`
	CredentialID   string      `json:"credential_id"`
	ReaderID       string      `json:"reader_id"`
	LocationType   string      `json:"location_type"`
	Timestamp      time.Time   `json:"timestamp"`
	SubjectRole    SubjectRole `json:"subject_role"`
	SubjectGrade   string      `json:"subject_grade,omitempty"`
	SubjectClassID string      `json:"subject_class_id,omitempty"`
	// EntriesSoFarToday is supplied by the caller; when negative the
	// engine computes it from the audit sink.
	EntriesSoFarToday int `json:"entries_so_far_today"`
}

// SideEffect tags the side effects a decision triggered.
type SideEffect string

const (
	EffectAuditWrite         SideEffect = "audit_write"
	EffectAlert              SideEffect = "alert"
	EffectAlertSuppressed    SideEffect = "alert_suppressed"
	EffectAdminNotification  SideEffect = "admin_notification"
	EffectPinChallenge       SideEffect = "pin_challenge"
	EffectStorageUnavailable SideEffect = "storage_unavailable"
)

// Result is what a reader gets back. RequiresPin=true means entry is not yet
// permitted: the reader must collect a PIN and call FinalizePin.
type Result struct {
	AttemptID               string                   `json:"attempt_id"`
	Action                  domainRule.Action        `json:"action"`
	ResolvedRuleID          *string                  `json:"resolved_rule_id"`
	EmergencyModeAtDecision domainEmergency.ModeType `json:"emergency_mode_at_decision"`
	Permitted               bool                     `json:"permitted"`
	RequiresPin             bool                     `json:"requires_pin"`
	SideEffects             []SideEffect             `json:"side_effects"`
	Timestamp               time.Time                `json:"timestamp"`
}

type PinRequest struct {
	PinOK bool `json:"pin_ok"`
}

type IDecisionUsecase interface {
	// Decide evaluates one attempt and returns the decision. It never
	// returns internal evaluation errors: any failure collapses to a
	// fail-closed deny.
	Decide(ctx context.Context, attempt Attempt) (Result, error)
	// FinalizePin resolves a pending require_pin decision.
	FinalizePin(ctx context.Context, attemptID string, pinOK bool) (Result, error)
}

// PendingStore keeps require_pin attempts between the two decision phases.
// Implementations are TTL-bounded; expired attempts finalize as not found.
type PendingStore interface {
	Put(ctx context.Context, attemptID string, attempt Attempt, ruleID string, ttl time.Duration) error
	Take(ctx context.Context, attemptID string) (attempt Attempt, ruleID string, err error)
}
