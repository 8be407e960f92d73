package audit

import (
	"context"
	"time"

	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
)

// DecisionRecord is one append-only audit entry per evaluated attempt.
// Records are immutable after creation.
type DecisionRecord struct {
	ID                      string                   `json:"id"`
	SchoolID                string                   `json:"school_id"`
	AttemptID               string                   `json:"attempt_id"`
	CredentialID            string                   `json:"credential_id"`
	ReaderID                string                   `json:"reader_id"`
	LocationType            string                   `json:"location_type"`
	ResolvedRuleID          *string                  `json:"resolved_rule_id"`
	EmergencyModeAtDecision domainEmergency.ModeType `json:"emergency_mode_at_decision"`
	Action                  domainRule.Action        `json:"action"`
	Permitted               bool                     `json:"permitted"`
	PendingPin              bool                     `json:"pending_pin"`
	SideEffects             []string                 `json:"side_effects"`
	Timestamp               time.Time                `json:"timestamp"`
}

// Filter narrows List queries from the reporting UI.
type Filter struct {
	SchoolID     string
	CredentialID string
	ReaderID     string
	Action       string
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

// Stats is the aggregate view served by GET /audit/stats.
type Stats struct {
	Total          int64            `json:"total"`
	Permitted      int64            `json:"permitted"`
	Denied         int64            `json:"denied"`
	ByAction       map[string]int64 `json:"by_action"`
	OldestRecord   *time.Time       `json:"oldest_record,omitempty"`
	HumanTotalSize string           `json:"human_total_size,omitempty"`
}

type IAuditUsecase interface {
	// Record enqueues an audit write. It never blocks the caller on I/O;
	// failures are logged and retried asynchronously.
	Record(ctx context.Context, rec DecisionRecord)
	List(ctx context.Context, filter Filter) ([]DecisionRecord, error)
	Stats(ctx context.Context, schoolID string) (Stats, error)
	// CountEntriesToday counts today's permitted entries for a credential,
	// used for the max-entries-per-day dimension when the reader does not
	// supply a count.
	CountEntriesToday(ctx context.Context, schoolID, credentialID string) (int, error)
}
