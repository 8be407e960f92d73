package emergency

import (
	"context"
	"time"
)

// ModeType is the emergency mode of a school. normal means no override.
type ModeType string

const (
	ModeNormal          ModeType = "normal"
	ModeLockdown        ModeType = "lockdown"
	ModeEmergencyUnlock ModeType = "emergency_unlock"
	ModeSilentMode      ModeType = "silent_mode"
	ModeExamMode        ModeType = "exam_mode"
	ModeEvacuation      ModeType = "evacuation"
)

// Mode is the live emergency-mode snapshot of a school. At most one mode is
// live per school; activating a new one replaces the previous instance.
type Mode struct {
	ID               string     `json:"id"`
	SchoolID         string     `json:"school_id"`
	ModeType         ModeType   `json:"mode_type"`
	IsActive         bool       `json:"is_active"`
	ActivatedBy      string     `json:"activated_by,omitempty"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	ActivationReason string     `json:"activation_reason,omitempty"`
	AutoDeactivateAt *time.Time `json:"auto_deactivate_at,omitempty"`
}

type ActivateRequest struct {
	SchoolID              string   `json:"school_id"`
	ModeType              ModeType `json:"mode_type"`
	Reason                string   `json:"reason"`
	ActivatedBy           string   `json:"activated_by"`
	AutoDeactivateMinutes int      `json:"auto_deactivate_minutes,omitempty"`
}

type IEmergencyUsecase interface {
	// Restore reloads persisted modes at boot so an active lockdown
	// survives a restart.
	Restore(ctx context.Context) error
	// Activate replaces the live mode atomically. Requesting normal while
	// already normal is a documented no-op returning the current snapshot.
	Activate(ctx context.Context, req ActivateRequest) (Mode, error)
	// Current returns the live snapshot after the lazy expiry check; it
	// never blocks on I/O.
	Current(ctx context.Context, schoolID string) Mode
	// StartSweeper runs the background expiry sweep until ctx is done.
	StartSweeper(ctx context.Context)
}

// Valid reports whether the mode type is one of the known modes.
func (m ModeType) Valid() bool {
	switch m {
	case ModeNormal, ModeLockdown, ModeEmergencyUnlock, ModeSilentMode, ModeExamMode, ModeEvacuation:
		return true
	}
	return false
}
