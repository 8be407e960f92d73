package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/pkg/notify"
	"github.com/AzielCF/aegisx/repository"
	"github.com/AzielCF/aegisx/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type emergencyService struct {
	repo          repository.IEmergencyRepository
	notifier      *notify.AdminNotifier
	now           func() time.Time
	sweepInterval time.Duration

	mu    sync.RWMutex
	modes map[string]domainEmergency.Mode // schoolID -> live mode
}

// NewEmergencyService builds the emergency controller. The in-memory map is
// authoritative for the decision path; persistence only serves restarts.
// The clock is injectable so auto-deactivation can be tested with simulated
// time.
func NewEmergencyService(repo repository.IEmergencyRepository, notifier *notify.AdminNotifier, now func() time.Time, sweepInterval time.Duration) domainEmergency.IEmergencyUsecase {
	if now == nil {
		now = time.Now
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Second
	}
	return &emergencyService{
		repo:          repo,
		notifier:      notifier,
		now:           now,
		sweepInterval: sweepInterval,
		modes:         make(map[string]domainEmergency.Mode),
	}
}

// Restore loads the persisted modes so a restart does not silently drop an
// active lockdown. Expired entries are reverted on load.
func (s *emergencyService) Restore(ctx context.Context) error {
	modes, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range modes {
		if m.ModeType == domainEmergency.ModeNormal {
			continue
		}
		if m.AutoDeactivateAt != nil && !now.Before(*m.AutoDeactivateAt) {
			logrus.Infof("[EMERGENCY] Mode %s for school %s expired while down, reverting to normal", m.ModeType, m.SchoolID)
			continue
		}
		s.modes[m.SchoolID] = m
		logrus.Warnf("[EMERGENCY] Restored live mode %s for school %s", m.ModeType, m.SchoolID)
	}
	return nil
}

func (s *emergencyService) Activate(ctx context.Context, req domainEmergency.ActivateRequest) (domainEmergency.Mode, error) {
	if err := validations.ValidateActivateEmergency(ctx, req); err != nil {
		return domainEmergency.Mode{}, err
	}

	if req.ModeType == domainEmergency.ModeNormal && req.AutoDeactivateMinutes > 0 {
		return domainEmergency.Mode{}, pkgError.InvalidTransitionError("normal mode cannot carry an auto-deactivation timer")
	}

	now := s.now()

	s.mu.Lock()
	current, live := s.modes[req.SchoolID]

	// Returning to normal while already normal is a documented no-op.
	if req.ModeType == domainEmergency.ModeNormal && (!live || current.ModeType == domainEmergency.ModeNormal) {
		s.mu.Unlock()
		return s.normalMode(req.SchoolID), nil
	}

	mode := domainEmergency.Mode{
		ID:               uuid.NewString(),
		SchoolID:         req.SchoolID,
		ModeType:         req.ModeType,
		IsActive:         req.ModeType != domainEmergency.ModeNormal,
		ActivatedBy:      req.ActivatedBy,
		ActivatedAt:      &now,
		ActivationReason: req.Reason,
	}
	if req.AutoDeactivateMinutes > 0 {
		deadline := now.Add(time.Duration(req.AutoDeactivateMinutes) * time.Minute)
		mode.AutoDeactivateAt = &deadline
	}

	if mode.ModeType == domainEmergency.ModeNormal {
		delete(s.modes, req.SchoolID)
	} else {
		s.modes[req.SchoolID] = mode
	}
	s.mu.Unlock()

	if live {
		logrus.Warnf("[EMERGENCY] School %s switched %s -> %s (by %s: %s)",
			req.SchoolID, current.ModeType, mode.ModeType, req.ActivatedBy, req.Reason)
	} else {
		logrus.Warnf("[EMERGENCY] School %s activated %s (by %s: %s)",
			req.SchoolID, mode.ModeType, req.ActivatedBy, req.Reason)
	}

	// Persistence failures must not undo an activation that is already live
	// in memory; they only cost the restart guarantee.
	if err := s.repo.Save(ctx, mode); err != nil {
		logrus.WithError(err).Errorf("[EMERGENCY] Failed persisting mode %s for school %s", mode.ModeType, mode.SchoolID)
	}

	if s.notifier != nil {
		go func(m domainEmergency.Mode) {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.notifier.Notify(notifyCtx, "emergency_mode_changed", map[string]any{
				"school_id":    m.SchoolID,
				"mode_type":    m.ModeType,
				"activated_by": m.ActivatedBy,
				"reason":       m.ActivationReason,
			}); err != nil {
				logrus.WithError(err).Warn("[EMERGENCY] Admin notification failed")
			}
		}(mode)
	}

	return mode, nil
}

// Current returns the live mode for the school. Expired modes are reverted
// lazily here so no caller ever observes a stale emergency.
func (s *emergencyService) Current(ctx context.Context, schoolID string) domainEmergency.Mode {
	s.mu.RLock()
	mode, ok := s.modes[schoolID]
	s.mu.RUnlock()

	if !ok {
		return s.normalMode(schoolID)
	}

	if mode.AutoDeactivateAt != nil && !s.now().Before(*mode.AutoDeactivateAt) {
		s.expire(schoolID, mode.ID)
		return s.normalMode(schoolID)
	}

	return mode
}

// StartSweeper reverts expired modes in the background so the state settles
// even when nobody asks. Mirror of the lazy check in Current; both paths are
// idempotent.
func (s *emergencyService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		logrus.Infof("[EMERGENCY] Expiry sweeper started (interval %s)", s.sweepInterval)
		for {
			select {
			case <-ctx.Done():
				logrus.Info("[EMERGENCY] Expiry sweeper stopped")
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *emergencyService) sweep() {
	now := s.now()

	s.mu.RLock()
	var expired []domainEmergency.Mode
	for _, m := range s.modes {
		if m.AutoDeactivateAt != nil && !now.Before(*m.AutoDeactivateAt) {
			expired = append(expired, m)
		}
	}
	s.mu.RUnlock()

	for _, m := range expired {
		s.expire(m.SchoolID, m.ID)
	}
}

// expire reverts a specific mode instance to normal. The ID check makes the
// operation a no-op when a concurrent Activate already replaced the mode.
func (s *emergencyService) expire(schoolID, modeID string) {
	s.mu.Lock()
	current, ok := s.modes[schoolID]
	if !ok || current.ID != modeID {
		s.mu.Unlock()
		return
	}
	delete(s.modes, schoolID)
	s.mu.Unlock()

	logrus.Warnf("[EMERGENCY] Mode %s for school %s auto-deactivated, back to normal", current.ModeType, schoolID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	normal := s.normalMode(schoolID)
	normal.ID = uuid.NewString()
	normal.ActivatedBy = "system"
	normal.ActivationReason = fmt.Sprintf("auto-deactivation of %s", current.ModeType)
	now := s.now()
	normal.ActivatedAt = &now
	if err := s.repo.Save(ctx, normal); err != nil {
		logrus.WithError(err).Errorf("[EMERGENCY] Failed persisting auto-deactivation for school %s", schoolID)
	}
}

func (s *emergencyService) normalMode(schoolID string) domainEmergency.Mode {
	return domainEmergency.Mode{
		SchoolID: schoolID,
		ModeType: domainEmergency.ModeNormal,
		IsActive: false,
	}
}
