package usecase

import (
	"context"
	"errors"
	"time"

	domainAudit "github.com/AzielCF/aegisx/domains/audit"
	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/AzielCF/aegisx/engine"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/pkg/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type decisionService struct {
	ruleUC      domainRule.IRuleUsecase
	emergencyUC domainEmergency.IEmergencyUsecase
	auditUC     domainAudit.IAuditUsecase
	pending     domainDecision.PendingStore
	notifier    *notify.AdminNotifier

	pinTTL         time.Duration
	storageTimeout time.Duration
	now            func() time.Time
}

// NewDecisionService wires the evaluation path. Readers call Decide on every
// badge presentation; it must answer fast and must never propagate internal
// errors (any failure collapses to a fail-closed deny).
func NewDecisionService(
	ruleUC domainRule.IRuleUsecase,
	emergencyUC domainEmergency.IEmergencyUsecase,
	auditUC domainAudit.IAuditUsecase,
	pending domainDecision.PendingStore,
	notifier *notify.AdminNotifier,
	pinTTL time.Duration,
	storageTimeout time.Duration,
) domainDecision.IDecisionUsecase {
	if pinTTL <= 0 {
		pinTTL = 90 * time.Second
	}
	if storageTimeout <= 0 {
		storageTimeout = 1500 * time.Millisecond
	}
	return &decisionService{
		ruleUC:         ruleUC,
		emergencyUC:    emergencyUC,
		auditUC:        auditUC,
		pending:        pending,
		notifier:       notifier,
		pinTTL:         pinTTL,
		storageTimeout: storageTimeout,
		now:            time.Now,
	}
}

func (s *decisionService) Decide(ctx context.Context, attempt domainDecision.Attempt) (domainDecision.Result, error) {
	attemptID := uuid.NewString()
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = s.now().UTC()
	}

	mode := s.emergencyUC.Current(ctx, attempt.SchoolID).ModeType

	// A negative count means the reader does not track entries; fill it from
	// the audit sink so the max-entries-per-day dimension stays enforceable.
	if attempt.EntriesSoFarToday < 0 {
		countCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
		n, err := s.auditUC.CountEntriesToday(countCtx, attempt.SchoolID, attempt.CredentialID)
		cancel()
		if err != nil {
			logrus.WithError(err).Errorf("[ENGINE] Entry count unavailable for credential %s", attempt.CredentialID)
			return s.failClosed(ctx, attemptID, attempt, mode), nil
		}
		attempt.EntriesSoFarToday = n
	}

	snapCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	rules, err := s.ruleUC.Snapshot(snapCtx, attempt.SchoolID)
	cancel()
	if err != nil {
		logrus.WithError(err).Errorf("[ENGINE] Rule snapshot unavailable for school %s", attempt.SchoolID)
		return s.failClosed(ctx, attemptID, attempt, mode), nil
	}

	resolution := engine.Resolve(mode, engine.CompileSet(rules), attempt)

	result := domainDecision.Result{
		AttemptID:               attemptID,
		Action:                  resolution.Action,
		ResolvedRuleID:          resolution.ResolvedRuleID,
		EmergencyModeAtDecision: mode,
		RequiresPin:             resolution.RequiresPin,
		SideEffects:             []domainDecision.SideEffect{domainDecision.EffectAuditWrite},
		Timestamp:               attempt.Timestamp,
	}

	switch resolution.Action {
	case domainRule.ActionAlert:
		if resolution.SuppressAudibleAlert {
			// Silent mode mutes the reader, not the admins.
			result.SideEffects = append(result.SideEffects,
				domainDecision.EffectAlertSuppressed, domainDecision.EffectAdminNotification)
			s.notifyAsync("access_alert_suppressed", map[string]any{
				"school_id":     attempt.SchoolID,
				"credential_id": attempt.CredentialID,
				"reader_id":     attempt.ReaderID,
				"rule_id":       resolution.ResolvedRuleID,
			})
			logrus.Debugf("[ALERT] Suppressed audible alert for credential %s at %s (silent mode)",
				attempt.CredentialID, attempt.ReaderID)
		} else {
			result.SideEffects = append(result.SideEffects, domainDecision.EffectAlert)
			logrus.Warnf("[ALERT] Credential %s triggered alert at reader %s", attempt.CredentialID, attempt.ReaderID)
		}
	case domainRule.ActionNotifyAdmin:
		result.SideEffects = append(result.SideEffects, domainDecision.EffectAdminNotification)
		s.notifyAsync("access_notify_admin", map[string]any{
			"school_id":     attempt.SchoolID,
			"credential_id": attempt.CredentialID,
			"reader_id":     attempt.ReaderID,
			"rule_id":       resolution.ResolvedRuleID,
		})
	}

	if resolution.RequiresPin {
		result.Permitted = false
		result.SideEffects = append(result.SideEffects, domainDecision.EffectPinChallenge)

		ruleID := ""
		if resolution.ResolvedRuleID != nil {
			ruleID = *resolution.ResolvedRuleID
		}
		putCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
		err := s.pending.Put(putCtx, attemptID, attempt, ruleID, s.pinTTL)
		cancel()
		if err != nil {
			logrus.WithError(err).Errorf("[ENGINE] Pending store unavailable for attempt %s", attemptID)
			return s.failClosed(ctx, attemptID, attempt, mode), nil
		}
	} else {
		result.Permitted = engine.Permits(resolution.Action)
	}

	s.auditUC.Record(ctx, s.toRecord(attempt, result, resolution.RequiresPin))
	return result, nil
}

func (s *decisionService) FinalizePin(ctx context.Context, attemptID string, pinOK bool) (domainDecision.Result, error) {
	takeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	attempt, ruleID, err := s.pending.Take(takeCtx, attemptID)
	cancel()
	if err != nil {
		if errors.Is(err, domainDecision.ErrPendingNotFound) {
			return domainDecision.Result{}, pkgError.NotFoundError("pending attempt not found or expired")
		}
		return domainDecision.Result{}, pkgError.StorageUnavailableError("pending store unavailable")
	}

	// The mode may have changed between the two phases; a lockdown activated
	// in the meantime still wins over a correct PIN.
	mode := s.emergencyUC.Current(ctx, attempt.SchoolID).ModeType
	permitted := pinOK && mode != domainEmergency.ModeLockdown

	// The challenge phase already recorded require_pin; the second phase
	// settles to a plain allow or deny.
	finalAction := domainRule.ActionDeny
	if permitted {
		finalAction = domainRule.ActionAllow
	}

	var ruleRef *string
	if ruleID != "" {
		ruleRef = &ruleID
	}

	result := domainDecision.Result{
		AttemptID:               attemptID,
		Action:                  finalAction,
		ResolvedRuleID:          ruleRef,
		EmergencyModeAtDecision: mode,
		Permitted:               permitted,
		RequiresPin:             false,
		SideEffects:             []domainDecision.SideEffect{domainDecision.EffectAuditWrite},
		Timestamp:               s.now().UTC(),
	}

	if !pinOK {
		result.SideEffects = append(result.SideEffects, domainDecision.EffectAlert)
		logrus.Warnf("[ALERT] Wrong PIN for attempt %s (credential %s at %s)",
			attemptID, attempt.CredentialID, attempt.ReaderID)
	}

	s.auditUC.Record(ctx, s.toRecord(attempt, result, false))
	return result, nil
}

// failClosed is the single answer to every internal failure on the decision
// path: deny, tag the record, wake an admin.
func (s *decisionService) failClosed(ctx context.Context, attemptID string, attempt domainDecision.Attempt, mode domainEmergency.ModeType) domainDecision.Result {
	result := domainDecision.Result{
		AttemptID:               attemptID,
		Action:                  domainRule.ActionDeny,
		ResolvedRuleID:          nil,
		EmergencyModeAtDecision: mode,
		Permitted:               false,
		RequiresPin:             false,
		SideEffects: []domainDecision.SideEffect{
			domainDecision.EffectAuditWrite,
			domainDecision.EffectStorageUnavailable,
			domainDecision.EffectAdminNotification,
		},
		Timestamp: attempt.Timestamp,
	}

	s.notifyAsync("decision_storage_unavailable", map[string]any{
		"school_id":     attempt.SchoolID,
		"credential_id": attempt.CredentialID,
		"reader_id":     attempt.ReaderID,
		"attempt_id":    attemptID,
	})

	s.auditUC.Record(ctx, s.toRecord(attempt, result, false))
	return result
}

func (s *decisionService) notifyAsync(event string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, event, payload); err != nil {
			logrus.WithError(err).Warnf("[ENGINE] Admin notification %s failed", event)
		}
	}()
}

func (s *decisionService) toRecord(attempt domainDecision.Attempt, result domainDecision.Result, pendingPin bool) domainAudit.DecisionRecord {
	effects := make([]string, len(result.SideEffects))
	for i, e := range result.SideEffects {
		effects[i] = string(e)
	}
	return domainAudit.DecisionRecord{
		ID:                      uuid.NewString(),
		SchoolID:                attempt.SchoolID,
		AttemptID:               result.AttemptID,
		CredentialID:            attempt.CredentialID,
		ReaderID:                attempt.ReaderID,
		LocationType:            attempt.LocationType,
		ResolvedRuleID:          result.ResolvedRuleID,
		EmergencyModeAtDecision: result.EmergencyModeAtDecision,
		Action:                  result.Action,
		Permitted:               result.Permitted,
		PendingPin:              pendingPin,
		SideEffects:             effects,
		Timestamp:               result.Timestamp,
	}
}
