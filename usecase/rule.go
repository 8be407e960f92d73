package usecase

import (
	"context"
	"sync"
	"time"

	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/AzielCF/aegisx/repository"
	"github.com/AzielCF/aegisx/validations"
	"github.com/sirupsen/logrus"
)

type cachedSnapshot struct {
	rules     []domainRule.AccessRule
	fetchedAt time.Time
}

type ruleService struct {
	repo     repository.IRuleRepository
	cacheTTL time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedSnapshot // schoolID -> active rules
}

// NewRuleService builds the rule service with an in-memory snapshot cache.
// The cache keeps the decision path off the database; it is invalidated on
// every write and refreshed at most once per TTL otherwise.
func NewRuleService(repo repository.IRuleRepository, cacheTTL time.Duration) domainRule.IRuleUsecase {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	return &ruleService{
		repo:     repo,
		cacheTTL: cacheTTL,
		now:      time.Now,
		cache:    make(map[string]cachedSnapshot),
	}
}

func (s *ruleService) Create(ctx context.Context, req domainRule.CreateRuleRequest) (domainRule.AccessRule, error) {
	if err := validations.ValidateCreateRule(ctx, req); err != nil {
		return domainRule.AccessRule{}, err
	}

	r := domainRule.AccessRule{
		SchoolID:        req.SchoolID,
		Name:            req.Name,
		Description:     req.Description,
		RuleType:        req.RuleType,
		Conditions:      req.Conditions,
		Action:          req.Action,
		Priority:        req.Priority,
		IsActive:        req.IsActive,
		IsEmergencyRule: req.IsEmergencyRule,
	}

	if err := s.repo.Create(ctx, &r); err != nil {
		return domainRule.AccessRule{}, err
	}

	s.invalidate(r.SchoolID)
	logrus.Infof("[RULES] Created rule %s (%s) for school %s", r.ID, r.RuleType, r.SchoolID)
	return r, nil
}

func (s *ruleService) GetByID(ctx context.Context, id string) (domainRule.AccessRule, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainRule.AccessRule{}, err
	}
	return *r, nil
}

func (s *ruleService) List(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error) {
	return s.repo.List(ctx, schoolID)
}

func (s *ruleService) Update(ctx context.Context, id string, req domainRule.UpdateRuleRequest) (domainRule.AccessRule, error) {
	if err := validations.ValidateUpdateRule(ctx, req); err != nil {
		return domainRule.AccessRule{}, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainRule.AccessRule{}, err
	}

	r := *existing
	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.RuleType != nil {
		r.RuleType = *req.RuleType
	}
	if req.Conditions != nil {
		r.Conditions = *req.Conditions
	}
	if req.Action != nil {
		r.Action = *req.Action
	}
	if req.Priority != nil {
		r.Priority = *req.Priority
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	if req.IsEmergencyRule != nil {
		r.IsEmergencyRule = *req.IsEmergencyRule
	}

	if err := s.repo.Update(ctx, &r); err != nil {
		return domainRule.AccessRule{}, err
	}

	s.invalidate(r.SchoolID)
	logrus.Infof("[RULES] Updated rule %s for school %s", r.ID, r.SchoolID)
	return r, nil
}

func (s *ruleService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(existing.SchoolID)
	logrus.Infof("[RULES] Deleted rule %s for school %s", id, existing.SchoolID)
	return nil
}

// Snapshot returns the active rules for a school, served from cache while
// fresh. A failed refresh keeps serving the last-known snapshot so a storage
// hiccup does not take the decision path down with it.
func (s *ruleService) Snapshot(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error) {
	s.mu.RLock()
	snap, ok := s.cache[schoolID]
	s.mu.RUnlock()

	if ok && s.now().Sub(snap.fetchedAt) < s.cacheTTL {
		return snap.rules, nil
	}

	rules, err := s.repo.ListActive(ctx, schoolID)
	if err != nil {
		if ok {
			logrus.WithError(err).Warnf("[RULES] Refresh failed for school %s, serving snapshot from %s",
				schoolID, snap.fetchedAt.Format(time.RFC3339))
			return snap.rules, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[schoolID] = cachedSnapshot{rules: rules, fetchedAt: s.now()}
	s.mu.Unlock()
	return rules, nil
}

func (s *ruleService) invalidate(schoolID string) {
	s.mu.Lock()
	delete(s.cache, schoolID)
	s.mu.Unlock()
}
