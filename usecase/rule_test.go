package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuleRepo struct {
	mu      sync.Mutex
	rules   map[string]domainRule.AccessRule
	listErr error
	lists   int
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[string]domainRule.AccessRule)}
}

func (r *fakeRuleRepo) InitSchema(ctx context.Context) error { return nil }

func (r *fakeRuleRepo) Create(ctx context.Context, rule *domainRule.AccessRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == "" {
		rule.ID = rule.Name
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeRuleRepo) GetByID(ctx context.Context, id string) (*domainRule.AccessRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule, ok := r.rules[id]; ok {
		return &rule, nil
	}
	return nil, domainRule.ErrRuleNotFound
}

func (r *fakeRuleRepo) List(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error) {
	return r.ListActive(ctx, schoolID)
}

func (r *fakeRuleRepo) ListActive(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domainRule.AccessRule
	for _, rule := range r.rules {
		if rule.SchoolID == schoolID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Update(ctx context.Context, rule *domainRule.AccessRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return domainRule.ErrRuleNotFound
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeRuleRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

func (r *fakeRuleRepo) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists
}

func (r *fakeRuleRepo) failListing(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listErr = err
}

func TestRule_CreateRejectsInvalid(t *testing.T) {
	svc := NewRuleService(newFakeRuleRepo(), time.Minute)

	_, err := svc.Create(context.Background(), domainRule.CreateRuleRequest{
		SchoolID: "school-1",
		Name:     "bad",
		RuleType: "teleport_based",
		Action:   domainRule.ActionAllow,
	})
	require.Error(t, err)
}

func TestRule_SnapshotCached(t *testing.T) {
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, time.Minute)
	ctx := context.Background()

	_, err := svc.Create(ctx, domainRule.CreateRuleRequest{
		SchoolID: "school-1",
		Name:     "open doors",
		RuleType: domainRule.TypeTimeBased,
		Action:   domainRule.ActionAllow,
		IsActive: true,
	})
	require.NoError(t, err)

	_, err = svc.Snapshot(ctx, "school-1")
	require.NoError(t, err)
	first := repo.listCalls()

	// Second read inside the TTL stays on the cache
	_, err = svc.Snapshot(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, first, repo.listCalls())
}

func TestRule_SnapshotInvalidatedOnWrite(t *testing.T) {
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, time.Minute)
	ctx := context.Background()

	created, err := svc.Create(ctx, domainRule.CreateRuleRequest{
		SchoolID: "school-1",
		Name:     "open doors",
		RuleType: domainRule.TypeTimeBased,
		Action:   domainRule.ActionAllow,
		IsActive: true,
	})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "school-1")
	require.NoError(t, err)
	require.Len(t, snap, 1)

	inactive := false
	_, err = svc.Update(ctx, created.ID, domainRule.UpdateRuleRequest{IsActive: &inactive})
	require.NoError(t, err)

	// The write dropped the cache; the next snapshot sees the change
	before := repo.listCalls()
	_, err = svc.Snapshot(ctx, "school-1")
	require.NoError(t, err)
	assert.Greater(t, repo.listCalls(), before)
}

func TestRule_SnapshotServesStaleOnFailure(t *testing.T) {
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, time.Nanosecond) // force refresh on every call
	ctx := context.Background()

	_, err := svc.Create(ctx, domainRule.CreateRuleRequest{
		SchoolID: "school-1",
		Name:     "open doors",
		RuleType: domainRule.TypeTimeBased,
		Action:   domainRule.ActionAllow,
		IsActive: true,
	})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "school-1")
	require.NoError(t, err)
	require.Len(t, snap, 1)

	repo.failListing(errors.New("db down"))

	stale, err := svc.Snapshot(ctx, "school-1")
	require.NoError(t, err, "a failed refresh serves the last-known snapshot")
	assert.Equal(t, snap, stale)
}

func TestRule_SnapshotErrorsWithoutCache(t *testing.T) {
	repo := newFakeRuleRepo()
	repo.failListing(errors.New("db down"))
	svc := NewRuleService(repo, time.Minute)

	_, err := svc.Snapshot(context.Background(), "school-1")
	require.Error(t, err)
}
