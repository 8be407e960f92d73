package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeEmergencyRepo struct {
	mu    sync.Mutex
	saved []domainEmergency.Mode
	modes map[string]domainEmergency.Mode
}

func newFakeEmergencyRepo() *fakeEmergencyRepo {
	return &fakeEmergencyRepo{modes: make(map[string]domainEmergency.Mode)}
}

func (r *fakeEmergencyRepo) InitSchema(ctx context.Context) error { return nil }

func (r *fakeEmergencyRepo) Save(ctx context.Context, mode domainEmergency.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, mode)
	r.modes[mode.SchoolID] = mode
	return nil
}

func (r *fakeEmergencyRepo) Load(ctx context.Context, schoolID string) (*domainEmergency.Mode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modes[schoolID]; ok {
		return &m, nil
	}
	return nil, nil
}

func (r *fakeEmergencyRepo) LoadAll(ctx context.Context) ([]domainEmergency.Mode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domainEmergency.Mode, 0, len(r.modes))
	for _, m := range r.modes {
		out = append(out, m)
	}
	return out, nil
}

func TestEmergency_ActivateRequiresReason(t *testing.T) {
	svc := NewEmergencyService(newFakeEmergencyRepo(), nil, nil, 0)

	_, err := svc.Activate(context.Background(), domainEmergency.ActivateRequest{
		SchoolID: "school-1",
		ModeType: domainEmergency.ModeLockdown,
	})
	require.Error(t, err)
	assert.IsType(t, pkgError.ValidationError(""), err)
}

func TestEmergency_ActivateUnknownMode(t *testing.T) {
	svc := NewEmergencyService(newFakeEmergencyRepo(), nil, nil, 0)

	_, err := svc.Activate(context.Background(), domainEmergency.ActivateRequest{
		SchoolID: "school-1",
		ModeType: "panic",
		Reason:   "x",
	})
	require.Error(t, err)
	assert.IsType(t, pkgError.ValidationError(""), err)
}

func TestEmergency_NormalWhileNormalIsNoOp(t *testing.T) {
	svc := NewEmergencyService(newFakeEmergencyRepo(), nil, nil, 0)

	mode, err := svc.Activate(context.Background(), domainEmergency.ActivateRequest{
		SchoolID: "school-1",
		ModeType: domainEmergency.ModeNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, domainEmergency.ModeNormal, mode.ModeType)
	assert.False(t, mode.IsActive)
}

func TestEmergency_ActivateAndReplace(t *testing.T) {
	svc := NewEmergencyService(newFakeEmergencyRepo(), nil, nil, 0)
	ctx := context.Background()

	first, err := svc.Activate(ctx, domainEmergency.ActivateRequest{
		SchoolID:    "school-1",
		ModeType:    domainEmergency.ModeSilentMode,
		Reason:      "intruder report",
		ActivatedBy: "principal",
	})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	second, err := svc.Activate(ctx, domainEmergency.ActivateRequest{
		SchoolID:    "school-1",
		ModeType:    domainEmergency.ModeLockdown,
		Reason:      "confirmed intruder",
		ActivatedBy: "principal",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	current := svc.Current(ctx, "school-1")
	assert.Equal(t, domainEmergency.ModeLockdown, current.ModeType)
	assert.Equal(t, "confirmed intruder", current.ActivationReason)
}

func TestEmergency_AutoDeactivation(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	svc := NewEmergencyService(newFakeEmergencyRepo(), nil, clock.Now, 0)
	ctx := context.Background()

	_, err := svc.Activate(ctx, domainEmergency.ActivateRequest{
		SchoolID:              "school-1",
		ModeType:              domainEmergency.ModeLockdown,
		Reason:                "drill",
		ActivatedBy:           "principal",
		AutoDeactivateMinutes: 1,
	})
	require.NoError(t, err)

	// Still live just before the deadline
	clock.Advance(59 * time.Second)
	assert.Equal(t, domainEmergency.ModeLockdown, svc.Current(ctx, "school-1").ModeType)

	// Past the deadline the lazy check reverts to normal
	clock.Advance(2 * time.Second)
	assert.Equal(t, domainEmergency.ModeNormal, svc.Current(ctx, "school-1").ModeType)

	// Idempotent: a second read stays normal
	assert.Equal(t, domainEmergency.ModeNormal, svc.Current(ctx, "school-1").ModeType)
}

func TestEmergency_NormalCannotCarryTimer(t *testing.T) {
	svc := NewEmergencyService(newFakeEmergencyRepo(), nil, nil, 0)

	_, err := svc.Activate(context.Background(), domainEmergency.ActivateRequest{
		SchoolID:              "school-1",
		ModeType:              domainEmergency.ModeNormal,
		AutoDeactivateMinutes: 5,
	})
	require.Error(t, err)
	assert.IsType(t, pkgError.InvalidTransitionError(""), err)
}

func TestEmergency_RestoreSkipsExpired(t *testing.T) {
	repo := newFakeEmergencyRepo()
	clock := newFakeClock(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))

	past := clock.Now().Add(-time.Minute)
	activated := clock.Now().Add(-time.Hour)
	repo.modes["school-1"] = domainEmergency.Mode{
		ID:               "old",
		SchoolID:         "school-1",
		ModeType:         domainEmergency.ModeExamMode,
		IsActive:         true,
		ActivatedAt:      &activated,
		AutoDeactivateAt: &past,
	}
	repo.modes["school-2"] = domainEmergency.Mode{
		ID:          "live",
		SchoolID:    "school-2",
		ModeType:    domainEmergency.ModeLockdown,
		IsActive:    true,
		ActivatedAt: &activated,
	}

	svc := NewEmergencyService(repo, nil, clock.Now, 0)
	require.NoError(t, svc.Restore(context.Background()))

	assert.Equal(t, domainEmergency.ModeNormal, svc.Current(context.Background(), "school-1").ModeType)
	assert.Equal(t, domainEmergency.ModeLockdown, svc.Current(context.Background(), "school-2").ModeType)
}

func TestEmergency_IsolatedPerSchool(t *testing.T) {
	svc := NewEmergencyService(newFakeEmergencyRepo(), nil, nil, 0)
	ctx := context.Background()

	_, err := svc.Activate(ctx, domainEmergency.ActivateRequest{
		SchoolID:    "school-1",
		ModeType:    domainEmergency.ModeLockdown,
		Reason:      "drill",
		ActivatedBy: "principal",
	})
	require.NoError(t, err)

	assert.Equal(t, domainEmergency.ModeLockdown, svc.Current(ctx, "school-1").ModeType)
	assert.Equal(t, domainEmergency.ModeNormal, svc.Current(ctx, "school-2").ModeType)
}
