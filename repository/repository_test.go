package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	domainAudit "github.com/AzielCF/aegisx/domains/audit"
	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "aegisx_test.db")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func TestRuleRepo_CRUD(t *testing.T) {
	repo := NewRuleGormRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.InitSchema(ctx))

	cap := 3
	rule := domainRule.AccessRule{
		SchoolID: "school-1",
		Name:     "school hours",
		RuleType: domainRule.TypeTimeBased,
		Conditions: domainRule.Conditions{
			TimeWindow:       &domainRule.TimeWindow{Start: "07:00", End: "18:00"},
			AllowedDays:      []int{1, 2, 3, 4, 5},
			MaxEntriesPerDay: &cap,
		},
		Action:   domainRule.ActionAllow,
		Priority: 10,
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, &rule))
	require.NotEmpty(t, rule.ID)

	loaded, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Name, loaded.Name)
	require.NotNil(t, loaded.Conditions.TimeWindow)
	assert.Equal(t, "07:00", loaded.Conditions.TimeWindow.Start)
	require.NotNil(t, loaded.Conditions.MaxEntriesPerDay)
	assert.Equal(t, 3, *loaded.Conditions.MaxEntriesPerDay)

	loaded.Priority = 50
	require.NoError(t, repo.Update(ctx, loaded))
	again, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, again.Priority)

	require.NoError(t, repo.Delete(ctx, rule.ID))
	_, err = repo.GetByID(ctx, rule.ID)
	assert.ErrorIs(t, err, domainRule.ErrRuleNotFound)
}

func TestRuleRepo_NotFound(t *testing.T) {
	repo := NewRuleGormRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.InitSchema(ctx))

	_, err := repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domainRule.ErrRuleNotFound)

	err = repo.Update(ctx, &domainRule.AccessRule{ID: "nope", SchoolID: "school-1"})
	assert.ErrorIs(t, err, domainRule.ErrRuleNotFound)

	err = repo.Delete(ctx, "nope")
	assert.ErrorIs(t, err, domainRule.ErrRuleNotFound)
}

func TestRuleRepo_ListOrderedAndFiltered(t *testing.T) {
	repo := NewRuleGormRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.InitSchema(ctx))

	mk := func(id string, priority int, active bool) {
		r := domainRule.AccessRule{
			ID:       id,
			SchoolID: "school-1",
			Name:     id,
			RuleType: domainRule.TypeTimeBased,
			Action:   domainRule.ActionAllow,
			Priority: priority,
			IsActive: active,
		}
		require.NoError(t, repo.Create(ctx, &r))
	}
	mk("b", 10, true)
	mk("a", 10, true)
	mk("c", 50, true)
	mk("d", 99, false)

	other := domainRule.AccessRule{
		ID: "z", SchoolID: "school-2", Name: "z",
		RuleType: domainRule.TypeTimeBased, Action: domainRule.ActionAllow, IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, &other))

	all, err := repo.List(ctx, "school-1")
	require.NoError(t, err)
	require.Len(t, all, 4)
	// priority DESC, empates por id ASC
	assert.Equal(t, []string{"d", "c", "a", "b"}, []string{all[0].ID, all[1].ID, all[2].ID, all[3].ID})

	active, err := repo.ListActive(ctx, "school-1")
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "c", active[0].ID)
}

func TestRuleRepo_DuplicateID(t *testing.T) {
	repo := NewRuleGormRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.InitSchema(ctx))

	r1 := domainRule.AccessRule{ID: "dup", SchoolID: "school-1", Name: "uno",
		RuleType: domainRule.TypeTimeBased, Action: domainRule.ActionAllow}
	require.NoError(t, repo.Create(ctx, &r1))

	r2 := domainRule.AccessRule{ID: "dup", SchoolID: "school-1", Name: "dos",
		RuleType: domainRule.TypeTimeBased, Action: domainRule.ActionAllow}
	err := repo.Create(ctx, &r2)
	assert.ErrorIs(t, err, domainRule.ErrDuplicateRule)
}

func TestEmergencyRepo_UpsertPerSchool(t *testing.T) {
	repo := NewEmergencyGormRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.InitSchema(ctx))

	now := time.Now().UTC()
	require.NoError(t, repo.Save(ctx, domainEmergency.Mode{
		ID: "m1", SchoolID: "school-1", ModeType: domainEmergency.ModeLockdown,
		ActivatedBy: "principal", ActivatedAt: &now, ActivationReason: "drill",
	}))

	loaded, err := repo.Load(ctx, "school-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domainEmergency.ModeLockdown, loaded.ModeType)
	assert.True(t, loaded.IsActive)

	// Replace keeps a single row per school
	require.NoError(t, repo.Save(ctx, domainEmergency.Mode{
		ID: "m2", SchoolID: "school-1", ModeType: domainEmergency.ModeNormal,
	}))
	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "m2", all[0].ID)
	assert.False(t, all[0].IsActive)

	missing, err := repo.Load(ctx, "school-9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAuditRepo_InsertListStats(t *testing.T) {
	repo := NewAuditGormRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.InitSchema(ctx))

	base := time.Now().UTC()
	mk := func(action domainRule.Action, permitted, pendingPin bool, offset time.Duration) {
		rec := domainAudit.DecisionRecord{
			SchoolID:                "school-1",
			AttemptID:               fmt.Sprintf("at-%d", offset),
			CredentialID:            "cred-1",
			ReaderID:                "gate-1",
			EmergencyModeAtDecision: domainEmergency.ModeNormal,
			Action:                  action,
			Permitted:               permitted,
			PendingPin:              pendingPin,
			SideEffects:             []string{"audit_write"},
			Timestamp:               base.Add(offset),
		}
		require.NoError(t, repo.Insert(ctx, &rec))
	}
	mk(domainRule.ActionAllow, true, false, -3*time.Minute)
	mk(domainRule.ActionDeny, false, false, -2*time.Minute)
	mk(domainRule.ActionRequirePin, false, true, -1*time.Minute)

	records, err := repo.List(ctx, domainAudit.Filter{SchoolID: "school-1"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	// timestamp DESC
	assert.Equal(t, domainRule.ActionRequirePin, records[0].Action)
	assert.Equal(t, []string{"audit_write"}, records[0].SideEffects)

	denied, err := repo.List(ctx, domainAudit.Filter{SchoolID: "school-1", Action: "deny"})
	require.NoError(t, err)
	require.Len(t, denied, 1)

	stats, err := repo.Stats(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Permitted)
	assert.Equal(t, int64(2), stats.Denied)
	assert.Equal(t, int64(1), stats.ByAction["allow"])
	require.NotNil(t, stats.OldestRecord)
	assert.Equal(t, "3 records", stats.HumanTotalSize)
}

func TestAuditRepo_CountEntriesToday(t *testing.T) {
	repo := NewAuditGormRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.InitSchema(ctx))

	now := time.Now().UTC()
	yesterday := now.Add(-26 * time.Hour)

	mk := func(permitted, pendingPin bool, ts time.Time) {
		rec := domainAudit.DecisionRecord{
			SchoolID:     "school-1",
			CredentialID: "cred-1",
			Action:       domainRule.ActionAllow,
			Permitted:    permitted,
			PendingPin:   pendingPin,
			Timestamp:    ts,
		}
		require.NoError(t, repo.Insert(ctx, &rec))
	}
	mk(true, false, now)       // counts
	mk(true, false, now)       // counts
	mk(false, false, now)      // denied, no
	mk(true, true, now)        // pending pin, no
	mk(true, false, yesterday) // previous day, no

	count, err := repo.CountEntriesToday(ctx, "school-1", "cred-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountEntriesToday(ctx, "school-1", "cred-other")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPendingMemoryStore_TTL(t *testing.T) {
	store := NewPendingMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	pending := domainDecision.Attempt{SchoolID: "school-1", CredentialID: "cred-1", ReaderID: "gate-1"}
	require.NoError(t, store.Put(ctx, "a1", pending, "r1", time.Minute))

	got, ruleID, err := store.Take(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "cred-1", got.CredentialID)
	assert.Equal(t, "r1", ruleID)

	// Consumed exactly once
	_, _, err = store.Take(ctx, "a1")
	assert.Error(t, err)

	// Expired entries finalize as not found
	require.NoError(t, store.Put(ctx, "a2", pending, "r1", time.Minute))
	current = current.Add(2 * time.Minute)
	_, _, err = store.Take(ctx, "a2")
	assert.Error(t, err)
}
