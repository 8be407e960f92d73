package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainHealth "github.com/AzielCF/aegisx/domains/health"
	"github.com/AzielCF/aegisx/infrastructure/valkey"
	"github.com/AzielCF/aegisx/pkg/dispatchworker"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type healthService struct {
	db     *gorm.DB
	valkey *valkey.Client // nil when valkey is disabled
	pool   *dispatchworker.DispatchWorkerPool

	mu      sync.RWMutex
	records map[domainHealth.EntityType]domainHealth.HealthRecord
}

func NewHealthService(db *gorm.DB, valkeyClient *valkey.Client, pool *dispatchworker.DispatchWorkerPool) domainHealth.IHealthUsecase {
	return &healthService{
		db:      db,
		valkey:  valkeyClient,
		pool:    pool,
		records: make(map[domainHealth.EntityType]domainHealth.HealthRecord),
	}
}

// CheckAll probes every dependency and refreshes the cached status.
func (s *healthService) CheckAll(ctx context.Context) ([]domainHealth.HealthRecord, error) {
	now := time.Now().UTC()
	var records []domainHealth.HealthRecord

	records = append(records, s.checkDatabase(ctx, now))
	if s.valkey != nil {
		records = append(records, s.checkValkey(ctx, now))
	}
	if s.pool != nil {
		records = append(records, s.checkWorkerPool(now))
	}

	s.mu.Lock()
	for _, r := range records {
		s.records[r.EntityType] = r
	}
	s.mu.Unlock()

	return records, nil
}

// GetStatus returns the last cached results without probing.
func (s *healthService) GetStatus(ctx context.Context) ([]domainHealth.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []domainHealth.HealthRecord{{
			EntityType:  domainHealth.EntityDatabase,
			Status:      domainHealth.StatusUnknown,
			LastMessage: "no check performed yet",
		}}, nil
	}

	records := make([]domainHealth.HealthRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	return records, nil
}

func (s *healthService) StartPeriodicChecks(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.CheckAll(ctx); err != nil {
					logrus.WithError(err).Warn("[HEALTH] Periodic check failed")
				}
			}
		}
	}()
}

func (s *healthService) checkDatabase(ctx context.Context, now time.Time) domainHealth.HealthRecord {
	rec := domainHealth.HealthRecord{
		EntityType:  domainHealth.EntityDatabase,
		EntityID:    "primary",
		Status:      domainHealth.StatusOk,
		LastMessage: "reachable",
		LastChecked: now,
	}

	sqlDB, err := s.db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = sqlDB.PingContext(pingCtx)
		cancel()
	}
	if err != nil {
		rec.Status = domainHealth.StatusError
		rec.LastMessage = err.Error()
	}
	return rec
}

func (s *healthService) checkValkey(ctx context.Context, now time.Time) domainHealth.HealthRecord {
	rec := domainHealth.HealthRecord{
		EntityType:  domainHealth.EntityValkey,
		EntityID:    "pending-store",
		Status:      domainHealth.StatusOk,
		LastMessage: "reachable",
		LastChecked: now,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := s.valkey.Ping(pingCtx)
	cancel()
	if err != nil {
		rec.Status = domainHealth.StatusError
		rec.LastMessage = err.Error()
	}
	return rec
}

func (s *healthService) checkWorkerPool(now time.Time) domainHealth.HealthRecord {
	stats := s.pool.GetStats()
	rec := domainHealth.HealthRecord{
		EntityType:  domainHealth.EntityWorkerPool,
		EntityID:    "dispatch",
		Status:      domainHealth.StatusOk,
		LastMessage: fmt.Sprintf("%d workers, %d processed, %d dropped", stats.NumWorkers, stats.TotalProcessed, stats.TotalDropped),
		LastChecked: now,
	}

	// A pool that drops most of what it receives is effectively down.
	if stats.TotalDispatched > 100 && stats.TotalDropped*2 > stats.TotalDispatched {
		rec.Status = domainHealth.StatusError
		rec.LastMessage = fmt.Sprintf("dropping jobs: %d/%d dropped", stats.TotalDropped, stats.TotalDispatched)
	}
	return rec
}
