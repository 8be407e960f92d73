package usecase

import (
	"context"
	"time"

	domainAudit "github.com/AzielCF/aegisx/domains/audit"
	"github.com/AzielCF/aegisx/pkg/dispatchworker"
	"github.com/AzielCF/aegisx/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type auditService struct {
	repo repository.IAuditRepository
	pool *dispatchworker.DispatchWorkerPool
}

// NewAuditService builds the append-only audit sink. Writes go through the
// dispatch pool so the decision path never waits on the log.
func NewAuditService(repo repository.IAuditRepository, pool *dispatchworker.DispatchWorkerPool) domainAudit.IAuditUsecase {
	return &auditService{repo: repo, pool: pool}
}

// Record enqueues one decision record. The write is retried inside the
// worker; a full queue or a persistent storage failure loses the record and
// is logged loudly, but never surfaces to the reader.
func (s *auditService) Record(ctx context.Context, rec domainAudit.DecisionRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	write := func(jobCtx context.Context) error {
		var err error
		backoff := 200 * time.Millisecond
		for attempt := 0; attempt < 3; attempt++ {
			writeCtx, cancel := context.WithTimeout(jobCtx, 5*time.Second)
			err = s.repo.Insert(writeCtx, &rec)
			cancel()
			if err == nil {
				return nil
			}
			logrus.WithError(err).Warnf("[AUDIT] Write attempt %d failed for attempt %s", attempt+1, rec.AttemptID)
			select {
			case <-jobCtx.Done():
				return jobCtx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		logrus.WithError(err).Errorf("[AUDIT] Dropping record for attempt %s after retries", rec.AttemptID)
		return err
	}

	if s.pool == nil {
		// Synchronous fallback, only used in tests without a pool.
		_ = write(ctx)
		return
	}

	if !s.pool.TryDispatch(dispatchworker.DispatchJob{
		SchoolID: rec.SchoolID,
		ReaderID: rec.ReaderID,
		Handler:  write,
	}) {
		logrus.Errorf("[AUDIT] Dispatch queue full, dropping record for attempt %s", rec.AttemptID)
	}
}

func (s *auditService) List(ctx context.Context, filter domainAudit.Filter) ([]domainAudit.DecisionRecord, error) {
	return s.repo.List(ctx, filter)
}

func (s *auditService) Stats(ctx context.Context, schoolID string) (domainAudit.Stats, error) {
	return s.repo.Stats(ctx, schoolID)
}

func (s *auditService) CountEntriesToday(ctx context.Context, schoolID, credentialID string) (int, error) {
	return s.repo.CountEntriesToday(ctx, schoolID, credentialID)
}
