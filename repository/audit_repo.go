package repository

import (
	"context"

	domainAudit "github.com/AzielCF/aegisx/domains/audit"
)

// IAuditRepository is the append-only decision log. Records are never
// updated or deleted by the engine.
type IAuditRepository interface {
	InitSchema(ctx context.Context) error
	Insert(ctx context.Context, rec *domainAudit.DecisionRecord) error
	List(ctx context.Context, filter domainAudit.Filter) ([]domainAudit.DecisionRecord, error)
	Stats(ctx context.Context, schoolID string) (domainAudit.Stats, error)
	CountEntriesToday(ctx context.Context, schoolID, credentialID string) (int, error)
}
