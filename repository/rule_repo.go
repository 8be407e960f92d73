package repository

import (
	"context"

	domainRule "github.com/AzielCF/aegisx/domains/rule"
)

// IRuleRepository persists access rules. Implementations must map storage
// not-found conditions to domainRule.ErrRuleNotFound.
type IRuleRepository interface {
	InitSchema(ctx context.Context) error
	Create(ctx context.Context, r *domainRule.AccessRule) error
	GetByID(ctx context.Context, id string) (*domainRule.AccessRule, error)
	List(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error)
	ListActive(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error)
	Update(ctx context.Context, r *domainRule.AccessRule) error
	Delete(ctx context.Context, id string) error
}
