package repository

import (
	"context"

	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
)

// IEmergencyRepository persists the live emergency mode per school so a
// restart restores it. One row per school, last state wins.
type IEmergencyRepository interface {
	InitSchema(ctx context.Context) error
	Save(ctx context.Context, mode domainEmergency.Mode) error
	Load(ctx context.Context, schoolID string) (*domainEmergency.Mode, error)
	LoadAll(ctx context.Context) ([]domainEmergency.Mode, error)
}
