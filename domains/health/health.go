package health

import (
	"context"
	"time"
)

type EntityType string

const (
	EntityDatabase   EntityType = "database"
	EntityValkey     EntityType = "valkey"
	EntityWorkerPool EntityType = "worker_pool"
)

type Status string

const (
	StatusOk      Status = "OK"
	StatusError   Status = "ERROR"
	StatusUnknown Status = "UNKNOWN"
)

type HealthRecord struct {
	EntityType  EntityType `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	Status      Status     `json:"status"`
	LastMessage string     `json:"last_message"`
	LastChecked time.Time  `json:"last_checked"`
}

type IHealthUsecase interface {
	CheckAll(ctx context.Context) ([]HealthRecord, error)
	GetStatus(ctx context.Context) ([]HealthRecord, error)
	StartPeriodicChecks(ctx context.Context)
}
