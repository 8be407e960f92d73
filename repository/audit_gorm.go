package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainAudit "github.com/AzielCF/aegisx/domains/audit"
	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/AzielCF/aegisx/pkg/timeutils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type decisionRecordModel struct {
	ID             string `gorm:"primaryKey"`
	SchoolID       string `gorm:"index:idx_audit_school_ts,priority:1;not null"`
	AttemptID      string `gorm:"index"`
	CredentialID   string `gorm:"index:idx_audit_credential"`
	ReaderID       string
	LocationType   string
	ResolvedRuleID *string
	EmergencyMode  string
	Action         string `gorm:"not null"`
	Permitted      bool
	PendingPin     bool
	SideEffects    string    `gorm:"type:text;default:'[]'"` // JSON
	Timestamp      time.Time `gorm:"index:idx_audit_school_ts,priority:2;not null"`
}

func (decisionRecordModel) TableName() string {
	return "decision_records"
}

type AuditGormRepository struct {
	db *gorm.DB
}

func NewAuditGormRepository(db *gorm.DB) *AuditGormRepository {
	return &AuditGormRepository{db: db}
}

func (r *AuditGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&decisionRecordModel{})
}

func (r *AuditGormRepository) Insert(ctx context.Context, rec *domainAudit.DecisionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	effects := rec.SideEffects
	if effects == nil {
		effects = []string{}
	}
	effectsJSON, err := json.Marshal(effects)
	if err != nil {
		return fmt.Errorf("marshal side effects: %w", err)
	}

	model := decisionRecordModel{
		ID:             rec.ID,
		SchoolID:       rec.SchoolID,
		AttemptID:      rec.AttemptID,
		CredentialID:   rec.CredentialID,
		ReaderID:       rec.ReaderID,
		LocationType:   rec.LocationType,
		ResolvedRuleID: rec.ResolvedRuleID,
		EmergencyMode:  string(rec.EmergencyModeAtDecision),
		Action:         string(rec.Action),
		Permitted:      rec.Permitted,
		PendingPin:     rec.PendingPin,
		SideEffects:    string(effectsJSON),
		Timestamp:      rec.Timestamp,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AuditGormRepository) List(ctx context.Context, filter domainAudit.Filter) ([]domainAudit.DecisionRecord, error) {
	var models []decisionRecordModel
	query := r.db.WithContext(ctx).Model(&decisionRecordModel{})

	if filter.SchoolID != "" {
		query = query.Where("school_id = ?", filter.SchoolID)
	}
	if filter.CredentialID != "" {
		query = query.Where("credential_id = ?", filter.CredentialID)
	}
	if filter.ReaderID != "" {
		query = query.Where("reader_id = ?", filter.ReaderID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Since != nil {
		query = query.Where("timestamp >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("timestamp < ?", *filter.Until)
	}

	query = query.Order("timestamp DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query = query.Limit(limit)
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]domainAudit.DecisionRecord, len(models))
	for i, m := range models {
		records[i] = fromDecisionModel(m)
	}
	return records, nil
}

func (r *AuditGormRepository) Stats(ctx context.Context, schoolID string) (domainAudit.Stats, error) {
	stats := domainAudit.Stats{ByAction: make(map[string]int64)}

	var results []struct {
		Action    string
		Permitted bool
		Count     int64
	}
	if err := r.db.WithContext(ctx).Model(&decisionRecordModel{}).
		Select("action, permitted, count(*) as count").
		Where("school_id = ?", schoolID).
		Group("action, permitted").
		Scan(&results).Error; err != nil {
		return domainAudit.Stats{}, err
	}

	for _, row := range results {
		stats.Total += row.Count
		stats.ByAction[row.Action] += row.Count
		if row.Permitted {
			stats.Permitted += row.Count
		} else {
			stats.Denied += row.Count
		}
	}

	var oldest decisionRecordModel
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("timestamp ASC").
		First(&oldest).Error
	if err == nil {
		ts := oldest.Timestamp
		stats.OldestRecord = &ts
	} else if err != gorm.ErrRecordNotFound {
		return domainAudit.Stats{}, err
	}

	stats.HumanTotalSize = humanize.Comma(stats.Total) + " records"
	return stats, nil
}

// CountEntriesToday counts today's permitted, non-pending decisions for a
// credential. Pending PIN records do not count as entries.
func (r *AuditGormRepository) CountEntriesToday(ctx context.Context, schoolID, credentialID string) (int, error) {
	var count int64
	start := timeutils.StartOfDay(time.Now())
	err := r.db.WithContext(ctx).Model(&decisionRecordModel{}).
		Where("school_id = ? AND credential_id = ? AND permitted = ? AND pending_pin = ? AND timestamp >= ?",
			schoolID, credentialID, true, false, start).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func fromDecisionModel(m decisionRecordModel) domainAudit.DecisionRecord {
	rec := domainAudit.DecisionRecord{
		ID:                      m.ID,
		SchoolID:                m.SchoolID,
		AttemptID:               m.AttemptID,
		CredentialID:            m.CredentialID,
		ReaderID:                m.ReaderID,
		LocationType:            m.LocationType,
		ResolvedRuleID:          m.ResolvedRuleID,
		EmergencyModeAtDecision: domainEmergency.ModeType(m.EmergencyMode),
		Action:                  domainRule.Action(m.Action),
		Permitted:               m.Permitted,
		PendingPin:              m.PendingPin,
		Timestamp:               m.Timestamp,
	}
	if m.SideEffects != "" {
		_ = json.Unmarshal([]byte(m.SideEffects), &rec.SideEffects)
	}
	if rec.SideEffects == nil {
		rec.SideEffects = []string{}
	}
	return rec
}
