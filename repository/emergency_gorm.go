package repository

import (
	"context"
	"time"

	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type emergencyModeModel struct {
	SchoolID         string `gorm:"primaryKey"`
	ModeID           string `gorm:"not null"`
	ModeType         string `gorm:"not null;default:'normal'"`
	ActivatedBy      string
	ActivatedAt      *time.Time
	ActivationReason string
	AutoDeactivateAt *time.Time
	UpdatedAt        time.Time `gorm:"not null"`
}

func (emergencyModeModel) TableName() string {
	return "emergency_modes"
}

type EmergencyGormRepository struct {
	db *gorm.DB
}

func NewEmergencyGormRepository(db *gorm.DB) *EmergencyGormRepository {
	return &EmergencyGormRepository{db: db}
}

func (r *EmergencyGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&emergencyModeModel{})
}

// Save upserts the school's live mode. Switching modes replaces the row, so
// there is never more than one live mode per school.
func (r *EmergencyGormRepository) Save(ctx context.Context, mode domainEmergency.Mode) error {
	model := emergencyModeModel{
		SchoolID:         mode.SchoolID,
		ModeID:           mode.ID,
		ModeType:         string(mode.ModeType),
		ActivatedBy:      mode.ActivatedBy,
		ActivatedAt:      mode.ActivatedAt,
		ActivationReason: mode.ActivationReason,
		AutoDeactivateAt: mode.AutoDeactivateAt,
		UpdatedAt:        time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "school_id"}},
		UpdateAll: true,
	}).Create(&model).Error
}

func (r *EmergencyGormRepository) Load(ctx context.Context, schoolID string) (*domainEmergency.Mode, error) {
	var m emergencyModeModel
	if err := r.db.WithContext(ctx).First(&m, "school_id = ?", schoolID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	mode := fromEmergencyModel(m)
	return &mode, nil
}

func (r *EmergencyGormRepository) LoadAll(ctx context.Context) ([]domainEmergency.Mode, error) {
	var models []emergencyModeModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	modes := make([]domainEmergency.Mode, len(models))
	for i, m := range models {
		modes[i] = fromEmergencyModel(m)
	}
	return modes, nil
}

func fromEmergencyModel(m emergencyModeModel) domainEmergency.Mode {
	modeType := domainEmergency.ModeType(m.ModeType)
	return domainEmergency.Mode{
		ID:               m.ModeID,
		SchoolID:         m.SchoolID,
		ModeType:         modeType,
		IsActive:         modeType != domainEmergency.ModeNormal,
		ActivatedBy:      m.ActivatedBy,
		ActivatedAt:      m.ActivatedAt,
		ActivationReason: m.ActivationReason,
		AutoDeactivateAt: m.AutoDeactivateAt,
	}
}
