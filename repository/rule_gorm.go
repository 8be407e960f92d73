package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type ruleModel struct {
	ID              string `gorm:"primaryKey"`
	SchoolID        string `gorm:"index:idx_rules_school,priority:1;not null"`
	Name            string `gorm:"not null"`
	Description     string
	RuleType        string    `gorm:"not null"`
	Conditions      string    `gorm:"type:text;default:'{}'"` // JSON
	Action          string    `gorm:"not null"`
	Priority        int       `gorm:"index:idx_rules_school,priority:2;default:0"`
	IsActive        bool      `gorm:"default:true"`
	IsEmergencyRule bool      `gorm:"default:false"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (ruleModel) TableName() string {
	return "access_rules"
}

// --- Repository Implementation ---

type RuleGormRepository struct {
	db *gorm.DB
}

func NewRuleGormRepository(db *gorm.DB) *RuleGormRepository {
	return &RuleGormRepository{db: db}
}

func (r *RuleGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ruleModel{})
}

func (r *RuleGormRepository) Create(ctx context.Context, rule *domainRule.AccessRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	model, err := toRuleModel(rule)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "UNIQUE constraint failed") || strings.Contains(result.Error.Error(), "duplicate key value") {
			return domainRule.ErrDuplicateRule
		}
		return result.Error
	}
	return nil
}

func (r *RuleGormRepository) GetByID(ctx context.Context, id string) (*domainRule.AccessRule, error) {
	var m ruleModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domainRule.ErrRuleNotFound
		}
		return nil, err
	}
	return fromRuleModel(m)
}

func (r *RuleGormRepository) List(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error) {
	return r.list(ctx, schoolID, false)
}

func (r *RuleGormRepository) ListActive(ctx context.Context, schoolID string) ([]domainRule.AccessRule, error) {
	return r.list(ctx, schoolID, true)
}

func (r *RuleGormRepository) list(ctx context.Context, schoolID string, onlyActive bool) ([]domainRule.AccessRule, error) {
	var models []ruleModel
	query := r.db.WithContext(ctx).Model(&ruleModel{}).Where("school_id = ?", schoolID)
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	// Orden estable: prioridad descendente, empates por id ascendente
	if err := query.Order("priority DESC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	rules := make([]domainRule.AccessRule, 0, len(models))
	for _, m := range models {
		rule, err := fromRuleModel(m)
		if err != nil {
			// Una fila ilegible no debe romper el listado completo
			logrus.WithError(err).Warnf("[RULES] Skipping unreadable rule row %s", m.ID)
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func (r *RuleGormRepository) Update(ctx context.Context, rule *domainRule.AccessRule) error {
	rule.UpdatedAt = time.Now().UTC()
	model, err := toRuleModel(rule)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&ruleModel{ID: rule.ID}).Select("*").Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRule.ErrRuleNotFound
	}
	return nil
}

func (r *RuleGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&ruleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRule.ErrRuleNotFound
	}
	return nil
}

// --- Mappers ---

func toRuleModel(rule *domainRule.AccessRule) (ruleModel, error) {
	condJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return ruleModel{}, fmt.Errorf("marshal conditions: %w", err)
	}

	return ruleModel{
		ID:              rule.ID,
		SchoolID:        rule.SchoolID,
		Name:            rule.Name,
		Description:     rule.Description,
		RuleType:        string(rule.RuleType),
		Conditions:      string(condJSON),
		Action:          string(rule.Action),
		Priority:        rule.Priority,
		IsActive:        rule.IsActive,
		IsEmergencyRule: rule.IsEmergencyRule,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}, nil
}

func fromRuleModel(m ruleModel) (*domainRule.AccessRule, error) {
	rule := &domainRule.AccessRule{
		ID:              m.ID,
		SchoolID:        m.SchoolID,
		Name:            m.Name,
		Description:     m.Description,
		RuleType:        domainRule.RuleType(m.RuleType),
		Action:          domainRule.Action(m.Action),
		Priority:        m.Priority,
		IsActive:        m.IsActive,
		IsEmergencyRule: m.IsEmergencyRule,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	if m.Conditions != "" {
		if err := json.Unmarshal([]byte(m.Conditions), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshal conditions for rule %s: %w", m.ID, err)
		}
	}

	return rule, nil
}
