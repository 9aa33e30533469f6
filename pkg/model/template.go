// pkg/model/template.go
package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

// RuleTemplate 规则模板，用于快速创建新规则，不参与运行时评估
type RuleTemplate struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string      `gorm:"not null" json:"name"`
	Category    string      `gorm:"type:varchar(50);index" json:"category"`
	Description string      `gorm:"type:text" json:"description"`
	Conditions  []Condition `gorm:"type:jsonb;serializer:json" json:"conditions"`
	Actions     []Action    `gorm:"type:jsonb;serializer:json" json:"actions"`
	UsageCount  int         `gorm:"default:0" json:"usage_count"` // 被使用次数
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (t *RuleTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

func (RuleTemplate) TableName() string {
	return "rule_templates"
}

// NewRule 从模板实例化一条草稿规则
func (t *RuleTemplate) NewRule(ownerID, name string) *Rule {
	if name == "" {
		name = t.Name
	}

	conditions := make([]Condition, len(t.Conditions))
	copy(conditions, t.Conditions)
	actions := make([]Action, len(t.Actions))
	copy(actions, t.Actions)

	return &Rule{
		Name:        name,
		Description: t.Description,
		OwnerID:     ownerID,
		Status:      RuleStatusDraft,
		TriggerType: TriggerManual,
		Conditions:  conditions,
		Actions:     actions,
		Metadata:    map[string]string{},
	}
}
