// pkg/model/rule.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RuleStatus 规则状态枚举
type RuleStatus string

const (
	RuleStatusDraft  RuleStatus = "draft"
	RuleStatusActive RuleStatus = "active"
	RuleStatusPaused RuleStatus = "paused"
)

// TriggerType 触发方式枚举
type TriggerType string

const (
	TriggerScheduled TriggerType = "scheduled" // 定时触发
	TriggerRealtime  TriggerType = "realtime"  // 指标事件触发
	TriggerManual    TriggerType = "manual"    // 手动触发
)

// Operator 条件操作符枚举
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
)

// ActionType 动作类型枚举
type ActionType string

const (
	ActionWebhook        ActionType = "webhook"
	ActionNotification   ActionType = "notification"
	ActionEmail          ActionType = "email"
	ActionDiscordMessage ActionType = "discord_message"
)

// MetaDataSource 规则元数据中指定数据源的键
const MetaDataSource = "data_source"

// Condition 单个条件：字段、操作符、比较值
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// ActionConfig 动作配置，按动作类型取用对应字段
type ActionConfig struct {
	URL        string   `json:"url,omitempty"`        // webhook目标地址
	Message    string   `json:"message,omitempty"`    // 消息模板，支持{{field}}占位符
	Recipients []string `json:"recipients,omitempty"` // 邮件收件人
}

// Action 规则命中后执行的动作
type Action struct {
	Type   ActionType   `json:"type"`
	Config ActionConfig `json:"config"`
}

// Rule 自动化规则
type Rule struct {
	ID             string            `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string            `gorm:"not null" json:"name"`
	Description    string            `gorm:"type:text" json:"description"`
	OwnerID        string            `gorm:"type:uuid;not null;index" json:"owner_id"`
	Status         RuleStatus        `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	TriggerType    TriggerType       `gorm:"type:varchar(20);not null;index" json:"trigger_type"`
	Schedule       string            `gorm:"type:varchar(100)" json:"schedule,omitempty"` // cron表达式，scheduled触发时必填
	Conditions     []Condition       `gorm:"type:jsonb;serializer:json" json:"conditions"`
	Actions        []Action          `gorm:"type:jsonb;serializer:json" json:"actions"`
	Metadata       map[string]string `gorm:"type:jsonb;serializer:json" json:"metadata"`
	LastExecutedAt *time.Time        `json:"last_executed_at,omitempty"`
	ExecutingUntil *time.Time        `json:"-"` // 跨进程执行租约，过期视为持有方已崩溃
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	// 执行历史，按开始时间倒序
	Executions []Execution `gorm:"foreignKey:RuleID" json:"executions,omitempty"`
}

func (r *Rule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (Rule) TableName() string {
	return "rules"
}

// DataSource 返回规则绑定的数据源名称
func (r *Rule) DataSource() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[MetaDataSource]
}

// validOperators 合法操作符集合
var validOperators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true,
	OpGreaterThan: true, OpLessThan: true,
	OpGreaterThanOrEqual: true, OpLessThanOrEqual: true,
	OpContains: true, OpNotContains: true,
	OpIn: true, OpNotIn: true,
}

// validActionTypes 合法动作类型集合
var validActionTypes = map[ActionType]bool{
	ActionWebhook: true, ActionNotification: true,
	ActionEmail: true, ActionDiscordMessage: true,
}

// Validate 校验规则定义的基本合法性
func (r *Rule) Validate() error {
	if r.Name == "" {
		return &ConfigError{Msg: "规则名称不能为空"}
	}

	switch r.TriggerType {
	case TriggerScheduled, TriggerRealtime, TriggerManual:
	default:
		return &ConfigError{Msg: fmt.Sprintf("无效的触发方式: %s", r.TriggerType)}
	}

	for _, cond := range r.Conditions {
		if cond.Field == "" {
			return &ConfigError{Msg: "条件字段不能为空"}
		}
		if !validOperators[cond.Operator] {
			return &ConfigError{Msg: fmt.Sprintf("无效的操作符: %s", cond.Operator)}
		}
	}

	for _, action := range r.Actions {
		if !validActionTypes[action.Type] {
			return &ConfigError{Msg: fmt.Sprintf("无效的动作类型: %s", action.Type)}
		}
		if action.Type == ActionWebhook && action.Config.URL == "" {
			return &ConfigError{Msg: "webhook动作必须配置url"}
		}
		if action.Type == ActionEmail && len(action.Config.Recipients) == 0 {
			return &ConfigError{Msg: "email动作必须配置收件人"}
		}
	}

	return nil
}

// ValidateForActivation 激活时的完整校验：
// 定时规则必须有可解析的cron表达式，且必须绑定数据源
func (r *Rule) ValidateForActivation() error {
	if err := r.Validate(); err != nil {
		return err
	}

	if r.TriggerType == TriggerScheduled {
		if r.Schedule == "" {
			return &ConfigError{Msg: "定时规则必须配置schedule表达式"}
		}
		if _, err := cron.ParseStandard(r.Schedule); err != nil {
			return &ConfigError{Msg: fmt.Sprintf("无效的schedule表达式 %q: %v", r.Schedule, err)}
		}
	}

	if r.DataSource() == "" {
		return &ConfigError{Msg: fmt.Sprintf("规则元数据缺少 %s", MetaDataSource)}
	}

	return nil
}
