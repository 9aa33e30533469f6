// pkg/model/execution.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExecutionStatus 执行状态枚举
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailure ExecutionStatus = "failure"
)

// ActionResult 单次动作调用的结果
// 记录序号+动作序号唯一定位一次调用，多条命中记录并行分发时靠它区分归属
type ActionResult struct {
	RecordIndex int        `json:"record_index"` // 命中记录在本次快照中的序号
	ActionIndex int        `json:"action_index"` // 动作在规则中的声明序号
	ActionType  ActionType `json:"action_type"`
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
}

// Execution 一次规则执行的不可变记录
// 创建时为running状态，结束时一次性转为success或failure，之后不再修改
type Execution struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	RuleID          string          `gorm:"type:uuid;not null;index" json:"rule_id"`
	Status          ExecutionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	MatchedCount    int             `gorm:"default:0" json:"matched_count"`
	ActionsExecuted int             `gorm:"default:0" json:"actions_executed"`
	Error           string          `gorm:"type:text" json:"error,omitempty"`
	Results         []ActionResult  `gorm:"type:jsonb;serializer:json" json:"results,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	StartedAt       time.Time       `gorm:"index" json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"` // running状态时为空
}

func (e *Execution) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (Execution) TableName() string {
	return "rule_executions"
}
