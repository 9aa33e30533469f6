// pkg/database/execution.go
package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"GhostRadar/pkg/model"
)

type ExecutionDB struct {
	db *gorm.DB
}

// Create 创建执行记录（running状态）
func (e *ExecutionDB) Create(exec *model.Execution) error {
	if err := e.db.Create(exec).Error; err != nil {
		return fmt.Errorf("创建执行记录失败: %w", err)
	}
	return nil
}

// Complete 写入最终执行记录，并在同一事务内
// 把规则的last_executed_at更新为本次执行的开始时间
func (e *ExecutionDB) Complete(exec *model.Execution) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(exec).Error; err != nil {
			return fmt.Errorf("保存执行记录失败: %w", err)
		}

		if err := tx.Model(&model.Rule{}).
			Where("id = ?", exec.RuleID).
			Update("last_executed_at", exec.StartedAt).Error; err != nil {
			return fmt.Errorf("更新规则最后执行时间失败: %w", err)
		}

		return nil
	})
}

// GetByID 按ID获取执行记录
func (e *ExecutionDB) GetByID(execID string) (*model.Execution, error) {
	var exec model.Execution
	err := e.db.First(&exec, "id = ?", execID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("执行记录不存在")
		}
		return nil, fmt.Errorf("获取执行记录失败: %w", err)
	}
	return &exec, nil
}

// GetByRule 获取规则的执行历史，按开始时间倒序
func (e *ExecutionDB) GetByRule(ruleID string, limit, offset int) ([]*model.Execution, error) {
	var executions []*model.Execution
	err := e.db.Where("rule_id = ?", ruleID).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&executions).Error
	if err != nil {
		return nil, fmt.Errorf("查询执行历史失败: %w", err)
	}
	return executions, nil
}

// GetStatsByOwner 统计用户规则在指定时间之后的执行情况，按状态分组
func (e *ExecutionDB) GetStatsByOwner(ownerID string, since time.Time) (map[string]int64, error) {
	stats := make(map[string]int64)

	var rows []struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}

	err := e.db.Model(&model.Execution{}).
		Select("rule_executions.status, COUNT(*) as count").
		Joins("JOIN rules ON rules.id = rule_executions.rule_id").
		Where("rules.owner_id = ? AND rule_executions.started_at >= ?", ownerID, since).
		Group("rule_executions.status").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计执行记录失败: %w", err)
	}

	for _, row := range rows {
		stats[row.Status] = row.Count
	}
	return stats, nil
}

// GetRecentByOwner 获取用户最近的执行记录
func (e *ExecutionDB) GetRecentByOwner(ownerID string, since time.Time, limit int) ([]*model.Execution, error) {
	var executions []*model.Execution
	err := e.db.
		Joins("JOIN rules ON rules.id = rule_executions.rule_id").
		Where("rules.owner_id = ? AND rule_executions.started_at >= ?", ownerID, since).
		Order("rule_executions.started_at DESC").
		Limit(limit).
		Find(&executions).Error
	if err != nil {
		return nil, fmt.Errorf("查询最近执行记录失败: %w", err)
	}
	return executions, nil
}
