// pkg/database/rule.go
package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"GhostRadar/pkg/model"
)

type RuleDB struct {
	db *gorm.DB
}

// Create 创建规则，入库前做基本校验
func (r *RuleDB) Create(rule *model.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.Status == "" {
		rule.Status = model.RuleStatusDraft
	}

	if err := r.db.Create(rule).Error; err != nil {
		return fmt.Errorf("创建规则失败: %w", err)
	}
	return nil
}

// GetByID 按ID获取规则
func (r *RuleDB) GetByID(ruleID string) (*model.Rule, error) {
	var rule model.Rule
	err := r.db.First(&rule, "id = ?", ruleID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("规则不存在")
		}
		return nil, fmt.Errorf("获取规则失败: %w", err)
	}
	return &rule, nil
}

// GetWithExecutions 按ID获取规则并带最近的执行历史
func (r *RuleDB) GetWithExecutions(ruleID string) (*model.Rule, error) {
	var rule model.Rule
	err := r.db.Preload("Executions", func(db *gorm.DB) *gorm.DB {
		return db.Order("started_at DESC").Limit(10)
	}).First(&rule, "id = ?", ruleID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("规则不存在")
		}
		return nil, fmt.Errorf("获取规则失败: %w", err)
	}
	return &rule, nil
}

// GetByOwner 获取指定用户的所有规则
func (r *RuleDB) GetByOwner(ownerID string) ([]*model.Rule, error) {
	var rules []*model.Rule
	err := r.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("查询用户规则失败: %w", err)
	}
	return rules, nil
}

// Update 更新规则定义
// 处于active状态的规则更新后仍需满足激活校验
func (r *RuleDB) Update(rule *model.Rule) error {
	if rule.Status == model.RuleStatusActive {
		if err := rule.ValidateForActivation(); err != nil {
			return err
		}
	} else if err := rule.Validate(); err != nil {
		return err
	}

	if err := r.db.Save(rule).Error; err != nil {
		return fmt.Errorf("更新规则失败: %w", err)
	}
	return nil
}

// Delete 删除规则及其执行历史
func (r *RuleDB) Delete(ruleID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", ruleID).Delete(&model.Execution{}).Error; err != nil {
			return fmt.Errorf("删除执行历史失败: %w", err)
		}
		result := tx.Delete(&model.Rule{}, "id = ?", ruleID)
		if result.Error != nil {
			return fmt.Errorf("删除规则失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("规则不存在")
		}
		return nil
	})
}

// Activate 激活规则，激活时做完整校验（schedule可解析、数据源已绑定）
func (r *RuleDB) Activate(ruleID string) (*model.Rule, error) {
	rule, err := r.GetByID(ruleID)
	if err != nil {
		return nil, err
	}

	if err := rule.ValidateForActivation(); err != nil {
		return nil, err
	}

	rule.Status = model.RuleStatusActive
	if err := r.db.Model(rule).Update("status", model.RuleStatusActive).Error; err != nil {
		return nil, fmt.Errorf("激活规则失败: %w", err)
	}
	return rule, nil
}

// Pause 暂停规则，只阻止后续触发，不中断在途执行
func (r *RuleDB) Pause(ruleID string) (*model.Rule, error) {
	rule, err := r.GetByID(ruleID)
	if err != nil {
		return nil, err
	}

	rule.Status = model.RuleStatusPaused
	if err := r.db.Model(rule).Update("status", model.RuleStatusPaused).Error; err != nil {
		return nil, fmt.Errorf("暂停规则失败: %w", err)
	}
	return rule, nil
}

// AcquireLease 获取规则的执行租约，跨进程互斥
// 条件更新保证原子性：租约为空或已过期时才能抢到
func (r *RuleDB) AcquireLease(ruleID string, until time.Time) (bool, error) {
	result := r.db.Model(&model.Rule{}).
		Where("id = ? AND (executing_until IS NULL OR executing_until < ?)", ruleID, time.Now()).
		Update("executing_until", until)
	if result.Error != nil {
		return false, fmt.Errorf("获取执行租约失败: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ReleaseLease 释放规则的执行租约
func (r *RuleDB) ReleaseLease(ruleID string) error {
	err := r.db.Model(&model.Rule{}).
		Where("id = ?", ruleID).
		Update("executing_until", nil).Error
	if err != nil {
		return fmt.Errorf("释放执行租约失败: %w", err)
	}
	return nil
}

// ListActiveByTrigger 列出指定触发方式的启用规则
func (r *RuleDB) ListActiveByTrigger(trigger model.TriggerType) ([]*model.Rule, error) {
	var rules []*model.Rule
	err := r.db.Where("status = ? AND trigger_type = ?", model.RuleStatusActive, trigger).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("查询启用规则失败: %w", err)
	}
	return rules, nil
}
