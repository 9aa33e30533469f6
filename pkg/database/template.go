// pkg/database/template.go
package database

import (
	"fmt"

	"gorm.io/gorm"

	"GhostRadar/pkg/model"
)

type TemplateDB struct {
	db *gorm.DB
}

// List 列出规则模板，可按分类过滤
func (t *TemplateDB) List(category string) ([]*model.RuleTemplate, error) {
	var templates []*model.RuleTemplate
	query := t.db.Order("usage_count DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("查询规则模板失败: %w", err)
	}
	return templates, nil
}

// GetByID 按ID获取模板
func (t *TemplateDB) GetByID(templateID string) (*model.RuleTemplate, error) {
	var template model.RuleTemplate
	err := t.db.First(&template, "id = ?", templateID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("规则模板不存在")
		}
		return nil, fmt.Errorf("获取规则模板失败: %w", err)
	}
	return &template, nil
}

// Instantiate 从模板创建草稿规则并累加使用次数
func (t *TemplateDB) Instantiate(templateID, ownerID, name string) (*model.Rule, error) {
	template, err := t.GetByID(templateID)
	if err != nil {
		return nil, err
	}

	rule := template.NewRule(ownerID, name)

	err = t.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rule).Error; err != nil {
			return fmt.Errorf("创建规则失败: %w", err)
		}

		if err := tx.Model(template).
			Update("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
			return fmt.Errorf("更新模板使用次数失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return rule, nil
}
