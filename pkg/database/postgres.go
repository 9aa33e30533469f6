// pkg/database/postgres.go
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"GhostRadar/pkg/config"
	"GhostRadar/pkg/model"
)

// DB 规则存储数据库连接
type DB struct {
	db *gorm.DB
}

// New 创建数据库连接并迁移表结构
func New(cfg *config.Config) (*DB, error) {
	pgCfg := cfg.Database.Postgres

	// 构建连接字符串
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pgCfg.Host, pgCfg.Port, pgCfg.User, pgCfg.Password, pgCfg.DBName, pgCfg.SSLMode,
	)

	// 连接数据库
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// 迁移表结构
	if err := db.AutoMigrate(&model.Rule{}, &model.Execution{}, &model.RuleTemplate{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}

	return &DB{db: db}, nil
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Rules 规则存储
func (d *DB) Rules() *RuleDB {
	return &RuleDB{db: d.db}
}

// Executions 执行记录存储
func (d *DB) Executions() *ExecutionDB {
	return &ExecutionDB{db: d.db}
}

// Templates 规则模板存储
func (d *DB) Templates() *TemplateDB {
	return &TemplateDB{db: d.db}
}

// 以下方法实现执行器和调度器依赖的存储接口

// GetRule 按ID加载规则
func (d *DB) GetRule(id string) (*model.Rule, error) {
	return d.Rules().GetByID(id)
}

// CreateExecution 创建执行记录
func (d *DB) CreateExecution(exec *model.Execution) error {
	return d.Executions().Create(exec)
}

// CompleteExecution 写入最终执行记录
func (d *DB) CompleteExecution(exec *model.Execution) error {
	return d.Executions().Complete(exec)
}

// AcquireRuleLease 获取规则的跨进程执行租约
func (d *DB) AcquireRuleLease(ruleID string, until time.Time) (bool, error) {
	return d.Rules().AcquireLease(ruleID, until)
}

// ReleaseRuleLease 释放规则的执行租约
func (d *DB) ReleaseRuleLease(ruleID string) error {
	return d.Rules().ReleaseLease(ruleID)
}

// ListActiveScheduled 列出启用的定时规则
func (d *DB) ListActiveScheduled() ([]*model.Rule, error) {
	return d.Rules().ListActiveByTrigger(model.TriggerScheduled)
}

// ListActiveRealtime 列出启用的实时规则
func (d *DB) ListActiveRealtime() ([]*model.Rule, error) {
	return d.Rules().ListActiveByTrigger(model.TriggerRealtime)
}
