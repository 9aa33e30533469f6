// pkg/messaging/listener.go
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"GhostRadar/pkg/engine"
	"GhostRadar/pkg/model"
)

// Runner 规则执行入口，由执行器实现
type Runner interface {
	Execute(ctx context.Context, rule *model.Rule, snapshot []model.Record) (*model.Execution, error)
}

// RuleSource 实时规则来源，由规则存储实现
type RuleSource interface {
	ListActiveRealtime() ([]*model.Rule, error)
	GetRule(id string) (*model.Rule, error)
}

// TriggerListener 实时触发监听器
// 持有一份按数据源名称索引的规则注册表，启动时构建，
// 支持显式注册/注销，并周期性从存储刷新
type TriggerListener struct {
	client  *NATSClient
	runner  Runner
	source  RuleSource
	refresh time.Duration

	mu       sync.RWMutex
	registry map[string][]*model.Rule // 数据源名称 -> 规则列表

	stopCh chan struct{}
	once   sync.Once
}

// NewTriggerListener 创建实时触发监听器
func NewTriggerListener(client *NATSClient, runner Runner, source RuleSource, refresh time.Duration) *TriggerListener {
	return &TriggerListener{
		client:   client,
		runner:   runner,
		source:   source,
		refresh:  refresh,
		registry: make(map[string][]*model.Rule),
		stopCh:   make(chan struct{}),
	}
}

// Start 构建注册表、订阅指标事件流并启动周期刷新
func (l *TriggerListener) Start() error {
	if err := l.Reload(); err != nil {
		return err
	}

	if err := l.client.Subscribe(MetricsStream, "ghostradar-trigger", MetricsSubjectPrefix+"*", l.HandleEvent); err != nil {
		return err
	}

	go l.refreshLoop()
	return nil
}

// Stop 停止周期刷新
func (l *TriggerListener) Stop() {
	l.once.Do(func() {
		close(l.stopCh)
	})
}

// refreshLoop 周期性从存储重建注册表，规则变更通过这里收敛
func (l *TriggerListener) refreshLoop() {
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.Reload(); err != nil {
				log.Printf("刷新实时规则注册表失败: %v", err)
			}
		case <-l.stopCh:
			return
		}
	}
}

// Reload 从存储重建注册表
func (l *TriggerListener) Reload() error {
	rules, err := l.source.ListActiveRealtime()
	if err != nil {
		return err
	}

	registry := make(map[string][]*model.Rule)
	for _, rule := range rules {
		source := rule.DataSource()
		if source == "" {
			continue
		}
		registry[source] = append(registry[source], rule)
	}

	l.mu.Lock()
	l.registry = registry
	l.mu.Unlock()

	return nil
}

// Register 将规则加入注册表
func (l *TriggerListener) Register(rule *model.Rule) {
	source := rule.DataSource()
	if source == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.registry[source] {
		if existing.ID == rule.ID {
			return
		}
	}
	l.registry[source] = append(l.registry[source], rule)
}

// Unregister 将规则移出注册表
func (l *TriggerListener) Unregister(ruleID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for source, rules := range l.registry {
		for i, rule := range rules {
			if rule.ID == ruleID {
				l.registry[source] = append(rules[:i], rules[i+1:]...)
				return
			}
		}
	}
}

// RegisteredRules 返回指定数据源下注册的规则
func (l *TriggerListener) RegisteredRules(source string) []*model.Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rules := make([]*model.Rule, len(l.registry[source]))
	copy(rules, l.registry[source])
	return rules
}

// HandleEvent 处理一条指标更新事件
// 事件自带记录时直接作为快照评估，否则由执行器重新拉取
func (l *TriggerListener) HandleEvent(data []byte) error {
	var event model.MetricEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// 格式错误的事件重投也不会成功，记录后丢弃
		log.Printf("解析指标事件失败: %v", err)
		return nil
	}

	rules := l.RegisteredRules(event.Source)
	if len(rules) == 0 {
		return nil
	}

	var snapshot []model.Record
	if len(event.Records) > 0 {
		snapshot = event.Records
	}

	for _, rule := range rules {
		// 注册表是缓存，暂停操作可能还没等到下一次刷新，
		// 执行前按存储里的当前状态重新校验
		current, err := l.source.GetRule(rule.ID)
		if err != nil {
			log.Printf("重新加载规则 %s 失败: %v", rule.ID, err)
			continue
		}
		if current.Status != model.RuleStatusActive {
			continue
		}

		if _, err := l.runner.Execute(context.Background(), current, snapshot); err != nil {
			if errors.Is(err, engine.ErrAlreadyRunning) {
				log.Printf("规则 %s 已有执行在进行中，跳过本次事件", rule.ID)
				continue
			}
			log.Printf("规则 %s 事件触发执行失败: %v", rule.ID, err)
		}
	}

	return nil
}
