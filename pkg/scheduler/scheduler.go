// pkg/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"GhostRadar/pkg/engine"
	"GhostRadar/pkg/model"
)

// Runner 规则执行入口，由执行器实现
type Runner interface {
	Execute(ctx context.Context, rule *model.Rule, snapshot []model.Record) (*model.Execution, error)
}

// RuleSource 定时规则来源，由规则存储实现
type RuleSource interface {
	ListActiveScheduled() ([]*model.Rule, error)
}

// Scheduler 定时触发调度器
// 固定间隔扫描active+scheduled规则，把到期的交给执行器
// 停机期间错过的周期不补跑，恢复后等下一次到期
type Scheduler struct {
	cron   *cron.Cron
	rules  RuleSource
	runner Runner
	tick   time.Duration
}

// NewScheduler 创建任务调度器
func NewScheduler(rules RuleSource, runner Runner, tick time.Duration) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		rules:  rules,
		runner: runner,
		tick:   tick,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.tick), s.Tick); err != nil {
		return fmt.Errorf("注册调度任务失败: %w", err)
	}

	s.cron.Start()
	log.Printf("调度器已启动，扫描间隔 %s", s.tick)
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Tick 单次扫描：列出定时规则，派发到期的
func (s *Scheduler) Tick() {
	rules, err := s.rules.ListActiveScheduled()
	if err != nil {
		log.Printf("加载定时规则失败: %v", err)
		return
	}

	now := time.Now()
	for _, rule := range rules {
		due, err := IsDue(rule, now)
		if err != nil {
			// 激活时已校验过表达式，这里只可能是后门改库导致
			log.Printf("规则 %s 的schedule表达式无效: %v", rule.ID, err)
			continue
		}
		if !due {
			continue
		}

		go func(rule *model.Rule) {
			if _, err := s.runner.Execute(context.Background(), rule, nil); err != nil {
				if errors.Is(err, engine.ErrAlreadyRunning) {
					log.Printf("规则 %s 上一次执行未结束，跳过本轮调度", rule.ID)
					return
				}
				log.Printf("规则 %s 调度执行失败: %v", rule.ID, err)
			}
		}(rule)
	}
}

// IsDue 判断规则是否到期
// 基准取上次执行时间；从未执行过的规则以更新时间为基准，
// 避免激活历史规则时立刻触发一轮补跑
func IsDue(rule *model.Rule, now time.Time) (bool, error) {
	schedule, err := cron.ParseStandard(rule.Schedule)
	if err != nil {
		return false, err
	}

	baseline := rule.UpdatedAt
	if rule.LastExecutedAt != nil {
		baseline = *rule.LastExecutedAt
	}

	next := schedule.Next(baseline)
	return !next.After(now), nil
}
