// pkg/engine/executor.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"GhostRadar/pkg/datasource"
	"GhostRadar/pkg/evaluator"
	"GhostRadar/pkg/model"
)

// ErrAlreadyRunning 同一规则已有执行在进行中，本次调用被丢弃，不产生执行记录
var ErrAlreadyRunning = errors.New("规则已有执行在进行中")

// ruleLeaseDuration 跨进程执行租约时长，超过未释放视为持有方已崩溃
const ruleLeaseDuration = 5 * time.Minute

// Store 执行器依赖的存储接口
type Store interface {
	GetRule(id string) (*model.Rule, error)
	CreateExecution(exec *model.Execution) error
	// CompleteExecution 写入最终执行记录并把规则的last_executed_at更新为本次开始时间
	CompleteExecution(exec *model.Execution) error
	// AcquireRuleLease 尝试获取规则的执行租约
	// API进程和引擎进程各有自己的执行器，单飞约束靠存储里的租约跨进程成立
	AcquireRuleLease(ruleID string, until time.Time) (bool, error)
	ReleaseRuleLease(ruleID string) error
}

// ActionDispatcher 动作分发接口
type ActionDispatcher interface {
	Dispatch(ctx context.Context, action model.Action, record model.Record) model.ActionResult
}

// Executor 执行协调器
// 串行粒度为单条规则：同一规则同一时刻至多一次在途执行，不同规则完全并行
type Executor struct {
	store      Store
	fetcher    datasource.Fetcher
	dispatcher ActionDispatcher
	workers    int // 记录级分发并发上限

	mu       sync.Mutex
	inflight map[string]bool // 在途执行的规则ID
}

// NewExecutor 创建执行协调器
func NewExecutor(store Store, fetcher datasource.Fetcher, dispatcher ActionDispatcher, workers int) *Executor {
	if workers <= 0 {
		workers = 4
	}
	return &Executor{
		store:      store,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		workers:    workers,
		inflight:   make(map[string]bool),
	}
}

// tryAcquire 获取规则执行锁
func (e *Executor) tryAcquire(ruleID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inflight[ruleID] {
		return false
	}
	e.inflight[ruleID] = true
	return true
}

// release 释放规则执行锁
func (e *Executor) release(ruleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, ruleID)
}

// ExecuteNow 手动触发入口，暂停中的规则也允许手动执行
func (e *Executor) ExecuteNow(ctx context.Context, ruleID string) (*model.Execution, error) {
	rule, err := e.store.GetRule(ruleID)
	if err != nil {
		return nil, fmt.Errorf("加载规则 %s 失败: %w", ruleID, err)
	}
	return e.Execute(ctx, rule, nil)
}

// Execute 执行一次规则
// snapshot不为空时跳过数据拉取（实时事件自带记录的场景）
//
// 执行记录先以running状态落库，进程中途崩溃会留下可诊断的running记录；
// 动作级失败只记入results，不影响执行整体成败
func (e *Executor) Execute(ctx context.Context, rule *model.Rule, snapshot []model.Record) (*model.Execution, error) {
	if !e.tryAcquire(rule.ID) {
		return nil, ErrAlreadyRunning
	}
	defer e.release(rule.ID)

	acquired, err := e.store.AcquireRuleLease(rule.ID, time.Now().Add(ruleLeaseDuration))
	if err != nil {
		return nil, fmt.Errorf("获取执行租约失败: %w", err)
	}
	if !acquired {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		if err := e.store.ReleaseRuleLease(rule.ID); err != nil {
			log.Printf("释放规则 %s 的执行租约失败: %v", rule.ID, err)
		}
	}()

	start := time.Now()
	exec := &model.Execution{
		RuleID:    rule.ID,
		Status:    model.ExecutionRunning,
		StartedAt: start,
	}

	if err := e.store.CreateExecution(exec); err != nil {
		return nil, fmt.Errorf("创建执行记录失败: %w", err)
	}

	matched, results, runErr := e.run(ctx, rule, snapshot)

	completedAt := time.Now()
	exec.MatchedCount = len(matched)
	exec.Results = results
	exec.ActionsExecuted = len(results)
	exec.ExecutionTimeMs = completedAt.Sub(start).Milliseconds()
	exec.CompletedAt = &completedAt

	if runErr != nil {
		exec.Status = model.ExecutionFailure
		exec.Error = runErr.Error()
		log.Printf("规则 %s 执行失败: %v", rule.ID, runErr)
	} else {
		exec.Status = model.ExecutionSuccess
	}

	if err := e.store.CompleteExecution(exec); err != nil {
		return exec, fmt.Errorf("写入执行记录失败: %w", err)
	}

	return exec, nil
}

// run 拉取、评估、分发，panic在这里兜住并转为执行失败
func (e *Executor) run(ctx context.Context, rule *model.Rule, snapshot []model.Record) (matched []model.Record, results []model.ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("执行过程panic: %v", r)
		}
	}()

	records := snapshot
	if records == nil {
		source := rule.DataSource()
		if source == "" {
			return nil, nil, &model.ConfigError{Msg: fmt.Sprintf("规则元数据缺少 %s", model.MetaDataSource)}
		}

		records, err = e.fetcher.Fetch(ctx, source, nil)
		if err != nil {
			return nil, nil, err
		}
	}

	matched = evaluator.Filter(records, rule.Conditions)
	if len(matched) == 0 || len(rule.Actions) == 0 {
		return matched, nil, nil
	}

	results = e.dispatchAll(ctx, rule, matched)
	return matched, results, nil
}

// dispatchAll 对每条命中记录按声明顺序执行全部动作
// 记录之间通过有界工作池并行，动作失败互不影响
func (e *Executor) dispatchAll(ctx context.Context, rule *model.Rule, matched []model.Record) []model.ActionResult {
	var (
		mu      sync.Mutex
		results []model.ActionResult
		wg      sync.WaitGroup
	)

	sem := make(chan struct{}, e.workers)

	for recordIdx, record := range matched {
		wg.Add(1)
		sem <- struct{}{}

		go func(recordIdx int, record model.Record) {
			defer wg.Done()
			defer func() { <-sem }()

			for i, action := range rule.Actions {
				result := e.dispatcher.Dispatch(ctx, action, record)
				result.RecordIndex = recordIdx
				result.ActionIndex = i

				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				if !result.Success {
					log.Printf("规则 %s 动作 %d(%s) 执行失败: %s", rule.ID, i, action.Type, result.Error)
				}
			}
		}(recordIdx, record)
	}

	wg.Wait()
	return results
}
