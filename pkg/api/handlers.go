package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"GhostRadar/pkg/database"
	"GhostRadar/pkg/engine"
	"GhostRadar/pkg/model"
)

// ConnChecker 就绪检查依赖的连接状态
type ConnChecker interface {
	IsConnected() bool
}

// Handlers API处理程序
type Handlers struct {
	db       *database.DB
	executor *engine.Executor
	nats     ConnChecker
}

// NewHandlers 创建新的API处理程序
func NewHandlers(db *database.DB, executor *engine.Executor, nats ConnChecker) *Handlers {
	return &Handlers{
		db:       db,
		executor: executor,
		nats:     nats,
	}
}

// HealthCheck 健康检查处理程序
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck 就绪检查处理程序，NATS断连时报告未就绪
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	if h.nats != nil && !h.nats.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "NATS未连接",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// CreateRuleRequest 创建规则请求
type CreateRuleRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	OwnerID     string            `json:"owner_id" binding:"required"`
	TriggerType model.TriggerType `json:"trigger_type" binding:"required"`
	Schedule    string            `json:"schedule"`
	Conditions  []model.Condition `json:"conditions"`
	Actions     []model.Action    `json:"actions"`
	Metadata    map[string]string `json:"metadata"`
}

// CreateRule 创建规则处理程序，新规则始终为草稿状态
func (h *Handlers) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "无效的请求参数: " + err.Error(),
		})
		return
	}

	rule := &model.Rule{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     req.OwnerID,
		Status:      model.RuleStatusDraft,
		TriggerType: req.TriggerType,
		Schedule:    req.Schedule,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Metadata:    req.Metadata,
	}

	if err := h.db.Rules().Create(rule); err != nil {
		h.writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": rule,
	})
}

// ListRules 规则列表处理程序
func (h *Handlers) ListRules(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "owner_id参数不能为空",
		})
		return
	}

	rules, err := h.db.Rules().GetByOwner(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询规则失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rules,
	})
}

// GetRule 规则详情处理程序，附带最近的执行历史
func (h *Handlers) GetRule(c *gin.Context) {
	rule, err := h.db.Rules().GetWithExecutions(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rule,
	})
}

// UpdateRuleRequest 更新规则请求
type UpdateRuleRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	TriggerType model.TriggerType `json:"trigger_type"`
	Schedule    string            `json:"schedule"`
	Conditions  []model.Condition `json:"conditions"`
	Actions     []model.Action    `json:"actions"`
	Metadata    map[string]string `json:"metadata"`
}

// UpdateRule 更新规则处理程序
func (h *Handlers) UpdateRule(c *gin.Context) {
	rule, err := h.db.Rules().GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "无效的请求参数: " + err.Error(),
		})
		return
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Description != "" {
		rule.Description = req.Description
	}
	if req.TriggerType != "" {
		rule.TriggerType = req.TriggerType
	}
	if req.Schedule != "" {
		rule.Schedule = req.Schedule
	}
	if req.Conditions != nil {
		rule.Conditions = req.Conditions
	}
	if req.Actions != nil {
		rule.Actions = req.Actions
	}
	if req.Metadata != nil {
		rule.Metadata = req.Metadata
	}

	if err := h.db.Rules().Update(rule); err != nil {
		h.writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rule,
	})
}

// DeleteRule 删除规则处理程序
func (h *Handlers) DeleteRule(c *gin.Context) {
	if err := h.db.Rules().Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
	})
}

// ActivateRule 激活规则处理程序
// 定时规则在这里校验schedule表达式，校验失败不进入active状态
func (h *Handlers) ActivateRule(c *gin.Context) {
	rule, err := h.db.Rules().Activate(c.Param("id"))
	if err != nil {
		h.writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rule,
	})
}

// PauseRule 暂停规则处理程序，不会中断在途执行
func (h *Handlers) PauseRule(c *gin.Context) {
	rule, err := h.db.Rules().Pause(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rule,
	})
}

// ExecuteRule 手动触发处理程序，暂停中的规则也允许手动执行
func (h *Handlers) ExecuteRule(c *gin.Context) {
	exec, err := h.executor.ExecuteNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "规则已有执行在进行中",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "触发执行失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": exec,
	})
}

// GetExecutions 执行历史处理程序
func (h *Handlers) GetExecutions(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	executions, err := h.db.Executions().GetByRule(c.Param("id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询执行历史失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": executions,
	})
}

// ListTemplates 规则模板列表处理程序
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.db.Templates().List(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询规则模板失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": templates,
	})
}

// InstantiateRequest 模板实例化请求
type InstantiateRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
	Name    string `json:"name"`
}

// InstantiateTemplate 从模板创建草稿规则处理程序
func (h *Handlers) InstantiateTemplate(c *gin.Context) {
	var req InstantiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "无效的请求参数: " + err.Error(),
		})
		return
	}

	rule, err := h.db.Templates().Instantiate(c.Param("id"), req.OwnerID, req.Name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": rule,
	})
}

// GetDailyDigest 每日执行摘要处理程序，汇总最近24小时的执行情况
func (h *Handlers) GetDailyDigest(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "owner_id参数不能为空",
		})
		return
	}

	since := time.Now().Add(-24 * time.Hour)

	stats, err := h.db.Executions().GetStatsByOwner(ownerID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "统计执行记录失败: " + err.Error(),
		})
		return
	}

	recent, err := h.db.Executions().GetRecentByOwner(ownerID, since, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询最近执行记录失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"summary": FormatDailyDigest(stats),
			"stats":   stats,
			"recent":  recent,
		},
	})
}

// writeRuleError 规则写操作的统一错误输出，配置错误返回400
func (h *Handlers) writeRuleError(c *gin.Context, err error) {
	var configErr *model.ConfigError
	if errors.As(err, &configErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": configErr.Msg,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": err.Error(),
	})
}
