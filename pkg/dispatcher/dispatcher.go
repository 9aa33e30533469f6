// pkg/dispatcher/dispatcher.go
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"GhostRadar/pkg/model"
)

// placeholderPattern 消息模板中的{{field}}占位符
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Dispatcher 动作分发器
// 单个动作的失败只记录在结果里，绝不向上抛出
type Dispatcher struct {
	client   *http.Client
	email    EmailSender
	discord  DiscordSender
	notifier NotificationSink
}

// New 创建动作分发器
func New(webhookTimeout time.Duration, email EmailSender, discord DiscordSender, notifier NotificationSink) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		email:    email,
		discord:  discord,
		notifier: notifier,
	}
}

// RenderMessage 渲染消息模板，占位符从记录中取值，未知占位符替换为空字符串
func RenderMessage(template string, record model.Record) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		field := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := record[field]
		if !ok {
			return ""
		}
		s, ok := value.AsString()
		if !ok {
			return ""
		}
		return s
	})
}

// Dispatch 执行单个动作并返回结果
func (d *Dispatcher) Dispatch(ctx context.Context, action model.Action, record model.Record) model.ActionResult {
	start := time.Now()
	result := model.ActionResult{
		ActionType: action.Type,
	}

	// 动作失败不允许影响后续动作，panic也在这里兜住
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("动作执行panic: %v", r)
			}
		}()

		message := RenderMessage(action.Config.Message, record)

		switch action.Type {
		case model.ActionWebhook:
			return d.sendWebhook(ctx, action.Config.URL, message, record)
		case model.ActionEmail:
			return d.sendEmail(ctx, action.Config.Recipients, message)
		case model.ActionDiscordMessage:
			return d.sendDiscord(ctx, message)
		case model.ActionNotification:
			return d.sendNotification(ctx, message, record)
		default:
			return fmt.Errorf("未知的动作类型: %s", action.Type)
		}
	}()

	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Success = true
	}

	return result
}

// webhookPayload webhook请求体
type webhookPayload struct {
	Message string       `json:"message"`
	Record  model.Record `json:"record"`
}

// sendWebhook POST渲染后的消息到目标地址，非2xx视为失败，不重试
func (d *Dispatcher) sendWebhook(ctx context.Context, url, message string, record model.Record) error {
	if url == "" {
		return fmt.Errorf("webhook动作缺少url配置")
	}

	body, err := json.Marshal(webhookPayload{Message: message, Record: record})
	if err != nil {
		return fmt.Errorf("序列化webhook请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("创建webhook请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("执行webhook请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook返回状态码 %d", resp.StatusCode)
	}

	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, recipients []string, message string) error {
	if d.email == nil {
		return fmt.Errorf("邮件通道未配置")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("email动作缺少收件人配置")
	}
	return d.email.Send(ctx, recipients, "GhostRadar 规则提醒", message)
}

func (d *Dispatcher) sendDiscord(ctx context.Context, message string) error {
	if d.discord == nil {
		return fmt.Errorf("Discord通道未配置")
	}
	return d.discord.Send(ctx, message)
}

func (d *Dispatcher) sendNotification(ctx context.Context, message string, record model.Record) error {
	if d.notifier == nil {
		return fmt.Errorf("站内通知通道未配置")
	}
	return d.notifier.Push(ctx, message, record)
}
