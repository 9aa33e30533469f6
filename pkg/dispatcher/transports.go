// pkg/dispatcher/transports.go
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"GhostRadar/pkg/messaging"
	"GhostRadar/pkg/model"
)

// EmailSender 邮件发送通道
type EmailSender interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// DiscordSender Discord消息通道
type DiscordSender interface {
	Send(ctx context.Context, content string) error
}

// NotificationSink 站内通知通道
type NotificationSink interface {
	Push(ctx context.Context, message string, record model.Record) error
}

// SMTPSender 基于SMTP的邮件通道
type SMTPSender struct {
	host string
	port int
	from string
}

// NewSMTPSender 创建SMTP邮件通道
func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, recipients []string, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, strings.Join(recipients, ", "), subject, body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, nil, s.from, recipients, []byte(msg)); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// DiscordWebhook 基于webhook的Discord消息通道
type DiscordWebhook struct {
	url    string
	client *http.Client
}

// NewDiscordWebhook 创建Discord webhook通道
func NewDiscordWebhook(url string, timeout time.Duration) *DiscordWebhook {
	return &DiscordWebhook{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (d *DiscordWebhook) Send(ctx context.Context, content string) error {
	if d.url == "" {
		return fmt.Errorf("Discord webhook地址未配置")
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("序列化Discord消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("创建Discord请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("执行Discord请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Discord返回状态码 %d", resp.StatusCode)
	}

	return nil
}

// NATSNotifier 基于NATS的站内通知通道，发布到通知流由站内消费者投递
type NATSNotifier struct {
	client *messaging.NATSClient
}

// NewNATSNotifier 创建NATS站内通知通道
func NewNATSNotifier(client *messaging.NATSClient) *NATSNotifier {
	return &NATSNotifier{client: client}
}

// notificationMessage 站内通知载荷
type notificationMessage struct {
	Message   string       `json:"message"`
	Record    model.Record `json:"record,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (n *NATSNotifier) Push(ctx context.Context, message string, record model.Record) error {
	return n.client.Publish(messaging.NotificationsSubjectPrefix+"events", notificationMessage{
		Message:   message,
		Record:    record,
		CreatedAt: time.Now(),
	})
}
