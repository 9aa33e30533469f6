package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GhostRadar/pkg/model"
)

func testRecord() model.Record {
	return model.Record{
		"username":    model.StringValue("botuser"),
		"ghost_score": model.NumberValue(85),
	}
}

func TestRenderMessage(t *testing.T) {
	record := testRecord()

	out := RenderMessage("成员 {{username}} 的幽灵分为 {{ghost_score}}", record)
	assert.Equal(t, "成员 botuser 的幽灵分为 85", out)

	// 未知占位符替换为空字符串
	out = RenderMessage("hello {{unknown}}!", record)
	assert.Equal(t, "hello !", out)

	// 占位符允许空白
	out = RenderMessage("{{ username }}", record)
	assert.Equal(t, "botuser", out)

	// 无占位符原样返回
	assert.Equal(t, "plain", RenderMessage("plain", record))
}

func TestDispatchWebhookSuccess(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := New(5*time.Second, nil, nil, nil)
	action := model.Action{
		Type:   model.ActionWebhook,
		Config: model.ActionConfig{URL: server.URL, Message: "{{username}} 触发规则"},
	}

	result := d.Dispatch(context.Background(), action, testRecord())
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, model.ActionWebhook, result.ActionType)
	assert.Equal(t, "botuser 触发规则", received.Message)
}

func TestDispatchWebhookNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := New(5*time.Second, nil, nil, nil)
	action := model.Action{
		Type:   model.ActionWebhook,
		Config: model.ActionConfig{URL: server.URL},
	}

	result := d.Dispatch(context.Background(), action, testRecord())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "500")
}

func TestDispatchWebhookNetworkError(t *testing.T) {
	d := New(time.Second, nil, nil, nil)
	action := model.Action{
		Type:   model.ActionWebhook,
		Config: model.ActionConfig{URL: "http://127.0.0.1:1"},
	}

	result := d.Dispatch(context.Background(), action, testRecord())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

// fakeEmail 可控的邮件通道
type fakeEmail struct {
	err  error
	sent [][]string
	body string
}

func (f *fakeEmail) Send(ctx context.Context, recipients []string, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipients)
	f.body = body
	return nil
}

func TestDispatchEmail(t *testing.T) {
	email := &fakeEmail{}
	d := New(time.Second, email, nil, nil)

	action := model.Action{
		Type: model.ActionEmail,
		Config: model.ActionConfig{
			Message:    "{{username}} 需要关注",
			Recipients: []string{"mod@example.com"},
		},
	}

	result := d.Dispatch(context.Background(), action, testRecord())
	assert.True(t, result.Success)
	require.Len(t, email.sent, 1)
	assert.Equal(t, []string{"mod@example.com"}, email.sent[0])
	assert.Equal(t, "botuser 需要关注", email.body)
}

func TestDispatchEmailFailureCaptured(t *testing.T) {
	email := &fakeEmail{err: fmt.Errorf("smtp不可达")}
	d := New(time.Second, email, nil, nil)

	action := model.Action{
		Type:   model.ActionEmail,
		Config: model.ActionConfig{Recipients: []string{"mod@example.com"}},
	}

	// 失败只体现在结果里，不会panic或返回error
	result := d.Dispatch(context.Background(), action, testRecord())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "smtp不可达")
}

func TestDispatchMissingChannel(t *testing.T) {
	d := New(time.Second, nil, nil, nil)

	for _, actionType := range []model.ActionType{
		model.ActionEmail, model.ActionDiscordMessage, model.ActionNotification,
	} {
		action := model.Action{
			Type:   actionType,
			Config: model.ActionConfig{Recipients: []string{"x@example.com"}},
		}
		result := d.Dispatch(context.Background(), action, testRecord())
		assert.False(t, result.Success, "type %s", actionType)
		assert.NotEmpty(t, result.Error)
	}
}

// panicDiscord 总是panic的通道，用于验证panic被兜住
type panicDiscord struct{}

func (panicDiscord) Send(ctx context.Context, content string) error {
	panic("通道内部错误")
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := New(time.Second, nil, panicDiscord{}, nil)

	action := model.Action{Type: model.ActionDiscordMessage}
	result := d.Dispatch(context.Background(), action, testRecord())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "panic")
}

func TestDiscordWebhookSend(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewDiscordWebhook(server.URL, time.Second)
	require.NoError(t, sender.Send(context.Background(), "幽灵成员提醒"))
	assert.Equal(t, "幽灵成员提醒", received["content"])

	// 未配置地址直接报错
	empty := NewDiscordWebhook("", time.Second)
	assert.Error(t, empty.Send(context.Background(), "x"))
}

func TestDispatchUnknownActionType(t *testing.T) {
	d := New(time.Second, nil, nil, nil)

	result := d.Dispatch(context.Background(), model.Action{Type: "sms"}, testRecord())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "未知的动作类型")
}
