// pkg/datasource/http.go
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"GhostRadar/pkg/model"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// HTTPSource 指标服务HTTP适配器
// 按名称拉取行为指标快照（ghosts、suspicion等）
type HTTPSource struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// snapshotResponse 指标服务响应结构
type snapshotResponse struct {
	Source  string         `json:"source"`
	Records []model.Record `json:"records"`
}

// NewHTTPSource 创建指标服务适配器
func NewHTTPSource(apiKey, baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch 拉取指定数据源的当前快照
// 未知数据源(404)为配置错误，不重试；网络/超时/5xx为瞬时错误，指数退避重试
func (s *HTTPSource) Fetch(ctx context.Context, name string, since *time.Time) ([]model.Record, error) {
	if name == "" {
		return nil, &model.ConfigError{Msg: "数据源名称不能为空"}
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		records, retryable, err := s.fetchOnce(ctx, name, since)
		if err == nil {
			return records, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		if attempt < maxAttempts {
			log.Printf("拉取数据源 %s 失败(第%d次): %v，%v后重试", name, attempt, err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &model.TransientError{Op: fmt.Sprintf("拉取数据源 %s", name), Err: ctx.Err()}
			}
			backoff *= 2
		}
	}

	return nil, &model.TransientError{Op: fmt.Sprintf("拉取数据源 %s 重试耗尽", name), Err: lastErr}
}

// fetchOnce 单次请求，返回是否可重试
func (s *HTTPSource) fetchOnce(ctx context.Context, name string, since *time.Time) ([]model.Record, bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/metrics/%s", s.baseURL, url.PathEscape(name))
	if since != nil {
		endpoint += "?since=" + url.QueryEscape(since.Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, &model.ConfigError{Msg: fmt.Sprintf("创建HTTP请求失败: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("执行HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, &model.ConfigError{Msg: fmt.Sprintf("未知数据源: %s", name)}
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("指标服务返回状态码 %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, &model.ConfigError{Msg: fmt.Sprintf("指标服务返回状态码 %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("读取响应体失败: %w", err)
	}

	var snapshot snapshotResponse
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, false, &model.ConfigError{Msg: fmt.Sprintf("解析快照响应失败: %v", err)}
	}

	return snapshot.Records, false, nil
}
