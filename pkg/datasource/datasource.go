// pkg/datasource/datasource.go
package datasource

import (
	"context"
	"time"

	"GhostRadar/pkg/model"
)

// Fetcher 指标快照获取接口
// since不为空时只返回该时间之后有更新的记录
type Fetcher interface {
	Fetch(ctx context.Context, name string, since *time.Time) ([]model.Record, error)
}
