// pkg/model/event.go
package model

import "time"

// MetricEvent 指标更新事件
// records非空时作为快照直接评估，为空时由执行器重新拉取数据
type MetricEvent struct {
	Source    string    `json:"source"`
	Records   []Record  `json:"records,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
