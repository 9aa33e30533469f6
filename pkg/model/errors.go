// pkg/model/errors.go
package model

import "fmt"

// ConfigError 配置错误：数据源不存在、schedule非法、条件/动作定义非法
// 不会重试，直接导致执行失败
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// TransientError 瞬时错误：网络、超时等，数据源适配器会有限重试
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
