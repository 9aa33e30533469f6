// pkg/evaluator/evaluator.go
package evaluator

import (
	"log"
	"strings"

	"GhostRadar/pkg/model"
)

// Matches 判断一条记录是否满足所有条件（逻辑与）
// 纯函数，无副作用，可并发调用
//
// 字段缺失时的约定：正向操作符(equals/greater_than/contains/in等)一律不命中，
// 取反操作符(not_equals/not_contains/not_in)定义为对应正向操作符的严格取反，
// 因此对缺失字段命中
func Matches(record model.Record, conditions []model.Condition) bool {
	for _, cond := range conditions {
		if !matchCondition(record, cond) {
			return false
		}
	}
	return true
}

// Filter 返回快照中满足所有条件的记录子集
func Filter(records []model.Record, conditions []model.Condition) []model.Record {
	matched := make([]model.Record, 0)
	for _, record := range records {
		if Matches(record, conditions) {
			matched = append(matched, record)
		}
	}
	return matched
}

// matchCondition 评估单个条件
func matchCondition(record model.Record, cond model.Condition) bool {
	field, present := record[cond.Field]

	switch cond.Operator {
	case model.OpEquals:
		return present && field.Equals(cond.Value)

	case model.OpNotEquals:
		return !(present && field.Equals(cond.Value))

	case model.OpGreaterThan:
		a, b, ok := numericOperands(cond.Field, field, cond.Value, present)
		return ok && a > b

	case model.OpLessThan:
		a, b, ok := numericOperands(cond.Field, field, cond.Value, present)
		return ok && a < b

	case model.OpGreaterThanOrEqual:
		a, b, ok := numericOperands(cond.Field, field, cond.Value, present)
		return ok && a >= b

	case model.OpLessThanOrEqual:
		a, b, ok := numericOperands(cond.Field, field, cond.Value, present)
		return ok && a <= b

	case model.OpContains:
		return containsString(field, cond.Value, present)

	case model.OpNotContains:
		return !containsString(field, cond.Value, present)

	case model.OpIn:
		return inArray(field, cond.Value, present)

	case model.OpNotIn:
		return !inArray(field, cond.Value, present)

	default:
		// 未知操作符不命中
		return false
	}
}

// numericOperands 将两侧转换为数值，转换失败时记录并跳过该条件
func numericOperands(name string, field, value model.Value, present bool) (float64, float64, bool) {
	if !present {
		return 0, 0, false
	}
	a, aok := field.AsNumber()
	b, bok := value.AsNumber()
	if !aok || !bok {
		log.Printf("字段 %s 无法转换为数值，条件跳过", name)
		return 0, 0, false
	}
	return a, b, true
}

// containsString 子串包含，区分大小写，字段必须是字符串
func containsString(field, value model.Value, present bool) bool {
	if !present || field.Kind != model.KindString {
		return false
	}
	sub, ok := value.AsString()
	if !ok {
		return false
	}
	return strings.Contains(field.Str, sub)
}

// inArray 集合成员判断，条件值必须是数组
func inArray(field, value model.Value, present bool) bool {
	if !present || value.Kind != model.KindArray {
		return false
	}
	for _, item := range value.Arr {
		if field.Equals(item) {
			return true
		}
	}
	return false
}
