// pkg/model/value.go
package model

import (
	"encoding/json"
	"strconv"
)

// ValueKind 值类型标签
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindString
	KindBool
	KindArray
)

// Value 带类型标签的值，指标快照中的字段统一用这个类型表示
// 不依赖反射，所有比较和转换都是显式规则
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
	Arr  []Value
}

// NumberValue 创建数值
func NumberValue(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// StringValue 创建字符串值
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// BoolValue 创建布尔值
func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// ArrayValue 创建数组值
func ArrayValue(items ...Value) Value {
	return Value{Kind: KindArray, Arr: items}
}

// NullValue 创建空值
func NullValue() Value {
	return Value{Kind: KindNull}
}

// AsNumber 转换为数值，布尔和数组不参与数值比较
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		n, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// AsString 转换为字符串
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.Bool), true
	case KindNull:
		return "", true
	default:
		return "", false
	}
}

// Equals 值相等比较：两边都能转数值时按数值比较，否则按字符串形式比较
func (v Value) Equals(other Value) bool {
	if v.Kind == KindArray || other.Kind == KindArray {
		if v.Kind != KindArray || other.Kind != KindArray {
			return false
		}
		if len(v.Arr) != len(other.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equals(other.Arr[i]) {
				return false
			}
		}
		return true
	}

	if an, ok := v.AsNumber(); ok {
		if bn, ok := other.AsNumber(); ok {
			return an == bn
		}
	}

	as, aok := v.AsString()
	bs, bok := other.AsString()
	return aok && bok && as == bs
}

// MarshalJSON 序列化为原生JSON值
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindString:
		return json.Marshal(v.Str)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindArray:
		if v.Arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Arr)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON 从任意JSON值反序列化，对象类型不支持，当作空值处理
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

// fromInterface 将解码后的JSON值转换为带标签的值
func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return NullValue()
	case float64:
		return NumberValue(t)
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, fromInterface(item))
		}
		return Value{Kind: KindArray, Arr: items}
	default:
		// JSON对象等不支持的类型
		return NullValue()
	}
}

// Record 一条指标快照记录，键为字段名
type Record map[string]Value
