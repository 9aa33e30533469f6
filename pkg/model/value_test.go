package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueUnmarshalJSON(t *testing.T) {
	raw := `{
		"ghost_score": 81.5,
		"username": "botuser",
		"flagged": true,
		"tags": ["lurker", 3],
		"profile": {"nested": 1},
		"missing": null
	}`

	var record Record
	require.NoError(t, json.Unmarshal([]byte(raw), &record))

	assert.Equal(t, NumberValue(81.5), record["ghost_score"])
	assert.Equal(t, StringValue("botuser"), record["username"])
	assert.Equal(t, BoolValue(true), record["flagged"])
	assert.Equal(t, ArrayValue(StringValue("lurker"), NumberValue(3)), record["tags"])

	// 嵌套对象不支持，按空值处理
	assert.Equal(t, KindNull, record["profile"].Kind)
	assert.Equal(t, KindNull, record["missing"].Kind)
}

func TestValueMarshalRoundTrip(t *testing.T) {
	value := ArrayValue(NumberValue(1), StringValue("a"), BoolValue(false))

	data, err := json.Marshal(value)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, "a", false]`, string(data))

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, value.Equals(decoded))
}

func TestValueAsNumber(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  float64
		ok    bool
	}{
		{"number", NumberValue(42), 42, true},
		{"numeric string", StringValue("81.5"), 81.5, true},
		{"non-numeric string", StringValue("bot"), 0, false},
		{"bool", BoolValue(true), 0, false},
		{"null", NullValue(), 0, false},
		{"array", ArrayValue(NumberValue(1)), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.AsNumber()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueAsString(t *testing.T) {
	s, ok := NumberValue(80).AsString()
	assert.True(t, ok)
	assert.Equal(t, "80", s)

	s, ok = BoolValue(true).AsString()
	assert.True(t, ok)
	assert.Equal(t, "true", s)

	_, ok = ArrayValue().AsString()
	assert.False(t, ok)
}

func TestValueEquals(t *testing.T) {
	// 数值与数值字符串按数值比较
	assert.True(t, NumberValue(80).Equals(StringValue("80")))
	assert.True(t, StringValue("80").Equals(NumberValue(80)))
	assert.False(t, NumberValue(80).Equals(NumberValue(81)))

	assert.True(t, StringValue("bot").Equals(StringValue("bot")))
	assert.False(t, StringValue("bot").Equals(StringValue("Bot")))

	assert.True(t, BoolValue(true).Equals(BoolValue(true)))
	assert.False(t, BoolValue(true).Equals(BoolValue(false)))

	assert.True(t, ArrayValue(NumberValue(1)).Equals(ArrayValue(NumberValue(1))))
	assert.False(t, ArrayValue(NumberValue(1)).Equals(ArrayValue(NumberValue(2))))
	assert.False(t, ArrayValue(NumberValue(1)).Equals(NumberValue(1)))
}

func TestRuleValidate(t *testing.T) {
	rule := &Rule{
		Name:        "幽灵检测",
		TriggerType: TriggerManual,
		Conditions: []Condition{
			{Field: "ghost_score", Operator: OpGreaterThan, Value: NumberValue(80)},
		},
		Actions: []Action{
			{Type: ActionWebhook, Config: ActionConfig{URL: "http://example.com/hook"}},
		},
	}
	assert.NoError(t, rule.Validate())

	// 非法操作符
	bad := *rule
	bad.Conditions = []Condition{{Field: "x", Operator: "like", Value: NumberValue(1)}}
	assert.Error(t, bad.Validate())

	// webhook缺少url
	bad = *rule
	bad.Actions = []Action{{Type: ActionWebhook}}
	assert.Error(t, bad.Validate())

	// email缺少收件人
	bad = *rule
	bad.Actions = []Action{{Type: ActionEmail}}
	assert.Error(t, bad.Validate())
}

func TestRuleValidateForActivation(t *testing.T) {
	rule := &Rule{
		Name:        "定时幽灵扫描",
		TriggerType: TriggerScheduled,
		Schedule:    "*/5 * * * *",
		Metadata:    map[string]string{MetaDataSource: "ghosts"},
	}
	assert.NoError(t, rule.ValidateForActivation())

	// 定时规则缺少schedule
	bad := *rule
	bad.Schedule = ""
	err := bad.ValidateForActivation()
	require.Error(t, err)
	assert.IsType(t, &ConfigError{}, err)

	// schedule表达式无法解析
	bad = *rule
	bad.Schedule = "not a cron"
	assert.Error(t, bad.ValidateForActivation())

	// 缺少数据源
	bad = *rule
	bad.Metadata = nil
	assert.Error(t, bad.ValidateForActivation())
}

func TestTemplateNewRule(t *testing.T) {
	template := &RuleTemplate{
		Name:        "高幽灵分提醒",
		Description: "ghost_score超过阈值时通知",
		Conditions: []Condition{
			{Field: "ghost_score", Operator: OpGreaterThan, Value: NumberValue(80)},
		},
		Actions: []Action{
			{Type: ActionNotification, Config: ActionConfig{Message: "{{username}} 可能是幽灵成员"}},
		},
	}

	rule := template.NewRule("owner-1", "")
	assert.Equal(t, template.Name, rule.Name)
	assert.Equal(t, "owner-1", rule.OwnerID)
	assert.Equal(t, RuleStatusDraft, rule.Status)
	assert.Equal(t, TriggerManual, rule.TriggerType)
	assert.Len(t, rule.Conditions, 1)
	assert.Len(t, rule.Actions, 1)

	// 实例化后的规则修改不影响模板
	rule.Conditions[0].Field = "suspicion_score"
	assert.Equal(t, "ghost_score", template.Conditions[0].Field)

	named := template.NewRule("owner-1", "自定义名称")
	assert.Equal(t, "自定义名称", named.Name)
}
