package api

import (
	"fmt"

	"GhostRadar/pkg/model"
)

// FormatDailyDigest 格式化每日执行摘要
func FormatDailyDigest(stats map[string]int64) string {
	total := int64(0)
	for _, count := range stats {
		total += count
	}

	if total == 0 {
		return "最近24小时内没有规则执行。"
	}

	summary := fmt.Sprintf("📊 最近24小时规则执行摘要 (共%d次)\n\n", total)
	summary += fmt.Sprintf("✅ 成功: %d次\n", stats[string(model.ExecutionSuccess)])
	summary += fmt.Sprintf("❌ 失败: %d次\n", stats[string(model.ExecutionFailure)])

	if running := stats[string(model.ExecutionRunning)]; running > 0 {
		summary += fmt.Sprintf("⏳ 进行中: %d次\n", running)
	}

	if failed := stats[string(model.ExecutionFailure)]; failed > 0 {
		summary += "\n💡 建议：请检查失败执行的错误信息，确认数据源与动作配置是否有效。"
	}

	return summary
}
