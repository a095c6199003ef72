// Package timeutil 提供交易日相关的工具函数。
// 交易日统一以 UTC 零点表示，避免时区导致同一交易日出现两个 key。
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 交易日标准文本格式
const DateLayout = "2006-01-02"

// 可接受的交易日输入格式
var dateLayouts = []string{
	DateLayout,
	"20060102",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate 解析交易日文本
// 参数 s: 如 "2024-01-02"、"20240102"、"2024/01/02"
// 返回: UTC 零点的交易日
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析交易日: %q", s)
}

// Day 截断为 UTC 零点
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate 格式化交易日
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SameDay 判断是否同一交易日
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DurationMs 耗时（毫秒，浮点以保留精度）
func DurationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
