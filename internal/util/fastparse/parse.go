// Package fastparse 提供行情 CSV 字段的解析函数。
// 使用 strconv 直接转换，可选字段的各种缺失写法统一解析为 NaN。
package fastparse

import (
	"math"
	"strconv"
	"strings"
)

// missingTokens 视为缺失值的文本（上游导出工具的常见写法）
var missingTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
	"-":    true,
	"--":   true,
}

// IsMissing 判断字段文本是否表示缺失
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseFloat 解析浮点数字符串
// 参数 s: 待解析的字符串，如 "12.34"
// 返回: 解析后的浮点数和可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// ParseOptFloat 解析可选浮点字段
// 缺失写法返回 NaN 且无错误；非法数字返回错误。
func ParseOptFloat(s string) (float64, error) {
	if IsMissing(s) {
		return math.NaN(), nil
	}
	return ParseFloat(s)
}

// ParseOptBool 解析可选布尔字段，缺失视为 false
// 接受 1/0、true/false、yes/no、y/n（不区分大小写）
func ParseOptBool(s string) (bool, error) {
	if IsMissing(s) {
		return false, nil
	}
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "1.0":
		return true, nil
	case "0", "false", "no", "n", "0.0":
		return false, nil
	}
	return strconv.ParseBool(v)
}

// FormatFloat 格式化浮点数，NaN 输出为空串
// 参数 prec: 小数位数，-1 表示最短表示
func FormatFloat(f float64, prec int) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}
