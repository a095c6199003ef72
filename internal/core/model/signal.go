package model

import (
	"encoding/json"
	"strings"
	"time"

	"ashare-signal-engine/internal/util/timeutil"
)

// Signal 最终交易决策
type Signal string

const (
	SignalBuy        Signal = "BUY"
	SignalBuyConfirm Signal = "BUY_CONFIRM"
	SignalSell       Signal = "SELL"
	SignalReduce     Signal = "REDUCE"
	SignalHold       Signal = "HOLD"
	SignalWait       Signal = "WAIT"
)

// AllSignals 按统计输出顺序排列的全部信号
var AllSignals = []Signal{SignalBuy, SignalBuyConfirm, SignalSell, SignalReduce, SignalHold, SignalWait}

// IsBuy 是否为可建仓信号（BUY 或 BUY_CONFIRM）
func (s Signal) IsBuy() bool {
	return s == SignalBuy || s == SignalBuyConfirm
}

// SignalRecord 单只标的单个交易日的信号记录
// 每个 (code, date) 仅有一条；重复计算以 upsert 方式覆盖。
type SignalRecord struct {
	// Code 标的代码
	Code string `json:"code"`
	// Date 交易日
	Date time.Time `json:"-"`
	// Signal 最终信号
	Signal Signal `json:"signal"`
	// Reason 触发原因，"|" 分隔，只追加不覆盖
	Reason string `json:"reason"`
	// RiskTag 风险诊断标签，"|" 分隔，不参与打分
	RiskTag string `json:"risk_tag"`
	// QualityScore 质量分
	QualityScore float64 `json:"quality_score"`
	// FinalCap 建仓上限比例，范围 [0, 0.8]，非买入信号恒为 0
	FinalCap float64 `json:"final_cap"`

	// Phase/Event 结构分类结果，便于下游复盘
	Phase Phase `json:"phase"`
	Event Event `json:"event,omitempty"`

	// Extra 非标准的诊断字段（中间量、原始信号等），不参与决策
	Extra Extra `json:"extra,omitempty"`
}

// Extra 诊断字段集合
type Extra map[string]any

// SetFloat 写入数值诊断；不可用的数值不写入
func (e *Extra) SetFloat(key string, v float64) {
	if !Valid(v) {
		return
	}
	e.Set(key, v)
}

// Set 写入诊断字段；空串不写入
func (e *Extra) Set(key string, v any) {
	if s, ok := v.(string); ok && s == "" {
		return
	}
	if *e == nil {
		*e = make(Extra)
	}
	(*e)[key] = v
}

// RecordKey upsert 主键
type RecordKey struct {
	Code string
	Date string
}

// Key 返回记录的 upsert 主键
func (r *SignalRecord) Key() RecordKey {
	return RecordKey{Code: r.Code, Date: timeutil.FormatDate(r.Date)}
}

// MarshalJSON 以 YYYY-MM-DD 输出交易日
func (r SignalRecord) MarshalJSON() ([]byte, error) {
	type alias SignalRecord
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(r), Date: r.DateString()})
}

// DateString 交易日文本
func (r *SignalRecord) DateString() string {
	return timeutil.FormatDate(r.Date)
}

// Reasons 理由累加器，保持触发顺序、去重
type Reasons struct {
	parts []string
}

// Add 追加一条理由；空串与重复项忽略
func (r *Reasons) Add(s string) {
	if s == "" {
		return
	}
	for _, p := range r.parts {
		if p == s {
			return
		}
	}
	r.parts = append(r.parts, s)
}

// Len 已累加的理由条数
func (r *Reasons) Len() int {
	return len(r.parts)
}

// String 以 "|" 拼接
func (r *Reasons) String() string {
	return strings.Join(r.parts, "|")
}
