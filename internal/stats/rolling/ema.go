package rolling

import "math"

// EMA 指数移动平均（adjust=false），以首个样本为种子
type EMA struct {
	alpha float64
	value float64
	ready bool
}

// NewEMA 创建 EMA
// 参数 span: 平滑周期，alpha = 2/(span+1)
func NewEMA(span int) *EMA {
	if span <= 0 {
		span = 1
	}
	return &EMA{alpha: 2.0 / (float64(span) + 1)}
}

// Push 写入新样本并返回最新 EMA
func (m *EMA) Push(v float64) float64 {
	if !m.ready {
		m.value = v
		m.ready = true
		return m.value
	}
	m.value = m.alpha*v + (1-m.alpha)*m.value
	return m.value
}

// Value 最新 EMA；尚无样本时返回 NaN
func (m *EMA) Value() float64 {
	if !m.ready {
		return math.NaN()
	}
	return m.value
}
