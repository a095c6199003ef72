// Package model 定义信号引擎中使用的核心数据结构。
package model

import (
	"errors"
	"math"
	"time"
)

// ErrMissingOHLCV OHLCV 必需列族整体缺失，属于致命的输入配置错误
var ErrMissingOHLCV = errors.New("OHLCV 列族缺失")

// Bar 单只标的的日线数据及外部预计算指标
// 约定：所有可选数值字段以 NaN 表示"不可用"，在摄取阶段一次性解析，
// 下游计算不得再区分"字段缺失"与"值缺失"。
// Bar 一经摄取即视为只读。
type Bar struct {
	// Code 标的代码，如 sh.600000
	Code string
	// Date 交易日（按日对齐，忽略时分秒）
	Date time.Time

	// Open/High/Low/Close/Volume 为必需列族；整列缺失属于致命配置错误
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	// Amount 成交额（元），缺失时流动性门槛不生效，仅打风险标签
	Amount float64

	// 均线族
	MA5   float64
	MA10  float64
	MA20  float64
	MA60  float64
	MA250 float64

	// ATR14 14 日平均真实波幅
	ATR14 float64
	// VolRatio 量比
	VolRatio float64
	// MACDHist MACD 柱
	MACDHist float64
	// KDJK/KDJD KDJ 指标
	KDJK float64
	KDJD float64
	// RSI14 14 日 RSI
	RSI14 float64
	// MA20Bias 收盘价相对 MA20 的乖离率（小数，0.1 表示 10%）
	MA20Bias float64

	// RPS50/RPS120 相对强度百分位（0-100）
	RPS50  float64
	RPS120 float64
	// Ret20/Ret50/Ret120 区间收益率（小数）
	Ret20  float64
	Ret50  float64
	Ret120 float64

	// IndexRet 基准指数当日收益率（小数），由外部按日期关联
	IndexRet float64
	// RotationPhase 所属板块轮动阶段：leader/leading/improving/...，空串表示未知
	RotationPhase string
	// ChipScore 筹码集中度得分
	ChipScore float64
	// EngulfScore 吞没形态得分；NaN 时由评分器根据前一根 K 线自行识别
	EngulfScore float64

	// OneWordLimitUp 一字涨停标记
	OneWordLimitUp bool
	// EnvGateAction 大盘环境门控动作：STOP/ALLOW_NONE/...，空串表示无门控
	EnvGateAction string
}

// NewBar 创建一根 Bar，所有可选数值字段初始化为 NaN
func NewBar(code string, date time.Time) Bar {
	nan := math.NaN()
	return Bar{
		Code:        code,
		Date:        date,
		Open:        nan,
		High:        nan,
		Low:         nan,
		Close:       nan,
		Volume:      nan,
		Amount:      nan,
		MA5:         nan,
		MA10:        nan,
		MA20:        nan,
		MA60:        nan,
		MA250:       nan,
		ATR14:       nan,
		VolRatio:    nan,
		MACDHist:    nan,
		KDJK:        nan,
		KDJD:        nan,
		RSI14:       nan,
		MA20Bias:    nan,
		RPS50:       nan,
		RPS120:      nan,
		Ret20:       nan,
		Ret50:       nan,
		Ret120:      nan,
		IndexRet:    nan,
		ChipScore:   nan,
		EngulfScore: nan,
	}
}

// HasOHLCV 判断当前 Bar 的 OHLCV 是否全部可用
func (b *Bar) HasOHLCV() bool {
	return Valid(b.Open) && Valid(b.High) && Valid(b.Low) && Valid(b.Close) && Valid(b.Volume)
}

// Valid 判断数值是否可用（非 NaN、非 Inf）
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Or 数值不可用时返回默认值
func Or(v, def float64) float64 {
	if Valid(v) {
		return v
	}
	return def
}

// SafeDiv 除法保护：分母为 0 或任一操作数不可用时返回 NaN
func SafeDiv(num, den float64) float64 {
	if !Valid(num) || !Valid(den) || den == 0 {
		return math.NaN()
	}
	return num / den
}
