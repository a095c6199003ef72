// Package quality 实现多因子质量分。
// 各项相互独立、可加；不可用的因子不计分，仅在风险标签中留痕。
package quality

import (
	"math"
	"strings"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
)

// 风险标签（诊断用，不参与打分）
const (
	RiskATRMissing       = "ATR_MISSING"
	RiskIndexRetMissing  = "INDEX_RET_MISSING"
	RiskLiquidityMissing = "LIQUIDITY_MISSING"
	RiskLiquidityLow     = "LIQUIDITY_LOW"
	RiskPriceCeiling     = "PRICE_ABOVE_CEILING"
)

// Input 单根 K 线的评分输入
type Input struct {
	// Bar 当前 K 线
	Bar *model.Bar
	// Prev 前一根 K 线，用于吞没形态识别；可为 nil
	Prev *model.Bar
	// Phase 结构分类结果
	Phase model.PhaseState
	// PctChg 当日涨跌幅
	PctChg float64
	// RelStrength 相对指数的 N 日超额收益，NaN 表示不可用
	RelStrength float64
}

// Score 评分结果
type Score struct {
	Value float64
	// RiskTags "|" 分隔的风险标签
	RiskTags string
}

// Scorer 质量分计算器（无状态，可并发使用）
type Scorer struct {
	cfg   config.QualityConfig
	trend config.TrendConfig
}

// New 创建质量分计算器
// 参数 cfg: 各项权重
// 参数 trend: 流动性下限与价格上限，仅用于风险标签
func New(cfg config.QualityConfig, trend config.TrendConfig) *Scorer {
	return &Scorer{cfg: cfg, trend: trend}
}

// Score 计算质量分
func (s *Scorer) Score(in Input) Score {
	b := in.Bar
	q := 0.0

	q += s.rotation(b.RotationPhase)
	q += s.chip(b.ChipScore)
	q += in.Phase.WyckoffScore * s.cfg.WyckoffWeight
	q += s.engulf(b, in.Prev) * s.cfg.EngulfWeight
	q += s.relStrength(in.RelStrength)

	if b.IndexRet < s.cfg.ResilienceIndexDrop && in.PctChg > 0 {
		q += s.cfg.ResilienceBonus
	}

	switch in.Phase.Phase {
	case model.PhaseDistribution:
		q += s.cfg.DistributionPenalty
	case model.PhaseAccumulation:
		q += s.cfg.AccumulationBonus
	case model.PhaseTrendUp:
		q += s.cfg.TrendUpBonus
	}

	q += s.rsi(b.RSI14)
	q += s.rps(b)
	q += s.acceleration(b)

	if bias := s.bias(b); bias > s.cfg.AntiChaseBias {
		q += s.cfg.AntiChasePenalty
	}

	return Score{Value: q, RiskTags: s.riskTags(b)}
}

func (s *Scorer) rotation(phase string) float64 {
	switch strings.ToLower(strings.TrimSpace(phase)) {
	case "leader", "leading":
		return s.cfg.RotationLeader
	case "improving":
		return s.cfg.RotationImproving
	}
	return 0
}

func (s *Scorer) chip(v float64) float64 {
	switch {
	case v >= s.cfg.ChipThreshold:
		return s.cfg.ChipWeight
	case v <= -s.cfg.ChipThreshold:
		return -s.cfg.ChipWeight
	}
	return 0
}

// engulf 外部吞没得分优先，缺失时按前一根 K 线识别
func (s *Scorer) engulf(b, prev *model.Bar) float64 {
	if model.Valid(b.EngulfScore) {
		return b.EngulfScore
	}
	return Engulfing(prev, b)
}

// Engulfing 吞没形态：看涨 +1，看跌 -1，否则 0
func Engulfing(prev, cur *model.Bar) float64 {
	if prev == nil || !prev.HasOHLCV() || !cur.HasOHLCV() {
		return 0
	}
	prevDown := prev.Close < prev.Open
	prevUp := prev.Close > prev.Open
	curUp := cur.Close > cur.Open
	curDown := cur.Close < cur.Open

	switch {
	case prevDown && curUp && cur.Open <= prev.Close && cur.Close >= prev.Open:
		return 1
	case prevUp && curDown && cur.Open >= prev.Close && cur.Close <= prev.Open:
		return -1
	}
	return 0
}

func (s *Scorer) relStrength(rs float64) float64 {
	if !model.Valid(rs) {
		return 0
	}
	switch {
	case rs > s.cfg.RSStrongThreshold:
		return s.cfg.RSStrong
	case rs > 0:
		return s.cfg.RSPositive
	}
	return s.cfg.RSNegative
}

func (s *Scorer) rsi(v float64) float64 {
	switch {
	case v > s.cfg.RSIOverbought:
		return s.cfg.RSIOverboughtPenalty
	case v >= s.cfg.RSIBandLow && v <= s.cfg.RSIBandHigh:
		return s.cfg.RSIBandBonus
	}
	return 0
}

// rps RPS 分档，RPS50 不可用时不计分
func (s *Scorer) rps(b *model.Bar) float64 {
	if !model.Valid(b.RPS50) {
		return 0
	}
	dist := model.SafeDiv(math.Abs(b.Close-b.MA250), b.MA250)
	nearYearline := dist <= s.cfg.YearlineBand
	improving := b.RPS50 > b.RPS120

	switch {
	case b.RPS50 >= s.cfg.RPSLeader:
		return s.cfg.RPSLeaderBonus
	case nearYearline && improving:
		return s.cfg.YearlineImprovingBonus
	case nearYearline:
		return s.cfg.YearlineStableBonus
	case b.RPS50 < s.cfg.RPSWeak:
		return s.cfg.RPSWeakPenalty
	}
	return 0
}

// acceleration 短中长期日均收益逐级放大且均为正，并且 RPS50 足够强
func (s *Scorer) acceleration(b *model.Bar) float64 {
	short, mid, long := b.Ret20/20, b.Ret50/50, b.Ret120/120
	if short > mid && mid > long && long > 0 && b.RPS50 > s.cfg.AccelRPSMin {
		return s.cfg.AccelBonus
	}
	return 0
}

// bias 相对 MA20 的乖离率，外部值优先
func (s *Scorer) bias(b *model.Bar) float64 {
	if model.Valid(b.MA20Bias) {
		return b.MA20Bias
	}
	return model.SafeDiv(b.Close-b.MA20, b.MA20)
}

func (s *Scorer) riskTags(b *model.Bar) string {
	var tags model.Reasons
	if !model.Valid(b.ATR14) {
		tags.Add(RiskATRMissing)
	}
	if !model.Valid(b.IndexRet) {
		tags.Add(RiskIndexRetMissing)
	}
	switch {
	case !model.Valid(b.Amount):
		tags.Add(RiskLiquidityMissing)
	case b.Amount < s.trend.MinDailyAmount:
		tags.Add(RiskLiquidityLow)
	}
	if s.trend.PriceCeiling > 0 && b.Close > s.trend.PriceCeiling {
		tags.Add(RiskPriceCeiling)
	}
	return tags.String()
}
