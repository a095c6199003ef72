// Package combine 将硬门槛、基础信号、结构分类与质量分合成最终决策与仓位。
package combine

import (
	"math"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/lowsuck"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/core/quality"
	"ashare-signal-engine/internal/core/trend"
)

// 触发原因
const (
	ReasonGateMissing   = "关键数据缺失"
	ReasonGateLimitUp   = "一字涨停"
	ReasonGateEnv       = "环境门控拦截"
	ReasonGateLiquidity = "成交额不足"

	ReasonDeadCross    = "均线死叉"
	ReasonStagnation   = "放量滞涨"
	ReasonHardStop     = "跌破MA20止损"
	ReasonTrailingStop = "移动止损"
	ReasonReduce       = "弱势减仓"
	ReasonCross        = "趋势金叉"
	ReasonPullback     = "回踩MA20"
	ReasonWatch        = "观望"

	ReasonDistributionSOW = "派发SOW强制卖出"
	ReasonLowQuality      = "质量分过低"
	ReasonEnvLowQuality   = "弱市低质量拦截"
	ReasonWyckoffConfirm  = "威科夫底部确认"
	ReasonWarmup          = "历史不足预热"
)

// 低吸策略的原因与风险标签
const (
	ReasonLowSuckPrefix     = "低吸: "
	ReasonLowSuckBias       = "乖离超跌"
	ReasonLowSuckRSI        = "RSI超卖"
	ReasonLowSuckMA60       = "回踩MA60"
	ReasonLowSuckMA250      = "回踩MA250"
	ReasonLowSuckRecentLow  = "接近近期低位"
	ReasonLowSuckReversal   = "反转确认"
	ReasonLowSuckVolatility = "波动收缩"

	RiskLowSuckKnife = "LOW_SUCK_KNIFE"
)

// 诊断字段名
const (
	ExtraOrigSignal        = "orig_signal"
	ExtraWyckoffAction     = "wyckoff_action"
	ExtraIndexRetTrailing  = "index_ret_trailing"
	ExtraQualityThreshold  = "quality_threshold"
	ExtraWeakMarket        = "weak_market"
	ExtraLowSuckConditions = "low_suck_conditions"
)

// 独立威科夫策略的原因与风险标签
const (
	ReasonWyckoffDeath     = "趋势死叉确认"
	ReasonWyckoffEFIWeak   = "EFI动能衰竭"
	ReasonWyckoffBearDiv   = "顶部量价背离"
	ReasonWyckoffSOW       = "放量跌破区间"
	ReasonWyckoffUpthrust  = "上破回落"
	ReasonWyckoffSellHead  = "派发预警"
	ReasonWyckoffBuyDetail = "吸筹确认: 底部量价验证"

	RiskWyckoffSOW = "WYCKOFF_SOW"
)

// Input 单根 K 线的合成输入
type Input struct {
	Bar     *model.Bar
	Trend   trend.Signals
	Phase   model.PhaseState
	Quality quality.Score
	// IndexRetTrailing 指数近 N 日累计收益，NaN 表示不可用
	IndexRetTrailing float64
	// Warming 结构分类器尚未完成预热，最终信号恒为 HOLD
	Warming bool
}

// Combiner 决策合成器（无状态，可并发使用）
type Combiner struct {
	cfg config.CombineConfig
}

// New 创建决策合成器
func New(cfg config.CombineConfig) *Combiner {
	return &Combiner{cfg: cfg}
}

// Threshold 根据指数环境返回质量分门槛
// 指数近 N 日累计收益不高于弱市阈值时抬高门槛；不可用时使用默认门槛。
func (c *Combiner) Threshold(indexRetTrailing float64) (threshold float64, weak bool) {
	if model.Valid(indexRetTrailing) && indexRetTrailing <= c.cfg.WeakMarketIndexRet {
		return c.cfg.WeakMarketThreshold, true
	}
	return c.cfg.QualityStopThreshold, false
}

// FinalCap 仓位上限：仅买入信号按 clip(base + q × k, 0, max) 映射，其余为 0
func (c *Combiner) FinalCap(sig model.Signal, q float64) float64 {
	if !sig.IsBuy() {
		return 0
	}
	if !model.Valid(q) {
		q = 0
	}
	v := c.cfg.BaseCap + q*c.cfg.CapPerQuality
	return math.Min(math.Max(v, 0), c.cfg.MaxCap)
}

// Combine 趋势策略的最终决策
func (c *Combiner) Combine(in Input) model.SignalRecord {
	ts := in.Trend
	var reasons model.Reasons

	// 1. 初始信号：先匹配先得；未胜出的子条件同样记入理由
	sig := model.SignalHold
	if ts.HardGate {
		addGateReasons(&reasons, ts)
	} else {
		switch {
		case ts.BaseSell:
			sig = model.SignalSell
		case ts.BaseReduce:
			sig = model.SignalReduce
		case ts.BaseBuy:
			sig = model.SignalBuy
		}
		if ts.DeadCross {
			reasons.Add(ReasonDeadCross)
		}
		if ts.Stagnation {
			reasons.Add(ReasonStagnation)
		}
		if ts.HardStop {
			reasons.Add(ReasonHardStop)
		}
		if ts.TrailingStop {
			reasons.Add(ReasonTrailingStop)
		}
		if ts.BaseReduce {
			reasons.Add(ReasonReduce)
		}
		if ts.BuyCross {
			reasons.Add(ReasonCross)
		}
		if ts.BuyPullback {
			reasons.Add(ReasonPullback)
		}
	}

	// 2. 派发 + SOW 无条件卖出
	if in.Phase.Phase == model.PhaseDistribution && in.Phase.Event == model.EventSOW {
		sig = model.SignalSell
		reasons.Add(ReasonDistributionSOW)
	}

	var extra model.Extra
	extra.Set(ExtraOrigSignal, string(sig))
	extra.Set(ExtraWyckoffAction, string(in.Phase.Action))
	extra.SetFloat(ExtraIndexRetTrailing, in.IndexRetTrailing)

	// 3. 动态质量门槛
	q := in.Quality.Value
	threshold, weak := c.Threshold(in.IndexRetTrailing)
	extra.SetFloat(ExtraQualityThreshold, threshold)
	if weak {
		extra.Set(ExtraWeakMarket, true)
	}
	if sig == model.SignalBuy {
		if q <= threshold {
			sig = model.SignalWait
			if weak {
				reasons.Add(ReasonEnvLowQuality)
			} else {
				reasons.Add(ReasonLowQuality)
			}
		}
	}

	// 4. 底部确认升级
	if sig == model.SignalBuy && in.Phase.WyckoffConfirm {
		if !c.cfg.ConfirmRequireMA5AboveMA20 || in.Bar.MA5 >= in.Bar.MA20 {
			sig = model.SignalBuyConfirm
			reasons.Add(ReasonWyckoffConfirm)
		}
	}

	// 5. 预热期只观望，此前累积的理由保留
	if in.Warming {
		sig = model.SignalHold
		reasons.Add(ReasonWarmup)
	}

	if reasons.Len() == 0 {
		reasons.Add(ReasonWatch)
	}

	return model.SignalRecord{
		Code:         in.Bar.Code,
		Date:         in.Bar.Date,
		Signal:       sig,
		Reason:       reasons.String(),
		RiskTag:      in.Quality.RiskTags,
		QualityScore: q,
		FinalCap:     c.FinalCap(sig, q),
		Phase:        in.Phase.Phase,
		Event:        in.Phase.Event,
		Extra:        extra,
	}
}

func addGateReasons(reasons *model.Reasons, ts trend.Signals) {
	if ts.GateMissing {
		reasons.Add(ReasonGateMissing)
	}
	if ts.GateLimitUp {
		reasons.Add(ReasonGateLimitUp)
	}
	if ts.GateEnv {
		reasons.Add(ReasonGateEnv)
	}
	if ts.GateLiquidity {
		reasons.Add(ReasonGateLiquidity)
	}
}

// LowSuckInput 低吸策略单根 K 线的合成输入
type LowSuckInput struct {
	Bar     *model.Bar
	Trend   trend.Signals
	LowSuck lowsuck.Signals
	Phase   model.PhaseState
	Quality quality.Score
	Warming bool
}

// CombineLowSuck 低吸策略的决策
// 硬门槛与预热期观望；派发 SOW 仍强制卖出；买入仓位按质量分映射。
func (c *Combiner) CombineLowSuck(in LowSuckInput) model.SignalRecord {
	ls := in.LowSuck
	var details, risk model.Reasons

	if ls.OversoldBias {
		details.Add(ReasonLowSuckBias)
	}
	if ls.OversoldRSI {
		details.Add(ReasonLowSuckRSI)
	}
	// 支撑与形态只在超跌成立时作为补充说明
	if details.Len() > 0 {
		if ls.NearMA60 {
			details.Add(ReasonLowSuckMA60)
		}
		if ls.NearMA250 {
			details.Add(ReasonLowSuckMA250)
		}
		if ls.NearRecentLow {
			details.Add(ReasonLowSuckRecentLow)
		}
		if ls.Reversal {
			details.Add(ReasonLowSuckReversal)
		}
		if ls.VolContract {
			details.Add(ReasonLowSuckVolatility)
		}
	}

	if ls.FallingKnife {
		risk.Add(RiskLowSuckKnife)
	}
	risk.Add(in.Quality.RiskTags)

	var reasons model.Reasons
	sig := model.SignalHold
	switch {
	case in.Phase.Phase == model.PhaseDistribution && in.Phase.Event == model.EventSOW:
		sig = model.SignalSell
		reasons.Add(ReasonDistributionSOW)
	case in.Trend.HardGate:
		addGateReasons(&reasons, in.Trend)
	case ls.Buy:
		sig = model.SignalBuy
		reasons.Add(ReasonLowSuckPrefix + details.String())
	}

	var extra model.Extra
	extra.Set(ExtraOrigSignal, string(sig))
	if details.Len() > 0 && sig != model.SignalBuy {
		extra.Set(ExtraLowSuckConditions, details.String())
	}

	if in.Warming {
		sig = model.SignalHold
		reasons.Add(ReasonWarmup)
	}
	if reasons.Len() == 0 {
		reasons.Add(ReasonWatch)
	}

	q := in.Quality.Value
	return model.SignalRecord{
		Code:         in.Bar.Code,
		Date:         in.Bar.Date,
		Signal:       sig,
		Reason:       reasons.String(),
		RiskTag:      risk.String(),
		QualityScore: q,
		FinalCap:     c.FinalCap(sig, q),
		Phase:        in.Phase.Phase,
		Event:        in.Phase.Event,
		Extra:        extra,
	}
}

// CombineWyckoff 独立威科夫策略的决策
// SELL/REDUCE 映射为 SELL，BUY_STRONG 映射为 BUY，其余观望；质量分即威科夫得分。
func (c *Combiner) CombineWyckoff(bar *model.Bar, ps model.PhaseState) model.SignalRecord {
	var reasons, risk model.Reasons

	sig := model.SignalHold
	switch ps.Action {
	case model.ActionSell, model.ActionReduce:
		sig = model.SignalSell
		reasons.Add(ReasonWyckoffSellHead)
		if ps.DeathCross {
			reasons.Add(ReasonWyckoffDeath)
		}
		if ps.Phase == model.PhaseDistribution {
			switch ps.Event {
			case model.EventSOW:
				reasons.Add(ReasonWyckoffSOW)
			case model.EventUpthrust:
				reasons.Add(ReasonWyckoffUpthrust)
			}
		}
		if ps.EFIWeakness {
			reasons.Add(ReasonWyckoffEFIWeak)
		}
		if ps.BearDivergence {
			reasons.Add(ReasonWyckoffBearDiv)
		}
	case model.ActionBuyStrong:
		sig = model.SignalBuy
		reasons.Add(ReasonWyckoffBuyDetail)
	default:
		reasons.Add(ReasonWatch)
	}

	if ps.BearDivergence || ps.Event == model.EventSOW {
		risk.Add(RiskWyckoffSOW)
	}

	var extra model.Extra
	extra.Set(ExtraWyckoffAction, string(ps.Action))

	return model.SignalRecord{
		Code:         bar.Code,
		Date:         bar.Date,
		Signal:       sig,
		Reason:       reasons.String(),
		RiskTag:      risk.String(),
		QualityScore: ps.WyckoffScore,
		FinalCap:     c.FinalCap(sig, ps.WyckoffScore),
		Phase:        ps.Phase,
		Event:        ps.Event,
		Extra:        extra,
	}
}
