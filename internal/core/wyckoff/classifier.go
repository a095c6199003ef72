// Package wyckoff 实现威科夫市场结构分类器。
// 每只标的持有一个 Classifier，按日期顺序逐根喂入 K 线；
// 所有统计量只依赖当前及此前的 K 线，不存在未来函数。
package wyckoff

import (
	"math"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/stats/rolling"
)

// MACD 快慢线周期
const (
	macdFast = 12
	macdSlow = 26
)

const (
	volShortWindow  = 20
	volShortMin     = 10
	volLongMin      = 20
	volImbalanceMin = 10
	efiZThreshold   = 1.0
)

var nan = math.NaN()

// Classifier 单标的结构分类器（非线程安全）
type Classifier struct {
	cfg    config.WyckoffConfig
	warmup int

	// n 已处理的有效 K 线数
	n int

	maShort *rolling.Window
	maLong  *rolling.Window
	longMA  *rolling.Window
	// longMAHist 长期均线历史，用于计算斜率
	longMAHist *rolling.Lag

	emaFast *rolling.EMA
	emaSlow *rolling.EMA

	efi    *rolling.EMA
	efiWin *rolling.Window

	// divClose/divDIF 此前 divergence_lookback 根的收盘价与 DIF 极值
	divClose *rolling.Extrema
	divDIF   *rolling.Extrema

	// boxHigh/boxLow 此前 structure_window 根的最高/最低价
	boxHigh *rolling.Extrema
	boxLow  *rolling.Extrema

	volUp    *rolling.Window
	volDown  *rolling.Window
	volShort *rolling.Window
	volLong  *rolling.Window

	// recentBullDiv/recentEFIStrength 确认窗口内的底部信号
	recentBullDiv     *rolling.Flags
	recentEFIStrength *rolling.Flags

	prevClose   float64
	prevEFI     float64
	prevShortMA float64
	prevLongMA  float64
}

// New 创建结构分类器
// 参数 cfg: 分类器参数，窗口需已通过 config.Validate
func New(cfg config.WyckoffConfig) *Classifier {
	return &Classifier{
		cfg:    cfg,
		warmup: cfg.Warmup(),

		maShort:    rolling.NewWindow(cfg.MAShort),
		maLong:     rolling.NewWindow(cfg.MALong),
		longMA:     rolling.NewWindow(cfg.LongMAWindow),
		longMAHist: rolling.NewLag(cfg.LongSlopeWindow + 1),

		emaFast: rolling.NewEMA(macdFast),
		emaSlow: rolling.NewEMA(macdSlow),

		efi:    rolling.NewEMA(cfg.EFISpan),
		efiWin: rolling.NewWindow(cfg.EFIWindow),

		divClose: rolling.NewExtrema(cfg.DivergenceLookback),
		divDIF:   rolling.NewExtrema(cfg.DivergenceLookback),

		boxHigh: rolling.NewExtrema(cfg.StructureWindow),
		boxLow:  rolling.NewExtrema(cfg.StructureWindow),

		volUp:    rolling.NewWindow(cfg.VolConfirmWindow),
		volDown:  rolling.NewWindow(cfg.VolConfirmWindow),
		volShort: rolling.NewWindow(volShortWindow),
		volLong:  rolling.NewWindow(cfg.VolConfirmWindow),

		recentBullDiv:     rolling.NewFlags(cfg.ConfirmationWindow),
		recentEFIStrength: rolling.NewFlags(cfg.ConfirmationWindow),

		prevClose:   nan,
		prevEFI:     nan,
		prevShortMA: nan,
		prevLongMA:  nan,
	}
}

// Warmup 预热长度
func (c *Classifier) Warmup() int { return c.warmup }

// Processed 已处理的有效 K 线数
func (c *Classifier) Processed() int { return c.n }

// Next 喂入下一根 K 线并返回该 K 线的结构分类
// OHLCV 不完整的 K 线不更新状态，返回中性结果。
// 预热期内状态照常累积，但输出恒为 NONE/HOLD。
func (c *Classifier) Next(bar *model.Bar) model.PhaseState {
	if !bar.HasOHLCV() {
		return model.NeutralPhase()
	}
	c.n++

	cfg := c.cfg
	closePx, vol := bar.Close, bar.Volume

	// 1. 均线、MACD、EFI
	c.maShort.Push(closePx)
	c.maLong.Push(closePx)
	c.longMA.Push(closePx)
	shortMA := c.maShort.Mean()
	longMA := c.maLong.Mean()
	ltMA := c.longMA.Mean()
	c.longMAHist.Push(ltMA)

	// MACD 线（DIF），背离判定基于 DIF
	dif := c.emaFast.Push(closePx) - c.emaSlow.Push(closePx)

	// EFI：(close - prev_close) × volume 的 EMA
	efi := nan
	efiZ := nan
	if model.Valid(c.prevClose) {
		efi = c.efi.Push((closePx - c.prevClose) * vol)
		c.efiWin.Push(efi)
		efiZ = c.efiWin.ZScore(efi)
	}

	// 2. 背离：与此前 lookback 根的收盘极值及 DIF 极值比较
	bullDiv, bearDiv := false, false
	if c.divClose.Len() >= cfg.DivergenceLookback {
		lb := cfg.DivergenceLookback
		bullDiv, bearDiv = divergence(closePx, dif,
			c.divClose.Min(lb), c.divDIF.Min(lb), c.divClose.Max(lb), c.divDIF.Max(lb))
	}

	// 3. 长期斜率
	trendUp, trendDown := slopeDir(ltMA, c.longMAHist.At(cfg.LongSlopeWindow))

	// 4. 交易区间（不含当前 K 线）
	boxHigh := c.boxHigh.Max(cfg.BoxLenMin)
	boxLow := c.boxLow.Min(cfg.BoxLenMin)
	boxRange := model.SafeDiv(boxHigh-boxLow, boxLow)
	boxOK := boxRange <= cfg.BoxVolatilityCap

	// 5. 量能失衡与收缩
	if closePx >= bar.Open {
		c.volUp.Push(vol)
		c.volDown.Push(0)
	} else {
		c.volUp.Push(0)
		c.volDown.Push(vol)
	}
	imbalance := model.SafeDiv(c.volDown.SumMin(volImbalanceMin), c.volUp.SumMin(volImbalanceMin))
	c.volShort.Push(vol)
	c.volLong.Push(vol)
	volShort := c.volShort.MeanMin(volShortMin)
	volLong := c.volLong.MeanMin(volLongMin)
	contracting := volShort <= volLong*cfg.VolContractRatio

	// 6. 阶段（先匹配先得）
	phase := model.PhaseNone
	switch {
	case boxOK && (trendDown || closePx < ltMA) && imbalance <= cfg.VolImbalanceThreshold && contracting:
		phase = model.PhaseAccumulation
	case boxOK && (trendUp || closePx > ltMA) && imbalance >= cfg.VolImbalanceThreshold:
		phase = model.PhaseDistribution
	case trendUp && !boxOK:
		phase = model.PhaseTrendUp
	case trendDown && !boxOK:
		phase = model.PhaseTrendDown
	}

	// 7. 事件
	event := detectEvent(cfg, bar, boxHigh, boxLow, volLong)

	// 8. 均线交叉
	trendBullish := shortMA > longMA
	goldenCross, deathCross := crosses(shortMA, longMA, c.prevShortMA, c.prevLongMA,
		cfg.DeathCrossATRBuffer*model.Or(bar.ATR14, 0))

	// 9. 动能衰竭与底部确认
	efiWeak, efiStrong := efiSignals(efiZ, efi, c.prevEFI)
	c.recentBullDiv.Push(bullDiv)
	c.recentEFIStrength.Push(efiStrong)
	confirmedBottom := c.recentBullDiv.Any() || c.recentEFIStrength.Any()

	// 状态推进：以下结构在判定后才写入当前 K 线
	c.divClose.Push(closePx)
	c.divDIF.Push(dif)
	c.boxHigh.Push(bar.High)
	c.boxLow.Push(bar.Low)
	c.prevClose = closePx
	c.prevEFI = efi
	c.prevShortMA = shortMA
	c.prevLongMA = longMA

	if c.n < c.warmup {
		return model.NeutralPhase()
	}

	st := model.PhaseState{
		Phase:           phase,
		Event:           event,
		DeathCross:      deathCross,
		GoldenCross:     goldenCross,
		BullDivergence:  bullDiv,
		BearDivergence:  bearDiv,
		EFIWeakness:     efiWeak,
		EFIStrength:     efiStrong,
		ConfirmedBottom: confirmedBottom,
		TrendBullish:    trendBullish,
	}
	st.Action = decideAction(&st)
	st.WyckoffScore = st.Action.Score()
	st.WyckoffConfirm = st.Action == model.ActionBuyStrong
	return st
}

// divergence 当前收盘创此前新低而 DIF 未创新低为底背离，反之为顶背离
// 极值均取自此前 lookback 根，不含当前 K 线。
func divergence(closePx, dif, minClose, minDIF, maxClose, maxDIF float64) (bull, bear bool) {
	bull = closePx < minClose && dif > minDIF
	bear = closePx > maxClose && dif < maxDIF
	return bull, bear
}

// slopeDir 长期均线相对 shifted 的斜率方向；shifted 为 0 或缺失时两者皆否
func slopeDir(ltMA, shifted float64) (up, down bool) {
	slope := model.SafeDiv(ltMA-shifted, shifted)
	return slope > 0, slope < 0
}

// crosses 均线金叉/死叉；死叉要求短均线跌破长均线超过 buffer
func crosses(shortMA, longMA, prevShort, prevLong, buffer float64) (golden, death bool) {
	golden = shortMA > longMA && prevShort <= prevLong
	death = shortMA < longMA && prevShort >= prevLong && shortMA < longMA-buffer
	return golden, death
}

// efiSignals EFI 标准分超过阈值且较前值回落为衰竭，低于负阈值且回升为底部强势
func efiSignals(z, efi, prevEFI float64) (weak, strong bool) {
	weak = z > efiZThreshold && efi < prevEFI
	strong = z < -efiZThreshold && efi > prevEFI
	return weak, strong
}

// detectEvent 区间边界测试事件，多个同时成立时 SOW > SOS > UPTHRUST > SPRING
func detectEvent(cfg config.WyckoffConfig, bar *model.Bar, boxHigh, boxLow, volLong float64) model.Event {
	if !model.Valid(boxHigh) || !model.Valid(boxLow) || !model.Valid(volLong) {
		return model.EventNone
	}
	if bar.Volume < volLong*cfg.VolSpikeMult {
		return model.EventNone
	}

	breakUp := bar.High > boxHigh*(1+cfg.BreakoutPct)
	breakDown := bar.Low < boxLow*(1-cfg.BreakoutPct)
	reclaimUp := bar.Close <= boxHigh*(1+cfg.ReclaimTol)
	reclaimDown := bar.Close >= boxLow*(1-cfg.ReclaimTol)

	switch {
	case breakDown && !reclaimDown:
		return model.EventSOW
	case breakUp && !reclaimUp:
		return model.EventSOS
	case breakUp && reclaimUp:
		return model.EventUpthrust
	case breakDown && reclaimDown:
		return model.EventSpring
	}
	return model.EventNone
}

// decideAction 动作分级，严格按优先级先匹配先得
func decideAction(st *model.PhaseState) model.Action {
	switch {
	case st.DeathCross:
		return model.ActionSell
	case st.Phase == model.PhaseDistribution && st.Event == model.EventSOW:
		return model.ActionSell
	case st.Phase == model.PhaseDistribution && st.Event == model.EventUpthrust:
		return model.ActionReduce
	case st.Phase == model.PhaseAccumulation && st.Event == model.EventSpring:
		return model.ActionBuyStrong
	case st.Phase == model.PhaseAccumulation && st.Event == model.EventSOS:
		return model.ActionBuyLight
	case st.GoldenCross && st.ConfirmedBottom:
		return model.ActionBuyStrong
	case st.GoldenCross:
		return model.ActionBuyLight
	case st.TrendBullish && (st.BearDivergence || st.EFIWeakness):
		return model.ActionReduce
	}
	return model.ActionHold
}
