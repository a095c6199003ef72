// Package trend 实现 MA5/MA20 趋势门控：硬门槛与基础买卖信号。
package trend

import (
	"math"
	"strings"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/stats/rolling"
)

// 环境门控中需要拦截的动作
var blockingEnvActions = map[string]bool{
	"STOP":       true,
	"ALLOW_NONE": true,
}

// Signals 单根 K 线的趋势门控结果
type Signals struct {
	// HardGate 硬门槛：任一子条件成立即拦截
	HardGate bool
	// 硬门槛子条件
	GateMissing   bool
	GateLimitUp   bool
	GateEnv       bool
	GateLiquidity bool

	TrendOK     bool
	CrossUp     bool
	BuyCross    bool
	BuyPullback bool
	BaseBuy     bool

	HardStop     bool
	TrailingStop bool
	DeadCross    bool
	Stagnation   bool
	BaseSell     bool
	BaseReduce   bool

	// PctChg 当日涨跌幅，前收不可用时为 NaN
	PctChg float64
}

// Gate 单标的趋势门控（非线程安全）
type Gate struct {
	cfg config.TrendConfig

	prevMA5   float64
	prevMA20  float64
	prevClose float64

	// volumes 最近 volume_ma_window 根成交量
	volumes *rolling.Lag
	// closeHigh 移动止损用的滚动最高收盘价
	closeHigh *rolling.Extrema
}

// New 创建趋势门控
func New(cfg config.TrendConfig) *Gate {
	nan := math.NaN()
	return &Gate{
		cfg:       cfg,
		prevMA5:   nan,
		prevMA20:  nan,
		prevClose: nan,
		volumes:   rolling.NewLag(cfg.VolumeMAWindow),
		closeHigh: rolling.NewExtrema(cfg.TrailingWindow),
	}
}

// Next 喂入下一根 K 线并返回门控结果
func (g *Gate) Next(bar *model.Bar) Signals {
	cfg := g.cfg
	c, ma5, ma20, ma250 := bar.Close, bar.MA5, bar.MA20, bar.MA250
	atr := bar.ATR14
	atrOK := model.Valid(atr)

	g.volumes.Push(bar.Volume)
	if model.Valid(c) {
		g.closeHigh.Push(c)
	}

	var s Signals
	s.PctChg = model.SafeDiv(c, g.prevClose) - 1

	// 硬门槛
	s.GateMissing = !model.Valid(c) || !model.Valid(ma5) || !model.Valid(ma20)
	s.GateLimitUp = bar.OneWordLimitUp
	s.GateEnv = blockingEnvActions[strings.ToUpper(strings.TrimSpace(bar.EnvGateAction))]
	s.GateLiquidity = cfg.MinDailyAmount > 0 && model.Valid(bar.Amount) && bar.Amount < cfg.MinDailyAmount
	s.HardGate = s.GateMissing || s.GateLimitUp || s.GateEnv || s.GateLiquidity

	// 买入
	s.TrendOK = c > ma250 && ma20 > ma250
	s.CrossUp = ma5 > ma20 && g.prevMA5 <= g.prevMA20
	s.BuyCross = s.TrendOK && s.CrossUp

	avgVol := g.meanVolume()
	s.BuyPullback = s.TrendOK && atrOK &&
		math.Abs(c-ma20) <= cfg.PullbackATRMult*atr &&
		ma5 > g.prevMA5 &&
		bar.Volume < cfg.PullbackVolMult*avgVol
	s.BaseBuy = s.BuyCross || s.BuyPullback

	// 卖出
	atrOrZero := model.Or(atr, 0)
	s.HardStop = c < ma20-(cfg.StopBufferATR*atrOrZero+cfg.StopFloorPct*ma20)
	if atrOK {
		s.TrailingStop = c < g.closeHigh.Max(cfg.TrailingWindow)-cfg.TrailingATRMult*atr
		s.Stagnation = bar.VolRatio >= cfg.StagnationVolRatio &&
			math.Abs(s.PctChg)*c < cfg.StagnationATRMult*atr &&
			math.Abs(c-ma20) > cfg.StagnationBiasATRMult*atr
	}
	s.DeadCross = ma5 < ma20 && g.prevMA5 >= g.prevMA20
	s.BaseSell = s.DeadCross || s.Stagnation || s.HardStop || s.TrailingStop
	s.BaseReduce = ma5 < ma20 && c < ma20 && !s.DeadCross && !s.HardStop

	g.prevMA5 = ma5
	g.prevMA20 = ma20
	g.prevClose = c
	return s
}

// meanVolume 最近 volume_ma_window 根成交量均值，不足或含缺失时返回 NaN
func (g *Gate) meanVolume() float64 {
	n := g.cfg.VolumeMAWindow
	if g.volumes.Len() < n {
		return math.NaN()
	}
	sum := 0.0
	for k := 0; k < n; k++ {
		v := g.volumes.At(k)
		if !model.Valid(v) {
			return math.NaN()
		}
		sum += v
	}
	return sum / float64(n)
}
