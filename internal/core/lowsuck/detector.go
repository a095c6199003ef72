// Package lowsuck 实现上升趋势中的超跌低吸反转判定。
// 长期趋势向上、短期超跌、回踩支撑并出现企稳形态时给出买入条件。
package lowsuck

import (
	"math"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/core/quality"
	"ashare-signal-engine/internal/stats/rolling"
)

// Signals 单根 K 线的低吸判定结果
type Signals struct {
	TrendOK      bool
	TrendBad     bool
	FallingKnife bool

	OversoldBias bool
	OversoldRSI  bool

	NearMA60      bool
	NearMA250     bool
	NearRecentLow bool

	Hammer      bool
	Engulfing   bool
	ReclaimHigh bool
	VolConfirm  bool
	Reversal    bool

	VolContract bool
	VolRatioOK  bool

	Buy bool
}

// Oversold 乖离或 RSI 任一超跌
func (s *Signals) Oversold() bool { return s.OversoldBias || s.OversoldRSI }

// Support 任一支撑成立
func (s *Signals) Support() bool { return s.NearMA60 || s.NearMA250 || s.NearRecentLow }

// Detector 单标的低吸判定器（非线程安全）
type Detector struct {
	cfg config.LowSuckConfig

	ma60   *rolling.Lag
	ma250  *rolling.Lag
	closes *rolling.Lag
	lows   *rolling.Extrema
	vols   *rolling.Window

	prev    model.Bar
	hasPrev bool
}

// New 创建低吸判定器
func New(cfg config.LowSuckConfig) *Detector {
	return &Detector{
		cfg:    cfg,
		ma60:   rolling.NewLag(max(cfg.MA60SlopeWindow, cfg.TrendBadWindow) + 1),
		ma250:  rolling.NewLag(cfg.MA250SlopeWindow + 1),
		closes: rolling.NewLag(cfg.FallingKnifeWindow + 1),
		lows:   rolling.NewExtrema(cfg.RecentLowWindow),
		vols:   rolling.NewWindow(cfg.VolumeMAWindow),
	}
}

// Next 喂入下一根 K 线并返回判定结果
// 缺失值参与的比较一律不成立。
func (d *Detector) Next(bar *model.Bar) Signals {
	cfg := d.cfg
	c, lo, atr := bar.Close, bar.Low, bar.ATR14
	ma20, ma60, ma250 := bar.MA20, bar.MA60, bar.MA250

	d.ma60.Push(ma60)
	d.ma250.Push(ma250)
	d.closes.Push(c)
	if model.Valid(lo) {
		d.lows.Push(lo)
	}
	// 均量不含当前 K 线
	avgVol := d.vols.Mean()
	d.vols.Push(bar.Volume)

	var s Signals

	// 趋势背景与飞刀过滤
	s.TrendOK = ma60 > d.ma60.At(cfg.MA60SlopeWindow) || ma250 > d.ma250.At(cfg.MA250SlopeWindow)
	s.TrendBad = ma60 < d.ma60.At(cfg.TrendBadWindow) && ma20 < ma60 && c < ma20
	s.FallingKnife = d.closes.At(cfg.FallingKnifeWindow)-c > cfg.FallingKnifeATRMult*atr && s.TrendBad

	// 超跌
	s.OversoldBias = ma20-c >= cfg.BiasATRMult*atr
	s.OversoldRSI = model.Or(bar.RSI14, 50) <= cfg.RSIThreshold

	// 支撑
	tol := cfg.SupportATRTol * atr
	s.NearMA60 = lo <= ma60+tol && c >= ma60-tol
	s.NearMA250 = lo <= ma250+tol && c >= ma250-tol
	s.NearRecentLow = lo <= d.lows.Min(cfg.RecentLowMin)+tol

	// 反转形态与量能
	body := math.Abs(c - bar.Open)
	lowerShadow := math.Min(c, bar.Open) - lo
	s.Hammer = lowerShadow > body*2 && lowerShadow > cfg.HammerATRMult*atr
	if d.hasPrev {
		s.Engulfing = quality.Engulfing(&d.prev, bar) > 0
		s.ReclaimHigh = c > d.prev.High
		if model.Valid(avgVol) {
			s.VolConfirm = bar.Volume >= avgVol*cfg.ReboundVolRatio
		} else {
			s.VolConfirm = bar.Volume > d.prev.Volume
		}
	}
	s.Reversal = (s.Hammer || s.Engulfing || s.ReclaimHigh) && s.VolConfirm

	// 波动与量比收缩
	s.VolContract = model.SafeDiv(atr, c) <= cfg.ATRPctMax
	s.VolRatioOK = bar.VolRatio <= cfg.VolRatioMax

	base := s.TrendOK && !s.TrendBad && !s.FallingKnife && s.Oversold() && s.Support() && s.VolContract
	if cfg.Mode == config.LowSuckAggressive {
		s.Buy = base
	} else {
		s.Buy = base && s.Reversal && s.VolRatioOK
	}

	d.prev = *bar
	d.hasPrev = true
	return s
}
