package engine

import (
	"fmt"
	"math"
	"strings"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/combine"
	"ashare-signal-engine/internal/core/lowsuck"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/core/quality"
	"ashare-signal-engine/internal/core/trend"
	"ashare-signal-engine/internal/core/wyckoff"
	"ashare-signal-engine/internal/market"
	"ashare-signal-engine/internal/stats/rolling"
)

// Kind 策略种类
type Kind uint8

const (
	// KindTrend MA5/MA20 趋势 + 威科夫 + 质量分
	KindTrend Kind = iota
	// KindWyckoff 独立威科夫策略
	KindWyckoff
	// KindLowSuck 超跌低吸反转
	KindLowSuck

	kindCount
)

// evaluator 单标的逐根评估器（非线程安全，每个 code 独立一份）
type evaluator interface {
	Next(bar *model.Bar) model.SignalRecord
}

// shared 跨标的只读组件
type shared struct {
	cfg      *config.Config
	scorer   *quality.Scorer
	combiner *combine.Combiner
}

// 静态分发表，下标即 Kind
var (
	kindNames = [kindCount]string{
		KindTrend:   config.StrategyTrend,
		KindWyckoff: config.StrategyWyckoff,
		KindLowSuck: config.StrategyLowSuck,
	}
	kindFactories = [kindCount]func(s *shared) evaluator{
		KindTrend:   newTrendEvaluator,
		KindWyckoff: newWyckoffEvaluator,
		KindLowSuck: newLowSuckEvaluator,
	}
)

// ParseKind 解析策略名称（不区分大小写）
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// String 策略名称
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kinds 全部策略，按分发表顺序
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// relStrength 相对强度与指数累计收益的滚动状态
type relStrength struct {
	rsWindow  int
	idxWindow int
	// closes 最近 rs_window+1 根收盘价
	closes *rolling.Lag
	// indexRets 最近的指数日收益
	indexRets *rolling.Lag
	scratch   []float64
}

func newRelStrength(cfg *config.Config) relStrength {
	rsWin, idxWin := cfg.Quality.RSWindow, cfg.Combine.IndexRetWindow
	return relStrength{
		rsWindow:  rsWin,
		idxWindow: idxWin,
		closes:    rolling.NewLag(rsWin + 1),
		indexRets: rolling.NewLag(max(rsWin, idxWin)),
	}
}

// push 写入当前 K 线并返回 N 日超额收益
func (r *relStrength) push(bar *model.Bar) float64 {
	r.closes.Push(bar.Close)
	r.indexRets.Push(bar.IndexRet)
	return model.SafeDiv(bar.Close, r.closes.At(r.rsWindow)) - 1 - r.trailing(r.rsWindow)
}

// indexTrailing 质量门槛使用的指数累计收益
func (r *relStrength) indexTrailing() float64 { return r.trailing(r.idxWindow) }

// trailing 最近 n 根指数收益的累计值，样本不足返回 NaN
func (r *relStrength) trailing(n int) float64 {
	if n <= 0 || r.indexRets.Len() < n {
		return math.NaN()
	}
	r.scratch = r.scratch[:0]
	for k := 0; k < n; k++ {
		r.scratch = append(r.scratch, r.indexRets.At(k))
	}
	return market.Compound(r.scratch...)
}

// prevBar 上一根 K 线，供吞没形态识别
type prevBar struct {
	bar model.Bar
	ok  bool
}

func (p *prevBar) get() *model.Bar {
	if !p.ok {
		return nil
	}
	return &p.bar
}

func (p *prevBar) set(bar *model.Bar) {
	p.bar = *bar
	p.ok = true
}

// warming 分类器尚未积累到最大配置窗口
func warming(cls *wyckoff.Classifier) bool {
	return cls.Processed() < cls.Warmup()
}

// trendEvaluator 趋势策略：结构分类 → 趋势门控 → 质量分 → 合成
type trendEvaluator struct {
	*shared

	cls  *wyckoff.Classifier
	gate *trend.Gate
	rs   relStrength
	prev prevBar
}

func newTrendEvaluator(s *shared) evaluator {
	return &trendEvaluator{
		shared: s,
		cls:    wyckoff.New(s.cfg.Wyckoff),
		gate:   trend.New(s.cfg.Trend),
		rs:     newRelStrength(s.cfg),
	}
}

func (e *trendEvaluator) Next(bar *model.Bar) model.SignalRecord {
	ps := e.cls.Next(bar)
	ts := e.gate.Next(bar)
	rs := e.rs.push(bar)

	q := e.scorer.Score(quality.Input{
		Bar:         bar,
		Prev:        e.prev.get(),
		Phase:       ps,
		PctChg:      ts.PctChg,
		RelStrength: rs,
	})
	rec := e.combiner.Combine(combine.Input{
		Bar:              bar,
		Trend:            ts,
		Phase:            ps,
		Quality:          q,
		IndexRetTrailing: e.rs.indexTrailing(),
		Warming:          warming(e.cls),
	})

	e.prev.set(bar)
	return rec
}

// wyckoffEvaluator 独立威科夫策略
type wyckoffEvaluator struct {
	*shared
	cls *wyckoff.Classifier
}

func newWyckoffEvaluator(s *shared) evaluator {
	return &wyckoffEvaluator{shared: s, cls: wyckoff.New(s.cfg.Wyckoff)}
}

func (e *wyckoffEvaluator) Next(bar *model.Bar) model.SignalRecord {
	return e.combiner.CombineWyckoff(bar, e.cls.Next(bar))
}

// lowSuckEvaluator 低吸反转：结构分类与硬门槛沿用趋势策略，买点由低吸判定给出
type lowSuckEvaluator struct {
	*shared

	cls  *wyckoff.Classifier
	gate *trend.Gate
	det  *lowsuck.Detector
	rs   relStrength
	prev prevBar
}

func newLowSuckEvaluator(s *shared) evaluator {
	return &lowSuckEvaluator{
		shared: s,
		cls:    wyckoff.New(s.cfg.Wyckoff),
		gate:   trend.New(s.cfg.Trend),
		det:    lowsuck.New(s.cfg.LowSuck),
		rs:     newRelStrength(s.cfg),
	}
}

func (e *lowSuckEvaluator) Next(bar *model.Bar) model.SignalRecord {
	ps := e.cls.Next(bar)
	ts := e.gate.Next(bar)
	ls := e.det.Next(bar)
	rs := e.rs.push(bar)

	q := e.scorer.Score(quality.Input{
		Bar:         bar,
		Prev:        e.prev.get(),
		Phase:       ps,
		PctChg:      ts.PctChg,
		RelStrength: rs,
	})
	rec := e.combiner.CombineLowSuck(combine.LowSuckInput{
		Bar:     bar,
		Trend:   ts,
		LowSuck: ls,
		Phase:   ps,
		Quality: q,
		Warming: warming(e.cls),
	})

	e.prev.set(bar)
	return rec
}
