package wyckoff

import (
	"math"
	"testing"
	"time"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
)

var baseDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func mkBar(i int, open, high, low, closePx, vol float64) model.Bar {
	b := model.NewBar("sh.600000", baseDate.AddDate(0, 0, i))
	b.Open, b.High, b.Low, b.Close, b.Volume = open, high, low, closePx, vol
	return b
}

// boxBar 区间震荡 K 线：偶数根为阴线，奇数根为阳线
func boxBar(i int, upVol, downVol float64) model.Bar {
	if i%2 == 0 {
		return mkBar(i, 20.5, 20.8, 19.2, 19.5, downVol)
	}
	return mkBar(i, 19.5, 20.8, 19.2, 20.5, upVol)
}

func runAll(c *Classifier, bars []model.Bar) []model.PhaseState {
	out := make([]model.PhaseState, len(bars))
	for i := range bars {
		out[i] = c.Next(&bars[i])
	}
	return out
}

func TestClassifier_WarmupIsNeutral(t *testing.T) {
	cfg := config.Default().Wyckoff
	c := New(cfg)

	var bars []model.Bar
	for i := 0; i < cfg.Warmup()-1; i++ {
		px := 10 + float64(i)*0.1
		bars = append(bars, mkBar(i, px-0.05, px+0.1, px-0.1, px, 1000+float64(i)))
	}
	for i, st := range runAll(c, bars) {
		if st.Phase != model.PhaseNone || st.Action != model.ActionHold || st.Event != model.EventNone {
			t.Fatalf("预热期第 %d 根应为 NONE/HOLD，实际 %s/%s/%s", i, st.Phase, st.Action, st.Event)
		}
		if st.WyckoffScore != 0 || st.WyckoffConfirm {
			t.Fatalf("预热期第 %d 根得分应为 0", i)
		}
	}
}

func TestClassifier_MissingOHLCVSkipsState(t *testing.T) {
	c := New(config.Default().Wyckoff)

	b := mkBar(0, 10, 11, 9, 10, 1000)
	c.Next(&b)

	bad := model.NewBar("sh.600000", baseDate.AddDate(0, 0, 1))
	bad.Close = 10
	st := c.Next(&bad)
	if st != model.NeutralPhase() {
		t.Fatalf("OHLCV 不完整应返回中性结果，实际 %+v", st)
	}
	if c.Processed() != 1 {
		t.Fatalf("OHLCV 不完整的 K 线不应计入，实际已处理 %d", c.Processed())
	}
}

func TestClassifier_DistributionSOW(t *testing.T) {
	c := New(config.Default().Wyckoff)

	var bars []model.Bar
	// 上涨段
	for i := 0; i < 60; i++ {
		px := 10 + float64(i)*0.16
		bars = append(bars, mkBar(i, px-0.05, px+0.1, px-0.15, px, 1000))
	}
	// 派发区间：阴线放量
	for i := 60; i < 240; i++ {
		bars = append(bars, boxBar(i, 1000, 2000))
	}
	// 放量跌破区间且未收回
	bars = append(bars, mkBar(240, 19.2, 19.3, 18.0, 18.1, 10000))

	states := runAll(c, bars)
	st := states[240]
	if st.Phase != model.PhaseDistribution {
		t.Fatalf("阶段应为 DISTRIBUTION，实际 %s", st.Phase)
	}
	if st.Event != model.EventSOW {
		t.Fatalf("事件应为 SOW，实际 %s", st.Event)
	}
	if st.Action != model.ActionSell || st.WyckoffScore != -2 {
		t.Fatalf("动作应为 SELL(-2)，实际 %s(%v)", st.Action, st.WyckoffScore)
	}
}

func TestClassifier_AccumulationSpring(t *testing.T) {
	c := New(config.Default().Wyckoff)

	var bars []model.Bar
	// 下跌段
	for i := 0; i < 60; i++ {
		px := 30 - float64(i)*0.16
		b := mkBar(i, px+0.05, px+0.15, px-0.1, px, 3000)
		bars = append(bars, b)
	}
	// 吸筹区间：阳线量大于阴线，尾段缩量
	for i := 60; i < 240; i++ {
		up := 3000.0
		if i >= 225 {
			up = 1000
		}
		bars = append(bars, boxBar(i, up, up/2))
	}
	// 放量下破后收回区间
	bars = append(bars, mkBar(240, 19.0, 19.4, 18.9, 19.3, 6000))
	for i := range bars {
		bars[i].ATR14 = 1.0
	}

	states := runAll(c, bars)
	st := states[240]
	if st.Phase != model.PhaseAccumulation {
		t.Fatalf("阶段应为 ACCUMULATION，实际 %s", st.Phase)
	}
	if st.Event != model.EventSpring {
		t.Fatalf("事件应为 SPRING，实际 %s", st.Event)
	}
	if st.Action != model.ActionBuyStrong || !st.WyckoffConfirm {
		t.Fatalf("动作应为 BUY_STRONG 且确认，实际 %s confirm=%v", st.Action, st.WyckoffConfirm)
	}
}

func TestDetectEvent(t *testing.T) {
	cfg := config.Default().Wyckoff
	const boxHigh, boxLow, volLong = 21.0, 19.0, 1000.0

	cases := []struct {
		name string
		bar  model.Bar
		want model.Event
	}{
		{"量能不足", mkBar(0, 19, 19.5, 18.0, 18.1, 1200), model.EventNone},
		{"SOW", mkBar(0, 19, 19.5, 18.0, 18.1, 2000), model.EventSOW},
		{"SPRING", mkBar(0, 19, 19.5, 18.5, 19.2, 2000), model.EventSpring},
		{"SOS", mkBar(0, 21, 22.0, 20.8, 21.9, 2000), model.EventSOS},
		{"UPTHRUST", mkBar(0, 21, 22.0, 20.5, 20.9, 2000), model.EventUpthrust},
		{"区间内", mkBar(0, 20, 20.5, 19.5, 20.2, 2000), model.EventNone},
	}
	for _, tc := range cases {
		if got := detectEvent(cfg, &tc.bar, boxHigh, boxLow, volLong); got != tc.want {
			t.Fatalf("%s: 期望 %q，实际 %q", tc.name, tc.want, got)
		}
	}

	b := mkBar(0, 19, 19.5, 18.0, 18.1, 2000)
	if got := detectEvent(cfg, &b, math.NaN(), boxLow, volLong); got != model.EventNone {
		t.Fatalf("区间未定义时不应产生事件，实际 %q", got)
	}
}

func TestDecideAction_Priority(t *testing.T) {
	cases := []struct {
		name string
		st   model.PhaseState
		want model.Action
	}{
		{"死叉优先于一切", model.PhaseState{DeathCross: true, GoldenCross: true, Phase: model.PhaseAccumulation, Event: model.EventSpring}, model.ActionSell},
		{"派发+SOW", model.PhaseState{Phase: model.PhaseDistribution, Event: model.EventSOW, GoldenCross: true}, model.ActionSell},
		{"派发+UPTHRUST", model.PhaseState{Phase: model.PhaseDistribution, Event: model.EventUpthrust, GoldenCross: true}, model.ActionReduce},
		{"吸筹+SPRING", model.PhaseState{Phase: model.PhaseAccumulation, Event: model.EventSpring}, model.ActionBuyStrong},
		{"吸筹+SOS", model.PhaseState{Phase: model.PhaseAccumulation, Event: model.EventSOS}, model.ActionBuyLight},
		{"金叉+底部确认", model.PhaseState{GoldenCross: true, ConfirmedBottom: true}, model.ActionBuyStrong},
		{"普通金叉", model.PhaseState{GoldenCross: true, TrendBullish: true, BearDivergence: true}, model.ActionBuyLight},
		{"多头+顶背离", model.PhaseState{TrendBullish: true, BearDivergence: true}, model.ActionReduce},
		{"多头+EFI衰竭", model.PhaseState{TrendBullish: true, EFIWeakness: true}, model.ActionReduce},
		{"空头+顶背离", model.PhaseState{BearDivergence: true}, model.ActionHold},
		{"无条件", model.PhaseState{}, model.ActionHold},
	}
	for _, tc := range cases {
		if got := decideAction(&tc.st); got != tc.want {
			t.Fatalf("%s: 期望 %s，实际 %s", tc.name, tc.want, got)
		}
	}
}

// smallConfig 短窗口参数，预热 6 根
func smallConfig() config.WyckoffConfig {
	cfg := config.Default().Wyckoff
	cfg.MAShort, cfg.MALong = 2, 4
	cfg.EFIWindow, cfg.EFISpan = 5, 3
	cfg.DivergenceLookback, cfg.ConfirmationWindow = 5, 5
	cfg.LongMAWindow, cfg.LongSlopeWindow = 6, 2
	cfg.StructureWindow, cfg.BoxLenMin = 6, 4
	cfg.VolConfirmWindow = 6
	return cfg
}

func closeBars(closes []float64, atr float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = mkBar(i, c, c+0.1, c-0.1, c, 1000)
		bars[i].ATR14 = atr
	}
	return bars
}

// reboundSeries 单边下跌 → 急速反弹 → 跌破前低 → 再度上攻
// 第 23 根收盘创新低但 DIF 抬高（底背离，同时死叉），第 26 根金叉
func reboundSeries(atr float64) []model.Bar {
	var closes []float64
	for i := 0; i < 20; i++ {
		closes = append(closes, 20-0.5*float64(i))
	}
	closes = append(closes, 12.0, 13.0, 13.5, 10.4, 11.0, 12.0, 13.0)
	return closeBars(closes, atr)
}

func TestClassifier_BullDivergenceThenConfirmedCross(t *testing.T) {
	cfg := smallConfig()
	if cfg.Warmup() != 6 {
		t.Fatalf("短窗口预热应为 6，实际 %d", cfg.Warmup())
	}
	states := runAll(New(cfg), reboundSeries(math.NaN()))

	div := states[23]
	if !div.BullDivergence || div.BearDivergence {
		t.Fatalf("第 23 根应为底背离，实际 bull=%v bear=%v", div.BullDivergence, div.BearDivergence)
	}
	// ATR 缺失按 0 缓冲，死叉成立
	if !div.DeathCross || div.Action != model.ActionSell {
		t.Fatalf("ATR 缺失时第 23 根应死叉卖出，实际 death=%v %s", div.DeathCross, div.Action)
	}
	for i := 24; i <= 25; i++ {
		if !states[i].ConfirmedBottom {
			t.Fatalf("第 %d 根仍在确认窗口内，应为底部确认", i)
		}
	}

	cross := states[26]
	if !cross.GoldenCross || !cross.ConfirmedBottom {
		t.Fatalf("第 26 根应为金叉且底部确认，实际 golden=%v bottom=%v", cross.GoldenCross, cross.ConfirmedBottom)
	}
	if cross.Action != model.ActionBuyStrong || !cross.WyckoffConfirm {
		t.Fatalf("金叉+底部确认应为 BUY_STRONG，实际 %s", cross.Action)
	}
}

func TestClassifier_DeathCrossATRBuffer(t *testing.T) {
	// 第 23 根短均线低于长均线 0.275，缓冲 0.2×2.0=0.4 未被击穿
	st := runAll(New(smallConfig()), reboundSeries(2.0))[23]
	if st.DeathCross {
		t.Fatal("跌破幅度小于 ATR 缓冲时不应判定死叉")
	}
	if !st.BullDivergence || st.Action == model.ActionSell {
		t.Fatalf("无死叉时不应卖出，实际 %s", st.Action)
	}
}

func TestClassifier_TrendPhases(t *testing.T) {
	cfg := smallConfig()
	cfg.BoxVolatilityCap = 0.01

	cases := []struct {
		name  string
		close func(i int) float64
		want  model.Phase
	}{
		{"单边上涨", func(i int) float64 { return 10 + 0.5*float64(i) }, model.PhaseTrendUp},
		{"单边下跌", func(i int) float64 { return 20 - 0.5*float64(i) }, model.PhaseTrendDown},
	}
	for _, tc := range cases {
		closes := make([]float64, 12)
		for i := range closes {
			closes[i] = tc.close(i)
		}
		states := runAll(New(cfg), closeBars(closes, math.NaN()))
		for i := 7; i < len(states); i++ {
			if states[i].Phase != tc.want {
				t.Fatalf("%s: 第 %d 根应为 %s，实际 %s", tc.name, i, tc.want, states[i].Phase)
			}
		}
	}
}

func TestClassifier_FlatLongMAHasNoTrend(t *testing.T) {
	cfg := smallConfig()
	cfg.BoxVolatilityCap = 0.01

	// 10/12 交替，6 日长均线恒为 11，斜率为 0
	closes := make([]float64, 14)
	for i := range closes {
		closes[i] = 10
		if i%2 == 1 {
			closes[i] = 12
		}
	}
	for i, st := range runAll(New(cfg), closeBars(closes, math.NaN())) {
		if st.Phase == model.PhaseTrendUp || st.Phase == model.PhaseTrendDown {
			t.Fatalf("长均线走平时第 %d 根不应判定趋势，实际 %s", i, st.Phase)
		}
	}
}

func TestClassifier_AccumulationSOS(t *testing.T) {
	c := New(config.Default().Wyckoff)

	var bars []model.Bar
	for i := 0; i < 60; i++ {
		px := 30 - float64(i)*0.16
		bars = append(bars, mkBar(i, px+0.05, px+0.15, px-0.1, px, 3000))
	}
	for i := 60; i < 240; i++ {
		up := 3000.0
		if i >= 225 {
			up = 1000
		}
		bars = append(bars, boxBar(i, up, up/2))
	}
	// 放量突破区间上沿并站稳
	bars = append(bars, mkBar(240, 20.6, 21.5, 20.5, 21.4, 6000))
	for i := range bars {
		bars[i].ATR14 = 1.0
	}

	st := runAll(c, bars)[240]
	if st.Phase != model.PhaseAccumulation || st.Event != model.EventSOS {
		t.Fatalf("应为 ACCUMULATION/SOS，实际 %s/%s", st.Phase, st.Event)
	}
	if st.Action != model.ActionBuyLight || st.WyckoffScore != 1 {
		t.Fatalf("吸筹 SOS 应为 BUY_LIGHT(1)，实际 %s(%v)", st.Action, st.WyckoffScore)
	}
}

func TestClassifier_DistributionUpthrust(t *testing.T) {
	c := New(config.Default().Wyckoff)

	var bars []model.Bar
	for i := 0; i < 60; i++ {
		px := 10 + float64(i)*0.16
		bars = append(bars, mkBar(i, px-0.05, px+0.1, px-0.15, px, 1000))
	}
	for i := 60; i < 240; i++ {
		bars = append(bars, boxBar(i, 1000, 2000))
	}
	// 放量上冲区间上沿后收回
	bars = append(bars, mkBar(240, 20.5, 21.3, 20.4, 20.7, 10000))

	st := runAll(c, bars)[240]
	if st.Phase != model.PhaseDistribution || st.Event != model.EventUpthrust {
		t.Fatalf("应为 DISTRIBUTION/UPTHRUST，实际 %s/%s", st.Phase, st.Event)
	}
	if st.Action != model.ActionReduce {
		t.Fatalf("派发 UPTHRUST 应减仓，实际 %s", st.Action)
	}
}

func TestDivergence(t *testing.T) {
	const minClose, minDIF, maxClose, maxDIF = 10.0, -1.0, 12.0, 1.0
	cases := []struct {
		name       string
		close, dif float64
		bull, bear bool
	}{
		{"新低且 DIF 抬高", 9.8, -0.5, true, false},
		{"新低且 DIF 同步新低", 9.8, -1.2, false, false},
		{"等于前低不算新低", 10.0, -0.5, false, false},
		{"新高且 DIF 走低", 12.5, 0.5, false, true},
		{"新高且 DIF 同步新高", 12.5, 1.5, false, false},
		{"DIF 缺失", 9.8, math.NaN(), false, false},
	}
	for _, tc := range cases {
		bull, bear := divergence(tc.close, tc.dif, minClose, minDIF, maxClose, maxDIF)
		if bull != tc.bull || bear != tc.bear {
			t.Fatalf("%s: 期望 bull=%v bear=%v，实际 %v/%v", tc.name, tc.bull, tc.bear, bull, bear)
		}
	}
}

func TestEFISignals(t *testing.T) {
	cases := []struct {
		name         string
		z, efi, prev float64
		weak, strong bool
	}{
		{"高位回落", 1.5, 1, 2, true, false},
		{"阈值上不算", 1.0, 1, 2, false, false},
		{"高位仍在上升", 1.5, 3, 2, false, false},
		{"低位回升", -1.5, 2, 1, false, true},
		{"负阈值上不算", -1.0, 2, 1, false, false},
		{"低位仍在下降", -1.5, 1, 2, false, false},
		{"标准分缺失", math.NaN(), 1, 2, false, false},
		{"前值缺失", 1.5, 1, math.NaN(), false, false},
	}
	for _, tc := range cases {
		weak, strong := efiSignals(tc.z, tc.efi, tc.prev)
		if weak != tc.weak || strong != tc.strong {
			t.Fatalf("%s: 期望 weak=%v strong=%v，实际 %v/%v", tc.name, tc.weak, tc.strong, weak, strong)
		}
	}
}

func TestCrosses(t *testing.T) {
	cases := []struct {
		name                          string
		short, long, pShort, pLong, b float64
		golden, death                 bool
	}{
		{"金叉", 10.2, 10, 9.9, 10, 0, true, false},
		{"前一根持平也算金叉", 10.2, 10, 10, 10, 0, true, false},
		{"死叉无缓冲", 9.9, 10, 10.1, 10, 0, false, true},
		{"死叉未击穿缓冲", 9.9, 10, 10.1, 10, 0.2, false, false},
		{"死叉击穿缓冲", 9.7, 10, 10.1, 10, 0.2, false, true},
		{"前值缺失", 10.2, 10, math.NaN(), math.NaN(), 0, false, false},
	}
	for _, tc := range cases {
		golden, death := crosses(tc.short, tc.long, tc.pShort, tc.pLong, tc.b)
		if golden != tc.golden || death != tc.death {
			t.Fatalf("%s: 期望 golden=%v death=%v，实际 %v/%v", tc.name, tc.golden, tc.death, golden, death)
		}
	}
}

func TestSlopeDir(t *testing.T) {
	cases := []struct {
		name        string
		ma, shifted float64
		up, down    bool
	}{
		{"上行", 11, 10, true, false},
		{"下行", 9, 10, false, true},
		{"走平", 10, 10, false, false},
		{"基准为 0", 10, 0, false, false},
		{"基准缺失", 10, math.NaN(), false, false},
	}
	for _, tc := range cases {
		up, down := slopeDir(tc.ma, tc.shifted)
		if up != tc.up || down != tc.down {
			t.Fatalf("%s: 期望 up=%v down=%v，实际 %v/%v", tc.name, tc.up, tc.down, up, down)
		}
	}
}
