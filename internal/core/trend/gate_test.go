package trend

import (
	"math"
	"testing"
	"time"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// trendBar 多头排列下的 K 线：close > ma20 > ma250
func trendBar(i int, closePx, ma5, ma20 float64) model.Bar {
	b := model.NewBar("sz.000001", day0.AddDate(0, 0, i))
	b.Open, b.High, b.Low, b.Close = closePx, closePx*1.01, closePx*0.99, closePx
	b.Volume = 1_000_000
	b.Amount = 1e9
	b.MA5, b.MA20, b.MA250 = ma5, ma20, 8
	b.ATR14 = 0.3
	return b
}

func feed(g *Gate, bars []model.Bar) []Signals {
	out := make([]Signals, len(bars))
	for i := range bars {
		out[i] = g.Next(&bars[i])
	}
	return out
}

func TestGate_CrossUpBuy(t *testing.T) {
	g := New(config.Default().Trend)
	sigs := feed(g, []model.Bar{
		trendBar(0, 10.0, 9.9, 10.0),
		trendBar(1, 10.4, 10.1, 10.0),
	})
	s := sigs[1]
	if !s.TrendOK || !s.CrossUp || !s.BuyCross || !s.BaseBuy {
		t.Fatalf("金叉且趋势成立应产生买入，实际 %+v", s)
	}
	if s.HardGate || s.BaseSell {
		t.Fatalf("不应触发硬门槛或卖出，实际 %+v", s)
	}
}

// Scenario C: 成交额低于下限时硬门槛拦截
func TestGate_LiquidityFloor(t *testing.T) {
	cfg := config.Default().Trend
	g := New(cfg)

	bars := []model.Bar{
		trendBar(0, 10.0, 9.9, 10.0),
		trendBar(1, 10.4, 10.1, 10.0),
	}
	bars[1].Amount = cfg.MinDailyAmount / 2
	s := feed(g, bars)[1]
	if !s.BaseBuy {
		t.Fatalf("基础买入应成立")
	}
	if !s.HardGate || !s.GateLiquidity {
		t.Fatalf("成交额不足应触发硬门槛，实际 %+v", s)
	}
}

func TestGate_HardGateCauses(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Bar)
		check  func(Signals) bool
	}{
		{"MA20 缺失", func(b *model.Bar) { b.MA20 = math.NaN() }, func(s Signals) bool { return s.GateMissing }},
		{"收盘价缺失", func(b *model.Bar) { b.Close = math.NaN() }, func(s Signals) bool { return s.GateMissing }},
		{"一字涨停", func(b *model.Bar) { b.OneWordLimitUp = true }, func(s Signals) bool { return s.GateLimitUp }},
		{"环境 STOP", func(b *model.Bar) { b.EnvGateAction = "stop" }, func(s Signals) bool { return s.GateEnv }},
		{"环境 ALLOW_NONE", func(b *model.Bar) { b.EnvGateAction = "ALLOW_NONE" }, func(s Signals) bool { return s.GateEnv }},
	}
	for _, tc := range cases {
		g := New(config.Default().Trend)
		b := trendBar(0, 10, 10, 10)
		tc.mutate(&b)
		s := g.Next(&b)
		if !s.HardGate || !tc.check(s) {
			t.Fatalf("%s: 应触发硬门槛，实际 %+v", tc.name, s)
		}
	}

	g := New(config.Default().Trend)
	b := trendBar(0, 10, 10, 10)
	b.EnvGateAction = "ALLOW_ALL"
	b.Amount = math.NaN()
	if s := g.Next(&b); s.HardGate {
		t.Fatalf("成交额缺失或非拦截动作不应触发硬门槛，实际 %+v", s)
	}
}

func TestGate_Pullback(t *testing.T) {
	g := New(config.Default().Trend)
	var bars []model.Bar
	for i := 0; i < 5; i++ {
		bars = append(bars, trendBar(i, 10.5, 10.3+float64(i)*0.01, 10.0))
	}
	// 回踩 MA20 附近、MA5 上行、缩量
	last := trendBar(5, 10.1, 10.36, 10.0)
	last.Volume = 800_000
	bars = append(bars, last)

	s := feed(g, bars)[5]
	if !s.BuyPullback || !s.BaseBuy {
		t.Fatalf("应识别回踩买点，实际 %+v", s)
	}
	if s.CrossUp {
		t.Fatalf("不应为金叉")
	}

	// 放量回踩不算
	g = New(config.Default().Trend)
	bars[5].Volume = 3_000_000
	if s := feed(g, bars)[5]; s.BuyPullback {
		t.Fatalf("放量回踩不应成立")
	}
}

func TestGate_DeadCrossAndReduce(t *testing.T) {
	g := New(config.Default().Trend)
	sigs := feed(g, []model.Bar{
		trendBar(0, 10.0, 10.1, 10.0),
		trendBar(1, 9.95, 9.9, 10.0),
		trendBar(2, 9.97, 9.85, 10.0),
	})
	if !sigs[1].DeadCross || !sigs[1].BaseSell {
		t.Fatalf("第 2 根应为死叉卖出，实际 %+v", sigs[1])
	}
	if sigs[1].BaseReduce {
		t.Fatalf("死叉当根不应同时减仓")
	}
	if sigs[2].DeadCross || !sigs[2].BaseReduce {
		t.Fatalf("第 3 根应为减仓，实际 %+v", sigs[2])
	}
}

func TestGate_HardStopFloor(t *testing.T) {
	cfg := config.Default().Trend
	g := New(cfg)

	// ATR 为 0 时仍保留 0.5% 的价格下限
	b := trendBar(0, 9.96, 9.9, 10.0)
	b.ATR14 = 0
	if s := g.Next(&b); s.HardStop {
		t.Fatalf("跌幅未超过价格下限不应止损，实际 %+v", s)
	}
	b2 := trendBar(1, 9.94, 9.9, 10.0)
	b2.ATR14 = 0
	if s := g.Next(&b2); !s.HardStop || !s.BaseSell {
		t.Fatalf("跌破价格下限应止损，实际 %+v", s)
	}
}

func TestGate_TrailingStop(t *testing.T) {
	g := New(config.Default().Trend)
	var bars []model.Bar
	for i := 0; i < 19; i++ {
		bars = append(bars, trendBar(i, 12+float64(i)*0.1, 12, 11))
	}
	// 最高收盘 13.8，回撤超过 3×ATR
	bars = append(bars, trendBar(19, 12.8, 12.5, 11))
	s := feed(g, bars)[19]
	if !s.TrailingStop || !s.BaseSell {
		t.Fatalf("应触发移动止损，实际 %+v", s)
	}
}

func TestGate_Stagnation(t *testing.T) {
	g := New(config.Default().Trend)
	b0 := trendBar(0, 11.0, 10.8, 10.0)
	b1 := trendBar(1, 11.01, 10.9, 10.0)
	b1.VolRatio = 2.5
	s := feed(g, []model.Bar{b0, b1})[1]
	if !s.Stagnation || !s.BaseSell {
		t.Fatalf("放量滞涨且远离 MA20 应卖出，实际 %+v", s)
	}
}
