// Package engine 提供批量信号评估入口 Evaluate。
// 每个 code 独立持有一份逐根评估状态，不同 code 之间并行计算；
// 跨 code 共享的只有只读配置和指数收益序列。
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/combine"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/core/quality"
	"ashare-signal-engine/internal/core/store"
	"ashare-signal-engine/internal/market"
	"ashare-signal-engine/internal/metrics"
	"ashare-signal-engine/internal/util/timeutil"
)

var (
	// ErrMissingOHLCV 整个输入中某个 OHLCV 字段全部缺失
	ErrMissingOHLCV = model.ErrMissingOHLCV
	// ErrCodeMismatch K 线的 code 与所属序列的 key 不一致
	ErrCodeMismatch = errors.New("K 线 code 与序列不一致")
	// ErrUnknownStrategy 策略名称不在分发表中
	ErrUnknownStrategy = errors.New("未知策略")
)

// ctxCheckEvery 逐根评估时检查 ctx 的间隔
const ctxCheckEvery = 256

// Input 一次评估的输入
type Input struct {
	// Series code → 按日期排列的 K 线；允许乱序和重复日期
	Series map[string][]model.Bar
	// Index 指数日收益，可为 nil；K 线自带 index_ret 时以 K 线为准
	Index *market.Series
}

// Result 一次评估的输出
type Result struct {
	// RunID 本次运行标识，写入日志与落库行
	RunID uuid.UUID
	// Strategy 策略名称
	Strategy string
	// Records 全部 (code, date) 的信号，按 (code, date) 升序
	Records []model.SignalRecord
	// Emit 按写入范围筛选后交给下游落地的记录
	Emit []model.SignalRecord
	// LatestDate 输出中的最新交易日
	LatestDate time.Time
	// Summary 最新交易日各信号计数
	Summary map[model.Signal]int
	Codes   int
	Bars    int
	// Duplicates 被后出现行覆盖的重复 (code, date) 行数
	Duplicates int
	Duration   time.Duration
}

// Engine 批量评估器（可并发调用 Evaluate）
type Engine struct {
	kind    Kind
	cfg     *config.Config
	shared  *shared
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// New 创建评估器
// 参数 cfg: 已通过 Validate 的配置，策略取 cfg.Engine.Strategy
// 参数 logger: 为 nil 时不输出日志
// 参数 rec: 为 nil 时不记录指标
func New(cfg *config.Config, logger *zap.Logger, rec *metrics.Recorder) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置为空")
	}
	kind, err := ParseKind(cfg.Engine.Strategy)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		kind: kind,
		cfg:  cfg,
		shared: &shared{
			cfg:      cfg,
			scorer:   quality.New(cfg.Quality, cfg.Trend),
			combiner: combine.New(cfg.Combine),
		},
		logger:  logger,
		metrics: rec,
	}, nil
}

// Kind 当前策略
func (e *Engine) Kind() Kind { return e.kind }

// Evaluate 对全部 code 逐根评估，返回每个 (code, date) 一条信号
// 输入不会被修改；相同输入与配置重复调用得到相同的 Records。
func (e *Engine) Evaluate(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New(), Strategy: e.kind.String()}

	res, err := e.evaluate(ctx, in, res)
	res.Duration = time.Since(start)

	e.metrics.ObserveRun(metrics.Run{
		Strategy:   res.Strategy,
		Err:        err,
		Bars:       res.Bars,
		Duration:   res.Duration,
		Signals:    res.Summary,
		LatestDate: res.LatestDate,
	})
	if err != nil {
		e.logger.Error("信号评估失败",
			zap.String("run_id", res.RunID.String()),
			zap.String("strategy", res.Strategy),
			zap.Error(err))
		return nil, err
	}

	fields := []zap.Field{
		zap.String("run_id", res.RunID.String()),
		zap.String("strategy", res.Strategy),
		zap.Int("codes", res.Codes),
		zap.Int("bars", res.Bars),
		zap.Int("records", len(res.Records)),
		zap.Int("emit", len(res.Emit)),
		zap.Int("duplicates", res.Duplicates),
		zap.String("latest_date", timeutil.FormatDate(res.LatestDate)),
		zap.Float64("duration_ms", timeutil.DurationMs(res.Duration)),
	}
	for _, sig := range model.AllSignals {
		fields = append(fields, zap.Int(strings.ToLower(string(sig)), res.Summary[sig]))
	}
	e.logger.Info("信号评估完成", fields...)
	return res, nil
}

func (e *Engine) evaluate(ctx context.Context, in Input, res *Result) (*Result, error) {
	if err := checkOHLCV(in.Series); err != nil {
		return res, err
	}

	codes := make([]string, 0, len(in.Series))
	for code := range in.Series {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	prepared := make([][]model.Bar, 0, len(codes))
	for _, code := range codes {
		bars, dups, err := prepare(code, in.Series[code], in.Index)
		if err != nil {
			return res, err
		}
		if len(bars) == 0 {
			e.logger.Warn("序列为空，跳过", zap.String("code", code))
			continue
		}
		res.Duplicates += dups
		res.Bars += len(bars)
		prepared = append(prepared, bars)
	}
	res.Codes = len(prepared)

	out := make([][]model.SignalRecord, len(prepared))
	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Engine.Workers > 0 {
		g.SetLimit(e.cfg.Engine.Workers)
	}
	factory := kindFactories[e.kind]
	for i := range prepared {
		i := i
		g.Go(func() error {
			ev := factory(e.shared)
			bars := prepared[i]
			recs := make([]model.SignalRecord, len(bars))
			for j := range bars {
				if j%ctxCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				recs[j] = ev.Next(&bars[j])
			}
			out[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("评估中断: %w", err)
	}

	// 合并阶段单 goroutine 写入
	st := store.New(res.Bars)
	for _, recs := range out {
		for _, rec := range recs {
			st.Upsert(rec)
		}
	}

	res.Records = st.Records()
	res.LatestDate = st.LatestDate()
	latest := st.OnDate(res.LatestDate)
	res.Summary = make(map[model.Signal]int, len(model.AllSignals))
	for _, rec := range latest {
		res.Summary[rec.Signal]++
	}
	if e.cfg.Engine.WriteScope == config.WriteScopeWindow {
		res.Emit = windowRecords(res.Records, res.LatestDate, e.cfg.Engine.WriteWindowDays)
	} else {
		res.Emit = latest
	}
	return res, nil
}

// windowRecords 最新交易日往前 days 个自然日内的记录（含最新日），days<=0 时返回全部
func windowRecords(recs []model.SignalRecord, latest time.Time, days int) []model.SignalRecord {
	if days <= 0 {
		return recs
	}
	start := latest.AddDate(0, 0, -(days - 1))
	out := make([]model.SignalRecord, 0, len(recs))
	for _, rec := range recs {
		if !rec.Date.Before(start) {
			out = append(out, rec)
		}
	}
	return out
}

// checkOHLCV 任一 OHLCV 字段在整个输入中全部缺失视为列族缺失
func checkOHLCV(series map[string][]model.Bar) error {
	total := 0
	var seen [5]bool
	for _, bars := range series {
		for i := range bars {
			b := &bars[i]
			total++
			for k, v := range [5]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
				if model.Valid(v) {
					seen[k] = true
				}
			}
		}
	}
	if total == 0 {
		return nil
	}
	names := [5]string{"open", "high", "low", "close", "volume"}
	var missing []string
	for k, ok := range seen {
		if !ok {
			missing = append(missing, names[k])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingOHLCV, strings.Join(missing, ","))
	}
	return nil
}

// prepare 复制、补齐指数收益、按日期稳定排序并去重（同日保留最后出现的一行）
// 返回: 处理后的 K 线与被覆盖的重复行数
func prepare(code string, src []model.Bar, index *market.Series) ([]model.Bar, int, error) {
	bars := make([]model.Bar, len(src))
	copy(bars, src)
	for i := range bars {
		if bars[i].Code != code {
			return nil, 0, fmt.Errorf("%w: 序列 %s 中出现 %s", ErrCodeMismatch, code, bars[i].Code)
		}
		bars[i].Date = timeutil.Day(bars[i].Date)
	}
	index.Join(bars)

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	dups := 0
	out := bars[:0]
	for i := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(bars[i].Date) {
			out[n-1] = bars[i]
			dups++
			continue
		}
		out = append(out, bars[i])
	}
	return out, dups, nil
}
