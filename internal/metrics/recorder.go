// Package metrics 记录每次信号评估的运行指标。
// 批处理进程不常驻，指标通过 textfile 方式交给 node_exporter 采集。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ashare-signal-engine/internal/core/model"
)

// Run 单次评估的统计摘要
type Run struct {
	Strategy string
	// Err 非空表示评估失败
	Err      error
	Bars     int
	Duration time.Duration
	// Signals 最新交易日各信号计数
	Signals map[model.Signal]int
	// LatestDate 输出中的最新交易日
	LatestDate time.Time
}

// Recorder 评估指标注册表
// nil Recorder 上的所有方法均为空操作。
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	SignalsTotal     *prometheus.CounterVec
	BarsTotal        *prometheus.CounterVec
	EvaluateDuration *prometheus.HistogramVec
	LatestSignals    *prometheus.GaugeVec
	LatestDate       *prometheus.GaugeVec
}

// NewRecorder 创建使用独立注册表的指标记录器
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_runs_total",
				Help: "Evaluation runs by strategy and status",
			},
			[]string{"strategy", "status"},
		),

		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_signals_total",
				Help: "Signals emitted on the latest trade date",
			},
			[]string{"strategy", "signal"},
		),

		BarsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_bars_total",
				Help: "Bars consumed by evaluation",
			},
			[]string{"strategy"},
		),

		EvaluateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_engine_evaluate_duration_seconds",
				Help:    "Wall time of one evaluation run",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		),

		LatestSignals: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_engine_latest_signals",
				Help: "Signal counts on the latest trade date of the last run",
			},
			[]string{"strategy", "signal"},
		),

		LatestDate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_engine_latest_trade_date_seconds",
				Help: "Latest trade date of the last run as unix seconds",
			},
			[]string{"strategy"},
		),
	}

	r.registry.MustRegister(
		r.RunsTotal,
		r.SignalsTotal,
		r.BarsTotal,
		r.EvaluateDuration,
		r.LatestSignals,
		r.LatestDate,
	)
	return r
}

// Registry 返回内部注册表，供 textfile 导出或测试读取
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRun 记录一次评估
func (r *Recorder) ObserveRun(run Run) {
	if r == nil {
		return
	}
	if run.Err != nil {
		r.RunsTotal.WithLabelValues(run.Strategy, "error").Inc()
		return
	}
	r.RunsTotal.WithLabelValues(run.Strategy, "ok").Inc()
	r.BarsTotal.WithLabelValues(run.Strategy).Add(float64(run.Bars))
	r.EvaluateDuration.WithLabelValues(run.Strategy).Observe(run.Duration.Seconds())

	for _, sig := range model.AllSignals {
		n := run.Signals[sig]
		r.SignalsTotal.WithLabelValues(run.Strategy, string(sig)).Add(float64(n))
		r.LatestSignals.WithLabelValues(run.Strategy, string(sig)).Set(float64(n))
	}
	if !run.LatestDate.IsZero() {
		r.LatestDate.WithLabelValues(run.Strategy).Set(float64(run.LatestDate.Unix()))
	}
}

// WriteTextfile 以 node_exporter textfile 格式原子写出全部指标
// path 为空时不写出
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
