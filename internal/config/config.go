// Package config 负责加载和验证 YAML 配置文件。
// 所有阈值与权重都是可覆盖的默认值，而非结构性常量。
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// 策略名称（与 engine 的静态分发表一一对应）
const (
	// StrategyTrend MA5/MA20 趋势 + 威科夫 + 质量分综合策略
	StrategyTrend = "ma5_ma20_trend"
	// StrategyWyckoff 威科夫派发/吸筹独立策略
	StrategyWyckoff = "wyckoff_distribution"
	// StrategyLowSuck 上升趋势中的超跌低吸反转策略
	StrategyLowSuck = "low_suck_reversal"
)

// Strategies 全部策略名称，顺序与 engine 分发表一致
var Strategies = []string{StrategyTrend, StrategyWyckoff, StrategyLowSuck}

// 低吸模式
const (
	// LowSuckConservative 需反转形态与量比确认
	LowSuckConservative = "conservative"
	// LowSuckAggressive 超跌 + 支撑 + 波动收缩即买入
	LowSuckAggressive = "aggressive"
)

// 写入范围
const (
	// WriteScopeLatest 仅输出每次运行的最新交易日
	WriteScopeLatest = "latest"
	// WriteScopeWindow 输出计算窗口内全部交易日
	WriteScopeWindow = "window"
)

// 环境变量覆盖项
const (
	EnvPostgresDSN = "SIGNAL_PG_DSN"
	EnvLogLevel    = "SIGNAL_LOG_LEVEL"
)

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Engine 批量评估配置
	Engine EngineConfig `yaml:"engine"`
	// Wyckoff 市场结构分类器参数
	Wyckoff WyckoffConfig `yaml:"wyckoff"`
	// Trend 趋势门控参数
	Trend TrendConfig `yaml:"trend"`
	// Quality 质量分权重
	Quality QualityConfig `yaml:"quality"`
	// Combine 决策合成参数
	Combine CombineConfig `yaml:"combine"`
	// LowSuck 低吸反转策略参数
	LowSuck LowSuckConfig `yaml:"low_suck"`
	// Output 文件输出配置
	Output OutputConfig `yaml:"output"`
	// Postgres 信号落库配置
	Postgres PostgresConfig `yaml:"postgres"`
	// Metrics 指标导出配置
	Metrics MetricsConfig `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// EngineConfig 批量评估配置
type EngineConfig struct {
	// Strategy 策略名称: ma5_ma20_trend / wyckoff_distribution / low_suck_reversal
	Strategy string `yaml:"strategy"`
	// Workers 并行评估的标的数上限，0 表示不限
	Workers int `yaml:"workers"`
	// WriteScope 输出范围: latest / window
	WriteScope string `yaml:"write_scope"`
	// WriteWindowDays window 范围下只输出最新交易日往前的自然日数，0 表示全部
	WriteWindowDays int `yaml:"write_window_days"`
}

// WyckoffConfig 市场结构分类器参数
type WyckoffConfig struct {
	MAShort               int     `yaml:"ma_short"`
	MALong                int     `yaml:"ma_long"`
	EFIWindow             int     `yaml:"efi_window"`
	EFISpan               int     `yaml:"efi_span"`
	DivergenceLookback    int     `yaml:"divergence_lookback"`
	ConfirmationWindow    int     `yaml:"confirmation_window"`
	LongMAWindow          int     `yaml:"long_ma_window"`
	LongSlopeWindow       int     `yaml:"long_slope_window"`
	StructureWindow       int     `yaml:"structure_window"`
	BoxLenMin             int     `yaml:"box_len_min"`
	BoxVolatilityCap      float64 `yaml:"box_volatility_cap"`
	VolConfirmWindow      int     `yaml:"vol_confirm_window"`
	VolContractRatio      float64 `yaml:"vol_contract_ratio"`
	VolImbalanceThreshold float64 `yaml:"vol_imbalance_threshold"`
	BreakoutPct           float64 `yaml:"breakout_pct"`
	ReclaimTol            float64 `yaml:"reclaim_tol"`
	VolSpikeMult          float64 `yaml:"vol_spike_mult"`
	// DeathCrossATRBuffer 死叉需跌破 MA20 的 ATR 倍数缓冲
	DeathCrossATRBuffer float64 `yaml:"death_cross_atr_buffer"`
}

// Warmup 分类器预热长度：最大的配置窗口
func (w WyckoffConfig) Warmup() int {
	m := w.MALong
	for _, v := range []int{w.EFIWindow, w.DivergenceLookback, w.LongMAWindow, w.StructureWindow, w.VolConfirmWindow} {
		if v > m {
			m = v
		}
	}
	return m
}

// TrendConfig 趋势门控参数
type TrendConfig struct {
	// PullbackATRMult 回踩买点：|close-MA20| <= 倍数 × ATR14
	PullbackATRMult float64 `yaml:"pullback_atr_mult"`
	// PullbackVolMult 回踩不放量：volume < 倍数 × 均量
	PullbackVolMult float64 `yaml:"pullback_vol_mult"`
	// VolumeMAWindow 均量窗口
	VolumeMAWindow int `yaml:"volume_ma_window"`
	// StopBufferATR 硬止损 ATR 倍数
	StopBufferATR float64 `yaml:"stop_buffer_atr"`
	// StopFloorPct 硬止损的价格百分比下限，避免 ATR≈0 时止损宽度为 0
	StopFloorPct float64 `yaml:"stop_floor_pct"`
	// TrailingWindow 移动止损的最高收盘价窗口
	TrailingWindow int `yaml:"trailing_window"`
	// TrailingATRMult 移动止损 ATR 倍数
	TrailingATRMult float64 `yaml:"trailing_atr_mult"`
	// StagnationVolRatio 滞涨：量比阈值
	StagnationVolRatio float64 `yaml:"stagnation_vol_ratio"`
	// StagnationATRMult 滞涨：当日价格推进不足的 ATR 倍数
	StagnationATRMult float64 `yaml:"stagnation_atr_mult"`
	// StagnationBiasATRMult 滞涨：偏离 MA20 的 ATR 倍数
	StagnationBiasATRMult float64 `yaml:"stagnation_bias_atr_mult"`
	// MinDailyAmount 最低日成交额（元），低于则硬门槛拦截
	MinDailyAmount float64 `yaml:"min_daily_amount"`
	// PriceCeiling 价格上限，超出仅打风险标签；0 表示不检查
	PriceCeiling float64 `yaml:"price_ceiling"`
}

// QualityConfig 质量分各项权重
type QualityConfig struct {
	RotationLeader    float64 `yaml:"rotation_leader"`
	RotationImproving float64 `yaml:"rotation_improving"`

	ChipThreshold float64 `yaml:"chip_threshold"`
	ChipWeight    float64 `yaml:"chip_weight"`

	WyckoffWeight float64 `yaml:"wyckoff_weight"`
	EngulfWeight  float64 `yaml:"engulf_weight"`

	RSWindow          int     `yaml:"rs_window"`
	RSStrongThreshold float64 `yaml:"rs_strong_threshold"`
	RSStrong          float64 `yaml:"rs_strong"`
	RSPositive        float64 `yaml:"rs_positive"`
	RSNegative        float64 `yaml:"rs_negative"`

	ResilienceIndexDrop float64 `yaml:"resilience_index_drop"`
	ResilienceBonus     float64 `yaml:"resilience_bonus"`

	DistributionPenalty float64 `yaml:"distribution_penalty"`
	AccumulationBonus   float64 `yaml:"accumulation_bonus"`
	TrendUpBonus        float64 `yaml:"trend_up_bonus"`

	RSIOverbought        float64 `yaml:"rsi_overbought"`
	RSIOverboughtPenalty float64 `yaml:"rsi_overbought_penalty"`
	RSIBandLow           float64 `yaml:"rsi_band_low"`
	RSIBandHigh          float64 `yaml:"rsi_band_high"`
	RSIBandBonus         float64 `yaml:"rsi_band_bonus"`

	RPSLeader              float64 `yaml:"rps_leader"`
	RPSLeaderBonus         float64 `yaml:"rps_leader_bonus"`
	YearlineBand           float64 `yaml:"yearline_band"`
	YearlineImprovingBonus float64 `yaml:"yearline_improving_bonus"`
	YearlineStableBonus    float64 `yaml:"yearline_stable_bonus"`
	RPSWeak                float64 `yaml:"rps_weak"`
	RPSWeakPenalty         float64 `yaml:"rps_weak_penalty"`

	AccelRPSMin float64 `yaml:"accel_rps_min"`
	AccelBonus  float64 `yaml:"accel_bonus"`

	AntiChaseBias    float64 `yaml:"anti_chase_bias"`
	AntiChasePenalty float64 `yaml:"anti_chase_penalty"`
}

// CombineConfig 决策合成参数
type CombineConfig struct {
	// QualityStopThreshold 默认质量分门槛，BUY 的质量分 <= 门槛时降级为 WAIT
	QualityStopThreshold float64 `yaml:"quality_stop_threshold"`
	// WeakMarketThreshold 弱市时抬高后的门槛
	WeakMarketThreshold float64 `yaml:"weak_market_threshold"`
	// WeakMarketIndexRet 指数近 N 日累计收益 <= 该值视为弱市
	WeakMarketIndexRet float64 `yaml:"weak_market_index_ret"`
	// IndexRetWindow 指数累计收益窗口
	IndexRetWindow int `yaml:"index_ret_window"`
	// BaseCap/CapPerQuality/MaxCap 仓位映射：clip(base + q × k, 0, max)
	BaseCap       float64 `yaml:"base_cap"`
	CapPerQuality float64 `yaml:"cap_per_quality"`
	MaxCap        float64 `yaml:"max_cap"`
	// ConfirmRequireMA5AboveMA20 BUY_CONFIRM 升级是否要求 MA5 >= MA20
	ConfirmRequireMA5AboveMA20 bool `yaml:"buy_confirm_require_ma5_ge_ma20"`
}

// LowSuckConfig 低吸反转参数，ATR 倍数均相对 ATR14
type LowSuckConfig struct {
	// Mode conservative / aggressive
	Mode string `yaml:"mode"`
	// MA60SlopeWindow/MA250SlopeWindow 长均线向上的比较间隔
	MA60SlopeWindow  int `yaml:"ma60_slope_window"`
	MA250SlopeWindow int `yaml:"ma250_slope_window"`
	// TrendBadWindow MA60 走坏的比较间隔
	TrendBadWindow int `yaml:"trend_bad_window"`
	// FallingKnifeWindow/FallingKnifeATRMult 飞刀：N 日跌幅超过倍数 × ATR 且趋势走坏
	FallingKnifeWindow  int     `yaml:"falling_knife_window"`
	FallingKnifeATRMult float64 `yaml:"falling_knife_atr_mult"`
	// BiasATRMult 超跌：MA20 - close >= 倍数 × ATR
	BiasATRMult float64 `yaml:"bias20_atr_mult"`
	// RSIThreshold RSI 超卖阈值，RSI 缺失按 50 处理
	RSIThreshold float64 `yaml:"rsi_threshold"`
	// SupportATRTol 回踩支撑的 ATR 容差
	SupportATRTol float64 `yaml:"support_atr_tol"`
	// RecentLowWindow/RecentLowMin 近期低点窗口及最少样本数
	RecentLowWindow int `yaml:"recent_low_window"`
	RecentLowMin    int `yaml:"recent_low_min"`
	// HammerATRMult 长下影线的最小 ATR 倍数
	HammerATRMult float64 `yaml:"hammer_atr_mult"`
	// VolumeMAWindow/ReboundVolRatio 反弹放量：volume >= 比例 × 均量
	VolumeMAWindow  int     `yaml:"volume_ma_window"`
	ReboundVolRatio float64 `yaml:"rebound_vol_ratio"`
	// ATRPctMax 波动收缩：ATR14/close 上限
	ATRPctMax float64 `yaml:"atr_pct_max"`
	// VolRatioMax 量比上限，量比缺失视为不满足
	VolRatioMax float64 `yaml:"vol_ratio_max"`
}

// OutputConfig 文件输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// JSONLEnabled 是否输出 signals.jsonl
	JSONLEnabled bool `yaml:"jsonl_enabled"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// PostgresConfig 信号落库配置；DSN 为空表示不落库
type PostgresConfig struct {
	DSN            string        `yaml:"dsn"`
	Table          string        `yaml:"table"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
	MaxIdleTime    time.Duration `yaml:"max_idle_time"`
	ConnectRetries int           `yaml:"connect_retries"`
}

// MetricsConfig 指标导出配置
type MetricsConfig struct {
	// TextfilePath Prometheus textfile 输出路径，空表示不导出
	TextfilePath string `yaml:"textfile_path"`
}

// Default 返回带全部默认值的配置
func Default() Config {
	return Config{
		App: AppConfig{
			Name:     "ashare-signal-engine",
			LogLevel: "info",
		},
		Engine: EngineConfig{
			Strategy:   StrategyTrend,
			Workers:    8,
			WriteScope: WriteScopeLatest,
		},
		Wyckoff: WyckoffConfig{
			MAShort:               5,
			MALong:                20,
			EFIWindow:             60,
			EFISpan:               13,
			DivergenceLookback:    30,
			ConfirmationWindow:    10,
			LongMAWindow:          200,
			LongSlopeWindow:       20,
			StructureWindow:       160,
			BoxLenMin:             80,
			BoxVolatilityCap:      0.25,
			VolConfirmWindow:      60,
			VolContractRatio:      0.85,
			VolImbalanceThreshold: 1.2,
			BreakoutPct:           0.01,
			ReclaimTol:            0.003,
			VolSpikeMult:          1.3,
			DeathCrossATRBuffer:   0.2,
		},
		Trend: TrendConfig{
			PullbackATRMult:       0.5,
			PullbackVolMult:       1.05,
			VolumeMAWindow:        5,
			StopBufferATR:         0.5,
			StopFloorPct:          0.005,
			TrailingWindow:        20,
			TrailingATRMult:       3.0,
			StagnationVolRatio:    2.0,
			StagnationATRMult:     0.3,
			StagnationBiasATRMult: 2.0,
			MinDailyAmount:        2e7,
		},
		Quality: QualityConfig{
			RotationLeader:         2.0,
			RotationImproving:      1.0,
			ChipThreshold:          0.5,
			ChipWeight:             1.0,
			WyckoffWeight:          0.5,
			EngulfWeight:           0.3,
			RSWindow:               5,
			RSStrongThreshold:      0.05,
			RSStrong:               1.5,
			RSPositive:             0.5,
			RSNegative:             -0.5,
			ResilienceIndexDrop:    -0.005,
			ResilienceBonus:        1.0,
			DistributionPenalty:    -3.0,
			AccumulationBonus:      1.0,
			TrendUpBonus:           0.5,
			RSIOverbought:          75,
			RSIOverboughtPenalty:   -2.0,
			RSIBandLow:             40,
			RSIBandHigh:            65,
			RSIBandBonus:           0.5,
			RPSLeader:              90,
			RPSLeaderBonus:         2.0,
			YearlineBand:           0.05,
			YearlineImprovingBonus: 1.5,
			YearlineStableBonus:    0.5,
			RPSWeak:                70,
			RPSWeakPenalty:         -2.0,
			AccelRPSMin:            80,
			AccelBonus:             1.0,
			AntiChaseBias:          0.10,
			AntiChasePenalty:       -3.0,
		},
		Combine: CombineConfig{
			QualityStopThreshold: -3.0,
			WeakMarketThreshold:  0.0,
			WeakMarketIndexRet:   -0.02,
			IndexRetWindow:       5,
			BaseCap:              0.5,
			CapPerQuality:        0.1,
			MaxCap:               0.8,

			ConfirmRequireMA5AboveMA20: true,
		},
		LowSuck: LowSuckConfig{
			Mode:                LowSuckConservative,
			MA60SlopeWindow:     5,
			MA250SlopeWindow:    10,
			TrendBadWindow:      10,
			FallingKnifeWindow:  10,
			FallingKnifeATRMult: 3.0,
			BiasATRMult:         1.5,
			RSIThreshold:        30,
			SupportATRTol:       0.2,
			RecentLowWindow:     20,
			RecentLowMin:        10,
			HammerATRMult:       0.25,
			VolumeMAWindow:      20,
			ReboundVolRatio:     1.1,
			ATRPctMax:           0.035,
			VolRatioMax:         1.2,
		},
		Output: OutputConfig{
			Dir:          "./output",
			JSONLEnabled: true,
			BufferSize:   1000,
		},
		Postgres: PostgresConfig{
			Table:          "strategy_signal_events",
			MaxOpenConns:   4,
			MaxIdleConns:   2,
			MaxIdleTime:    5 * time.Minute,
			ConnectRetries: 3,
		},
	}
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径；为空时仅使用默认值与环境变量
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 以默认值为底，YAML 只覆盖出现的键
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return &cfg, nil
}

// setDefaults 补齐被显式置空的文本类配置
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "ashare-signal-engine"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Engine.Strategy == "" {
		c.Engine.Strategy = StrategyTrend
	}
	if c.Engine.WriteScope == "" {
		c.Engine.WriteScope = WriteScopeLatest
	}
	if c.LowSuck.Mode == "" {
		c.LowSuck.Mode = LowSuckConservative
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
	if c.Postgres.Table == "" {
		c.Postgres.Table = "strategy_signal_events"
	}
}

// applyEnv 读取 .env（若存在）并应用环境变量覆盖
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		c.Postgres.DSN = dsn
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.App.LogLevel = lvl
	}
}

// Validate 验证配置合法性
// 收集全部错误后一次性返回
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if !slices.Contains(Strategies, c.Engine.Strategy) {
		add("engine.strategy: 未知策略 '%s'，有效值: %s", c.Engine.Strategy, strings.Join(Strategies, ", "))
	}
	if c.Engine.Workers < 0 {
		add("engine.workers: 不能为负数")
	}
	switch c.Engine.WriteScope {
	case WriteScopeLatest, WriteScopeWindow:
	default:
		add("engine.write_scope: 无效值 '%s'，有效值: latest, window", c.Engine.WriteScope)
	}
	if c.Engine.WriteWindowDays < 0 {
		add("engine.write_window_days: 不能为负数")
	}

	w := c.Wyckoff
	ls := c.LowSuck
	// 按声明顺序检查，保证错误信息顺序稳定
	for _, win := range []struct {
		name string
		v    int
	}{
		{"wyckoff.ma_short", w.MAShort},
		{"wyckoff.ma_long", w.MALong},
		{"wyckoff.efi_window", w.EFIWindow},
		{"wyckoff.efi_span", w.EFISpan},
		{"wyckoff.divergence_lookback", w.DivergenceLookback},
		{"wyckoff.confirmation_window", w.ConfirmationWindow},
		{"wyckoff.long_ma_window", w.LongMAWindow},
		{"wyckoff.long_slope_window", w.LongSlopeWindow},
		{"wyckoff.structure_window", w.StructureWindow},
		{"wyckoff.box_len_min", w.BoxLenMin},
		{"wyckoff.vol_confirm_window", w.VolConfirmWindow},
		{"trend.volume_ma_window", c.Trend.VolumeMAWindow},
		{"trend.trailing_window", c.Trend.TrailingWindow},
		{"quality.rs_window", c.Quality.RSWindow},
		{"combine.index_ret_window", c.Combine.IndexRetWindow},
		{"low_suck.ma60_slope_window", ls.MA60SlopeWindow},
		{"low_suck.ma250_slope_window", ls.MA250SlopeWindow},
		{"low_suck.trend_bad_window", ls.TrendBadWindow},
		{"low_suck.falling_knife_window", ls.FallingKnifeWindow},
		{"low_suck.recent_low_window", ls.RecentLowWindow},
		{"low_suck.volume_ma_window", ls.VolumeMAWindow},
	} {
		if win.v <= 0 {
			add("%s: 窗口必须为正数", win.name)
		}
	}
	if w.MAShort >= w.MALong {
		add("wyckoff.ma_short: 短均线窗口必须小于长均线窗口")
	}
	if w.BoxLenMin > w.StructureWindow {
		add("wyckoff.box_len_min: 不能大于 structure_window")
	}
	if w.BoxVolatilityCap <= 0 {
		add("wyckoff.box_volatility_cap: 必须为正数")
	}
	if w.VolContractRatio <= 0 || w.VolImbalanceThreshold <= 0 || w.VolSpikeMult <= 0 {
		add("wyckoff: 量能比例参数必须为正数")
	}
	if w.BreakoutPct < 0 || w.ReclaimTol < 0 || w.DeathCrossATRBuffer < 0 {
		add("wyckoff: 突破/回收/缓冲参数不能为负数")
	}

	t := c.Trend
	if t.PullbackATRMult < 0 || t.StopBufferATR < 0 || t.StopFloorPct < 0 || t.TrailingATRMult < 0 {
		add("trend: ATR 倍数不能为负数")
	}
	if t.MinDailyAmount < 0 {
		add("trend.min_daily_amount: 不能为负数")
	}
	if t.PriceCeiling < 0 {
		add("trend.price_ceiling: 不能为负数")
	}

	switch ls.Mode {
	case LowSuckConservative, LowSuckAggressive:
	default:
		add("low_suck.mode: 无效值 '%s'，有效值: conservative, aggressive", ls.Mode)
	}
	if ls.RecentLowMin <= 0 || ls.RecentLowMin > ls.RecentLowWindow {
		add("low_suck.recent_low_min: 必须在 [1, recent_low_window] 之间")
	}
	if ls.FallingKnifeATRMult < 0 || ls.BiasATRMult < 0 || ls.SupportATRTol < 0 || ls.HammerATRMult < 0 {
		add("low_suck: ATR 倍数不能为负数")
	}

	cb := c.Combine
	if cb.MaxCap <= 0 || cb.MaxCap > 1 {
		add("combine.max_cap: 必须在 (0, 1] 之间，当前值: %f", cb.MaxCap)
	}
	if cb.BaseCap < 0 || cb.BaseCap > cb.MaxCap {
		add("combine.base_cap: 必须在 [0, max_cap] 之间，当前值: %f", cb.BaseCap)
	}
	if cb.WeakMarketThreshold < cb.QualityStopThreshold {
		add("combine.weak_market_threshold: 弱市门槛不能低于默认门槛")
	}

	if c.Output.BufferSize < 0 {
		add("output.buffer_size: 不能为负数")
	}
	if c.Postgres.ConnectRetries < 0 {
		add("postgres.connect_retries: 不能为负数")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		add("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel)
	}

	if errs != nil {
		return fmt.Errorf("配置验证错误: %w", errs)
	}
	return nil
}

// Problems 拆分 Validate/Load 返回的聚合错误，便于逐条输出
// 沿包装链向内查找第一个聚合错误；找不到时返回原错误本身。
func Problems(err error) []error {
	if err == nil {
		return nil
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errs := multierr.Errors(e); len(errs) > 1 {
			return errs
		}
	}
	return []error{err}
}
