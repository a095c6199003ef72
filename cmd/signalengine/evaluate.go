package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/engine"
	"ashare-signal-engine/internal/feed"
	"ashare-signal-engine/internal/metrics"
	"ashare-signal-engine/internal/output/jsonl"
	"ashare-signal-engine/internal/sink/postgres"
	"ashare-signal-engine/internal/util/timeutil"
)

type evaluateOptions struct {
	barsPath   string
	indexPath  string
	strategy   string
	writeScope string
	noDB       bool
}

func newEvaluateCmd() *cobra.Command {
	var opts evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "计算信号并写出结果",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configPath, opts)
			if err != nil {
				for _, p := range config.Problems(err) {
					fmt.Fprintf(cmd.ErrOrStderr(), "配置错误: %v\n", p)
				}
				return err
			}
			return runEvaluate(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.barsPath, "bars", "", "日线指标 CSV 路径（必填）")
	f.StringVar(&opts.indexPath, "index", "", "指数收益 CSV 路径（可选）")
	f.StringVar(&opts.strategy, "strategy", "", "策略名称，覆盖配置 engine.strategy")
	f.StringVar(&opts.writeScope, "write-scope", "", "输出范围 latest/window，覆盖配置 engine.write_scope")
	f.BoolVar(&opts.noDB, "no-db", false, "不落库 Postgres")
	_ = cmd.MarkFlagRequired("bars")
	return cmd
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig(path string, opts evaluateOptions) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.strategy != "" {
		cfg.Engine.Strategy = opts.strategy
	}
	if opts.writeScope != "" {
		cfg.Engine.WriteScope = opts.writeScope
	}
	if opts.noDB {
		cfg.Postgres.DSN = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runEvaluate(ctx context.Context, cfg *config.Config, opts evaluateOptions, out io.Writer) error {
	logger := newLogger(cfg.App.LogLevel).With(zap.String("app", cfg.App.Name))
	defer logger.Sync()

	series, err := feed.LoadBars(opts.barsPath)
	if err != nil {
		return err
	}
	index, err := feed.LoadIndex(opts.indexPath)
	if err != nil {
		return err
	}
	logger.Info("行情加载完成",
		zap.Int("codes", len(series)),
		zap.Int("index_days", index.Len()))

	rec := metrics.NewRecorder()
	eng, err := engine.New(cfg, logger, rec)
	if err != nil {
		return err
	}

	res, evalErr := eng.Evaluate(ctx, engine.Input{Series: series, Index: index})
	if evalErr != nil {
		if err := rec.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("写出指标失败", zap.Error(err))
		}
		return evalErr
	}

	var errs error
	errs = multierr.Append(errs, writeJSONL(cfg, res))
	errs = multierr.Append(errs, writePostgres(ctx, cfg, res, logger))
	if err := rec.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("写出指标失败: %w", err))
	}
	for _, err := range multierr.Errors(errs) {
		logger.Error("结果输出失败", zap.Error(err))
	}

	printSummary(out, res)
	return errs
}

func writeJSONL(cfg *config.Config, res *engine.Result) error {
	if !cfg.Output.JSONLEnabled {
		return nil
	}
	var opts []jsonl.Option
	if cfg.Engine.WriteScope == config.WriteScopeWindow {
		opts = append(opts, jsonl.WithTruncate())
	}
	w, err := jsonl.NewWriter(filepath.Join(cfg.Output.Dir, jsonl.SignalsFile), cfg.Output.BufferSize, opts...)
	if err != nil {
		return err
	}
	werr := w.WriteRecords(res.Emit)
	return multierr.Combine(werr, w.Close())
}

func writePostgres(ctx context.Context, cfg *config.Config, res *engine.Result, logger *zap.Logger) error {
	if cfg.Postgres.DSN == "" {
		return nil
	}
	sink, err := postgres.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err = sink.Upsert(ctx, res.RunID, res.Strategy, res.Emit)
	return err
}

func printSummary(out io.Writer, res *engine.Result) {
	fmt.Fprintf(out, "run_id=%s strategy=%s latest=%s codes=%d bars=%d emit=%d\n",
		res.RunID, res.Strategy, timeutil.FormatDate(res.LatestDate), res.Codes, res.Bars, len(res.Emit))
	for _, sig := range model.AllSignals {
		fmt.Fprintf(out, "  %-12s %d\n", sig, res.Summary[sig])
	}
}
