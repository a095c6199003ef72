// Package postgres 将信号记录 upsert 到 Postgres。
// 同一 (sig_date, code, strategy_code) 重复写入时覆盖，重跑同一批数据结果不变。
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"ashare-signal-engine/internal/config"
	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/util/backoff"
)

// driverName pgx 的 database/sql 驱动名
const driverName = "pgx"

// Sink 信号落库
type Sink struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// Open 建立连接池并确认数据库可达
// 参数 cfg: 连接配置，DSN 不能为空
// 参数 logger: 为 nil 时不输出日志
func Open(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn 为空")
	}
	db, err := sqlx.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	s := NewWithDB(db, cfg.Table, logger)
	if err := s.connect(ctx, cfg.ConnectRetries); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB 使用已有连接创建 Sink
func NewWithDB(db *sqlx.DB, table string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == "" {
		table = "strategy_signal_events"
	}
	return &Sink{db: db, table: pq.QuoteIdentifier(table), logger: logger}
}

// connect Ping 数据库，失败按退避重试
func (s *Sink) connect(ctx context.Context, retries int) error {
	err := backoff.Retry(ctx, backoff.NewDefault(), retries, func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(pctx); err != nil {
			s.logger.Warn("数据库连接失败，准备重试", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}
	return nil
}

// EnsureSchema 建表（已存在时不做任何事）
func (s *Sink) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		code          VARCHAR(20)      NOT NULL,
		sig_date      DATE             NOT NULL,
		strategy_code VARCHAR(32)      NOT NULL,
		signal        VARCHAR(16)      NOT NULL,
		reason        TEXT             NOT NULL DEFAULT '',
		risk_tag      TEXT             NOT NULL DEFAULT '',
		quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		final_cap     DOUBLE PRECISION NOT NULL DEFAULT 0,
		phase         VARCHAR(16)      NOT NULL DEFAULT 'NONE',
		event         VARCHAR(16)      NOT NULL DEFAULT '',
		run_id        UUID             NOT NULL,
		extra_json    JSONB,
		updated_at    TIMESTAMPTZ      NOT NULL DEFAULT now(),
		PRIMARY KEY (sig_date, code, strategy_code)
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("建表失败: %w", err)
	}
	return nil
}

func (s *Sink) upsertSQL() string {
	return `INSERT INTO ` + s.table + ` (
		code, sig_date, strategy_code, signal, reason, risk_tag,
		quality_score, final_cap, phase, event, run_id, extra_json, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
	ON CONFLICT (sig_date, code, strategy_code) DO UPDATE SET
		signal        = EXCLUDED.signal,
		reason        = EXCLUDED.reason,
		risk_tag      = EXCLUDED.risk_tag,
		quality_score = EXCLUDED.quality_score,
		final_cap     = EXCLUDED.final_cap,
		phase         = EXCLUDED.phase,
		event         = EXCLUDED.event,
		run_id        = EXCLUDED.run_id,
		extra_json    = EXCLUDED.extra_json,
		updated_at    = EXCLUDED.updated_at`
}

// StrategyCode 落库用的策略编码，如 MA5_MA20_TREND
func StrategyCode(strategy string) string {
	return strings.ToUpper(strategy)
}

// Upsert 在一个事务内写入一批记录
// 返回: 写入的行数；任一行失败则整批回滚
func (s *Sink) Upsert(ctx context.Context, runID uuid.UUID, strategy string, recs []model.SignalRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return 0, fmt.Errorf("预编译语句失败: %w", err)
	}
	defer stmt.Close()

	code := StrategyCode(strategy)
	for i := range recs {
		r := &recs[i]
		extra, err := extraJSON(r.Extra)
		if err != nil {
			return 0, fmt.Errorf("编码 %s %s 诊断字段失败: %w", r.Code, r.DateString(), err)
		}
		_, err = stmt.ExecContext(ctx,
			r.Code, r.Date, code, string(r.Signal), r.Reason, r.RiskTag,
			r.QualityScore, r.FinalCap, string(r.Phase), string(r.Event), runID.String(), extra)
		if err != nil {
			return 0, fmt.Errorf("写入 %s %s 失败: %w", r.Code, r.DateString(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("提交事务失败: %w", err)
	}
	s.logger.Info("信号落库完成",
		zap.String("run_id", runID.String()),
		zap.String("strategy", code),
		zap.Int("rows", len(recs)))
	return len(recs), nil
}

// extraJSON 诊断字段编码为 JSONB 参数，为空时写 NULL
func extraJSON(extra model.Extra) (any, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Close 关闭连接池
func (s *Sink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
