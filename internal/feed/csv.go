// Package feed 负责把上游导出的日线指标 CSV 与指数收益 CSV 解析为 Bar 序列。
// 可选列缺失或为空时一律解析为 NaN；OHLCV 列族缺失属于致命错误。
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/market"
	"ashare-signal-engine/internal/util/fastparse"
	"ashare-signal-engine/internal/util/timeutil"
)

// ErrMissingOHLCV 与引擎共用同一哨兵错误
var ErrMissingOHLCV = model.ErrMissingOHLCV

// ErrMissingColumn 缺少 code/date 等标识列
var ErrMissingColumn = errors.New("缺少必需列")

// 列名别名 → 规范列名
var columnAliases = map[string]string{
	"trade_date": "date",
	"sig_date":   "date",
	"vol":        "volume",
	"amt":        "amount",
	"turnover":   "amount",
}

var ohlcvColumns = []string{"open", "high", "low", "close", "volume"}

// floatSetters 数值列写入 Bar 对应字段
var floatSetters = map[string]func(b *model.Bar, v float64){
	"open":         func(b *model.Bar, v float64) { b.Open = v },
	"high":         func(b *model.Bar, v float64) { b.High = v },
	"low":          func(b *model.Bar, v float64) { b.Low = v },
	"close":        func(b *model.Bar, v float64) { b.Close = v },
	"volume":       func(b *model.Bar, v float64) { b.Volume = v },
	"amount":       func(b *model.Bar, v float64) { b.Amount = v },
	"ma5":          func(b *model.Bar, v float64) { b.MA5 = v },
	"ma10":         func(b *model.Bar, v float64) { b.MA10 = v },
	"ma20":         func(b *model.Bar, v float64) { b.MA20 = v },
	"ma60":         func(b *model.Bar, v float64) { b.MA60 = v },
	"ma250":        func(b *model.Bar, v float64) { b.MA250 = v },
	"atr14":        func(b *model.Bar, v float64) { b.ATR14 = v },
	"vol_ratio":    func(b *model.Bar, v float64) { b.VolRatio = v },
	"macd_hist":    func(b *model.Bar, v float64) { b.MACDHist = v },
	"kdj_k":        func(b *model.Bar, v float64) { b.KDJK = v },
	"kdj_d":        func(b *model.Bar, v float64) { b.KDJD = v },
	"rsi14":        func(b *model.Bar, v float64) { b.RSI14 = v },
	"ma20_bias":    func(b *model.Bar, v float64) { b.MA20Bias = v },
	"rps_50":       func(b *model.Bar, v float64) { b.RPS50 = v },
	"rps_120":      func(b *model.Bar, v float64) { b.RPS120 = v },
	"ret_20":       func(b *model.Bar, v float64) { b.Ret20 = v },
	"ret_50":       func(b *model.Bar, v float64) { b.Ret50 = v },
	"ret_120":      func(b *model.Bar, v float64) { b.Ret120 = v },
	"index_ret":    func(b *model.Bar, v float64) { b.IndexRet = v },
	"chip_score":   func(b *model.Bar, v float64) { b.ChipScore = v },
	"engulf_score": func(b *model.Bar, v float64) { b.EngulfScore = v },
}

// header 列名 → 列序号
type header map[string]int

func parseHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func (h header) get(row []string, name string) string {
	if i, ok := h[name]; ok && i < len(row) {
		return row[i]
	}
	return ""
}

// ReadBars 解析日线指标 CSV
// 返回: code → 按文件顺序排列的 K 线（排序与去重由引擎完成）
func ReadBars(r io.Reader) (map[string][]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	h := parseHeader(first)

	for _, col := range []string{"code", "date"} {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	var missing []string
	for _, col := range ohlcvColumns {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingOHLCV, strings.Join(missing, ","))
	}

	out := make(map[string][]model.Bar)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}

		bar, err := parseBarRow(h, row)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		out[bar.Code] = append(out[bar.Code], bar)
	}
	return out, nil
}

func parseBarRow(h header, row []string) (model.Bar, error) {
	code := strings.TrimSpace(h.get(row, "code"))
	if code == "" {
		return model.Bar{}, fmt.Errorf("code 为空")
	}
	date, err := timeutil.ParseDate(h.get(row, "date"))
	if err != nil {
		return model.Bar{}, err
	}

	bar := model.NewBar(code, date)
	for col, set := range floatSetters {
		if _, ok := h[col]; !ok {
			continue
		}
		v, err := fastparse.ParseOptFloat(h.get(row, col))
		if err != nil {
			return model.Bar{}, fmt.Errorf("列 %s: %w", col, err)
		}
		set(&bar, v)
	}

	bar.RotationPhase = strings.TrimSpace(h.get(row, "rotation_phase"))
	bar.EnvGateAction = strings.TrimSpace(h.get(row, "env_gate_action"))
	if fastparse.IsMissing(bar.RotationPhase) {
		bar.RotationPhase = ""
	}
	if fastparse.IsMissing(bar.EnvGateAction) {
		bar.EnvGateAction = ""
	}
	if bar.OneWordLimitUp, err = fastparse.ParseOptBool(h.get(row, "one_word_limit_up")); err != nil {
		return model.Bar{}, fmt.Errorf("列 one_word_limit_up: %w", err)
	}
	return bar, nil
}

// ReadIndex 解析指数收益 CSV
// 需要 date 列以及 index_ret/pct_chg/ret 之一；pct_chg 按百分数处理。
func ReadIndex(r io.Reader) (*market.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	h := parseHeader(first)
	if _, ok := h["date"]; !ok {
		return nil, fmt.Errorf("%w: date", ErrMissingColumn)
	}

	col, scale := "", 1.0
	switch {
	case hasCol(h, "index_ret"):
		col = "index_ret"
	case hasCol(h, "ret"):
		col = "ret"
	case hasCol(h, "pct_chg"):
		col, scale = "pct_chg", 0.01
	default:
		return nil, fmt.Errorf("%w: index_ret", ErrMissingColumn)
	}

	points := make(map[time.Time]float64)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		d, err := timeutil.ParseDate(h.get(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		v, err := fastparse.ParseOptFloat(h.get(row, col))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行 列 %s: %w", line, col, err)
		}
		points[d] = v * scale
	}
	return market.NewSeries(points), nil
}

func hasCol(h header, name string) bool {
	_, ok := h[name]
	return ok
}

// LoadBars 从文件读取日线指标
func LoadBars(path string) (map[string][]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开行情文件失败: %w", err)
	}
	defer f.Close()
	return ReadBars(f)
}

// LoadIndex 从文件读取指数收益；path 为空返回空序列
func LoadIndex(path string) (*market.Series, error) {
	if path == "" {
		return market.NewSeries(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开指数文件失败: %w", err)
	}
	defer f.Close()
	return ReadIndex(f)
}
