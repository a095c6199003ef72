// Package market 提供按交易日共享的基准指数收益序列。
// Series 构造后只读，可被多个标的的评估协程并发读取。
package market

import (
	"math"
	"sort"
	"time"

	"ashare-signal-engine/internal/core/model"
	"ashare-signal-engine/internal/util/timeutil"
)

// Series 指数日收益序列
type Series struct {
	rets  map[time.Time]float64
	dates []time.Time
}

// NewSeries 创建指数收益序列
// 参数 points: 交易日 → 当日收益率（小数）；非有限值视为缺失并丢弃
func NewSeries(points map[time.Time]float64) *Series {
	s := &Series{rets: make(map[time.Time]float64, len(points))}
	for d, r := range points {
		if !model.Valid(r) {
			continue
		}
		day := timeutil.Day(d)
		s.rets[day] = r
		s.dates = append(s.dates, day)
	}
	sort.Slice(s.dates, func(i, j int) bool { return s.dates[i].Before(s.dates[j]) })
	return s
}

// Len 交易日数
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// Ret 指定交易日的收益率，缺失返回 NaN
func (s *Series) Ret(date time.Time) float64 {
	if s == nil {
		return math.NaN()
	}
	if r, ok := s.rets[timeutil.Day(date)]; ok {
		return r
	}
	return math.NaN()
}

// Span 序列覆盖的首末交易日
func (s *Series) Span() (first, last time.Time) {
	if s.Len() == 0 {
		return time.Time{}, time.Time{}
	}
	return s.dates[0], s.dates[len(s.dates)-1]
}

// Join 为缺少指数收益的 K 线按交易日补齐
// K 线自带的值优先；返回补齐的条数。
func (s *Series) Join(bars []model.Bar) int {
	if s.Len() == 0 {
		return 0
	}
	filled := 0
	for i := range bars {
		if model.Valid(bars[i].IndexRet) {
			continue
		}
		if r := s.Ret(bars[i].Date); model.Valid(r) {
			bars[i].IndexRet = r
			filled++
		}
	}
	return filled
}

// Compound 累计收益 Π(1+r) - 1；任一值缺失返回 NaN
func Compound(rets ...float64) float64 {
	acc := 1.0
	for _, r := range rets {
		if !model.Valid(r) {
			return math.NaN()
		}
		acc *= 1 + r
	}
	return acc - 1
}
