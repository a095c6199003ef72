package rolling

import "math"

type sample struct {
	seq int64
	v   float64
}

// Extrema 滚动最大/最小值（单调队列），均摊 O(1)
type Extrema struct {
	size int
	seq  int64
	n    int

	maxQ []sample
	minQ []sample
}

// NewExtrema 创建滚动极值追踪器
func NewExtrema(size int) *Extrema {
	if size <= 0 {
		size = 1
	}
	return &Extrema{size: size}
}

// Push 写入新样本
func (e *Extrema) Push(v float64) {
	e.seq++
	if e.n < e.size {
		e.n++
	}
	cutoff := e.seq - int64(e.size)

	for len(e.maxQ) > 0 && e.maxQ[len(e.maxQ)-1].v <= v {
		e.maxQ = e.maxQ[:len(e.maxQ)-1]
	}
	e.maxQ = append(e.maxQ, sample{seq: e.seq, v: v})
	for len(e.maxQ) > 0 && e.maxQ[0].seq <= cutoff {
		e.maxQ = e.maxQ[1:]
	}

	for len(e.minQ) > 0 && e.minQ[len(e.minQ)-1].v >= v {
		e.minQ = e.minQ[:len(e.minQ)-1]
	}
	e.minQ = append(e.minQ, sample{seq: e.seq, v: v})
	for len(e.minQ) > 0 && e.minQ[0].seq <= cutoff {
		e.minQ = e.minQ[1:]
	}
}

// Len 当前窗口内样本数
func (e *Extrema) Len() int { return e.n }

// Max 样本数达到 minPeriods 时返回窗口最大值，否则 NaN
func (e *Extrema) Max(minPeriods int) float64 {
	if e.n == 0 || e.n < minPeriods {
		return math.NaN()
	}
	return e.maxQ[0].v
}

// Min 样本数达到 minPeriods 时返回窗口最小值，否则 NaN
func (e *Extrema) Min(minPeriods int) float64 {
	if e.n == 0 || e.n < minPeriods {
		return math.NaN()
	}
	return e.minQ[0].v
}
