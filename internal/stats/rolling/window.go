// Package rolling 提供逐根 K 线增量更新的滚动窗口统计。
// 所有结构只向后看：每次 Push 后的统计量仅依赖当前值与此前的值。
// 非线程安全，按标的各自持有一份实例。
package rolling

import "math"

// Window 定长滚动窗口（环形缓冲），O(1) 维护和与平方和
type Window struct {
	// size 窗口长度
	size int
	// buf 环形缓冲区
	buf []float64
	// pos 下一次写入位置
	pos int
	// n 当前样本数（<= size）
	n int

	sum   float64
	sumSq float64
}

// NewWindow 创建滚动窗口
// 参数 size: 窗口长度，<=0 时按 1 处理
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}
	return &Window{size: size, buf: make([]float64, size)}
}

// Push 写入新样本；窗口已满时挤出最旧样本
func (w *Window) Push(v float64) {
	if w.n == w.size {
		old := w.buf[w.pos]
		w.sum -= old
		w.sumSq -= old * old
	} else {
		w.n++
	}
	w.buf[w.pos] = v
	w.sum += v
	w.sumSq += v * v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
	}
}

// Len 当前样本数
func (w *Window) Len() int { return w.n }

// Size 窗口长度
func (w *Window) Size() int { return w.size }

// Full 窗口是否已填满
func (w *Window) Full() bool { return w.n == w.size }

// Sum 窗口内样本和
func (w *Window) Sum() float64 { return w.sum }

// SumMin 样本数达到 minPeriods 时返回和，否则 NaN
func (w *Window) SumMin(minPeriods int) float64 {
	if w.n == 0 || w.n < minPeriods {
		return math.NaN()
	}
	return w.sum
}

// Mean 窗口均值；未填满时返回 NaN
func (w *Window) Mean() float64 {
	return w.MeanMin(w.size)
}

// MeanMin 样本数达到 minPeriods 时返回均值，否则 NaN
func (w *Window) MeanMin(minPeriods int) float64 {
	if w.n == 0 || w.n < minPeriods {
		return math.NaN()
	}
	return w.sum / float64(w.n)
}

// Std 样本标准差（ddof=1）；未填满时返回 NaN
func (w *Window) Std() float64 {
	if w.n < w.size || w.n < 2 {
		return math.NaN()
	}
	mean := w.sum / float64(w.n)
	v := (w.sumSq - float64(w.n)*mean*mean) / float64(w.n-1)
	if v < 0 {
		// 浮点抵消误差
		v = 0
	}
	return math.Sqrt(v)
}

// ZScore 当前值相对窗口的标准分；窗口未满或标准差为 0 时返回 NaN
func (w *Window) ZScore(v float64) float64 {
	std := w.Std()
	if math.IsNaN(std) || std == 0 {
		return math.NaN()
	}
	return (v - w.sum/float64(w.n)) / std
}
