package rolling

import "math"

// Lag 保留最近 size 个样本，用于读取 k 根之前的值
type Lag struct {
	size int
	buf  []float64
	pos  int
	n    int
}

// NewLag 创建滞后缓冲
func NewLag(size int) *Lag {
	if size <= 0 {
		size = 1
	}
	return &Lag{size: size, buf: make([]float64, size)}
}

// Push 写入新样本
func (l *Lag) Push(v float64) {
	l.buf[l.pos] = v
	l.pos++
	if l.pos >= l.size {
		l.pos = 0
	}
	if l.n < l.size {
		l.n++
	}
}

// Len 当前样本数
func (l *Lag) Len() int { return l.n }

// At 返回 k 根之前的样本（k=0 为最新）；越界返回 NaN
func (l *Lag) At(k int) float64 {
	if k < 0 || k >= l.n {
		return math.NaN()
	}
	idx := l.pos - 1 - k
	if idx < 0 {
		idx += l.size
	}
	return l.buf[idx]
}

// Flags 布尔滚动窗口，O(1) 维护窗口内 true 的数量
type Flags struct {
	size int
	buf  []bool
	pos  int
	n    int
	hits int
}

// NewFlags 创建布尔滚动窗口
func NewFlags(size int) *Flags {
	if size <= 0 {
		size = 1
	}
	return &Flags{size: size, buf: make([]bool, size)}
}

// Push 写入新标记
func (f *Flags) Push(v bool) {
	if f.n == f.size {
		if f.buf[f.pos] {
			f.hits--
		}
	} else {
		f.n++
	}
	f.buf[f.pos] = v
	if v {
		f.hits++
	}
	f.pos++
	if f.pos >= f.size {
		f.pos = 0
	}
}

// Any 窗口已填满且其中至少一个 true
// 与 rolling(window).max() > 0 的语义一致：样本不足时为 false。
func (f *Flags) Any() bool {
	return f.n == f.size && f.hits > 0
}

// Count 窗口内 true 的数量
func (f *Flags) Count() int { return f.hits }
