// Package jsonl 实现信号记录的异步 JSONL 落盘。
// 调用方按批投递，编码与文件 I/O 在后台 goroutine 串行完成，行序与投递顺序一致。
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"ashare-signal-engine/internal/core/model"
)

// SignalsFile 信号输出文件名
const SignalsFile = "signals.jsonl"

// ErrClosed 写入器已关闭
var ErrClosed = errors.New("jsonl writer 已关闭")

// request 后台协程的一次请求；rows 为空且 done 非空表示 flush
type request struct {
	rows  []any
	done  chan error
	final bool
}

// Option 写入器选项
type Option func(*options)

type options struct {
	truncate bool
}

// WithTruncate 打开时清空已有文件（默认追加）
// write_scope=window 全量重算时使用。
func WithTruncate() Option {
	return func(o *options) { o.truncate = true }
}

// Writer 异步 JSONL 写入器
type Writer struct {
	path string
	reqs chan request

	// mu 保护 closed，并保证 close(reqs) 之后不再有发送
	mu     sync.Mutex
	closed bool

	written atomic.Int64
	failed  atomic.Int64

	// firstErr 只由后台协程写，Close 等待协程退出后再读
	firstErr error
	closeErr error
	exited   chan struct{}
}

// NewWriter 创建 JSONL 写入器
// 参数 path: 输出文件路径，父目录不存在时自动创建
// 参数 bufferSize: 待处理批次的队列长度，<=0 时取 1000
func NewWriter(path string, bufferSize int, opts ...Option) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	mode := os.O_APPEND
	if o.truncate {
		mode = os.O_TRUNC
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	w := &Writer{
		path:   path,
		reqs:   make(chan request, bufferSize),
		exited: make(chan struct{}),
	}
	go w.run(f)
	return w, nil
}

// Path 输出文件路径
func (w *Writer) Path() string { return w.path }

// Write 投递单行
func (w *Writer) Write(v any) error {
	return w.send(request{rows: []any{v}})
}

// WriteRecords 整批投递信号记录，一批只占一个队列槽位
func (w *Writer) WriteRecords(recs []model.SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]any, len(recs))
	for i := range recs {
		rows[i] = recs[i]
	}
	if err := w.send(request{rows: rows}); err != nil {
		return fmt.Errorf("投递 %d 条信号失败: %w", len(recs), err)
	}
	return nil
}

// Written 已编码写入缓冲区的行数
func (w *Writer) Written() int64 { return w.written.Load() }

// Failed 编码或写入失败而被丢弃的行数
func (w *Writer) Failed() int64 { return w.failed.Load() }

// Flush 等待此前投递的行全部写入文件
func (w *Writer) Flush() error {
	done := make(chan error, 1)
	if err := w.send(request{done: done}); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	return <-done
}

// Close flush 并关闭文件，可重复调用
// 返回 flush 错误；否则若有行被丢弃，返回丢弃行数与第一个原因。
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		w.reqs <- request{final: true}
		close(w.reqs)
	}
	w.mu.Unlock()

	<-w.exited
	if w.closeErr != nil {
		return w.closeErr
	}
	if w.firstErr != nil {
		return fmt.Errorf("%d 行写入失败: %w", w.failed.Load(), w.firstErr)
	}
	return nil
}

func (w *Writer) send(req request) error {
	if w == nil {
		return errors.New("jsonl writer 为空")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.reqs <- req
	return nil
}

func (w *Writer) run(f *os.File) {
	defer close(w.exited)

	bw := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for req := range w.reqs {
		for _, row := range req.rows {
			// Encode 先完整编码再写出，失败的行不会留下半行
			if err := enc.Encode(row); err != nil {
				w.drop(err)
				continue
			}
			w.written.Add(1)
		}
		switch {
		case req.final:
			w.closeErr = multierr.Combine(bw.Flush(), f.Close())
		case req.done != nil:
			req.done <- bw.Flush()
		}
	}
}

func (w *Writer) drop(err error) {
	w.failed.Add(1)
	if w.firstErr == nil {
		w.firstErr = err
	}
}
