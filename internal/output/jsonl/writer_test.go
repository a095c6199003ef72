// Package jsonl 输出模块测试
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ashare-signal-engine/internal/core/model"
)

// **Feature: ashare-signal-engine, Property 9: Signal Output Completeness**

func TestSignalRecord_OutputCompleteness_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("signals JSON 必含必需字段且日期为 YYYY-MM-DD", prop.ForAll(
		func(q float64, finalCap float64, day int, sig string) bool {
			rec := model.SignalRecord{
				Code:         "sh.600000",
				Date:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
				Signal:       model.Signal(sig),
				Reason:       "趋势金叉",
				QualityScore: q,
				FinalCap:     finalCap,
				Phase:        model.PhaseNone,
			}

			b, err := json.Marshal(rec)
			if err != nil {
				return false
			}

			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				return false
			}

			required := []string{
				"code",
				"date",
				"signal",
				"reason",
				"risk_tag",
				"quality_score",
				"final_cap",
				"phase",
			}
			for _, k := range required {
				if _, ok := m[k]; !ok {
					return false
				}
			}
			return m["date"] == rec.Date.Format("2006-01-02")
		},
		gen.Float64Range(-20, 20),
		gen.Float64Range(0, 0.8),
		gen.IntRange(0, 3000),
		gen.OneConstOf("BUY", "BUY_CONFIRM", "SELL", "REDUCE", "HOLD", "WAIT"),
	))

	properties.TestingRun(t)
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lines := 0
	for sc.Scan() {
		lines++
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return lines
}

func TestWriter_WriteAndClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jsonl")

	w, err := NewWriter(path, 100)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := w.Write(map[string]any{"i": i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.Written() != 10 {
		t.Fatalf("written=%d, want 10", w.Written())
	}
	if lines := countLines(t, path); lines != 10 {
		t.Fatalf("lines=%d, want 10", lines)
	}
	if err := w.Write(1); err == nil {
		t.Fatal("关闭后写入应返回错误")
	}
}

func TestWriter_AppendVersusTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", SignalsFile)
	recs := []model.SignalRecord{
		{Code: "sh.600000", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Signal: model.SignalBuy},
		{Code: "sz.000001", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Signal: model.SignalHold},
	}

	for round := 0; round < 2; round++ {
		w, err := NewWriter(path, 10)
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		if err := w.WriteRecords(recs); err != nil {
			t.Fatalf("WriteRecords: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if lines := countLines(t, path); lines != 4 {
		t.Fatalf("追加模式 lines=%d, want 4", lines)
	}

	w, err := NewWriter(path, 10, WithTruncate())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteRecords(recs[:1]); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if lines := countLines(t, path); lines != 1 {
		t.Fatalf("截断模式 lines=%d, want 1", lines)
	}
}

func TestWriter_EncodeFailureReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	w, err := NewWriter(path, 10)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	_ = w.Write(map[string]float64{"v": math.NaN()})
	_ = w.Write(map[string]int{"v": 1})
	if err := w.Close(); err == nil {
		t.Fatal("编码失败应在 Close 时报告")
	}
	if w.Failed() != 1 || w.Written() != 1 {
		t.Fatalf("failed=%d written=%d, want 1/1", w.Failed(), w.Written())
	}
}

func TestWriter_FlushMakesRowsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), SignalsFile)
	w, err := NewWriter(path, 4)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	rec := model.SignalRecord{Code: "sh.600000", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Signal: model.SignalWait, Reason: "a&b<c>"}
	if err := w.WriteRecords([]model.SignalRecord{rec, rec, rec}); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if lines := countLines(t, path); lines != 3 {
		t.Fatalf("flush 后 lines=%d, want 3", lines)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b[:bytes.IndexByte(b, '\n')], &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["reason"] != "a&b<c>" {
		t.Fatalf("reason=%v, 不应被 HTML 转义", m["reason"])
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("重复 Close 应返回 nil: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("关闭后 Flush 应返回 nil: %v", err)
	}
	if err := w.WriteRecords([]model.SignalRecord{rec}); !errors.Is(err, ErrClosed) {
		t.Fatalf("关闭后写入 err=%v, want ErrClosed", err)
	}
}
