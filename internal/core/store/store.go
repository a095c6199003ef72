// Package store 维护按 (code, date) 去重的信号记录。
// 使用单写者模式避免锁和竞态条件。
package store

import (
	"sort"
	"time"

	"ashare-signal-engine/internal/core/model"
)

// Store 信号记录缓存（单写者）
// 同一 (code, date) 重复写入时覆盖旧值，保证每个主键只有一条记录。
// 本结构体默认由引擎在合并阶段单 goroutine 写入；跨 goroutine 读取请先取快照。
type Store struct {
	// records 按主键缓存最新记录
	records map[model.RecordKey]model.SignalRecord
	// latest 已写入的最新交易日
	latest time.Time
}

// New 创建空的记录缓存
// 参数 sizeHint: 预估记录数
func New(sizeHint int) *Store {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Store{records: make(map[model.RecordKey]model.SignalRecord, sizeHint)}
}

// Upsert 写入或覆盖一条记录
// 返回: 若覆盖了已有记录则为 true
func (s *Store) Upsert(rec model.SignalRecord) bool {
	key := rec.Key()
	_, existed := s.records[key]
	s.records[key] = rec
	if rec.Date.After(s.latest) {
		s.latest = rec.Date
	}
	return existed
}

// Get 获取指定主键的记录
func (s *Store) Get(code string, date time.Time) (model.SignalRecord, bool) {
	lookup := model.SignalRecord{Code: code, Date: date}
	rec, ok := s.records[lookup.Key()]
	return rec, ok
}

// Len 记录数
func (s *Store) Len() int {
	return len(s.records)
}

// LatestDate 已写入的最新交易日；空缓存返回零值
func (s *Store) LatestDate() time.Time {
	return s.latest
}

// Records 按 (code, date) 升序返回全部记录的快照
func (s *Store) Records() []model.SignalRecord {
	out := make([]model.SignalRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

// OnDate 返回指定交易日的记录快照，按 code 升序
func (s *Store) OnDate(date time.Time) []model.SignalRecord {
	var out []model.SignalRecord
	for _, rec := range s.records {
		if rec.Date.Equal(date) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out
}

func sortRecords(recs []model.SignalRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Code != recs[j].Code {
			return recs[i].Code < recs[j].Code
		}
		return recs[i].Date.Before(recs[j].Date)
	})
}
