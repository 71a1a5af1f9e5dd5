package storage

import "github.com/cockroachdb/errors"

// Result 是一条基准测试结果：某个索引在某种分布、某个数据规模下某项操作的度量值。
// 时间类操作的 Value 单位是纳秒（每次操作），memory 的单位是字节。
type Result struct {
	Index        string
	Distribution string
	DataSize     int
	Operation    string
	Value        float64
}

// Sink 接收基准结果，索引结构本身从不格式化输出
type Sink interface {
	Write(results []Result) error
	Close() error
}

// MultiSink 把结果同时写入多个 Sink
type MultiSink []Sink

func (m MultiSink) Write(results []Result) error {
	var errs error
	for _, s := range m {
		if err := s.Write(results); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func (m MultiSink) Close() error {
	var errs error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// MemorySink 只在内存中收集结果，供测试和报表使用
type MemorySink struct {
	Results []Result
}

func (m *MemorySink) Write(results []Result) error {
	m.Results = append(m.Results, results...)
	return nil
}

func (m *MemorySink) Close() error { return nil }
