package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
)

var csvHeader = []string{"Index", "DistributionType", "DataSize", "Operation", "Value"}

// CSVSink 以追加方式写 CSV；文件是新建的（或为空）时先写表头
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

func NewCSVSink(path string) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create result dir %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open csv %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat csv")
	}

	s := &CSVSink{file: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := s.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "write csv header")
		}
	}
	return s, nil
}

func (s *CSVSink) Write(results []Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		rec := []string{
			r.Index,
			r.Distribution,
			strconv.Itoa(r.DataSize),
			r.Operation,
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		}
		if err := s.w.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// ReadCSV 读回 CSVSink 写出的文件
func ReadCSV(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open csv %s", path)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	var out []Result
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == csvHeader[0] {
			continue
		}
		if len(row) != len(csvHeader) {
			return nil, errors.Newf("csv line %d: %d fields", i+1, len(row))
		}
		size, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, errors.Wrapf(err, "csv line %d: data size", i+1)
		}
		val, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "csv line %d: value", i+1)
		}
		out = append(out, Result{Index: row[0], Distribution: row[1], DataSize: size, Operation: row[3], Value: val})
	}
	return out, nil
}
