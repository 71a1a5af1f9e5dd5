package storage

import (
	"database/sql"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// SQLiteSink 把结果写入 results 表，每次 Write 一个事务
type SQLiteSink struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}

	query := `
	CREATE TABLE IF NOT EXISTS results (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		idx          TEXT NOT NULL,
		distribution TEXT NOT NULL,
		data_size    INTEGER NOT NULL,
		operation    TEXT NOT NULL,
		value        REAL NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init results table")
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL; 
	`)
	if err != nil {
		log.Printf("[Storage] Warning: Failed to set PRAGMA: %v", err)
	}

	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(results []Result) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	stmt, err := tx.Prepare("INSERT INTO results (idx, distribution, data_size, operation, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(r.Index, r.Distribution, r.DataSize, r.Operation, r.Value); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "insert %s/%s", r.Index, r.Operation)
		}
	}

	return tx.Commit()
}

// Filter 限定 Query 的条件，空字段不参与过滤
type Filter struct {
	Operation    string
	Distribution string
	DataSize     int
}

// Query 读回结果，按插入顺序
func (s *SQLiteSink) Query(f Filter) ([]Result, error) {
	var (
		conds []string
		args  []any
	)
	if f.Operation != "" {
		conds = append(conds, "operation = ?")
		args = append(args, f.Operation)
	}
	if f.Distribution != "" {
		conds = append(conds, "distribution = ?")
		args = append(args, f.Distribution)
	}
	if f.DataSize > 0 {
		conds = append(conds, "data_size = ?")
		args = append(args, f.DataSize)
	}

	query := "SELECT idx, distribution, data_size, operation, value FROM results"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query results")
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Index, &r.Distribution, &r.DataSize, &r.Operation, &r.Value); err != nil {
			return nil, errors.Wrap(err, "scan result")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Truncate() error {
	_, err := s.db.Exec("DELETE FROM results")
	return err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
