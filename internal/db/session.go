/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_planner/internal/config"
	"github.com/friendsincode/huginn_planner/internal/telemetry"
)

// QueryError reports a statement the store rejected, along with the SQL and
// bound parameters for diagnostics. When it is returned from a session with
// an open transaction, the session has already rolled back.
type QueryError struct {
	SQL    string
	Params []any
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failure: %s (params: %v): %v", e.SQL, e.Params, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Row is one result row keyed by column name. Byte slices are converted to
// strings; everything else keeps the driver's native type.
type Row map[string]any

// Session is an explicit per-request query handle over the shared connection
// pool. It replaces the usual pattern of a process-global database object:
// callers create one session per logical unit of work and thread it through
// every repository call, so a transaction is never shared across requests.
//
// Statements are written with '?' placeholders and rebound to the backend's
// convention. Boolean parameters are normalized to the single-character
// 't'/'f' literals before binding.
type Session struct {
	sqlDB   *sql.DB
	backend config.DatabaseBackend
	tx      *sql.Tx
	counter int
	logger  zerolog.Logger
}

// NewSession creates a session on the pool behind the gorm handle.
func NewSession(database *gorm.DB, backend config.DatabaseBackend, logger zerolog.Logger) (*Session, error) {
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("obtain sql pool: %w", err)
	}
	return &Session{
		sqlDB:   sqlDB,
		backend: backend,
		logger:  logger.With().Str("component", "db.session").Logger(),
	}, nil
}

// Begin opens a transaction. All statements until Commit or Rollback run
// inside it; a statement failure mid-transaction rolls back automatically.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("session: transaction already open")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return &QueryError{SQL: "BEGIN", Err: err}
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction.
func (s *Session) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("session: no open transaction")
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return &QueryError{SQL: "COMMIT", Err: err}
	}
	return nil
}

// Rollback aborts the open transaction. Calling it with no transaction open
// is a no-op, so it is safe in deferred cleanup.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && err != sql.ErrTxDone {
		return &QueryError{SQL: "ROLLBACK", Err: err}
	}
	return nil
}

// InTransaction reports whether a transaction is open.
func (s *Session) InTransaction() bool { return s.tx != nil }

// Counter returns the number of statements this session has successfully
// executed. Diagnostics only.
func (s *Session) Counter() int { return s.counter }

// ResetCounter zeroes the statement counter.
func (s *Session) ResetCounter() { s.counter = 0 }

// Exec runs a mutating statement and returns the affected row count.
func (s *Session) Exec(ctx context.Context, query string, params ...any) (int64, error) {
	start := time.Now()
	result, err := s.conn().ExecContext(ctx, s.rebind(query), normalizeParams(params)...)
	if err != nil {
		return 0, s.fail(query, params, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, s.fail(query, params, err)
	}
	s.finish("exec", start)
	return affected, nil
}

// FetchAll runs a query and returns every row in order.
func (s *Session) FetchAll(ctx context.Context, query string, params ...any) ([]Row, error) {
	start := time.Now()
	rows, err := s.conn().QueryContext(ctx, s.rebind(query), normalizeParams(params)...)
	if err != nil {
		return nil, s.fail(query, params, err)
	}
	defer rows.Close()
	s.finish("query", start)

	out, err := scanRows(rows)
	if err != nil {
		return nil, s.fail(query, params, err)
	}
	return out, nil
}

// FetchOne runs a query and returns the first row, or nil when the result
// set is empty.
func (s *Session) FetchOne(ctx context.Context, query string, params ...any) (Row, error) {
	all, err := s.FetchAll(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// FetchColumn runs a query and returns the first column of every row as
// strings.
func (s *Session) FetchColumn(ctx context.Context, query string, params ...any) ([]string, error) {
	start := time.Now()
	rows, err := s.conn().QueryContext(ctx, s.rebind(query), normalizeParams(params)...)
	if err != nil {
		return nil, s.fail(query, params, err)
	}
	defer rows.Close()
	s.finish("query", start)

	var out []string
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			return nil, s.fail(query, params, err)
		}
		out = append(out, valueToString(value))
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(query, params, err)
	}
	return out, nil
}

func (s *Session) conn() interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
} {
	if s.tx != nil {
		return s.tx
	}
	return s.sqlDB
}

// fail rolls back any open transaction before surfacing the error, so the
// connection is never left in an aborted-but-uncommitted state.
func (s *Session) fail(query string, params []any, err error) error {
	if s.tx != nil {
		if rbErr := s.tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error().Err(rbErr).Msg("rollback after failed statement")
		}
		s.tx = nil
	}
	telemetry.DatabaseErrorsTotal.WithLabelValues("session", "query_error").Inc()
	return &QueryError{SQL: query, Params: params, Err: err}
}

func (s *Session) finish(operation string, start time.Time) {
	s.counter++
	telemetry.SessionQueriesTotal.Inc()
	telemetry.DatabaseQueryDuration.WithLabelValues(operation, "session").Observe(time.Since(start).Seconds())
}

// rebind rewrites '?' placeholders into the $n form for postgres. The other
// backends bind '?' natively.
func (s *Session) rebind(query string) string {
	if s.backend != config.DatabasePostgres || !strings.ContainsRune(query, '?') {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := byte(0)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			inQuote = c
			b.WriteByte(c)
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// normalizeParams converts bool parameters to the store's single-character
// boolean literals.
func normalizeParams(params []any) []any {
	out := make([]any, len(params))
	for i, p := range params {
		if v, ok := p.(bool); ok {
			if v {
				out[i] = "t"
			} else {
				out[i] = "f"
			}
			continue
		}
		out[i] = p
	}
	return out
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func valueToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// String returns the named column as a string, handling driver type
// differences between backends.
func (r Row) String(col string) string {
	return valueToString(r[col])
}

// Int returns the named column as an int; non-numeric values yield zero.
func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case []byte:
		n, _ := strconv.Atoi(string(v))
		return n
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// IsNull reports whether the named column was NULL.
func (r Row) IsNull(col string) bool {
	return r[col] == nil
}
