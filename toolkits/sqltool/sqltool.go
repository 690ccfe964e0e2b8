// Package sqltool exposes a SQLite database to models as read-only tools: sql_query runs
// one SELECT statement and sql_tables lists the tables.
package sqltool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/skosovsky/toolbox"
	"github.com/skosovsky/toolbox/schema"
)

const defaultMaxRows = 100

// ErrNotReadOnly is reported for statements other than a single SELECT, WITH or EXPLAIN.
// Statements that pass the check still run with PRAGMA query_only, so a WITH clause
// wrapping a write fails in SQLite.
var ErrNotReadOnly = errors.New("only a single read-only statement is allowed")

// QueryArgs are the arguments of sql_query.
type QueryArgs struct {
	SQL   string `json:"sql" description:"One SELECT statement"`
	Limit *int   `json:"limit" description:"Maximum rows to return"`
}

// Validate rejects empty and non read-only statements.
func (a QueryArgs) Validate() error {
	stmt := strings.TrimSpace(a.SQL)
	stmt = strings.TrimSuffix(stmt, ";")
	if stmt == "" {
		return errors.New("sql must not be empty")
	}
	if strings.Contains(stmt, ";") {
		return ErrNotReadOnly
	}
	switch strings.ToUpper(strings.Fields(stmt)[0]) {
	case "SELECT", "WITH", "EXPLAIN":
	default:
		return ErrNotReadOnly
	}
	if a.Limit != nil && *a.Limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", *a.Limit)
	}
	return nil
}

// QueryResult is the tabular output of sql_query.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

type options struct {
	prefix  string
	maxRows int
	tool    []toolbox.ToolOption
}

// Option configures the tools.
type Option func(*options)

// WithPrefix replaces the "sql" name prefix, e.g. "orders" gives orders_query.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithMaxRows caps the rows returned by one query. Requests for more are clamped.
func WithMaxRows(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRows = n
		}
	}
}

// WithToolOptions passes options to every tool built by the package.
func WithToolOptions(opts ...toolbox.ToolOption) Option {
	return func(o *options) {
		o.tool = append(o.tool, opts...)
	}
}

func newOptions(opts []Option) options {
	o := options{prefix: "sql", maxRows: defaultMaxRows}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewQueryTool returns the query tool over db.
func NewQueryTool(db *sql.DB, opts ...Option) (toolbox.Tool, error) {
	if db == nil {
		return nil, errors.New("sqltool: db must not be nil")
	}
	o := newOptions(opts)
	q := &querier{db: db, maxRows: o.maxRows}
	return toolbox.NewTool(o.prefix+"_query", "Run one read-only SQL query and return its rows", q.query, o.tool...)
}

// NewTablesTool returns a tool listing the tables of a SQLite database.
func NewTablesTool(db *sql.DB, opts ...Option) (toolbox.Tool, error) {
	if db == nil {
		return nil, errors.New("sqltool: db must not be nil")
	}
	o := newOptions(opts)
	q := &querier{db: db, maxRows: o.maxRows}
	return toolbox.NewTool(o.prefix+"_tables", "List the tables of the database", q.tables, o.tool...)
}

// Register adds both tools to r.
func Register(r *toolbox.Registry, db *sql.DB, opts ...Option) error {
	query, err := NewQueryTool(db, opts...)
	if err != nil {
		return err
	}
	tables, err := NewTablesTool(db, opts...)
	if err != nil {
		return err
	}
	if err := r.Register(query); err != nil {
		return err
	}
	return r.Register(tables)
}

type querier struct {
	db      *sql.DB
	maxRows int
}

func (q *querier) query(ctx context.Context, args QueryArgs) (QueryResult, error) {
	limit := q.maxRows
	if args.Limit != nil && *args.Limit < limit {
		limit = *args.Limit
	}
	conn, err := q.db.Conn(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()
	// The keyword check in Validate is only a fast path: WITH may wrap a DELETE,
	// so SQLite itself refuses writes on this connection.
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return QueryResult{}, fmt.Errorf("enable query_only: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")
	}()

	rows, err := conn.QueryContext(ctx, args.SQL)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("columns: %w", err)
	}
	res := QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if len(res.Rows) == limit {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("rows: %w", err)
	}
	return res, nil
}

func (q *querier) tables(ctx context.Context, _ schema.Void) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
