package sqlmcp

import (
	"context"
	"database/sql"
	"strings"
)

// Service runs statements and introspection against the one backing
// database. The *sql.DB is injected by the owner, who also closes it; with
// SQLite it should be limited to a single connection.
type Service struct {
	DB *sql.DB
}

// Leading keywords routed through the row-returning path. Everything else
// goes through the mutation path. This is a textual heuristic, not a SQL
// parser: a misrouted statement is still executed, and the engine's verdict
// stands either way.
var readKeywords = map[string]bool{
	"select":   true,
	"pragma":   true,
	"show":     true,
	"describe": true,
	"explain":  true,
}

type statementKind int

const (
	kindRead statementKind = iota
	kindWrite
)

// leadingKeyword returns the first maximal run of letters, lowercased, after
// trimming whitespace. Empty when the statement starts with anything else.
func leadingKeyword(query string) string {
	query = strings.TrimSpace(query)
	i := 0
	for i < len(query) {
		c := query[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			break
		}
		i++
	}
	return strings.ToLower(query[:i])
}

func classify(query string) statementKind {
	if readKeywords[leadingKeyword(query)] {
		return kindRead
	}
	return kindWrite
}

// Outcome is the result of one executed statement. Exactly one of Rows and
// Exec is set: Rows for statements classified as reads, non-nil even when
// empty, and Exec for writes.
type Outcome struct {
	Rows []map[string]any
	Exec *ExecSummary
}

// ExecSummary reports a write statement's effect. LastID is set only for
// INSERT and REPLACE: SQLite reports the connection's most recent rowid
// regardless of statement, which is stale for other writes.
type ExecSummary struct {
	Changes int64  `json:"changes"`
	LastID  *int64 `json:"lastID"`
}

// Execute runs a single statement. Engine errors come back unmodified.
func (me *Service) Execute(ctx context.Context, query string) (*Outcome, error) {
	if classify(query) == kindRead {
		return me.executeRows(ctx, query)
	}
	return me.executeChanges(ctx, query)
}

func (me *Service) executeRows(ctx context.Context, query string) (ret *Outcome, err error) {
	rows, err := me.DB.QueryContext(ctx, query)
	if err != nil {
		return
	}
	defer rows.Close()
	scanned, err := scanRows(rows)
	if err != nil {
		return
	}
	ret = &Outcome{Rows: scanned}
	return
}

func (me *Service) executeChanges(ctx context.Context, query string) (ret *Outcome, err error) {
	res, err := me.DB.ExecContext(ctx, query)
	if err != nil {
		return
	}
	summary := &ExecSummary{}
	summary.Changes, _ = res.RowsAffected()
	switch leadingKeyword(query) {
	case "insert", "replace":
		if id, idErr := res.LastInsertId(); idErr == nil {
			summary.LastID = &id
		}
	}
	ret = &Outcome{Exec: summary}
	return
}

// scanRows drains rows into name-keyed objects, one per row.
func scanRows(rows *sql.Rows) (ret []map[string]any, err error) {
	cols, err := rows.Columns()
	if err != nil {
		return
	}
	ret = make([]map[string]any, 0)
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	for rows.Next() {
		err = rows.Scan(dest...)
		if err != nil {
			return
		}
		row := make(map[string]any, len(cols))
		for i, name := range cols {
			row[name] = wireValue(*dest[i].(*any))
		}
		ret = append(ret, row)
	}
	err = rows.Err()
	return
}

// wireValue maps driver values onto JSON-friendly ones. []byte would
// otherwise marshal as base64.
func wireValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// normalize shapes an execution outcome, or error, into the response body
// shared by both transports.
func normalize(outcome *Outcome, err error) *QueryResponse {
	if err != nil {
		return &QueryResponse{Error: err.Error()}
	}
	if outcome.Rows != nil {
		n := len(outcome.Rows)
		return &QueryResponse{
			Success:  true,
			Data:     outcome.Rows,
			RowCount: &n,
		}
	}
	return &QueryResponse{
		Success: true,
		Data:    outcome.Exec,
		Message: "Query executed successfully",
	}
}
