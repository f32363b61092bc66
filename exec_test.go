package sqlmcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t testing.TB) *Service {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return &Service{DB: db}
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		query string
		read  bool
	}{
		{"SELECT * FROM t", true},
		{"  select 1", true},
		{"\n\tSeLeCt 1", true},
		{"pragma table_info(t)", true},
		{"SHOW TABLES", true},
		{"DESCRIBE t", true},
		{"EXPLAIN QUERY PLAN SELECT 1", true},
		{"selection is not select", false},
		{"INSERT INTO t VALUES (1)", false},
		{"update t set a=1", false},
		{"DELETE FROM t", false},
		{"CREATE TABLE t (a)", false},
		{"drop table t", false},
		{"ALTER TABLE t ADD COLUMN b", false},
		// Only the leading keyword counts.
		{"WITH x AS (SELECT 1) SELECT * FROM x", false},
		{"(select 1)", false},
		{"", false},
		{"   ", false},
	} {
		assert.Equal(t, tc.read, classify(tc.query) == kindRead, "%q", tc.query)
	}
}

func TestExecuteReadAlwaysHasRows(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.DB.Exec("create table t(a INTEGER PRIMARY KEY, b TEXT)")
	require.NoError(t, err)
	out, err := s.Execute(ctx, "select * from t")
	require.NoError(t, err)
	require.NotNil(t, out.Rows)
	assert.Nil(t, out.Exec)
	assert.Len(t, out.Rows, 0)
}

func TestExecuteSelectValues(t *testing.T) {
	s := newTestService(t)
	out, err := s.Execute(context.Background(), "SELECT 1 AS x")
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.EqualValues(t, 1, out.Rows[0]["x"])
}

func TestExecuteWrites(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	out, err := s.Execute(ctx, "create table t(a INTEGER PRIMARY KEY, b TEXT)")
	require.NoError(t, err)
	require.NotNil(t, out.Exec)
	assert.Nil(t, out.Rows)
	assert.EqualValues(t, 0, out.Exec.Changes)
	assert.Nil(t, out.Exec.LastID)

	out, err = s.Execute(ctx, "insert into t(b) values ('x')")
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.Exec.Changes)
	require.NotNil(t, out.Exec.LastID)
	assert.EqualValues(t, 1, *out.Exec.LastID)

	// A write that matches nothing still succeeds, and doesn't inherit the
	// insert's rowid.
	out, err = s.Execute(ctx, "delete from t where a = 999999")
	require.NoError(t, err)
	assert.EqualValues(t, 0, out.Exec.Changes)
	assert.Nil(t, out.Exec.LastID)

	out, err = s.Execute(ctx, "update t set b='y' where b='x'")
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.Exec.Changes)
	assert.Nil(t, out.Exec.LastID)
}

func TestExecuteEngineError(t *testing.T) {
	s := newTestService(t)
	_, err := s.Execute(context.Background(), "select * from missing_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
	// Read-classified statements the engine rejects keep the engine's
	// error; there is no retry down the other path.
	_, err = s.Execute(context.Background(), "describe missing_table")
	require.Error(t, err)
}

func TestExecuteBlobAsString(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Execute(ctx, "create table b(v BLOB)")
	require.NoError(t, err)
	_, err = s.Execute(ctx, "insert into b values (x'68690a')")
	require.NoError(t, err)
	out, err := s.Execute(ctx, "select v from b")
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "hi\n", out.Rows[0]["v"])
}

func TestExecuteNullValue(t *testing.T) {
	s := newTestService(t)
	out, err := s.Execute(context.Background(), "select NULL as n")
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Nil(t, out.Rows[0]["n"])
}

func TestNormalizeRead(t *testing.T) {
	resp := normalize(&Outcome{Rows: []map[string]any{{"x": int64(1)}}}, nil)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.RowCount)
	assert.Equal(t, 1, *resp.RowCount)
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[{"x":1}],"rowCount":1}`, string(b))
}

func TestNormalizeEmptyRead(t *testing.T) {
	b, err := json.Marshal(normalize(&Outcome{Rows: []map[string]any{}}, nil))
	require.NoError(t, err)
	// rowCount 0 must survive serialization, and data stays an array.
	assert.JSONEq(t, `{"success":true,"data":[],"rowCount":0}`, string(b))
}

func TestNormalizeWrite(t *testing.T) {
	b, err := json.Marshal(normalize(&Outcome{Exec: &ExecSummary{}}, nil))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"success":true,"data":{"changes":0,"lastID":null},"message":"Query executed successfully"}`,
		string(b))
}

func TestNormalizeError(t *testing.T) {
	resp := normalize(nil, errors.New("no such table: t"))
	assert.False(t, resp.Success)
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"no such table: t"}`, string(b))
}
