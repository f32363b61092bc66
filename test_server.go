package sqlmcp

import (
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	HTTP *httptest.Server
}

func (me testServer) Close() {
	me.HTTP.Close()
	me.DB.Close()
}

func (me testServer) Client() *Client {
	return &Client{Server: me.HTTP.URL}
}

// startServer serves a fresh in-memory SQLite database over HTTP. A single
// pooled connection keeps the :memory: database alive for the server's
// lifetime, and keeps each test's database its own.
func startServer(t testing.TB) testServer {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	server := &Server{}
	server.Service.DB = db
	return testServer{server, httptest.NewServer(server)}
}
