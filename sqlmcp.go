// Package sqlmcp exposes a `database/sql.*DB` to tool-calling agent clients
// over the Model Context Protocol, alongside a plain HTTP endpoint for direct
// queries. Any `database/sql.*DB` can be served, but the primary motivation
// is to expose the Northwind sample database through the excellent SQLite3.
// `cmd/sqlite-mcp-northwind` is provided for this purpose, and can easily be
// adapted to other DBs.
package sqlmcp

// Name and Version identify the server to clients, both in the streaming
// handshake and on the metadata endpoint.
const (
	Name    = "sqlite-mcp-northwind"
	Version = "0.1.0"
)

// QueryResponse is the body returned by the direct query endpoint, and the
// payload serialized into sql_query tool results. Both transports share this
// shape, so a client switching transports sees identical data.
type QueryResponse struct {
	Success bool `json:"success"`
	// Row objects for reads, an ExecSummary for everything else.
	Data any `json:"data,omitempty"`
	// Set only for reads, so a zero count survives serialization.
	RowCount *int   `json:"rowCount,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Tool describes one callable operation in the tools/list catalog.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolResult is the outcome of one tool invocation. Failures of any kind are
// reported in-band with IsError set; Invoke never surfaces an error to the
// transport.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
