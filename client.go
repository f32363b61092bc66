package sqlmcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Client calls a server's direct query endpoint.
type Client struct {
	// Base URL of the serving process, like "http://localhost:3000".
	Server string
	// Overrides http.DefaultClient when set.
	HTTPClient *http.Client
}

func (me *Client) httpClient() *http.Client {
	if me.HTTPClient != nil {
		return me.HTTPClient
	}
	return http.DefaultClient
}

// Query submits one statement and returns the server's normalized response.
// The error covers transport and decoding problems only: execution failures
// come back inside the response with Success unset.
func (me *Client) Query(ctx context.Context, query string) (*QueryResponse, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(me.Server, "/")+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := me.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var ret QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&ret); err != nil {
		return nil, fmt.Errorf("decoding response (%s): %w", resp.Status, err)
	}
	return &ret, nil
}
