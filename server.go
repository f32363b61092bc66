package sqlmcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/johnyzelba/sqlite-mcp-northwind/sessions"
)

// Server wires a Service to both transports: the streaming protocol
// endpoint on "/" and the direct query endpoint on "/query". The zero value
// is usable once Service.DB is set.
type Server struct {
	Service
	Sessions sessions.Registry
}

var _ http.Handler = (*Server)(nil)

func (me *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		me.serveOptions(w)
		return
	}
	switch r.URL.Path {
	case "/":
		me.serveRoot(w, r)
	case "/query":
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		me.serveQuery(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (me *Server) serveOptions(w http.ResponseWriter) {
	addCORS(w)
	h := w.Header()
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

func addCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

func (me *Server) serveRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			me.serveStream(w, r)
			return
		}
		me.serveMeta(w)
	case http.MethodPost:
		me.servePost(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (me *Server) serveMeta(w http.ResponseWriter) {
	addCORS(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        Name,
		"version":     Version,
		"description": "SQLite server speaking MCP over SSE, with a direct query endpoint",
		"endpoints": map[string]any{
			"/":      "GET with Accept: text/event-stream opens a session; GET without returns this document",
			"/query": "POST {\"query\": ...} executes one SQL statement",
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Print(err)
	}
}

type queryRequest struct {
	Query string `json:"query"`
	// Accepted and ignored: there is exactly one backing database.
	Database any `json:"database"`
}

func (me *Server) serveQuery(w http.ResponseWriter, r *http.Request) {
	addCORS(w)
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, &QueryResponse{
			Error: "invalid request body: " + err.Error(),
		})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, &QueryResponse{Error: "Query is required"})
		return
	}
	// Engine verdicts, success or failure, are a 200: the error field is
	// the contract, not the status code.
	writeJSON(w, http.StatusOK, normalize(me.Execute(r.Context(), req.Query)))
}

var errChanClosed = errors.New("session channel closed")

// sseChan is one live event-stream connection. Sends are serialized, and
// fail once the channel is marked closed. The handler goroutine owns the
// underlying connection; close only marks.
type sseChan struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  chan struct{}
}

func (me *sseChan) Send(event string, data []byte) error {
	me.mu.Lock()
	defer me.mu.Unlock()
	select {
	case <-me.closed:
		return errChanClosed
	default:
	}
	_, err := fmt.Fprintf(me.w, "event: %s\ndata: %s\n\n", event, data)
	if err != nil {
		return err
	}
	me.flusher.Flush()
	return nil
}

func (me *sseChan) close() {
	me.mu.Lock()
	defer me.mu.Unlock()
	select {
	case <-me.closed:
	default:
		close(me.closed)
	}
}

func (me *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	addCORS(w)
	w.WriteHeader(http.StatusOK)

	ch := &sseChan{w: w, flusher: flusher, closed: make(chan struct{})}
	id := me.Sessions.Register(ch)
	defer me.Sessions.Unregister(id)
	log.Printf("session %s opened from %s", id, r.RemoteAddr)
	// The first frame tells the client where to POST its half of the
	// conversation.
	if err := ch.Send("endpoint", []byte("/?sessionId="+id)); err != nil {
		return
	}
	select {
	case <-r.Context().Done():
	case <-ch.closed:
	}
	// Marking closed before returning keeps any in-flight Send off a dead
	// connection.
	ch.close()
	log.Printf("session %s closed", id)
}

func (me *Server) servePost(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	ch, err := me.Sessions.Lookup(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		// A client speaking garbage forfeits its session. Only its own:
		// everyone else streams on.
		me.teardown(id, ch)
		http.Error(w, "malformed frame: "+err.Error(), http.StatusBadRequest)
		return
	}
	if resp := me.handleRPC(r.Context(), &req); resp != nil {
		b, err := json.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := ch.Send("message", b); err != nil {
			log.Printf("session %s: delivering response: %s", id, err)
		}
	}
	w.WriteHeader(http.StatusAccepted)
	io.WriteString(w, "Accepted")
}

func (me *Server) teardown(id string, ch sessions.Chan) {
	me.Sessions.Unregister(id)
	if c, ok := ch.(*sseChan); ok {
		c.close()
	}
}
