package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/anacrolix/envpprof"
	_ "github.com/glebarez/go-sqlite"
	_ "github.com/mattn/go-sqlite3"

	sqlmcp "github.com/johnyzelba/sqlite-mcp-northwind"
)

func sessionsHandler(s *sqlmcp.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, id := range s.Sessions.Ids() {
			fmt.Fprintf(w, "%s\n", id)
		}
	})
}

func main() {
	log.SetFlags(log.Flags() | log.Llongfile)
	driver := flag.String("driver", "sqlite3", `database/sql driver ("sqlite3" is cgo, "sqlite" pure Go)`)
	dsn := flag.String("dsn", "./northwind.db", "database file")
	addr := flag.String("addr", ":3000", "listen")
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "unexpected positional arguments\n")
		os.Exit(2)
	}
	db, err := sql.Open(*driver, *dsn)
	if err != nil {
		log.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		log.Fatalf("opening database %q: %s", *dsn, err)
	}
	s := &sqlmcp.Server{}
	s.Service.DB = db
	mux := http.NewServeMux()
	mux.Handle("/sessions", sessionsHandler(s))
	mux.Handle("/", s)
	hs := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		log.Printf("%s: shutting down", <-sigs)
		// Live streams die with the listener. Clients are expected to
		// reconnect, not to be drained.
		hs.Close()
	}()
	log.Printf("%s %s serving %q on %s", sqlmcp.Name, sqlmcp.Version, *dsn, *addr)
	err = hs.ListenAndServe()
	if err != http.ErrServerClosed {
		log.Fatal(err)
	}
	db.Close()
}
