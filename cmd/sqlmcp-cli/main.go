// It is the intention of the command to emulate the sqlite3 command-line
// utility where reasonable, against a serving process instead of a file.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	_ "github.com/anacrolix/envpprof"
	"github.com/docopt/docopt-go"
	"github.com/pterm/pterm"

	sqlmcp "github.com/johnyzelba/sqlite-mcp-northwind"
)

const doc = "" +
	"Usage: sqlmcp-cli [--server=<url>] <query>...\n" +
	"Options:\n" +
	"  --server=<url> base URL of the serving process  [default: http://localhost:3000]"

func main() {
	log.SetFlags(log.Flags() | log.Lshortfile)
	opts, err := docopt.Parse(doc, nil, true, "", false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing options: %s", err)
		os.Exit(2)
	}
	cl := &sqlmcp.Client{Server: opts["--server"].(string)}
	for _, arg := range opts["<query>"].([]string) {
		resp, err := cl.Query(context.Background(), arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error executing query: %s\n", err)
			os.Exit(1)
		}
		if !resp.Success {
			pterm.Error.Println(resp.Error)
			os.Exit(1)
		}
		render(resp)
	}
}

func render(resp *sqlmcp.QueryResponse) {
	rows, ok := resp.Data.([]any)
	if !ok {
		if m, ok := resp.Data.(map[string]any); ok {
			pterm.Success.Printfln("%s (%v changed)", resp.Message, m["changes"])
			return
		}
		pterm.Success.Println(resp.Message)
		return
	}
	if len(rows) == 0 {
		pterm.Info.Println("no rows")
		return
	}
	// Row objects carry no column order, so render alphabetically.
	first := rows[0].(map[string]any)
	cols := make([]string, 0, len(first))
	for name := range first {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	data := pterm.TableData{cols}
	for _, r := range rows {
		row := r.(map[string]any)
		line := make([]string, len(cols))
		for i, name := range cols {
			if v := row[name]; v != nil {
				line[i] = fmt.Sprintf("%v", v)
			}
		}
		data = append(data, line)
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
