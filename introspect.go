package sqlmcp

import (
	"context"
	"database/sql"
	"fmt"
)

// Column describes one table column, as reported by PRAGMA table_info. The
// engine's own quirks are preserved: declared types come back as written,
// and INTEGER PRIMARY KEY columns report as nullable unless declared NOT
// NULL.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Default    any    `json:"default"`
	PrimaryKey bool   `json:"primaryKey"`
}

// ForeignKey describes one outgoing foreign key, per PRAGMA
// foreign_key_list. To is empty when the reference is to the parent's
// implicit primary key.
type ForeignKey struct {
	Table    string `json:"table"`
	From     string `json:"from"`
	To       string `json:"to"`
	OnUpdate string `json:"onUpdate"`
	OnDelete string `json:"onDelete"`
}

// Index describes one index, per PRAGMA index_list and index_info. Origin
// is "c" for explicitly created indexes, "u" and "pk" for those backing
// UNIQUE and PRIMARY KEY constraints.
type Index struct {
	Name    string   `json:"name"`
	Unique  bool     `json:"unique"`
	Origin  string   `json:"origin"`
	Columns []string `json:"columns"`
}

// TableInfo aggregates everything the server reports about one table. It is
// assembled fresh per request, never cached.
type TableInfo struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	RowCount    int64        `json:"rowCount"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
	Indexes     []Index      `json:"indexes"`
}

// validIdent reports whether name is safe to splice into an introspection
// statement as an identifier. Identifiers cannot be bound like values, so
// anything outside [A-Za-z_][A-Za-z0-9_]* is rejected before the engine
// sees it.
func validIdent(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func checkIdent(name string) error {
	if !validIdent(name) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidArgs, name)
	}
	return nil
}

// ListTables returns the names of all user tables, alphabetically. SQLite's
// internal sqlite_* tables are excluded, as are views and indexes.
func (me *Service) ListTables(ctx context.Context) (ret []string, err error) {
	rows, err := me.DB.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return
	}
	defer rows.Close()
	ret = []string{}
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return
		}
		ret = append(ret, name)
	}
	err = rows.Err()
	return
}

// DescribeTable returns the column layout of the named table. A table the
// engine doesn't know yields no columns, which is the engine's own answer.
func (me *Service) DescribeTable(ctx context.Context, table string) ([]Column, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	return me.tableColumns(ctx, table)
}

func (me *Service) tableColumns(ctx context.Context, table string) (ret []Column, err error) {
	rows, err := me.DB.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return
	}
	defer rows.Close()
	ret = []Column{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             any
		)
		err = rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk)
		if err != nil {
			return
		}
		ret = append(ret, Column{
			Name:       name,
			Type:       typ,
			Nullable:   notNull == 0,
			Default:    wireValue(dflt),
			PrimaryKey: pk > 0,
		})
	}
	err = rows.Err()
	return
}

func (me *Service) tableRowCount(ctx context.Context, table string) (n int64, err error) {
	err = me.DB.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(table)).Scan(&n)
	return
}

func (me *Service) tableForeignKeys(ctx context.Context, table string) (ret []ForeignKey, err error) {
	rows, err := me.DB.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(table)+")")
	if err != nil {
		return
	}
	defer rows.Close()
	ret = []ForeignKey{}
	for rows.Next() {
		var (
			id, seq                 int
			parent, from            string
			to                      sql.NullString
			onUpdate, onDelete, mat string
		)
		err = rows.Scan(&id, &seq, &parent, &from, &to, &onUpdate, &onDelete, &mat)
		if err != nil {
			return
		}
		ret = append(ret, ForeignKey{
			Table:    parent,
			From:     from,
			To:       to.String,
			OnUpdate: onUpdate,
			OnDelete: onDelete,
		})
	}
	err = rows.Err()
	return
}

// tableIndexes runs index_list, then index_info per index. The listing is
// drained before the per-index queries start: the pool is typically capped
// at one connection, and nested open cursors would starve it.
func (me *Service) tableIndexes(ctx context.Context, table string) (ret []Index, err error) {
	rows, err := me.DB.QueryContext(ctx, "PRAGMA index_list("+quoteIdent(table)+")")
	if err != nil {
		return
	}
	ret = []Index{}
	for rows.Next() {
		var (
			seq             int
			name, origin    string
			unique, partial int
		)
		err = rows.Scan(&seq, &name, &unique, &origin, &partial)
		if err != nil {
			rows.Close()
			return
		}
		ret = append(ret, Index{
			Name:   name,
			Unique: unique != 0,
			Origin: origin,
		})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return
	}
	for i := range ret {
		ret[i].Columns, err = me.indexColumns(ctx, ret[i].Name)
		if err != nil {
			return
		}
	}
	return
}

func (me *Service) indexColumns(ctx context.Context, index string) (ret []string, err error) {
	rows, err := me.DB.QueryContext(ctx, "PRAGMA index_info("+quoteIdent(index)+")")
	if err != nil {
		return
	}
	defer rows.Close()
	ret = []string{}
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		err = rows.Scan(&seqno, &cid, &name)
		if err != nil {
			return
		}
		// Expression index members have no column name.
		if name.Valid {
			ret = append(ret, name.String)
		}
	}
	err = rows.Err()
	return
}

// TableInfo assembles the aggregate view for one table: columns, row count,
// foreign keys and indexes. The count comes from count(*), so cost scales
// with the table.
func (me *Service) TableInfo(ctx context.Context, table string) (ret *TableInfo, err error) {
	if err = checkIdent(table); err != nil {
		return
	}
	info := TableInfo{Name: table}
	info.Columns, err = me.tableColumns(ctx, table)
	if err != nil {
		return
	}
	info.RowCount, err = me.tableRowCount(ctx, table)
	if err != nil {
		return
	}
	info.ForeignKeys, err = me.tableForeignKeys(ctx, table)
	if err != nil {
		return
	}
	info.Indexes, err = me.tableIndexes(ctx, table)
	if err != nil {
		return
	}
	ret = &info
	return
}
