// Package schema is the declarative registry of every entity table in the
// TrashMob database.
//
// The registry is the single source of truth for three things:
//
//  1. DDL: the sqlstore package renders CREATE TABLE / CREATE INDEX statements
//     from it for each SQL dialect.
//  2. Identifier validation: table and column names are checked against the
//     registry before they are interpolated into dynamic SQL.
//  3. The audit sweep: every table listed here carries the audit columns and
//     is swept when a user is deleted.
//
// Tables are listed in foreign-key creation order: a table only references
// tables that appear before it.
package schema

// Kind is the logical type of a column. Dialects map it to a concrete SQL type.
type Kind int

const (
	KindUUID Kind = iota
	KindText
	KindInt
	KindReal
	KindBool
	KindTime
)

// Audit column names. Every table has all four.
const (
	ColumnID                  = "id"
	ColumnCreatedByUserID     = "created_by_user_id"
	ColumnCreatedDate         = "created_date"
	ColumnLastUpdatedByUserID = "last_updated_by_user_id"
	ColumnLastUpdatedDate     = "last_updated_date"
)

// UsersTable is the table every user reference points at.
const UsersTable = "users"

// Column describes one column of a table.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
	// References names the table this column is a foreign key to ("" for none).
	References string
	// OnDeleteCascade removes the row when the referenced row is deleted.
	OnDeleteCascade bool
}

// IsUserReference reports whether the column points at the users table.
func (c Column) IsUserReference() bool {
	return c.References == UsersTable
}

// Table describes one entity table. Columns excludes the id and audit
// columns, which every table shares (see AllColumns).
type Table struct {
	Name    string
	Columns []Column
}

// AllColumns returns the id column, the table's own columns, then the four
// audit columns, in DDL order.
func (t Table) AllColumns() []Column {
	cols := make([]Column, 0, len(t.Columns)+5)
	cols = append(cols, Column{Name: ColumnID, Kind: KindUUID})
	cols = append(cols, t.Columns...)
	cols = append(cols,
		Column{Name: ColumnCreatedByUserID, Kind: KindUUID, References: UsersTable},
		Column{Name: ColumnCreatedDate, Kind: KindTime},
		Column{Name: ColumnLastUpdatedByUserID, Kind: KindUUID, References: UsersTable},
		Column{Name: ColumnLastUpdatedDate, Kind: KindTime},
	)
	return cols
}

// Column looks up a column by name, including id and audit columns.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.AllColumns() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table has a column with the given name.
func (t Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// UserReferences returns every column that references the users table,
// audit columns included.
func (t Table) UserReferences() []Column {
	var refs []Column
	for _, c := range t.AllColumns() {
		if c.IsUserReference() {
			refs = append(refs, c)
		}
	}
	return refs
}

// Lookup finds a table in the registry by name.
func Lookup(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Names returns every registered table name in registry order.
func Names() []string {
	names := make([]string, len(Tables))
	for i, t := range Tables {
		names[i] = t.Name
	}
	return names
}
