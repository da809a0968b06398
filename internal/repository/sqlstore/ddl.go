package sqlstore

import (
	"fmt"
	"strings"

	"github.com/trashmob-eco/trashmob/internal/schema"
)

// CreateTableSQL renders the CREATE TABLE IF NOT EXISTS statement for t.
func (d Dialect) CreateTableSQL(t schema.Table) string {
	cols := t.AllColumns()
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, d.columnDef(c))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t"))
}

// CreateIndexSQL renders one CREATE INDEX IF NOT EXISTS statement per
// foreign-key column. The user-reference indexes keep the per-table sweeps of
// a user deletion from scanning whole tables.
func (d Dialect) CreateIndexSQL(t schema.Table) []string {
	var stmts []string
	for _, c := range t.AllColumns() {
		if c.References == "" {
			continue
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", t.Name, c.Name, t.Name, c.Name,
		))
	}
	return stmts
}

func (d Dialect) columnDef(c schema.Column) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(d.ColumnType(c.Kind))

	if c.Name == schema.ColumnID {
		b.WriteString(" PRIMARY KEY")
		return b.String()
	}

	if !c.Nullable {
		b.WriteString(" NOT NULL")
		// Foreign keys never get a default: a made-up reference is worse than
		// a failed insert.
		if c.References == "" {
			if def := d.Default(c.Kind); def != "" {
				b.WriteString(" DEFAULT ")
				b.WriteString(def)
			}
		}
	}

	if c.References != "" {
		fmt.Fprintf(&b, " REFERENCES %s(%s)", c.References, schema.ColumnID)
		if c.OnDeleteCascade {
			b.WriteString(" ON DELETE CASCADE")
		}
	}
	return b.String()
}
