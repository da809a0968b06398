package sqlstore

import (
	"fmt"

	"github.com/trashmob-eco/trashmob/internal/schema"
)

// Dialect captures the few places SQLite and PostgreSQL disagree: bind
// markers, column types and column defaults. Everything else in this package
// is plain ANSI SQL that both accept (including ON CONFLICT DO NOTHING and
// CREATE INDEX IF NOT EXISTS).
type Dialect struct {
	Name string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
	// ColumnType maps a schema kind to the SQL column type.
	ColumnType func(k schema.Kind) string
	// Default returns the DEFAULT expression for a NOT NULL column of kind k,
	// or "" when the column has no default and callers must supply a value.
	Default func(k schema.Kind) string
}

// SQLite is the dialect for modernc.org/sqlite. UUIDs are stored as TEXT in
// their canonical 36-character form.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	ColumnType: func(k schema.Kind) string {
		switch k {
		case schema.KindInt:
			return "INTEGER"
		case schema.KindReal:
			return "REAL"
		case schema.KindBool:
			return "BOOLEAN"
		case schema.KindTime:
			return "DATETIME"
		default:
			return "TEXT"
		}
	},
	Default: func(k schema.Kind) string {
		switch k {
		case schema.KindText:
			return "''"
		case schema.KindInt, schema.KindReal, schema.KindBool:
			return "0"
		case schema.KindTime:
			return "CURRENT_TIMESTAMP"
		default:
			return ""
		}
	},
}

// Postgres is the dialect for the pgx stdlib driver.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	ColumnType: func(k schema.Kind) string {
		switch k {
		case schema.KindUUID:
			return "UUID"
		case schema.KindInt:
			return "INTEGER"
		case schema.KindReal:
			return "DOUBLE PRECISION"
		case schema.KindBool:
			return "BOOLEAN"
		case schema.KindTime:
			return "TIMESTAMPTZ"
		default:
			return "TEXT"
		}
	},
	Default: func(k schema.Kind) string {
		switch k {
		case schema.KindText:
			return "''"
		case schema.KindInt, schema.KindReal:
			return "0"
		case schema.KindBool:
			return "FALSE"
		case schema.KindTime:
			return "now()"
		default:
			return ""
		}
	},
}

// binder accumulates query arguments and hands out the matching bind markers,
// so statement builders work unchanged for "?" and "$n" dialects.
type binder struct {
	dialect Dialect
	args    []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}
