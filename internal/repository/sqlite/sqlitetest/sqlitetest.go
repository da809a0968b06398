// Package sqlitetest provides in-memory SQLite fixtures for tests that need a
// real schema: row inserts by column map, and lookups of single columns.
package sqlitetest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/trashmob-eco/trashmob/internal/model"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlite"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlstore"
	"github.com/trashmob-eco/trashmob/internal/schema"
)

// Row is a set of column values for Insert.
type Row map[string]any

// NewDB returns a migrated in-memory database with the anonymous user
// seeded. It is closed when the test ends.
func NewDB(t testing.TB) *sqlstore.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(ctx, sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureUser(ctx, model.AnonymousUserID, "Anonymous"); err != nil {
		t.Fatalf("seeding anonymous user: %v", err)
	}
	return db
}

// InsertUser adds a user row and returns its id.
func InsertUser(t testing.TB, db *sqlstore.DB, userName string) uuid.UUID {
	t.Helper()
	return Insert(t, db, schema.UsersTable, Row{
		"user_name": userName,
		"email":     strings.ToLower(userName) + "@example.com",
	})
}

// Insert adds a row to table and returns its id. A missing id is generated.
// Missing audit user columns point at the anonymous user, so fixtures never
// reference the user under test unless they say so.
func Insert(t testing.TB, db *sqlstore.DB, table string, row Row) uuid.UUID {
	t.Helper()

	def, ok := schema.Lookup(table)
	if !ok {
		t.Fatalf("insert: unknown table %q", table)
	}

	values := maps.Clone(row)
	if values == nil {
		values = Row{}
	}
	id, _ := values[schema.ColumnID].(uuid.UUID)
	if id == uuid.Nil {
		id = uuid.New()
		values[schema.ColumnID] = id
	}
	for _, col := range []string{schema.ColumnCreatedByUserID, schema.ColumnLastUpdatedByUserID} {
		if _, ok := values[col]; !ok {
			values[col] = model.AnonymousUserID
		}
	}

	columns := slices.Sorted(maps.Keys(values))
	args := make([]any, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		if !def.HasColumn(c) {
			t.Fatalf("insert: unknown column %s.%s", table, c)
		}
		args[i] = values[c]
		marks[i] = "?"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", "))
	if _, err := db.Conn().ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("insert into %s: %v", table, err)
	}
	return id
}

// InsertWithParents adds a row to table like Insert, first creating a parent
// row for every required foreign key to a non-users table the row leaves
// unset. Required plain UUID columns get a random value.
func InsertWithParents(t testing.TB, db *sqlstore.DB, table string, row Row) uuid.UUID {
	t.Helper()

	def, ok := schema.Lookup(table)
	if !ok {
		t.Fatalf("insert: unknown table %q", table)
	}

	values := maps.Clone(row)
	if values == nil {
		values = Row{}
	}
	for _, c := range def.Columns {
		if c.Nullable || c.Kind != schema.KindUUID {
			continue
		}
		if _, set := values[c.Name]; set {
			continue
		}
		switch {
		case c.References == "":
			values[c.Name] = uuid.New()
		case c.IsUserReference():
			values[c.Name] = model.AnonymousUserID
		default:
			values[c.Name] = InsertWithParents(t, db, c.References, nil)
		}
	}
	return Insert(t, db, table, values)
}

// Snapshot renders every row of every registered table, for comparing the
// whole database before and after an operation.
func Snapshot(t testing.TB, db *sqlstore.DB) map[string][]string {
	t.Helper()
	ctx := context.Background()
	out := make(map[string][]string, len(schema.Tables))

	for _, table := range schema.Tables {
		rows, err := db.Conn().QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", table.Name))
		if err != nil {
			t.Fatalf("snapshot %s: %v", table.Name, err)
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			t.Fatalf("snapshot %s: %v", table.Name, err)
		}

		var lines []string
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				rows.Close()
				t.Fatalf("snapshot %s: %v", table.Name, err)
			}
			for i, v := range vals {
				if b, ok := v.([]byte); ok {
					vals[i] = string(b)
				}
			}
			lines = append(lines, fmt.Sprintf("%v", vals))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			t.Fatalf("snapshot %s: %v", table.Name, err)
		}
		rows.Close()
		out[table.Name] = lines
	}
	return out
}

// Exists reports whether table has a row with the given id.
func Exists(t testing.TB, db *sqlstore.DB, table string, id uuid.UUID) bool {
	t.Helper()
	return Count(t, db, table, schema.ColumnID, id) > 0
}

// Count returns how many rows of table have column = value.
func Count(t testing.TB, db *sqlstore.DB, table, column string, value any) int {
	t.Helper()
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table, column)
	if err := db.Conn().QueryRowContext(context.Background(), query, value).Scan(&n); err != nil {
		t.Fatalf("count %s.%s: %v", table, column, err)
	}
	return n
}

// UUIDColumn reads one UUID column of the row with the given id. A NULL
// value returns uuid.NullUUID{Valid: false}.
func UUIDColumn(t testing.TB, db *sqlstore.DB, table, column string, id uuid.UUID) uuid.NullUUID {
	t.Helper()
	var v uuid.NullUUID
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", column, table)
	if err := db.Conn().QueryRowContext(context.Background(), query, id).Scan(&v); err != nil {
		t.Fatalf("read %s.%s of %s: %v", table, column, id, err)
	}
	return v
}

// BoolColumn reads one boolean column of the row with the given id.
func BoolColumn(t testing.TB, db *sqlstore.DB, table, column string, id uuid.UUID) bool {
	t.Helper()
	var v bool
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", column, table)
	if err := db.Conn().QueryRowContext(context.Background(), query, id).Scan(&v); err != nil {
		t.Fatalf("read %s.%s of %s: %v", table, column, id, err)
	}
	return v
}

// Day returns midnight UTC of the given date, for ordering fixtures.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
