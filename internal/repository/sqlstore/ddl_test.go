package sqlstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trashmob-eco/trashmob/internal/schema"
)

func TestCreateTableSQL_SQLite(t *testing.T) {
	table, ok := schema.Lookup("team_members")
	require.True(t, ok)

	ddl := SQLite.CreateTableSQL(table)

	assert.True(t, strings.HasPrefix(ddl, "CREATE TABLE IF NOT EXISTS team_members ("))
	assert.Contains(t, ddl, "id TEXT PRIMARY KEY")
	assert.Contains(t, ddl, "team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE")
	assert.Contains(t, ddl, "user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE")
	assert.Contains(t, ddl, "is_team_lead BOOLEAN NOT NULL DEFAULT 0")
	assert.Contains(t, ddl, "joined_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP")
	assert.Contains(t, ddl, "created_by_user_id TEXT NOT NULL REFERENCES users(id)")
}

func TestCreateTableSQL_Postgres(t *testing.T) {
	table, ok := schema.Lookup("user_feedback")
	require.True(t, ok)

	ddl := Postgres.CreateTableSQL(table)

	assert.Contains(t, ddl, "id UUID PRIMARY KEY")
	assert.Contains(t, ddl, "user_id UUID REFERENCES users(id)")
	assert.Contains(t, ddl, "reviewed_date TIMESTAMPTZ")
	assert.Contains(t, ddl, "last_updated_date TIMESTAMPTZ NOT NULL DEFAULT now()")
	assert.NotContains(t, ddl, "ON DELETE CASCADE")
}

func TestCreateTableSQL_ForeignKeysHaveNoDefault(t *testing.T) {
	for _, table := range schema.Tables {
		for _, c := range table.AllColumns() {
			if c.References == "" {
				continue
			}
			def := SQLite.columnDef(c)
			assert.NotContains(t, def, "DEFAULT", "%s.%s", table.Name, c.Name)
		}
	}
}

func TestCreateIndexSQL(t *testing.T) {
	table, ok := schema.Lookup("photo_flags")
	require.True(t, ok)

	stmts := SQLite.CreateIndexSQL(table)

	assert.Contains(t, stmts, "CREATE INDEX IF NOT EXISTS idx_photo_flags_flagged_by_user_id ON photo_flags (flagged_by_user_id)")
	assert.Contains(t, stmts, "CREATE INDEX IF NOT EXISTS idx_photo_flags_resolved_by_user_id ON photo_flags (resolved_by_user_id)")
	// photo_id holds an id from one of several photo tables, so it is not a
	// foreign key and gets no index.
	for _, s := range stmts {
		assert.NotContains(t, s, "(photo_id)")
	}
}

func TestPlaceholders(t *testing.T) {
	b := binder{dialect: Postgres}
	assert.Equal(t, "$1", b.bind("a"))
	assert.Equal(t, "$2", b.bind("b"))
	assert.Equal(t, []any{"a", "b"}, b.args)

	s := binder{dialect: SQLite}
	assert.Equal(t, "?", s.bind(1))
	assert.Equal(t, "?", s.bind(2))
	assert.Len(t, s.args, 2)
}
