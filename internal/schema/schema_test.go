package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables_UniqueNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, table := range Tables {
		assert.False(t, seen[table.Name], "duplicate table %q", table.Name)
		seen[table.Name] = true
	}
}

func TestTables_UniqueColumns(t *testing.T) {
	for _, table := range Tables {
		seen := make(map[string]bool)
		for _, c := range table.AllColumns() {
			assert.False(t, seen[c.Name], "table %q: duplicate column %q", table.Name, c.Name)
			seen[c.Name] = true
		}
	}
}

// Tables are created in registry order, so every foreign key must point at
// the table itself or one registered earlier.
func TestTables_ReferencesPointBackwards(t *testing.T) {
	created := make(map[string]bool)
	for _, table := range Tables {
		created[table.Name] = true
		for _, c := range table.AllColumns() {
			if c.References == "" {
				continue
			}
			assert.True(t, created[c.References],
				"%s.%s references %q before it is created", table.Name, c.Name, c.References)
		}
	}
}

func TestTables_UsersFirst(t *testing.T) {
	require.NotEmpty(t, Tables)
	assert.Equal(t, UsersTable, Tables[0].Name)
}

func TestAllColumns_IncludesAuditColumns(t *testing.T) {
	for _, table := range Tables {
		for _, name := range []string{
			ColumnID,
			ColumnCreatedByUserID,
			ColumnCreatedDate,
			ColumnLastUpdatedByUserID,
			ColumnLastUpdatedDate,
		} {
			assert.True(t, table.HasColumn(name), "%s is missing %s", table.Name, name)
		}
	}
}

func TestLookup(t *testing.T) {
	table, ok := Lookup("photo_flags")
	require.True(t, ok)
	assert.True(t, table.HasColumn("flagged_by_user_id"))
	assert.True(t, table.HasColumn("resolved_by_user_id"))
	assert.False(t, table.HasColumn("nope"))

	_, ok = Lookup("no_such_table")
	assert.False(t, ok)
}

func TestUserReferences(t *testing.T) {
	table, ok := Lookup("user_waivers")
	require.True(t, ok)

	var names []string
	for _, c := range table.UserReferences() {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{
		"user_id",
		"guardian_user_id",
		"uploaded_by_user_id",
		ColumnCreatedByUserID,
		ColumnLastUpdatedByUserID,
	}, names)
}

func TestPhotoTables_ShareModerationColumns(t *testing.T) {
	for _, name := range []string{"event_photos", "team_photos", "partner_photos"} {
		table, ok := Lookup(name)
		require.True(t, ok, name)

		uploader, ok := table.Column("uploaded_by_user_id")
		require.True(t, ok)
		assert.False(t, uploader.Nullable, "%s uploader must be required", name)

		for _, col := range []string{"review_requested_by_user_id", "moderated_by_user_id"} {
			c, ok := table.Column(col)
			require.True(t, ok, "%s.%s", name, col)
			assert.True(t, c.Nullable, "%s.%s must be nullable", name, col)
		}
	}
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, len(Tables))
	assert.Contains(t, names, "team_members")
}
