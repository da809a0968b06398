package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trashmob-eco/trashmob/internal/apperror"
	"github.com/trashmob-eco/trashmob/internal/model"
	"github.com/trashmob-eco/trashmob/internal/repository"
	"github.com/trashmob-eco/trashmob/internal/schema"
)

var (
	_ repository.DeletionStore = (*DB)(nil)
	_ repository.DeletionTx    = (*deletionTx)(nil)
)

// BeginDeletion starts the transaction a user deletion runs in.
func (db *DB) BeginDeletion(ctx context.Context) (repository.DeletionTx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: beginning deletion: %w", err)
	}
	return &deletionTx{tx: tx, dialect: db.dialect}, nil
}

// deletionTx issues every statement on tx. It must never touch the pool:
// with a single-connection pool (in-memory SQLite) that would deadlock.
type deletionTx struct {
	tx      *sql.Tx
	dialect Dialect
	done    bool
}

func (d *deletionTx) binder() *binder {
	return &binder{dialect: d.dialect}
}

func (d *deletionTx) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	b := d.binder()
	query := fmt.Sprintf(`SELECT COUNT(*) FROM users WHERE id = %s`, b.bind(userID))

	var n int
	if err := d.tx.QueryRowContext(ctx, query, b.args...).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlstore: checking user %s: %w", userID, err)
	}
	return n > 0, nil
}

func (d *deletionTx) DeleteWhere(ctx context.Context, table, column string, userID uuid.UUID) (int64, error) {
	if _, err := userReference(table, column); err != nil {
		return 0, err
	}

	b := d.binder()
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = %s`, table, column, b.bind(userID))

	res, err := d.tx.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: deleting from %s by %s: %w", table, column, err)
	}
	return rowsAffected(res, table)
}

// Reassign renders one UPDATE where each column is rewritten by its own CASE,
// so a row that references the user in only some of the columns keeps the
// other values:
//
//	UPDATE t SET
//	  a = CASE WHEN a = :user THEN :anon ELSE a END,
//	  b = CASE WHEN b = :user THEN NULL ELSE b END
//	WHERE a = :user OR b = :user
func (d *deletionTx) Reassign(ctx context.Context, table string, userID uuid.UUID, assignments ...repository.Assignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, apperror.ValidationFailed("assignments", "at least one column is required")
	}

	b := d.binder()
	sets := make([]string, 0, len(assignments))
	matches := make([]string, 0, len(assignments))
	seen := make(map[string]bool, len(assignments))

	for _, a := range assignments {
		col, err := userReference(table, a.Column)
		if err != nil {
			return 0, err
		}
		if seen[a.Column] {
			return 0, apperror.ValidationFailed("assignments",
				fmt.Sprintf("column %s.%s assigned twice", table, a.Column))
		}
		seen[a.Column] = true

		if a.Replacement == nil {
			if !col.Nullable {
				return 0, apperror.ValidationFailed("assignments",
					fmt.Sprintf("column %s.%s is required and cannot be nulled", table, a.Column))
			}
			match := b.bind(userID)
			sets = append(sets, fmt.Sprintf("%s = CASE WHEN %s = %s THEN NULL ELSE %s END",
				a.Column, a.Column, match, a.Column))
			continue
		}

		match := b.bind(userID)
		replacement := b.bind(*a.Replacement)
		sets = append(sets, fmt.Sprintf("%s = CASE WHEN %s = %s THEN %s ELSE %s END",
			a.Column, a.Column, match, replacement, a.Column))
	}

	for _, a := range assignments {
		matches = append(matches, fmt.Sprintf("%s = %s", a.Column, b.bind(userID)))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		table, strings.Join(sets, ", "), strings.Join(matches, " OR "))

	res, err := d.tx.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: reassigning %s: %w", table, err)
	}
	return rowsAffected(res, table)
}

func (d *deletionTx) TeamLeadMemberships(ctx context.Context, userID uuid.UUID) ([]model.TeamMember, error) {
	b := d.binder()
	query := fmt.Sprintf(
		`SELECT id, team_id, user_id, is_team_lead, joined_date
		 FROM team_members
		 WHERE user_id = %s AND is_team_lead = %s
		 ORDER BY joined_date ASC, id ASC`,
		b.bind(userID), b.bind(true),
	)

	rows, err := d.tx.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing lead memberships of %s: %w", userID, err)
	}
	defer rows.Close()

	var members []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.IsTeamLead, &m.JoinedDate); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning team member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating team members: %w", err)
	}
	return members, nil
}

// EarliestOtherMember breaks joined_date ties by id so the choice is stable.
func (d *deletionTx) EarliestOtherMember(ctx context.Context, teamID, excludeUserID uuid.UUID) (*model.TeamMember, error) {
	b := d.binder()
	query := fmt.Sprintf(
		`SELECT id, team_id, user_id, is_team_lead, joined_date
		 FROM team_members
		 WHERE team_id = %s AND user_id <> %s
		 ORDER BY joined_date ASC, id ASC
		 LIMIT 1`,
		b.bind(teamID), b.bind(excludeUserID),
	)

	var m model.TeamMember
	err := d.tx.QueryRowContext(ctx, query, b.args...).
		Scan(&m.ID, &m.TeamID, &m.UserID, &m.IsTeamLead, &m.JoinedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlstore: finding successor in team %s: %w", teamID, err)
	}
	return &m, nil
}

func (d *deletionTx) PromoteTeamLead(ctx context.Context, memberID uuid.UUID) error {
	b := d.binder()
	query := fmt.Sprintf(
		`UPDATE team_members SET is_team_lead = %s, last_updated_date = %s WHERE id = %s`,
		b.bind(true), b.bind(time.Now().UTC()), b.bind(memberID),
	)

	res, err := d.tx.ExecContext(ctx, query, b.args...)
	if err != nil {
		return fmt.Errorf("sqlstore: promoting member %s: %w", memberID, err)
	}
	n, err := rowsAffected(res, "team_members")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("team member", memberID.String())
	}
	return nil
}

func (d *deletionTx) DeleteUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	b := d.binder()
	query := fmt.Sprintf(`DELETE FROM users WHERE id = %s`, b.bind(userID))

	res, err := d.tx.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: deleting user %s: %w", userID, err)
	}
	return rowsAffected(res, schema.UsersTable)
}

func (d *deletionTx) Commit() error {
	if err := d.tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing deletion: %w", err)
	}
	d.done = true
	return nil
}

func (d *deletionTx) Rollback() error {
	if d.done {
		return nil
	}
	d.done = true
	if err := d.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sqlstore: rolling back deletion: %w", err)
	}
	return nil
}

// userReference checks table and column against the schema registry before
// either is interpolated into SQL, and returns the column definition.
func userReference(table, column string) (schema.Column, error) {
	t, ok := schema.Lookup(table)
	if !ok {
		return schema.Column{}, apperror.ValidationFailed("table", fmt.Sprintf("unknown table %q", table))
	}
	col, ok := t.Column(column)
	if !ok {
		return schema.Column{}, apperror.ValidationFailed("column",
			fmt.Sprintf("unknown column %s.%s", table, column))
	}
	if !col.IsUserReference() {
		return schema.Column{}, apperror.ValidationFailed("column",
			fmt.Sprintf("%s.%s does not reference users", table, column))
	}
	return col, nil
}

func rowsAffected(res sql.Result, table string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: rows affected on %s: %w", table, err)
	}
	return n, nil
}
