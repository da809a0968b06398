package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trashmob-eco/trashmob/internal/apperror"
	"github.com/trashmob-eco/trashmob/internal/model"
	"github.com/trashmob-eco/trashmob/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user. A nil ID is replaced with a fresh UUID; the nil
// UUID itself belongs to the anonymous identity and is only written by
// EnsureUser. Zero audit user ids default to the user itself (self sign-up).
func (db *DB) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedByUserID == uuid.Nil {
		user.CreatedByUserID = user.ID
	}
	if user.LastUpdatedByUserID == uuid.Nil {
		user.LastUpdatedByUserID = user.CreatedByUserID
	}

	now := time.Now().UTC()
	if user.MemberSince.IsZero() {
		user.MemberSince = now
	}
	user.CreatedDate = now
	user.LastUpdatedDate = now

	b := binder{dialect: db.dialect}
	query := fmt.Sprintf(
		`INSERT INTO users (id, user_name, email, given_name, surname, city, region, country,
			postal_code, is_site_admin, member_since, created_by_user_id, created_date,
			last_updated_by_user_id, last_updated_date)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		b.bind(user.ID),
		b.bind(user.UserName),
		b.bind(user.Email),
		b.bind(user.GivenName),
		b.bind(user.Surname),
		b.bind(user.City),
		b.bind(user.Region),
		b.bind(user.Country),
		b.bind(user.PostalCode),
		b.bind(user.IsSiteAdmin),
		b.bind(user.MemberSince),
		b.bind(user.CreatedByUserID),
		b.bind(user.CreatedDate),
		b.bind(user.LastUpdatedByUserID),
		b.bind(user.LastUpdatedDate),
	)

	if _, err := db.conn.ExecContext(ctx, query, b.args...); err != nil {
		return fmt.Errorf("sqlstore: inserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	b := binder{dialect: db.dialect}
	query := fmt.Sprintf(
		`SELECT id, user_name, email, given_name, surname, city, region, country, postal_code,
			is_site_admin, member_since, created_by_user_id, created_date,
			last_updated_by_user_id, last_updated_date
		 FROM users WHERE id = %s`,
		b.bind(id),
	)

	var u model.User
	err := db.conn.QueryRowContext(ctx, query, b.args...).Scan(
		&u.ID,
		&u.UserName,
		&u.Email,
		&u.GivenName,
		&u.Surname,
		&u.City,
		&u.Region,
		&u.Country,
		&u.PostalCode,
		&u.IsSiteAdmin,
		&u.MemberSince,
		&u.CreatedByUserID,
		&u.CreatedDate,
		&u.LastUpdatedByUserID,
		&u.LastUpdatedDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id.String())
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", id, err)
	}
	return &u, nil
}

// EnsureUser inserts a minimal users row for id unless one already exists.
// The row audits itself, so it needs no other user to exist first.
func (db *DB) EnsureUser(ctx context.Context, id uuid.UUID, userName string) error {
	b := binder{dialect: db.dialect}
	query := fmt.Sprintf(
		`INSERT INTO users (id, user_name, created_by_user_id, last_updated_by_user_id)
		 VALUES (%s, %s, %s, %s)
		 ON CONFLICT (id) DO NOTHING`,
		b.bind(id),
		b.bind(userName),
		b.bind(id),
		b.bind(id),
	)

	if _, err := db.conn.ExecContext(ctx, query, b.args...); err != nil {
		return fmt.Errorf("sqlstore: ensuring user %s: %w", id, err)
	}
	return nil
}
