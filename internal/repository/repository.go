// Package repository declares the persistence interfaces the service layer
// depends on. Implementations live in sub-packages (sqlstore, with sqlite and
// postgres openers).
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/trashmob-eco/trashmob/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// EnsureUser inserts a placeholder users row with the given id if none
	// exists. Used to seed the anonymous identity.
	EnsureUser(ctx context.Context, id uuid.UUID, userName string) error
}

// Assignment rewrites one user-reference column inside a Reassign call.
type Assignment struct {
	Column string
	// Replacement is written wherever Column equals the deleted user's id.
	// Nil writes NULL.
	Replacement *uuid.UUID
}

// AnonymizeTo returns an Assignment that repoints column to id.
func AnonymizeTo(column string, id uuid.UUID) Assignment {
	return Assignment{Column: column, Replacement: &id}
}

// Nullify returns an Assignment that sets column to NULL.
func Nullify(column string) Assignment {
	return Assignment{Column: column}
}

// DeletionStore opens the single transaction a user deletion runs in.
type DeletionStore interface {
	BeginDeletion(ctx context.Context) (DeletionTx, error)
}

// DeletionTx is the set of set-based operations a user deletion needs. Every
// call runs inside one database transaction; nothing is visible to other
// connections until Commit. Rollback after Commit is a no-op.
//
// Table and column names must come from the schema registry; unknown names
// are rejected before any SQL is sent.
type DeletionTx interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)

	// DeleteWhere deletes every row of table whose column equals userID.
	DeleteWhere(ctx context.Context, table, column string, userID uuid.UUID) (int64, error)

	// Reassign runs one UPDATE over table. Rows match when any assignment
	// column equals userID; on a matching row each column is rewritten only
	// if that column itself equals userID.
	Reassign(ctx context.Context, table string, userID uuid.UUID, assignments ...Assignment) (int64, error)

	// TeamLeadMemberships lists the team_members rows where userID is lead.
	TeamLeadMemberships(ctx context.Context, userID uuid.UUID) ([]model.TeamMember, error)

	// EarliestOtherMember returns the member of teamID with the earliest
	// joined_date, ignoring excludeUserID. It returns nil when there is none.
	EarliestOtherMember(ctx context.Context, teamID, excludeUserID uuid.UUID) (*model.TeamMember, error)

	PromoteTeamLead(ctx context.Context, memberID uuid.UUID) error

	// DeleteUser deletes the users row. Rows declared ON DELETE CASCADE go with it.
	DeleteUser(ctx context.Context, userID uuid.UUID) (int64, error)

	Commit() error
	Rollback() error
}
