// Package model defines the data structures used throughout the application.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AnonymousUserID is the reserved identity that replaces a deleted user's id
// on rows that are kept for historical totals (routes, metrics, moderation
// history, invite batches, waivers, audit fields).
//
// It is the nil UUID. A users row with this id is seeded by the repository at
// startup so that foreign keys pointing at it stay valid. The service takes the
// value through its constructor, so deployments can pick a different one via
// configuration.
var AnonymousUserID = uuid.Nil

// User represents a registered volunteer account.
//
// IsSiteAdmin is never changed by the normal profile update path; it is only
// read here to authorize administrative endpoints.
type User struct {
	ID          uuid.UUID `json:"id"          db:"id"`
	UserName    string    `json:"userName"    db:"user_name"`
	Email       string    `json:"email"       db:"email"`
	GivenName   string    `json:"givenName"   db:"given_name"`
	Surname     string    `json:"surname"     db:"surname"`
	City        string    `json:"city"        db:"city"`
	Region      string    `json:"region"      db:"region"`
	Country     string    `json:"country"     db:"country"`
	PostalCode  string    `json:"postalCode"  db:"postal_code"`
	IsSiteAdmin bool      `json:"isSiteAdmin" db:"is_site_admin"`
	MemberSince time.Time `json:"memberSince" db:"member_since"`

	CreatedByUserID     uuid.UUID `json:"createdByUserId"     db:"created_by_user_id"`
	CreatedDate         time.Time `json:"createdDate"         db:"created_date"`
	LastUpdatedByUserID uuid.UUID `json:"lastUpdatedByUserId" db:"last_updated_by_user_id"`
	LastUpdatedDate     time.Time `json:"lastUpdatedDate"     db:"last_updated_date"`
}

