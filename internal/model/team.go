package model

import (
	"time"

	"github.com/google/uuid"
)

// TeamMember is one user's membership in a team. A team has at most one
// member flagged as team lead.
type TeamMember struct {
	ID         uuid.UUID `json:"id"         db:"id"`
	TeamID     uuid.UUID `json:"teamId"     db:"team_id"`
	UserID     uuid.UUID `json:"userId"     db:"user_id"`
	IsTeamLead bool      `json:"isTeamLead" db:"is_team_lead"`
	JoinedDate time.Time `json:"joinedDate" db:"joined_date"`
}
