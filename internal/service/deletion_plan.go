package service

import (
	"github.com/google/uuid"
	"github.com/trashmob-eco/trashmob/internal/repository"
)

// Phase names one step of a user deletion. It appears in logs, metrics and
// PhaseError.
type Phase string

const (
	PhaseBegin             Phase = "begin"
	PhaseLookup            Phase = "lookup"
	PhaseHardDelete        Phase = "hard-delete"
	PhaseAnonymizeRequired Phase = "anonymize-required"
	PhaseAnonymizePhotos   Phase = "anonymize-photos"
	PhaseNullReferences    Phase = "null-references"
	PhaseAnonymizeWaivers  Phase = "anonymize-waivers"
	PhaseAuditSweep        Phase = "audit-sweep"
	PhaseTeamLeadTransfer  Phase = "team-lead-transfer"
	PhaseDeleteUser        Phase = "delete-user"
	PhaseCommit            Phase = "commit"
)

// target is one column rewrite. anonymize repoints the column at the
// anonymous identity; otherwise the column is set to NULL.
type target struct {
	column    string
	anonymize bool
}

// rewrite is one set-based UPDATE over a table. All targets share the row
// predicate and each column is only changed where it matches the user.
type rewrite struct {
	table   string
	targets []target
}

func (r rewrite) assignments(anonymousID uuid.UUID) []repository.Assignment {
	out := make([]repository.Assignment, len(r.targets))
	for i, t := range r.targets {
		if t.anonymize {
			out[i] = repository.AnonymizeTo(t.column, anonymousID)
		} else {
			out[i] = repository.Nullify(t.column)
		}
	}
	return out
}

func anonymize(column string) target { return target{column: column, anonymize: true} }
func null(column string) target      { return target{column: column} }

// hardDeleteColumn is the owner column of every hard-delete table.
const hardDeleteColumn = "user_id"

// Rows that only mean something to the deleted user.
var hardDeleteTables = []string{
	"event_attendees",
	"user_notifications",
	"non_event_user_notifications",
	"ifttt_triggers",
	"professional_company_users",
	"partner_admins",
	"team_join_requests",
	"user_newsletter_preferences",
}

// Rows kept for aggregates whose owner column is required. A secondary
// reviewer column on the same row is cleared in the same statement.
var requiredReferenceRewrites = []rewrite{
	{table: "event_attendee_routes", targets: []target{anonymize("user_id")}},
	{table: "event_attendee_metrics", targets: []target{anonymize("user_id"), null("reviewed_by_user_id")}},
	{table: "photo_flags", targets: []target{anonymize("flagged_by_user_id"), null("resolved_by_user_id")}},
	{table: "photo_moderation_logs", targets: []target{anonymize("performed_by_user_id")}},
	{table: "email_invite_batches", targets: []target{anonymize("sender_user_id")}},
}

var photoTables = []string{"event_photos", "team_photos", "partner_photos"}

// Each photo column is rewritten by its own statement.
var photoTargets = []target{
	anonymize("uploaded_by_user_id"),
	null("review_requested_by_user_id"),
	null("moderated_by_user_id"),
}

var nullableReferenceRewrites = []rewrite{
	{table: "user_feedback", targets: []target{null("user_id"), null("reviewed_by_user_id")}},
	{table: "email_invites", targets: []target{null("signed_up_user_id")}},
	{table: "team_adoptions", targets: []target{null("reviewed_by_user_id")}},
	{table: "team_join_requests", targets: []target{null("reviewed_by_user_id")}},
	{table: "litter_images", targets: []target{null("review_requested_by_user_id"), null("moderated_by_user_id")}},
}

// Waivers are legal records: never deleted, only detached from the user.
var waiverRewrite = rewrite{
	table: "user_waivers",
	targets: []target{
		anonymize("user_id"),
		null("uploaded_by_user_id"),
		null("guardian_user_id"),
	},
}
