package schema

// Tables is every entity table, in foreign-key creation order.
var Tables = []Table{
	{Name: UsersTable, Columns: []Column{
		text("user_name"),
		text("email"),
		text("given_name"),
		text("surname"),
		text("city"),
		text("region"),
		text("country"),
		text("postal_code"),
		optFloat("latitude"),
		optFloat("longitude"),
		boolean("is_site_admin"),
		boolean("prefers_metric"),
		timestamp("member_since"),
		optTimestamp("date_agreed_to_privacy_policy"),
	}},

	// Events
	{Name: "events", Columns: []Column{
		text("name"),
		text("description"),
		timestamp("event_date"),
		integer("duration_hours"),
		text("street_address"),
		text("city"),
		text("region"),
		text("country"),
		optFloat("latitude"),
		optFloat("longitude"),
		integer("max_number_of_participants"),
		boolean("is_event_public"),
		integer("event_status_id"),
	}},
	{Name: "event_summaries", Columns: []Column{
		ref("event_id", "events"),
		integer("number_of_bags"),
		integer("number_of_buckets"),
		integer("duration_in_minutes"),
		integer("actual_number_of_attendees"),
		text("notes"),
	}},
	{Name: "event_attendees", Columns: []Column{
		ref("event_id", "events"),
		userRef("user_id"),
		timestamp("sign_up_date"),
		optTimestamp("canceled_date"),
	}},
	{Name: "event_attendee_routes", Columns: []Column{
		ref("event_id", "events"),
		userRef("user_id"),
		timestamp("start_time"),
		timestamp("end_time"),
		float("total_distance_meters"),
		text("user_path"),
		text("privacy_level"),
	}},
	{Name: "event_attendee_metrics", Columns: []Column{
		ref("event_id", "events"),
		userRef("user_id"),
		integer("bags_collected"),
		float("pick_weight"),
		text("pick_weight_unit"),
		integer("duration_minutes"),
		text("status"),
		optUserRef("reviewed_by_user_id"),
		optTimestamp("reviewed_date"),
	}},
	photoTable("event_photos", ref("event_id", "events")),

	// Litter reports
	{Name: "litter_reports", Columns: []Column{
		text("name"),
		text("description"),
		integer("litter_report_status_id"),
	}},
	{Name: "event_litter_reports", Columns: []Column{
		ref("event_id", "events"),
		ref("litter_report_id", "litter_reports"),
	}},
	{Name: "litter_images", Columns: []Column{
		ref("litter_report_id", "litter_reports"),
		text("image_url"),
		text("street_address"),
		text("city"),
		text("country"),
		optFloat("latitude"),
		optFloat("longitude"),
		boolean("in_review"),
		optUserRef("review_requested_by_user_id"),
		optTimestamp("review_requested_date"),
		text("moderation_status"),
		optUserRef("moderated_by_user_id"),
		optTimestamp("moderated_date"),
	}},

	// Partners
	{Name: "partners", Columns: []Column{
		text("name"),
		text("website"),
		text("public_notes"),
		text("private_notes"),
		integer("partner_status_id"),
		integer("partner_type_id"),
	}},
	{Name: "partner_locations", Columns: []Column{
		ref("partner_id", "partners"),
		text("name"),
		text("street_address"),
		text("city"),
		text("region"),
		text("country"),
		optFloat("latitude"),
		optFloat("longitude"),
		boolean("is_active"),
	}},
	{Name: "partner_location_contacts", Columns: []Column{
		ref("partner_location_id", "partner_locations"),
		text("name"),
		text("email"),
		text("phone"),
		text("notes"),
	}},
	{Name: "partner_admins", Columns: []Column{
		ref("partner_id", "partners"),
		userRef("user_id"),
	}},
	{Name: "partner_admin_invitations", Columns: []Column{
		ref("partner_id", "partners"),
		text("email"),
		integer("invitation_status_id"),
		optTimestamp("date_invited"),
	}},
	{Name: "partner_requests", Columns: []Column{
		text("name"),
		text("email"),
		text("website"),
		text("phone"),
		text("notes"),
		integer("partner_request_status_id"),
		boolean("is_become_a_partner_request"),
	}},
	photoTable("partner_photos", ref("partner_id", "partners")),
	{Name: "partner_documents", Columns: []Column{
		ref("partner_id", "partners"),
		text("name"),
		text("url"),
	}},
	{Name: "event_partner_location_services", Columns: []Column{
		ref("event_id", "events"),
		ref("partner_location_id", "partner_locations"),
		integer("service_type_id"),
		integer("event_partner_location_service_status_id"),
	}},
	{Name: "pickup_locations", Columns: []Column{
		ref("event_id", "events"),
		text("name"),
		text("street_address"),
		text("city"),
		optFloat("latitude"),
		optFloat("longitude"),
		boolean("has_been_submitted"),
		boolean("has_been_picked_up"),
		text("notes"),
	}},

	// Notifications
	{Name: "user_notifications", Columns: []Column{
		optRef("event_id", "events"),
		userRef("user_id"),
		integer("user_notification_type_id"),
		optTimestamp("sent_date"),
	}},
	{Name: "non_event_user_notifications", Columns: []Column{
		userRef("user_id"),
		integer("user_notification_type_id"),
		optTimestamp("sent_date"),
	}},
	{Name: "ifttt_triggers", Columns: []Column{
		userRef("user_id"),
		text("trigger_identity"),
		text("trigger_fields"),
		text("event_type"),
		text("ifttt_source"),
		integer("limit_count"),
	}},

	// Professional companies
	{Name: "professional_companies", Columns: []Column{
		optRef("partner_id", "partners"),
		text("name"),
		text("contact_email"),
		boolean("is_active"),
	}},
	{Name: "professional_company_users", Columns: []Column{
		ref("professional_company_id", "professional_companies"),
		userRef("user_id"),
	}},

	// Waivers
	{Name: "waivers", Columns: []Column{
		text("name"),
		boolean("is_waiver_enabled"),
	}},
	{Name: "waiver_versions", Columns: []Column{
		text("name"),
		text("version"),
		text("waiver_text"),
		timestamp("effective_date"),
		optTimestamp("expiry_date"),
		text("scope"),
		boolean("is_active"),
	}},
	{Name: "community_waivers", Columns: []Column{
		ref("partner_id", "partners"),
		ref("waiver_version_id", "waiver_versions"),
		boolean("is_required"),
	}},
	{Name: "user_waivers", Columns: []Column{
		userRef("user_id"),
		ref("waiver_version_id", "waiver_versions"),
		timestamp("accepted_date"),
		timestamp("expiry_date"),
		text("typed_legal_name"),
		text("waiver_text_snapshot"),
		text("signing_method"),
		text("document_url"),
		text("ip_address"),
		text("user_agent"),
		boolean("is_minor"),
		optUserRef("guardian_user_id"),
		text("guardian_name"),
		text("guardian_relationship"),
		optUserRef("uploaded_by_user_id"),
	}},

	// Teams
	{Name: "teams", Columns: []Column{
		text("name"),
		text("description"),
		text("city"),
		text("country"),
		optFloat("latitude"),
		optFloat("longitude"),
		boolean("is_public"),
		boolean("requires_approval"),
		boolean("is_active"),
	}},
	{Name: "team_members", Columns: []Column{
		cascadeRef("team_id", "teams"),
		cascadeRef("user_id", UsersTable),
		boolean("is_team_lead"),
		timestamp("joined_date"),
	}},
	{Name: "team_join_requests", Columns: []Column{
		ref("team_id", "teams"),
		userRef("user_id"),
		text("status"),
		timestamp("request_date"),
		optUserRef("reviewed_by_user_id"),
		optTimestamp("reviewed_date"),
	}},
	{Name: "team_events", Columns: []Column{
		ref("team_id", "teams"),
		ref("event_id", "events"),
	}},
	photoTable("team_photos", ref("team_id", "teams")),
	{Name: "adoptable_areas", Columns: []Column{
		ref("partner_id", "partners"),
		text("name"),
		text("description"),
		text("area_type"),
		text("status"),
		text("geo_json"),
		integer("cleanup_frequency_days"),
	}},
	{Name: "team_adoptions", Columns: []Column{
		ref("team_id", "teams"),
		ref("adoptable_area_id", "adoptable_areas"),
		text("status"),
		timestamp("application_date"),
		optUserRef("reviewed_by_user_id"),
		optTimestamp("reviewed_date"),
		text("rejection_reason"),
	}},
	{Name: "team_adoption_events", Columns: []Column{
		ref("team_adoption_id", "team_adoptions"),
		ref("event_id", "events"),
	}},

	// Moderation
	{Name: "photo_flags", Columns: []Column{
		uuidValue("photo_id"),
		text("photo_type"),
		userRef("flagged_by_user_id"),
		text("flag_reason"),
		timestamp("flagged_date"),
		optUserRef("resolved_by_user_id"),
		optTimestamp("resolved_date"),
		text("resolution"),
	}},
	{Name: "photo_moderation_logs", Columns: []Column{
		uuidValue("photo_id"),
		text("photo_type"),
		text("action"),
		text("reason"),
		userRef("performed_by_user_id"),
		timestamp("performed_date"),
	}},

	// Feedback and invitations
	{Name: "user_feedback", Columns: []Column{
		optUserRef("user_id"),
		text("category"),
		text("description"),
		text("email"),
		text("status"),
		text("internal_notes"),
		optUserRef("reviewed_by_user_id"),
		optTimestamp("reviewed_date"),
	}},
	{Name: "email_invite_batches", Columns: []Column{
		userRef("sender_user_id"),
		text("batch_type"),
		optRef("team_id", "teams"),
		integer("total_count"),
		integer("sent_count"),
		integer("failed_count"),
		text("status"),
		optTimestamp("completed_date"),
	}},
	{Name: "email_invites", Columns: []Column{
		ref("batch_id", "email_invite_batches"),
		text("email"),
		text("status"),
		optTimestamp("sent_date"),
		optUserRef("signed_up_user_id"),
		optTimestamp("signed_up_date"),
	}},

	// Newsletters
	{Name: "newsletters", Columns: []Column{
		text("subject"),
		text("preview_text"),
		text("status"),
		optTimestamp("sent_date"),
		integer("recipient_count"),
	}},
	{Name: "user_newsletter_preferences", Columns: []Column{
		userRef("user_id"),
		integer("category_id"),
		boolean("is_subscribed"),
		optTimestamp("subscribed_date"),
		optTimestamp("unsubscribed_date"),
	}},
}

// photoTable builds one of the moderated photo tables. They share the same
// uploader / review / moderation columns and differ only in their owner.
func photoTable(name string, owner Column) Table {
	return Table{Name: name, Columns: []Column{
		owner,
		text("image_url"),
		text("thumbnail_url"),
		text("caption"),
		userRef("uploaded_by_user_id"),
		timestamp("uploaded_date"),
		text("moderation_status"),
		boolean("in_review"),
		optUserRef("review_requested_by_user_id"),
		optTimestamp("review_requested_date"),
		optUserRef("moderated_by_user_id"),
		optTimestamp("moderated_date"),
		text("moderation_reason"),
	}}
}

func text(name string) Column         { return Column{Name: name, Kind: KindText} }
func integer(name string) Column      { return Column{Name: name, Kind: KindInt} }
func float(name string) Column        { return Column{Name: name, Kind: KindReal} }
func optFloat(name string) Column     { return Column{Name: name, Kind: KindReal, Nullable: true} }
func boolean(name string) Column      { return Column{Name: name, Kind: KindBool} }
func timestamp(name string) Column    { return Column{Name: name, Kind: KindTime} }
func optTimestamp(name string) Column { return Column{Name: name, Kind: KindTime, Nullable: true} }
func uuidValue(name string) Column    { return Column{Name: name, Kind: KindUUID} }

func userRef(name string) Column {
	return Column{Name: name, Kind: KindUUID, References: UsersTable}
}

func optUserRef(name string) Column {
	return Column{Name: name, Kind: KindUUID, Nullable: true, References: UsersTable}
}

func ref(name, table string) Column {
	return Column{Name: name, Kind: KindUUID, References: table}
}

func optRef(name, table string) Column {
	return Column{Name: name, Kind: KindUUID, Nullable: true, References: table}
}

func cascadeRef(name, table string) Column {
	return Column{Name: name, Kind: KindUUID, References: table, OnDeleteCascade: true}
}
