package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trashmob-eco/trashmob/internal/apperror"
	"github.com/trashmob-eco/trashmob/internal/model"
	"github.com/trashmob-eco/trashmob/internal/repository"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlite/sqlitetest"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlstore"
	"github.com/trashmob-eco/trashmob/internal/schema"
)

var anon = model.AnonymousUserID

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*UserDeletionService, *sqlstore.DB) {
	t.Helper()
	db := sqlitetest.NewDB(t)
	return NewUserDeletionService(db, anon, discardLogger()), db
}

// =========================================================================
// FAILURE INJECTION
// =========================================================================

var errInjected = errors.New("injected failure")

// faultyStore wraps a real store and breaks the transaction on the Nth call
// (1-based) to any DeletionTx method, Commit included. With onCall set it
// runs that hook right after the Nth call instead of failing it. Zero
// disables both.
type faultyStore struct {
	repository.DeletionStore
	failAt int
	onCall func()
	calls  int
}

func (s *faultyStore) BeginDeletion(ctx context.Context) (repository.DeletionTx, error) {
	tx, err := s.DeletionStore.BeginDeletion(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{DeletionTx: tx, store: s}, nil
}

func (s *faultyStore) hit() bool {
	return s.failAt != 0 && s.calls == s.failAt
}

type faultyTx struct {
	repository.DeletionTx
	store *faultyStore
}

// do counts the call and either fails it or runs op.
func (f *faultyTx) do(op func() error) error {
	f.store.calls++
	if f.store.hit() && f.store.onCall == nil {
		return errInjected
	}
	err := op()
	if f.store.hit() && f.store.onCall != nil {
		f.store.onCall()
	}
	return err
}

func (f *faultyTx) UserExists(ctx context.Context, userID uuid.UUID) (ok bool, err error) {
	err = f.do(func() (e error) { ok, e = f.DeletionTx.UserExists(ctx, userID); return })
	return ok, err
}

func (f *faultyTx) DeleteWhere(ctx context.Context, table, column string, userID uuid.UUID) (n int64, err error) {
	err = f.do(func() (e error) { n, e = f.DeletionTx.DeleteWhere(ctx, table, column, userID); return })
	return n, err
}

func (f *faultyTx) Reassign(ctx context.Context, table string, userID uuid.UUID, a ...repository.Assignment) (n int64, err error) {
	err = f.do(func() (e error) { n, e = f.DeletionTx.Reassign(ctx, table, userID, a...); return })
	return n, err
}

func (f *faultyTx) TeamLeadMemberships(ctx context.Context, userID uuid.UUID) (m []model.TeamMember, err error) {
	err = f.do(func() (e error) { m, e = f.DeletionTx.TeamLeadMemberships(ctx, userID); return })
	return m, err
}

func (f *faultyTx) EarliestOtherMember(ctx context.Context, teamID, excludeUserID uuid.UUID) (m *model.TeamMember, err error) {
	err = f.do(func() (e error) { m, e = f.DeletionTx.EarliestOtherMember(ctx, teamID, excludeUserID); return })
	return m, err
}

func (f *faultyTx) PromoteTeamLead(ctx context.Context, memberID uuid.UUID) error {
	return f.do(func() error { return f.DeletionTx.PromoteTeamLead(ctx, memberID) })
}

func (f *faultyTx) DeleteUser(ctx context.Context, userID uuid.UUID) (n int64, err error) {
	err = f.do(func() (e error) { n, e = f.DeletionTx.DeleteUser(ctx, userID); return })
	return n, err
}

func (f *faultyTx) Commit() error {
	return f.do(f.DeletionTx.Commit)
}

// =========================================================================
// FIXTURES
// =========================================================================

type scenario struct {
	u1, u2, u3, u4 uuid.UUID
	flag           uuid.UUID
	team           uuid.UUID
	u3Member       uuid.UUID
	u4Member       uuid.UUID
	waiver         uuid.UUID
	route          uuid.UUID
	event          uuid.UUID
}

// seedScenario: U1 flagged photo F1 (resolved by U2) and leads team T1 with
// U3 (joined earlier) and U4 (joined later). U1 also has rows in most other
// disposition classes.
func seedScenario(t *testing.T, db *sqlstore.DB) scenario {
	t.Helper()
	var s scenario
	s.u1 = sqlitetest.InsertUser(t, db, "U1")
	s.u2 = sqlitetest.InsertUser(t, db, "U2")
	s.u3 = sqlitetest.InsertUser(t, db, "U3")
	s.u4 = sqlitetest.InsertUser(t, db, "U4")

	s.flag = sqlitetest.Insert(t, db, "photo_flags", sqlitetest.Row{
		"photo_id":            uuid.New(),
		"flagged_by_user_id":  s.u1,
		"resolved_by_user_id": s.u2,
	})

	s.team = sqlitetest.Insert(t, db, "teams", sqlitetest.Row{"name": "T1"})
	sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{
		"team_id": s.team, "user_id": s.u1, "is_team_lead": true, "joined_date": sqlitetest.Day(2022, 1, 1),
	})
	s.u3Member = sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{
		"team_id": s.team, "user_id": s.u3, "joined_date": sqlitetest.Day(2022, 2, 1),
	})
	s.u4Member = sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{
		"team_id": s.team, "user_id": s.u4, "joined_date": sqlitetest.Day(2022, 2, 5),
	})

	s.event = sqlitetest.Insert(t, db, "events", sqlitetest.Row{
		"name": "Beach cleanup", "created_by_user_id": s.u1, "last_updated_by_user_id": s.u2,
	})
	sqlitetest.Insert(t, db, "event_attendees", sqlitetest.Row{"event_id": s.event, "user_id": s.u1})
	s.route = sqlitetest.Insert(t, db, "event_attendee_routes", sqlitetest.Row{"event_id": s.event, "user_id": s.u1})
	sqlitetest.Insert(t, db, "event_photos", sqlitetest.Row{"event_id": s.event, "uploaded_by_user_id": s.u1})
	sqlitetest.Insert(t, db, "user_feedback", sqlitetest.Row{"user_id": s.u1, "reviewed_by_user_id": s.u2})

	version := sqlitetest.Insert(t, db, "waiver_versions", nil)
	s.waiver = sqlitetest.Insert(t, db, "user_waivers", sqlitetest.Row{
		"user_id": s.u1, "waiver_version_id": version, "guardian_user_id": s.u2,
	})
	return s
}

// =========================================================================
// TESTS
// =========================================================================

func TestDeleteUserData_Scenario(t *testing.T) {
	svc, db := newTestService(t)
	s := seedScenario(t, db)

	n, err := svc.DeleteUserData(context.Background(), s.u1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.False(t, sqlitetest.Exists(t, db, "users", s.u1))

	flaggedBy := sqlitetest.UUIDColumn(t, db, "photo_flags", "flagged_by_user_id", s.flag)
	assert.Equal(t, uuid.NullUUID{UUID: anon, Valid: true}, flaggedBy)
	assert.Equal(t, s.u2, sqlitetest.UUIDColumn(t, db, "photo_flags", "resolved_by_user_id", s.flag).UUID)

	assert.True(t, sqlitetest.BoolColumn(t, db, "team_members", "is_team_lead", s.u3Member))
	assert.False(t, sqlitetest.BoolColumn(t, db, "team_members", "is_team_lead", s.u4Member))
	assert.Zero(t, sqlitetest.Count(t, db, "team_members", "user_id", s.u1))

	assert.Zero(t, sqlitetest.Count(t, db, "event_attendees", "user_id", s.u1))
	assert.Equal(t, anon, sqlitetest.UUIDColumn(t, db, "event_attendee_routes", "user_id", s.route).UUID)

	assert.Equal(t, anon, sqlitetest.UUIDColumn(t, db, "events", schema.ColumnCreatedByUserID, s.event).UUID)
	assert.Equal(t, s.u2, sqlitetest.UUIDColumn(t, db, "events", schema.ColumnLastUpdatedByUserID, s.event).UUID)
}

// Every user-reference column of every table points at the user; after the
// deletion none may, and retained rows must still be there.
func TestDeleteUserData_RemovesEveryReference(t *testing.T) {
	svc, db := newTestService(t)
	u1 := sqlitetest.InsertUser(t, db, "U1")

	rowIDs := make(map[string]uuid.UUID)
	for _, table := range schema.Tables[1:] {
		row := sqlitetest.Row{}
		for _, c := range table.UserReferences() {
			row[c.Name] = u1
		}
		rowIDs[table.Name] = sqlitetest.InsertWithParents(t, db, table.Name, row)
	}

	n, err := svc.DeleteUserData(context.Background(), u1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	for _, table := range schema.Tables {
		for _, c := range table.UserReferences() {
			assert.Zero(t, sqlitetest.Count(t, db, table.Name, c.Name, u1),
				"%s.%s still references the deleted user", table.Name, c.Name)
		}
	}

	removed := map[string]bool{"team_members": true}
	for _, name := range hardDeleteTables {
		removed[name] = true
	}
	for name, id := range rowIDs {
		assert.Equal(t, !removed[name], sqlitetest.Exists(t, db, name, id), "row in %s", name)
	}
}

func TestDeleteUserData_TeamLeadTransfer(t *testing.T) {
	svc, db := newTestService(t)
	lead := sqlitetest.InsertUser(t, db, "Lead")
	m1 := sqlitetest.InsertUser(t, db, "M1")
	m2 := sqlitetest.InsertUser(t, db, "M2")
	team := sqlitetest.Insert(t, db, "teams", nil)

	sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{
		"team_id": team, "user_id": lead, "is_team_lead": true, "joined_date": sqlitetest.Day(2024, 1, 1),
	})
	// Inserted out of order so id order and join order disagree.
	m2Member := sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{
		"team_id": team, "user_id": m2, "joined_date": sqlitetest.Day(2024, 1, 5),
	})
	m1Member := sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{
		"team_id": team, "user_id": m1, "joined_date": sqlitetest.Day(2024, 1, 1),
	})

	_, err := svc.DeleteUserData(context.Background(), lead)
	require.NoError(t, err)

	assert.True(t, sqlitetest.BoolColumn(t, db, "team_members", "is_team_lead", m1Member))
	assert.False(t, sqlitetest.BoolColumn(t, db, "team_members", "is_team_lead", m2Member))
}

func TestDeleteUserData_LastMemberLeavesTeamLeaderless(t *testing.T) {
	svc, db := newTestService(t)
	lead := sqlitetest.InsertUser(t, db, "Lead")
	team := sqlitetest.Insert(t, db, "teams", nil)
	sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{"team_id": team, "user_id": lead, "is_team_lead": true})

	n, err := svc.DeleteUserData(context.Background(), lead)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.True(t, sqlitetest.Exists(t, db, "teams", team))
	assert.Zero(t, sqlitetest.Count(t, db, "team_members", "team_id", team))
}

func TestDeleteUserData_LeadOfSeveralTeams(t *testing.T) {
	svc, db := newTestService(t)
	lead := sqlitetest.InsertUser(t, db, "Lead")
	other := sqlitetest.InsertUser(t, db, "Other")

	var successors []uuid.UUID
	for i := 0; i < 3; i++ {
		team := sqlitetest.Insert(t, db, "teams", nil)
		sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{"team_id": team, "user_id": lead, "is_team_lead": true})
		successors = append(successors, sqlitetest.Insert(t, db, "team_members", sqlitetest.Row{"team_id": team, "user_id": other}))
	}

	_, err := svc.DeleteUserData(context.Background(), lead)
	require.NoError(t, err)

	for _, id := range successors {
		assert.True(t, sqlitetest.BoolColumn(t, db, "team_members", "is_team_lead", id))
	}
}

func TestDeleteUserData_PhotoColumnsIndependent(t *testing.T) {
	svc, db := newTestService(t)
	u1 := sqlitetest.InsertUser(t, db, "U1")
	u2 := sqlitetest.InsertUser(t, db, "U2")
	team := sqlitetest.Insert(t, db, "teams", nil)

	photo := sqlitetest.Insert(t, db, "team_photos", sqlitetest.Row{
		"team_id":                     team,
		"uploaded_by_user_id":         u2,
		"review_requested_by_user_id": u2,
		"moderated_by_user_id":        u1,
	})

	_, err := svc.DeleteUserData(context.Background(), u1)
	require.NoError(t, err)

	assert.Equal(t, u2, sqlitetest.UUIDColumn(t, db, "team_photos", "uploaded_by_user_id", photo).UUID)
	assert.Equal(t, u2, sqlitetest.UUIDColumn(t, db, "team_photos", "review_requested_by_user_id", photo).UUID)
	assert.False(t, sqlitetest.UUIDColumn(t, db, "team_photos", "moderated_by_user_id", photo).Valid)
}

func TestDeleteUserData_WaiverRetained(t *testing.T) {
	svc, db := newTestService(t)
	s := seedScenario(t, db)

	_, err := svc.DeleteUserData(context.Background(), s.u1)
	require.NoError(t, err)

	require.True(t, sqlitetest.Exists(t, db, "user_waivers", s.waiver))
	assert.Equal(t, anon, sqlitetest.UUIDColumn(t, db, "user_waivers", "user_id", s.waiver).UUID)
	assert.Equal(t, s.u2, sqlitetest.UUIDColumn(t, db, "user_waivers", "guardian_user_id", s.waiver).UUID,
		"guardian belongs to another user and stays")
}

func TestDeleteUserData_GuardianReferenceNulled(t *testing.T) {
	svc, db := newTestService(t)
	minor := sqlitetest.InsertUser(t, db, "Minor")
	guardian := sqlitetest.InsertUser(t, db, "Guardian")
	version := sqlitetest.Insert(t, db, "waiver_versions", nil)
	waiver := sqlitetest.Insert(t, db, "user_waivers", sqlitetest.Row{
		"user_id": minor, "waiver_version_id": version, "guardian_user_id": guardian, "is_minor": true,
	})

	_, err := svc.DeleteUserData(context.Background(), guardian)
	require.NoError(t, err)

	assert.Equal(t, minor, sqlitetest.UUIDColumn(t, db, "user_waivers", "user_id", waiver).UUID)
	assert.False(t, sqlitetest.UUIDColumn(t, db, "user_waivers", "guardian_user_id", waiver).Valid)
}

func TestDeleteUserData_MissingUserIsNoop(t *testing.T) {
	svc, db := newTestService(t)
	seedScenario(t, db)
	before := sqlitetest.Snapshot(t, db)

	n, err := svc.DeleteUserData(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before, sqlitetest.Snapshot(t, db))
}

func TestDeleteUserData_Idempotent(t *testing.T) {
	svc, db := newTestService(t)
	s := seedScenario(t, db)

	n, err := svc.DeleteUserData(context.Background(), s.u1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.DeleteUserData(context.Background(), s.u1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteUserData_RefusesAnonymousIdentity(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.DeleteUserData(context.Background(), anon)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.True(t, sqlitetest.Exists(t, db, "users", anon))
}

func TestDeleteUserData_ConfiguredAnonymousIdentity(t *testing.T) {
	db := sqlitetest.NewDB(t)
	ghost := uuid.MustParse("00000000-0000-0000-0000-00000000dead")
	require.NoError(t, db.EnsureUser(context.Background(), ghost, "Deleted user"))
	svc := NewUserDeletionService(db, ghost, discardLogger())

	u1 := sqlitetest.InsertUser(t, db, "U1")
	log := sqlitetest.Insert(t, db, "photo_moderation_logs", sqlitetest.Row{
		"photo_id": uuid.New(), "performed_by_user_id": u1,
	})

	_, err := svc.DeleteUserData(context.Background(), u1)
	require.NoError(t, err)

	assert.Equal(t, ghost, sqlitetest.UUIDColumn(t, db, "photo_moderation_logs", "performed_by_user_id", log).UUID)
}

// A failure at any point of the run must leave the database untouched. The
// loop moves the failure one call later each time until the run no longer
// reaches it and succeeds.
func TestDeleteUserData_AtomicAtEveryFailurePoint(t *testing.T) {
	db := sqlitetest.NewDB(t)
	s := seedScenario(t, db)
	before := sqlitetest.Snapshot(t, db)

	const maxCalls = 1000
	for failAt := 1; failAt <= maxCalls; failAt++ {
		store := &faultyStore{DeletionStore: db, failAt: failAt}
		svc := NewUserDeletionService(store, anon, discardLogger())

		n, err := svc.DeleteUserData(context.Background(), s.u1)
		if err == nil {
			assert.EqualValues(t, 1, n)
			assert.Greater(t, failAt, len(schema.Tables), "every audit sweep statement is a failure point")
			assert.False(t, sqlitetest.Exists(t, db, "users", s.u1))
			return
		}

		require.ErrorIs(t, err, errInjected, "failAt=%d", failAt)
		assert.Zero(t, n)

		var pe *PhaseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, s.u1, pe.UserID)
		assert.Equal(t, before, sqlitetest.Snapshot(t, db),
			"database changed after failure at call %d (%s)", failAt, pe.Phase)
	}
	t.Fatalf("deletion still failing after %d injected failure points", maxCalls)
}

func TestDeleteUserData_FailureNamesPhase(t *testing.T) {
	db := sqlitetest.NewDB(t)
	s := seedScenario(t, db)

	tests := []struct {
		failAt int
		want   Phase
	}{
		{1, PhaseLookup},
		{2, PhaseHardDelete},
		{2 + len(hardDeleteTables), PhaseAnonymizeRequired},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			svc := NewUserDeletionService(&faultyStore{DeletionStore: db, failAt: tt.failAt}, anon, discardLogger())
			_, err := svc.DeleteUserData(context.Background(), s.u1)

			var pe *PhaseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.want, pe.Phase)
			assert.Contains(t, err.Error(), string(tt.want))
		})
	}
}

func TestDeleteUserData_CanceledBeforeStart(t *testing.T) {
	svc, db := newTestService(t)
	s := seedScenario(t, db)
	before := sqlitetest.Snapshot(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.DeleteUserData(ctx, s.u1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, sqlitetest.Snapshot(t, db))
}

func TestDeleteUserData_CanceledBetweenPhases(t *testing.T) {
	db := sqlitetest.NewDB(t)
	s := seedScenario(t, db)
	before := sqlitetest.Snapshot(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel right after the first hard delete statement; the check before
	// the next phase must stop the run.
	store := &faultyStore{DeletionStore: db, failAt: 2, onCall: cancel}
	svc := NewUserDeletionService(store, anon, discardLogger())

	_, err := svc.DeleteUserData(ctx, s.u1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, sqlitetest.Snapshot(t, db))
	assert.True(t, sqlitetest.Exists(t, db, "users", s.u1))
}
