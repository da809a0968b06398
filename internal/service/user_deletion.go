package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/trashmob-eco/trashmob/internal/apperror"
	"github.com/trashmob-eco/trashmob/internal/metrics"
	"github.com/trashmob-eco/trashmob/internal/repository"
	"github.com/trashmob-eco/trashmob/internal/schema"
)

// PhaseError reports the phase a user deletion failed in. The transaction
// has been rolled back by the time the caller sees it.
type PhaseError struct {
	Phase  Phase
	UserID uuid.UUID
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("deleting user %s: %s: %v", e.UserID, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// UserDeletionService removes a user and every reference to them in one
// transaction. Rows with historical value are kept and repointed at the
// anonymous identity or detached; everything else is deleted.
//
// Phases run in a fixed order. Team lead transfer must come before the user
// row is deleted, since that delete cascades to the memberships that say
// which teams need a new lead. Every reference cleanup must come before it
// too, or the foreign keys reject the delete.
type UserDeletionService struct {
	store       repository.DeletionStore
	anonymousID uuid.UUID
	logger      *slog.Logger
}

// NewUserDeletionService creates a UserDeletionService. anonymousID must name
// an existing users row (see repository.UserRepository.EnsureUser).
func NewUserDeletionService(store repository.DeletionStore, anonymousID uuid.UUID, logger *slog.Logger) *UserDeletionService {
	return &UserDeletionService{
		store:       store,
		anonymousID: anonymousID,
		logger:      logger,
	}
}

type phaseFunc func(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error)

// DeleteUserData deletes the user and returns the number of users rows
// removed: 1 on success, 0 when no such user exists (not an error).
//
// Cancellation is checked between phases. Any failure, cancellation included,
// rolls back everything and is returned as a *PhaseError.
func (s *UserDeletionService) DeleteUserData(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == s.anonymousID {
		return 0, apperror.ValidationFailed("userId", "the anonymous identity cannot be deleted")
	}

	start := time.Now()
	logger := s.logger.With(
		slog.String("userID", userID.String()),
		slog.String("operation", xid.New().String()),
	)
	logger.Info("user deletion started")

	deleted, rows, err := s.run(ctx, logger, userID)
	elapsed := time.Since(start)
	metrics.UserDeletionDuration.Observe(elapsed.Seconds())

	if err != nil {
		var pe *PhaseError
		phase := PhaseBegin
		if errors.As(err, &pe) {
			phase = pe.Phase
		}
		outcome := metrics.OutcomeFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeCanceled
		}
		metrics.UserDeletionsTotal.WithLabelValues(outcome).Inc()
		metrics.UserDeletionPhaseFailures.WithLabelValues(string(phase)).Inc()

		logger.Error("user deletion failed",
			slog.String("phase", string(phase)),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed),
		)
		return 0, err
	}

	if deleted == 0 {
		metrics.UserDeletionsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		logger.Info("user deletion skipped: user not found")
		return 0, nil
	}

	metrics.UserDeletionsTotal.WithLabelValues(metrics.OutcomeDeleted).Inc()
	for phase, n := range rows {
		metrics.UserDeletionRows.WithLabelValues(string(phase)).Add(float64(n))
	}
	logger.Info("user deletion completed",
		slog.Int64("recordsAffected", deleted),
		slog.Duration("duration", elapsed),
	)
	return deleted, nil
}

// run executes every phase in one transaction. It returns the users rows
// deleted and the rows touched per phase.
func (s *UserDeletionService) run(ctx context.Context, logger *slog.Logger, userID uuid.UUID) (int64, map[Phase]int64, error) {
	fail := func(phase Phase, err error) (int64, map[Phase]int64, error) {
		return 0, nil, &PhaseError{Phase: phase, UserID: userID, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(PhaseBegin, err)
	}
	tx, err := s.store.BeginDeletion(ctx)
	if err != nil {
		return fail(PhaseBegin, err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() {
		if err := tx.Rollback(); err != nil {
			logger.Error("user deletion rollback failed", slog.String("error", err.Error()))
		}
	}()

	exists, err := tx.UserExists(ctx, userID)
	if err != nil {
		return fail(PhaseLookup, err)
	}
	if !exists {
		return 0, nil, nil
	}

	phases := []struct {
		name Phase
		run  phaseFunc
	}{
		{PhaseHardDelete, s.hardDelete},
		{PhaseAnonymizeRequired, s.anonymizeRequired},
		{PhaseAnonymizePhotos, s.anonymizePhotos},
		{PhaseNullReferences, s.nullReferences},
		{PhaseAnonymizeWaivers, s.anonymizeWaivers},
		{PhaseAuditSweep, s.auditSweep},
		{PhaseTeamLeadTransfer, s.transferTeamLeads(logger)},
		{PhaseDeleteUser, deleteUser},
	}

	rows := make(map[Phase]int64, len(phases))
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return fail(p.name, err)
		}
		n, err := p.run(ctx, tx, userID)
		if err != nil {
			return fail(p.name, err)
		}
		rows[p.name] = n
		logger.Info("user deletion phase done",
			slog.String("phase", string(p.name)),
			slog.Int64("rowsAffected", n),
		)
	}

	if err := ctx.Err(); err != nil {
		return fail(PhaseCommit, err)
	}
	if err := tx.Commit(); err != nil {
		return fail(PhaseCommit, err)
	}
	return rows[PhaseDeleteUser], rows, nil
}

// hardDelete removes rows that only make sense while the user exists.
func (s *UserDeletionService) hardDelete(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
	var total int64
	for _, table := range hardDeleteTables {
		n, err := tx.DeleteWhere(ctx, table, hardDeleteColumn, userID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *UserDeletionService) anonymizeRequired(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
	return s.applyRewrites(ctx, tx, userID, requiredReferenceRewrites)
}

// anonymizePhotos issues one statement per photo column so each column is
// judged on its own.
func (s *UserDeletionService) anonymizePhotos(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
	var total int64
	for _, table := range photoTables {
		for _, t := range photoTargets {
			n, err := s.applyRewrite(ctx, tx, userID, rewrite{table: table, targets: []target{t}})
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

func (s *UserDeletionService) nullReferences(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
	return s.applyRewrites(ctx, tx, userID, nullableReferenceRewrites)
}

// anonymizeWaivers keeps signed waivers for legal retention.
func (s *UserDeletionService) anonymizeWaivers(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
	return s.applyRewrite(ctx, tx, userID, waiverRewrite)
}

// auditSweep covers the audit columns of every registered table, including the
// ones earlier phases already visited for other columns.
func (s *UserDeletionService) auditSweep(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
	var total int64
	for _, t := range schema.Tables {
		n, err := s.applyRewrite(ctx, tx, userID, rewrite{
			table: t.Name,
			targets: []target{
				anonymize(schema.ColumnCreatedByUserID),
				anonymize(schema.ColumnLastUpdatedByUserID),
			},
		})
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// transferTeamLeads hands each team the user leads to its longest-standing other
// member. A team with nobody else is left without a lead.
func (s *UserDeletionService) transferTeamLeads(logger *slog.Logger) phaseFunc {
	return func(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
		leads, err := tx.TeamLeadMemberships(ctx, userID)
		if err != nil {
			return 0, err
		}

		var promoted int64
		for _, m := range leads {
			next, err := tx.EarliestOtherMember(ctx, m.TeamID, userID)
			if err != nil {
				return promoted, err
			}
			if next == nil {
				logger.Info("team left without a lead", slog.String("teamID", m.TeamID.String()))
				continue
			}
			if err := tx.PromoteTeamLead(ctx, next.ID); err != nil {
				return promoted, err
			}
			logger.Info("team lead transferred",
				slog.String("teamID", m.TeamID.String()),
				slog.String("newLeadUserID", next.UserID.String()),
			)
			promoted++
		}
		return promoted, nil
	}
}

// Memberships go with the user row (ON DELETE CASCADE).
func deleteUser(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID) (int64, error) {
	return tx.DeleteUser(ctx, userID)
}

func (s *UserDeletionService) applyRewrites(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID, rewrites []rewrite) (int64, error) {
	var total int64
	for _, r := range rewrites {
		n, err := s.applyRewrite(ctx, tx, userID, r)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *UserDeletionService) applyRewrite(ctx context.Context, tx repository.DeletionTx, userID uuid.UUID, r rewrite) (int64, error) {
	return tx.Reassign(ctx, r.table, userID, r.assignments(s.anonymousID)...)
}
