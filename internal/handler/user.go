package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trashmob-eco/trashmob/internal/apperror"
	"github.com/trashmob-eco/trashmob/internal/auth"
	"github.com/trashmob-eco/trashmob/internal/model"
)

// ProfileReader loads the caller's user record.
type ProfileReader interface {
	Profile(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// UserDeleter removes a user and everything that identifies them.
// It returns the number of users rows deleted (0 when there was no such user).
type UserDeleter interface {
	DeleteUserData(ctx context.Context, userID uuid.UUID) (int64, error)
}

// DeleteResponse is returned by both delete endpoints.
type DeleteResponse struct {
	RecordsAffected int64 `json:"recordsAffected"`
}

// UserHandler serves the caller's profile and the account deletion endpoints.
type UserHandler struct {
	profiles ProfileReader
	deleter  UserDeleter
	timeout  time.Duration
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler. Each deletion runs under timeout;
// zero means only the request context bounds it.
func NewUserHandler(profiles ProfileReader, deleter UserDeleter, timeout time.Duration, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		deleter:  deleter,
		timeout:  timeout,
		logger:   logger,
	}
}

// HandleGetMe returns the authenticated user's profile.
//
// HTTP: GET /api/me
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		h.logger.Warn("profile lookup failed",
			slog.String("userID", userID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteMe deletes the authenticated user's own account.
//
// HTTP: DELETE /api/me
func (h *UserHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	h.deleteUser(w, r, userID)
}

// HandleDeleteUser deletes any user. Routed behind RequireSiteAdmin.
//
// HTTP: DELETE /api/admin/users/{id}
func (h *UserHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	userID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, apperror.ValidationFailed("id", "id must be a UUID"))
		return
	}

	if caller, ok := auth.UserIDFromContext(r.Context()); ok {
		h.logger.Info("admin user deletion requested",
			slog.String("adminID", caller.String()),
			slog.String("userID", userID.String()),
		)
	}

	h.deleteUser(w, r, userID)
}

func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	n, err := h.deleter.DeleteUserData(ctx, userID)
	if err != nil {
		// The service has already logged the failing phase.
		writeError(w, err)
		return
	}
	if n == 0 {
		writeError(w, apperror.NotFound("user", userID.String()))
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{RecordsAffected: n})
}
