package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
)

type ActivityLogRepository interface {
	Insert(ctx context.Context, row *entity.ActivityLog) error
}

type activityRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewActivityLogRepository(db *DB, logger *slog.Logger) ActivityLogRepository {
	return &activityRepo{db: db, logger: logger}
}

// Insert records one API call. Callers treat failures as best-effort; a lost
// activity row must never fail the request it describes.
func (r *activityRepo) Insert(ctx context.Context, row *entity.ActivityLog) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	query := r.db.rebind(`INSERT INTO activity_logs
		(id, endpoint, method, status_code, ip_address, user_agent,
		 request_body, response_time_ms, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, query,
		row.ID, row.Endpoint, row.Method, row.StatusCode, row.IPAddress,
		row.UserAgent, row.RequestBody, row.ResponseTimeMS, row.ErrorMessage,
		row.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert activity log", "endpoint", row.Endpoint, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}
