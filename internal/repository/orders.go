package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
)

// ListFilter narrows a paginated order listing. Zero values mean no filter.
type ListFilter struct {
	Status    string
	OrderType string
	Limit     int
	Offset    int
}

type OrderRepository interface {
	Create(ctx context.Context, o *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)
	List(ctx context.Context, f ListFilter) ([]*entity.Order, int, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.OrderStatus) error
}

type orderRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewOrderRepository(db *DB, logger *slog.Logger) OrderRepository {
	return &orderRepo{db: db, logger: logger}
}

const orderColumns = `id, order_number, patient_first_name, patient_last_name,
	patient_date_of_birth, order_type, status, total_amount, notes,
	extraction_method, confidence_score, created_at, updated_at`

func (r *orderRepo) Create(ctx context.Context, o *entity.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	query := r.db.rebind(`INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, query,
		o.ID, o.OrderNumber, o.PatientFirstName, o.PatientLastName,
		o.PatientDateOfBirth, o.OrderType, string(o.Status), o.TotalAmount,
		o.Notes, o.ExtractionMethod, o.ConfidenceScore, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create order", "order_number", o.OrderNumber, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	query := r.db.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)
	return r.scanOne(r.db.SQL.QueryRowContext(ctx, query, id))
}

func (r *orderRepo) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	query := r.db.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE order_number = ?`)
	return r.scanOne(r.db.SQL.QueryRowContext(ctx, query, number))
}

// List returns a page of orders newest first, plus the total count for the
// same filter.
func (r *orderRepo) List(ctx context.Context, f ListFilter) ([]*entity.Order, int, error) {
	where := ""
	var args []any
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.OrderType != "" {
		where += " AND order_type = ?"
		args = append(args, f.OrderType)
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}

	var total int
	countQuery := r.db.rebind(`SELECT COUNT(*) FROM orders WHERE 1=1` + where)
	if err := r.db.SQL.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count orders", "error", err)
		return nil, 0, common.WrapError(common.ErrDatabase, err.Error())
	}

	query := r.db.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE 1=1` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	rows, err := r.db.SQL.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		r.logger.Error("failed to list orders", "error", err)
		return nil, 0, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, total, nil
}

func (r *orderRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Order, error) {
	query := r.db.rebind(`SELECT ` + orderColumns + ` FROM orders
		WHERE created_at >= ? AND created_at < ? ORDER BY created_at`)
	rows, err := r.db.SQL.QueryContext(ctx, query, from, to)
	if err != nil {
		r.logger.Error("failed to list orders", "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.OrderStatus) error {
	query := r.db.rebind(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.SQL.ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("failed to update order status", "id", id, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.WrapError(common.ErrNotFound, "order not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepo) scanOne(row rowScanner) (*entity.Order, error) {
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.WrapError(common.ErrNotFound, "order not found")
	}
	if err != nil {
		r.logger.Error("failed to scan order", "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return o, nil
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var o entity.Order
	var status string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.PatientFirstName, &o.PatientLastName,
		&o.PatientDateOfBirth, &o.OrderType, &status, &o.TotalAmount,
		&o.Notes, &o.ExtractionMethod, &o.ConfidenceScore, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = constants.OrderStatus(status)
	return &o, nil
}
