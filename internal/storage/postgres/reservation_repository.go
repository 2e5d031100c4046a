package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
)

const reservationColumns = `id, tenant_id, variant_id, quantity, order_id, status, COALESCE(release_reason, ''), expires_at, created_at, updated_at`

// ReservationRepository persists individual holds. Status transitions are
// compare-and-set updates keyed on the row still being ACTIVE, which makes
// the transition itself the race arbiter between commit, release and sweep.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) Create(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, tenant_id, variant_id, quantity, order_id, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.TenantID,
		res.VariantID,
		res.Quantity,
		res.OrderID,
		res.Status,
		res.ExpiresAt,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create reservation: duplicate id: %w", err)
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := r.scanOne(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// MarkCommitted transitions ACTIVE -> COMMITTED and sets the order id.
// Returns false when the row was not ACTIVE anymore; the caller re-reads
// to decide between idempotent success and rejection.
func (r *ReservationRepository) MarkCommitted(ctx context.Context, id, orderID string, now time.Time) (bool, error) {
	const stmt = `
UPDATE reservations
SET status = $3, order_id = $2, updated_at = $4
WHERE id = $1 AND status = $5`

	tag, err := r.exec(ctx, stmt, id, orderID, domain.ReservationStatusCommitted, now, domain.ReservationStatusActive)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark committed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkReleased transitions ACTIVE -> RELEASED, recording why. Returns
// false when the row already left ACTIVE.
func (r *ReservationRepository) MarkReleased(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	const stmt = `
UPDATE reservations
SET status = $2, release_reason = $3, updated_at = $4
WHERE id = $1 AND status = $5`

	tag, err := r.exec(ctx, stmt, id, domain.ReservationStatusReleased, reason, now, domain.ReservationStatusActive)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark released: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpired returns at most limit ACTIVE reservations whose deadline has
// passed, oldest expiry first.
func (r *ReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	query := `
SELECT ` + reservationColumns + `
FROM reservations
WHERE status = $1 AND expires_at <= $2
ORDER BY expires_at
LIMIT $3`

	rows, err := r.query(ctx, query, domain.ReservationStatusActive, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListByOrder returns the reservations committed under an order, for
// release-on-cancel and restock flows owned by the order workflow.
func (r *ReservationRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.query(ctx, query, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list by order: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *ReservationRepository) scanAll(rows pgx.Rows) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for rows.Next() {
		res, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}

func (r *ReservationRepository) scanOne(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	var status string
	err := row.Scan(
		&res.ID,
		&res.TenantID,
		&res.VariantID,
		&res.Quantity,
		&res.OrderID,
		&status,
		&res.ReleaseReason,
		&res.ExpiresAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.ReservationStatus(status)
	return res, nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
