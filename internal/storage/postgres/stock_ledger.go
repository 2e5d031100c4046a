package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
)

// StockLedger owns the total/reserved counters in variant_stock. Every
// mutation is a single conditional UPDATE whose success is judged by the
// affected row count, so concurrent mutators of the same variant are
// linearized by the database without an explicit row lock.
type StockLedger struct {
	pool *pgxpool.Pool
}

func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{pool: pool}
}

// TryReserve increments reserved_stock by qty only if enough stock is
// available. Returns false without mutating anything when it is not.
func (l *StockLedger) TryReserve(ctx context.Context, tenantID, variantID string, qty int) (bool, error) {
	const stmt = `
UPDATE variant_stock
SET reserved_stock = reserved_stock + $3, updated_at = NOW()
WHERE tenant_id = $1 AND variant_id = $2 AND total_stock - reserved_stock >= $3`

	tag, err := l.exec(ctx, stmt, tenantID, variantID, qty)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("try reserve: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Zero rows is either insufficiency or an unknown variant.
	if _, err := l.get(ctx, tenantID, variantID); err != nil {
		return false, err
	}
	return false, nil
}

// CommitReduction converts reserved units into a permanent stock
// reduction: both counters decrease by qty. A zero-row update against an
// existing variant means the counters no longer cover the reservation,
// which indicates a bug elsewhere.
func (l *StockLedger) CommitReduction(ctx context.Context, tenantID, variantID string, qty int) error {
	const stmt = `
UPDATE variant_stock
SET total_stock = total_stock - $3, reserved_stock = reserved_stock - $3, updated_at = NOW()
WHERE tenant_id = $1 AND variant_id = $2 AND total_stock >= $3 AND reserved_stock >= $3`

	tag, err := l.exec(ctx, stmt, tenantID, variantID, qty)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("commit reduction: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := l.get(ctx, tenantID, variantID); err != nil {
		return err
	}
	return domain.ErrLedgerInvariant
}

// ReleaseReservedQuantity gives reserved units back, floored at zero.
func (l *StockLedger) ReleaseReservedQuantity(ctx context.Context, tenantID, variantID string, qty int) error {
	const stmt = `
UPDATE variant_stock
SET reserved_stock = GREATEST(reserved_stock - $3, 0), updated_at = NOW()
WHERE tenant_id = $1 AND variant_id = $2`

	tag, err := l.exec(ctx, stmt, tenantID, variantID, qty)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("release reserved quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

// AvailableStock reads total minus reserved, clamped at zero. The read
// goes to the ledger row, so it reflects every committed write.
func (l *StockLedger) AvailableStock(ctx context.Context, tenantID, variantID string) (int, error) {
	const query = `
SELECT GREATEST(total_stock - reserved_stock, 0)
FROM variant_stock
WHERE tenant_id = $1 AND variant_id = $2`

	var available int
	if err := l.queryRow(ctx, query, tenantID, variantID).Scan(&available); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrVariantNotFound
		}
		return 0, fmt.Errorf("available stock: %w", err)
	}
	return available, nil
}

// GetVariantStock returns the raw counters for one variant.
func (l *StockLedger) GetVariantStock(ctx context.Context, tenantID, variantID string) (domain.VariantStock, error) {
	return l.get(ctx, tenantID, variantID)
}

// UpsertTotalStock sets total_stock for a variant, creating the row when
// missing. The update refuses a total below the currently reserved
// quantity so the ledger invariant holds through catalog restocks.
func (l *StockLedger) UpsertTotalStock(ctx context.Context, tenantID, variantID string, total int) (domain.VariantStock, error) {
	const stmt = `
INSERT INTO variant_stock (tenant_id, variant_id, total_stock, reserved_stock)
VALUES ($1, $2, $3, 0)
ON CONFLICT (tenant_id, variant_id)
DO UPDATE SET total_stock = EXCLUDED.total_stock, updated_at = NOW()
WHERE variant_stock.reserved_stock <= EXCLUDED.total_stock
RETURNING tenant_id, variant_id, total_stock, reserved_stock, updated_at`

	var v domain.VariantStock
	err := l.queryRow(ctx, stmt, tenantID, variantID, total).
		Scan(&v.TenantID, &v.VariantID, &v.TotalStock, &v.ReservedStock, &v.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.VariantStock{}, domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return domain.VariantStock{}, domain.ErrInvalidTotalStock
		}
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict row exists but reserved_stock exceeds the new total.
			return domain.VariantStock{}, domain.ErrLedgerInvariant
		}
		return domain.VariantStock{}, fmt.Errorf("upsert total stock: %w", err)
	}
	return v, nil
}

func (l *StockLedger) get(ctx context.Context, tenantID, variantID string) (domain.VariantStock, error) {
	const query = `
SELECT tenant_id, variant_id, total_stock, reserved_stock, updated_at
FROM variant_stock
WHERE tenant_id = $1 AND variant_id = $2`

	var v domain.VariantStock
	err := l.queryRow(ctx, query, tenantID, variantID).
		Scan(&v.TenantID, &v.VariantID, &v.TotalStock, &v.ReservedStock, &v.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.VariantStock{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VariantStock{}, domain.ErrVariantNotFound
		}
		return domain.VariantStock{}, fmt.Errorf("get variant stock: %w", err)
	}
	return v, nil
}

func (l *StockLedger) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return l.pool.Exec(ctx, sql, args...)
}

func (l *StockLedger) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return l.pool.QueryRow(ctx, sql, args...)
}
