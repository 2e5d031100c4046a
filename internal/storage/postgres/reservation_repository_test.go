package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/testutil"
)

func TestReservationRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	repo := NewReservationRepository(pool)

	t.Run("Create and Get roundtrip", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		now := time.Now().UTC().Truncate(time.Millisecond)
		res := domain.Reservation{
			ID:        uuid.NewString(),
			TenantID:  uuid.NewString(),
			VariantID: uuid.NewString(),
			Quantity:  3,
			Status:    domain.ReservationStatusActive,
			ExpiresAt: now.Add(10 * time.Minute),
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := repo.Get(ctx, res.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.TenantID != res.TenantID || got.Quantity != 3 || got.Status != domain.ReservationStatusActive {
			t.Fatalf("unexpected reservation: %+v", got)
		}
		if got.OrderID != nil {
			t.Fatalf("expected nil order id, got %v", *got.OrderID)
		}
	})

	t.Run("Get reports unknown reservations", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		_, err := repo.Get(ctx, uuid.NewString())
		if !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("MarkCommitted wins once", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertReservation(t, ctx, pool, domain.Reservation{
			TenantID:  uuid.NewString(),
			VariantID: uuid.NewString(),
			Quantity:  2,
			Status:    domain.ReservationStatusActive,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})

		firstOrder := uuid.NewString()
		secondOrder := uuid.NewString()

		now := time.Now().UTC()
		ok, err := repo.MarkCommitted(ctx, id, firstOrder, now)
		if err != nil {
			t.Fatalf("mark committed: %v", err)
		}
		if !ok {
			t.Fatal("expected first transition to apply")
		}

		ok, err = repo.MarkCommitted(ctx, id, secondOrder, now)
		if err != nil {
			t.Fatalf("mark committed again: %v", err)
		}
		if ok {
			t.Fatal("expected second transition to be refused")
		}

		got, err := repo.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != domain.ReservationStatusCommitted {
			t.Fatalf("expected COMMITTED, got %s", got.Status)
		}
		if got.OrderID == nil || *got.OrderID != firstOrder {
			t.Fatalf("expected %s, got %v", firstOrder, got.OrderID)
		}
	})

	t.Run("MarkReleased records the reason", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertReservation(t, ctx, pool, domain.Reservation{
			TenantID:  uuid.NewString(),
			VariantID: uuid.NewString(),
			Quantity:  1,
			Status:    domain.ReservationStatusActive,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})

		ok, err := repo.MarkReleased(ctx, id, "expired", time.Now().UTC())
		if err != nil {
			t.Fatalf("mark released: %v", err)
		}
		if !ok {
			t.Fatal("expected transition to apply")
		}

		got, err := repo.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != domain.ReservationStatusReleased || got.ReleaseReason != "expired" {
			t.Fatalf("unexpected reservation: %+v", got)
		}

		ok, err = repo.MarkReleased(ctx, id, "cancelled", time.Now().UTC())
		if err != nil {
			t.Fatalf("mark released again: %v", err)
		}
		if ok {
			t.Fatal("expected second transition to be refused")
		}
	})

	t.Run("ListExpired is bounded and oldest first", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		tenantID := uuid.NewString()
		variantID := uuid.NewString()
		now := time.Now().UTC()

		for i := 0; i < 4; i++ {
			testutil.InsertReservation(t, ctx, pool, domain.Reservation{
				TenantID:  tenantID,
				VariantID: variantID,
				Quantity:  1,
				Status:    domain.ReservationStatusActive,
				ExpiresAt: now.Add(-time.Duration(i+1) * time.Minute),
			})
		}
		// Still active, must not be picked up.
		testutil.InsertReservation(t, ctx, pool, domain.Reservation{
			TenantID:  tenantID,
			VariantID: variantID,
			Quantity:  1,
			Status:    domain.ReservationStatusActive,
			ExpiresAt: now.Add(time.Hour),
		})

		expired, err := repo.ListExpired(ctx, now, 2)
		if err != nil {
			t.Fatalf("list expired: %v", err)
		}
		if len(expired) != 2 {
			t.Fatalf("expected 2 reservations, got %d", len(expired))
		}
		if !expired[0].ExpiresAt.Before(expired[1].ExpiresAt) {
			t.Fatalf("expected oldest expiry first: %v then %v", expired[0].ExpiresAt, expired[1].ExpiresAt)
		}
	})

	t.Run("ListByOrder returns committed holds", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		orderID := uuid.NewString()
		tenantID := uuid.NewString()

		for i := 0; i < 2; i++ {
			testutil.InsertReservation(t, ctx, pool, domain.Reservation{
				TenantID:  tenantID,
				VariantID: uuid.NewString(),
				Quantity:  i + 1,
				OrderID:   &orderID,
				Status:    domain.ReservationStatusCommitted,
				ExpiresAt: time.Now().Add(10 * time.Minute),
			})
		}
		testutil.InsertReservation(t, ctx, pool, domain.Reservation{
			TenantID:  tenantID,
			VariantID: uuid.NewString(),
			Quantity:  1,
			Status:    domain.ReservationStatusActive,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})

		got, err := repo.ListByOrder(ctx, orderID)
		if err != nil {
			t.Fatalf("list by order: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 reservations, got %d", len(got))
		}
		for _, res := range got {
			if res.OrderID == nil || *res.OrderID != orderID {
				t.Fatalf("unexpected order id on %+v", res)
			}
		}
	})

	t.Run("WithTx rolls back on error", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		id := uuid.NewString()
		sentinel := errors.New("boom")
		err := repo.WithTx(ctx, func(ctx context.Context) error {
			now := time.Now().UTC()
			if err := repo.Create(ctx, domain.Reservation{
				ID:        id,
				TenantID:  uuid.NewString(),
				VariantID: uuid.NewString(),
				Quantity:  1,
				Status:    domain.ReservationStatusActive,
				ExpiresAt: now.Add(time.Minute),
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected sentinel error, got %v", err)
		}

		if _, err := repo.Get(ctx, id); !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("expected rollback, got %v", err)
		}
	})
}
