package app

import (
	"context"
	"testing"
	"time"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/clock"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/events"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/sweeper"
)

func TestExpiredReservation_SweepRestoresAvailability(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	makeFixture := func() (*ReservationService, *sweeper.Sweeper, *clock.Stepping, *fakeStore) {
		clk := clock.NewStepping(now)
		ledger := newFakeLedger(map[string]domain.VariantStock{
			stockKey("tenant-1", "variant-1"): {TenantID: "tenant-1", VariantID: "variant-1", TotalStock: 10},
		})
		store := newFakeStore()
		svc := NewReservationService(store, ledger, clk, WithEventPublisher(events.Nop{}))
		sweep := sweeper.New(svc, time.Second, 100)
		return svc, sweep, clk, store
	}

	t.Run("expired hold is released and stock comes back", func(t *testing.T) {
		svc, sweep, clk, store := makeFixture()

		res, err := svc.Reserve(context.Background(), ReserveInput{
			TenantID:  "tenant-1",
			VariantID: "variant-1",
			Quantity:  4,
			TTL:       time.Minute,
		})
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}

		available, err := svc.AvailableStock(context.Background(), "tenant-1", "variant-1")
		if err != nil {
			t.Fatalf("available stock: %v", err)
		}
		if available != 6 {
			t.Fatalf("expected 6 available while held, got %d", available)
		}

		clk.Advance(2 * time.Minute)

		released, err := sweep.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if released != 1 {
			t.Fatalf("expected 1 reservation released, got %d", released)
		}

		available, err = svc.AvailableStock(context.Background(), "tenant-1", "variant-1")
		if err != nil {
			t.Fatalf("available stock after sweep: %v", err)
		}
		if available != 10 {
			t.Fatalf("expected 10 available after sweep, got %d", available)
		}

		stored := store.reservations[res.ID]
		if stored.Status != domain.ReservationStatusReleased {
			t.Fatalf("expected RELEASED, got %s", stored.Status)
		}
		if stored.ReleaseReason != sweeper.ReleaseReason {
			t.Fatalf("expected release reason %q, got %q", sweeper.ReleaseReason, stored.ReleaseReason)
		}
	})

	t.Run("zero ttl hold is reclaimed by the next sweep", func(t *testing.T) {
		svc, sweep, _, _ := makeFixture()

		if _, err := svc.Reserve(context.Background(), ReserveInput{
			TenantID:  "tenant-1",
			VariantID: "variant-1",
			Quantity:  3,
			TTL:       0,
		}); err != nil {
			t.Fatalf("reserve: %v", err)
		}

		released, err := sweep.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if released != 1 {
			t.Fatalf("expected 1 reservation released, got %d", released)
		}

		available, err := svc.AvailableStock(context.Background(), "tenant-1", "variant-1")
		if err != nil {
			t.Fatalf("available stock after sweep: %v", err)
		}
		if available != 10 {
			t.Fatalf("expected full availability restored, got %d", available)
		}
	})

	t.Run("hold committed before the sweep is not reclaimed", func(t *testing.T) {
		svc, sweep, clk, _ := makeFixture()

		res, err := svc.Reserve(context.Background(), ReserveInput{
			TenantID:  "tenant-1",
			VariantID: "variant-1",
			Quantity:  2,
			TTL:       time.Minute,
		})
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}

		clk.Advance(2 * time.Minute)

		if _, err := svc.Commit(context.Background(), res.ID, "order-1"); err != nil {
			t.Fatalf("commit: %v", err)
		}

		released, err := sweep.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if released != 0 {
			t.Fatalf("expected nothing released, got %d", released)
		}

		available, err := svc.AvailableStock(context.Background(), "tenant-1", "variant-1")
		if err != nil {
			t.Fatalf("available stock: %v", err)
		}
		if available != 8 {
			t.Fatalf("expected 8 available after commit, got %d", available)
		}
	})
}
