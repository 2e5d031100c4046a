package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/clock"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/metrics"
)

// ReservationStore persists holds. Status transitions are compare-and-set
// on the row still being ACTIVE; the returned bool reports whether the
// transition applied.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, res domain.Reservation) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
	MarkCommitted(ctx context.Context, id, orderID string, now time.Time) (bool, error)
	MarkReleased(ctx context.Context, id, reason string, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Reservation, error)
}

// StockLedger is the authority for total/reserved counters per variant.
type StockLedger interface {
	TryReserve(ctx context.Context, tenantID, variantID string, qty int) (bool, error)
	CommitReduction(ctx context.Context, tenantID, variantID string, qty int) error
	ReleaseReservedQuantity(ctx context.Context, tenantID, variantID string, qty int) error
	AvailableStock(ctx context.Context, tenantID, variantID string) (int, error)
}

// EventPublisher emits lifecycle events after a mutation's transaction
// committed. Failures are logged, never propagated to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ReservationEvent) error
}

// AvailabilityCache is an optional read cache for availability queries.
// It is read-only with respect to correctness: every mutation invalidates
// the variant's entry and the ledger remains the authority.
type AvailabilityCache interface {
	Get(ctx context.Context, tenantID, variantID string) (int, bool, error)
	Set(ctx context.Context, tenantID, variantID string, available int) error
	Invalidate(ctx context.Context, tenantID, variantID string) error
}

type ReservationService struct {
	store  ReservationStore
	ledger StockLedger
	clock  clock.Clock
	events EventPublisher
	cache  AvailabilityCache
	logger zerolog.Logger
}

type ReservationServiceOption func(*ReservationService)

// WithEventPublisher wires a lifecycle event sink.
func WithEventPublisher(p EventPublisher) ReservationServiceOption {
	return func(s *ReservationService) {
		s.events = p
	}
}

// WithAvailabilityCache enables the read cache for AvailableStock.
func WithAvailabilityCache(c AvailabilityCache) ReservationServiceOption {
	return func(s *ReservationService) {
		s.cache = c
	}
}

func WithLogger(logger zerolog.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		s.logger = logger
	}
}

func NewReservationService(store ReservationStore, ledger StockLedger, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		store:  store,
		ledger: ledger,
		clock:  clk,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReserveInput struct {
	TenantID  string
	VariantID string
	Quantity  int
	TTL       time.Duration
}

// Reserve places a hold on available stock. The conditional ledger update
// and the reservation insert share one transaction, so a failed reserve
// leaves no row behind. A zero TTL creates a hold that is already
// eligible for the next sweep.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	if in.TenantID == "" || in.VariantID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	if in.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	if in.TTL < 0 {
		return domain.Reservation{}, domain.ErrInvalidTTL
	}

	now := s.clock.Now()
	var res domain.Reservation

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.ledger.TryReserve(txCtx, in.TenantID, in.VariantID, in.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInsufficientStock
		}

		res = domain.Reservation{
			ID:        newID(),
			TenantID:  in.TenantID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			Status:    domain.ReservationStatusActive,
			ExpiresAt: now.Add(in.TTL),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.store.Create(txCtx, res)
	})
	if err != nil {
		s.observeFailure(ctx, "reserve", err)
		return domain.Reservation{}, err
	}

	metrics.OperationsTotal.WithLabelValues("reserve", "ok").Inc()
	s.afterMutation(ctx, domain.ReservationEvent{
		Type:          domain.ReservationEventReserved,
		ReservationID: res.ID,
		TenantID:      res.TenantID,
		VariantID:     res.VariantID,
		Quantity:      res.Quantity,
		OccurredAt:    now,
	})
	return res, nil
}

// Commit converts an ACTIVE hold into a permanent stock reduction tied to
// an order. Repeating a commit with the same order id is a no-op success;
// any other transition out of a terminal state is rejected.
func (s *ReservationService) Commit(ctx context.Context, reservationID, orderID string) (domain.Reservation, error) {
	if reservationID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	if orderID == "" {
		return domain.Reservation{}, domain.ErrOrderIDRequired
	}

	now := s.clock.Now()
	var res domain.Reservation
	applied := false

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		cur, err := s.store.Get(txCtx, reservationID)
		if err != nil {
			return err
		}

		switch cur.Status {
		case domain.ReservationStatusCommitted:
			if cur.OrderID != nil && *cur.OrderID == orderID {
				res = cur
				return nil
			}
			return domain.ErrInvalidStateTransition
		case domain.ReservationStatusReleased:
			return domain.ErrInvalidStateTransition
		}

		ok, err := s.store.MarkCommitted(txCtx, reservationID, orderID, now)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race between read and update; re-read decides.
			cur, err = s.store.Get(txCtx, reservationID)
			if err != nil {
				return err
			}
			if cur.Status == domain.ReservationStatusCommitted && cur.OrderID != nil && *cur.OrderID == orderID {
				res = cur
				return nil
			}
			return domain.ErrInvalidStateTransition
		}

		if err := s.ledger.CommitReduction(txCtx, cur.TenantID, cur.VariantID, cur.Quantity); err != nil {
			return err
		}

		res = cur
		res.Status = domain.ReservationStatusCommitted
		res.OrderID = &orderID
		res.UpdatedAt = now
		applied = true
		return nil
	})
	if err != nil {
		s.observeFailure(ctx, "commit", err)
		return domain.Reservation{}, err
	}

	metrics.OperationsTotal.WithLabelValues("commit", "ok").Inc()
	if applied {
		s.afterMutation(ctx, domain.ReservationEvent{
			Type:          domain.ReservationEventCommitted,
			ReservationID: res.ID,
			TenantID:      res.TenantID,
			VariantID:     res.VariantID,
			Quantity:      res.Quantity,
			OrderID:       res.OrderID,
			OccurredAt:    now,
		})
	}
	return res, nil
}

// Release returns an ACTIVE hold's quantity to available stock. Releasing
// an already RELEASED reservation is a no-op success; a COMMITTED one is
// rejected, committed stock comes back through a restock flow instead.
func (s *ReservationService) Release(ctx context.Context, reservationID, reason string) (domain.Reservation, error) {
	if reservationID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var res domain.Reservation
	applied := false

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		cur, err := s.store.Get(txCtx, reservationID)
		if err != nil {
			return err
		}

		switch cur.Status {
		case domain.ReservationStatusReleased:
			res = cur
			return nil
		case domain.ReservationStatusCommitted:
			return domain.ErrInvalidStateTransition
		}

		ok, err := s.store.MarkReleased(txCtx, reservationID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			cur, err = s.store.Get(txCtx, reservationID)
			if err != nil {
				return err
			}
			if cur.Status == domain.ReservationStatusReleased {
				res = cur
				return nil
			}
			return domain.ErrInvalidStateTransition
		}

		if err := s.ledger.ReleaseReservedQuantity(txCtx, cur.TenantID, cur.VariantID, cur.Quantity); err != nil {
			return err
		}

		res = cur
		res.Status = domain.ReservationStatusReleased
		res.ReleaseReason = reason
		res.UpdatedAt = now
		applied = true
		return nil
	})
	if err != nil {
		s.observeFailure(ctx, "release", err)
		return domain.Reservation{}, err
	}

	metrics.OperationsTotal.WithLabelValues("release", "ok").Inc()
	if applied {
		s.afterMutation(ctx, domain.ReservationEvent{
			Type:          domain.ReservationEventReleased,
			ReservationID: res.ID,
			TenantID:      res.TenantID,
			VariantID:     res.VariantID,
			Quantity:      res.Quantity,
			Reason:        reason,
			OccurredAt:    now,
		})
	}
	return res, nil
}

// AvailableStock reads total minus reserved for a variant. When the cache
// is enabled a hit short-circuits the ledger read; callers that gate
// further reservations run with the cache disabled.
func (s *ReservationService) AvailableStock(ctx context.Context, tenantID, variantID string) (int, error) {
	if tenantID == "" || variantID == "" {
		return 0, domain.ErrInvalidID
	}

	if s.cache != nil {
		if available, ok, err := s.cache.Get(ctx, tenantID, variantID); err != nil {
			s.logger.Warn().Err(err).Str("variant_id", variantID).Msg("availability cache read failed")
		} else if ok {
			return available, nil
		}
	}

	available, err := s.ledger.AvailableStock(ctx, tenantID, variantID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, variantID, available); err != nil {
			s.logger.Warn().Err(err).Str("variant_id", variantID).Msg("availability cache write failed")
		}
	}
	return available, nil
}

// ExpiredReservations returns at most limit ACTIVE holds past their
// deadline, oldest first. Used by the expiry sweeper.
func (s *ReservationService) ExpiredReservations(ctx context.Context, limit int) ([]domain.Reservation, error) {
	return s.store.ListExpired(ctx, s.clock.Now(), limit)
}

// ReservationsByOrder returns the holds committed under an order, for
// cancellation and restock flows owned by the order workflow.
func (s *ReservationService) ReservationsByOrder(ctx context.Context, orderID string) ([]domain.Reservation, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.store.ListByOrder(ctx, orderID)
}

func (s *ReservationService) observeFailure(ctx context.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		metrics.OperationsTotal.WithLabelValues(op, "insufficient_stock").Inc()
	case errors.Is(err, domain.ErrInvalidStateTransition):
		metrics.OperationsTotal.WithLabelValues(op, "invalid_transition").Inc()
	case errors.Is(err, domain.ErrLedgerInvariant):
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
		metrics.LedgerInvariantViolationsTotal.Inc()
		s.logger.Error().Err(err).Str("operation", op).Msg("ledger invariant violated")
	default:
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
	}
}

func (s *ReservationService) afterMutation(ctx context.Context, event domain.ReservationEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, event.TenantID, event.VariantID); err != nil {
			s.logger.Warn().Err(err).Str("variant_id", event.VariantID).Msg("availability cache invalidation failed")
		}
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Error().Err(err).
				Str("type", string(event.Type)).
				Str("reservation_id", event.ReservationID).
				Msg("publish reservation event failed")
		}
	}
}
