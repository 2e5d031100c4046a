// Package sweeper reclaims stock held by reservations whose caller never
// followed up. It is a best-effort scavenger: correctness lives in the
// conditional updates of the ledger and store, not in sweep timing.
package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/metrics"
)

// ReleaseReason is recorded on every reservation the sweeper reclaims.
const ReleaseReason = "expired"

// ReservationReleaser is the slice of the reservation service the sweeper
// needs: find expired holds and release them one by one.
type ReservationReleaser interface {
	ExpiredReservations(ctx context.Context, limit int) ([]domain.Reservation, error)
	Release(ctx context.Context, reservationID, reason string) (domain.Reservation, error)
}

type Sweeper struct {
	svc       ReservationReleaser
	interval  time.Duration
	batchSize int
	locker    *redislock.Client
	lockKey   string
	lockTTL   time.Duration
	logger    zerolog.Logger

	inFlight atomic.Bool
}

type Option func(*Sweeper)

// WithLocker enables a cross-process lease so only one instance sweeps at
// a time. Without it the sweeper still guards against overlapping cycles
// within the process.
func WithLocker(locker *redislock.Client, key string, ttl time.Duration) Option {
	return func(s *Sweeper) {
		s.locker = locker
		s.lockKey = key
		s.lockTTL = ttl
	}
}

func WithSweeperLogger(logger zerolog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func New(svc ReservationReleaser, interval time.Duration, batchSize int, opts ...Option) *Sweeper {
	s := &Sweeper{
		svc:       svc,
		interval:  interval,
		batchSize: batchSize,
		lockKey:   "inventory:sweep",
		lockTTL:   30 * time.Second,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep cycle failed")
			}
		}
	}
}

// RunOnce performs a single sweep cycle and returns the number of
// reservations it released. A cycle overlapping an in-flight one is
// skipped, not queued.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.SweepCyclesTotal.WithLabelValues("skipped").Inc()
		s.logger.Debug().Msg("sweep already in flight, skipping cycle")
		return 0, nil
	}
	defer s.inFlight.Store(false)

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, s.lockKey, s.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			metrics.SweepCyclesTotal.WithLabelValues("skipped").Inc()
			s.logger.Debug().Msg("sweep lease held elsewhere, skipping cycle")
			return 0, nil
		}
		if err != nil {
			// Best effort: a broken lock backend must not stop expiry
			// reclaim; releases stay race-safe through compare-and-set.
			s.logger.Warn().Err(err).Msg("sweep lease unavailable, proceeding without it")
		} else {
			defer func() {
				if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
					s.logger.Warn().Err(err).Msg("release sweep lease failed")
				}
			}()
		}
	}

	expired, err := s.svc.ExpiredReservations(ctx, s.batchSize)
	if err != nil {
		metrics.SweepCyclesTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	released := 0
	for _, res := range expired {
		if _, err := s.svc.Release(ctx, res.ID, ReleaseReason); err != nil {
			// A hold committed between selection and release loses
			// eligibility; commit wins and the sweeper moves on.
			if errors.Is(err, domain.ErrInvalidStateTransition) || errors.Is(err, domain.ErrReservationNotFound) {
				continue
			}
			s.logger.Error().Err(err).Str("reservation_id", res.ID).Msg("release expired reservation failed")
			continue
		}
		released++
	}

	metrics.SweepCyclesTotal.WithLabelValues("ok").Inc()
	metrics.SweepReleasedTotal.Add(float64(released))
	s.logger.Info().
		Int("expired", len(expired)).
		Int("released", released).
		Msg("sweep cycle complete")
	return released, nil
}
