package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCommitted ReservationStatus = "COMMITTED"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
)

// Reservation is a temporary claim against a variant's available stock.
// It is created ACTIVE and transitions exactly once to COMMITTED or
// RELEASED; both states are terminal. OrderID is set iff the reservation
// was committed.
type Reservation struct {
	ID            string
	TenantID      string
	VariantID     string
	Quantity      int
	OrderID       *string
	Status        ReservationStatus
	ReleaseReason string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether no further transitions are permitted.
func (r Reservation) Terminal() bool {
	return r.Status == ReservationStatusCommitted || r.Status == ReservationStatusReleased
}

// Expired reports whether the hold's deadline has passed. Expiry is a
// passive deadline: an expired-but-unswept reservation still counts
// against reserved stock until something releases it.
func (r Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
