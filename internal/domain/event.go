package domain

import "time"

type ReservationEventType string

const (
	ReservationEventReserved  ReservationEventType = "reserved"
	ReservationEventCommitted ReservationEventType = "committed"
	ReservationEventReleased  ReservationEventType = "released"
)

// ReservationEvent describes a lifecycle change for downstream consumers
// (order workflow, notifications). Published best effort after the owning
// transaction commits.
type ReservationEvent struct {
	Type          ReservationEventType `json:"type"`
	ReservationID string               `json:"reservation_id"`
	TenantID      string               `json:"tenant_id"`
	VariantID     string               `json:"variant_id"`
	Quantity      int                  `json:"quantity"`
	OrderID       *string              `json:"order_id,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}
