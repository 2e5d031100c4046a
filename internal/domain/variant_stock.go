package domain

import "time"

// VariantStock is the authoritative count of total and reserved units for
// one sellable variant of one tenant. Mutated only through the stock
// ledger's atomic operations.
type VariantStock struct {
	TenantID      string
	VariantID     string
	TotalStock    int
	ReservedStock int
	UpdatedAt     time.Time
}

// Available returns total minus reserved, never negative.
func (v VariantStock) Available() int {
	if avail := v.TotalStock - v.ReservedStock; avail > 0 {
		return avail
	}
	return 0
}
