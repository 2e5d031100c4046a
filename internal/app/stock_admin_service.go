package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
)

// StockAdminLedger is the catalog-facing slice of the stock ledger.
type StockAdminLedger interface {
	UpsertTotalStock(ctx context.Context, tenantID, variantID string, total int) (domain.VariantStock, error)
	GetVariantStock(ctx context.Context, tenantID, variantID string) (domain.VariantStock, error)
}

// StockAdminService lets the catalog initialize and adjust total stock.
// The engine itself only ever decreases totals through commits.
type StockAdminService struct {
	ledger StockAdminLedger
	cache  AvailabilityCache
	logger zerolog.Logger
}

type StockAdminOption func(*StockAdminService)

func WithAdminCache(c AvailabilityCache) StockAdminOption {
	return func(s *StockAdminService) {
		s.cache = c
	}
}

func WithAdminLogger(logger zerolog.Logger) StockAdminOption {
	return func(s *StockAdminService) {
		s.logger = logger
	}
}

func NewStockAdminService(ledger StockAdminLedger, opts ...StockAdminOption) *StockAdminService {
	svc := &StockAdminService{
		ledger: ledger,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SetTotalStock upserts a variant's total. Totals below the currently
// reserved quantity are rejected by the ledger.
func (s *StockAdminService) SetTotalStock(ctx context.Context, tenantID, variantID string, total int) (domain.VariantStock, error) {
	if tenantID == "" || variantID == "" {
		return domain.VariantStock{}, domain.ErrInvalidID
	}
	if total < 0 {
		return domain.VariantStock{}, domain.ErrInvalidTotalStock
	}

	stock, err := s.ledger.UpsertTotalStock(ctx, tenantID, variantID, total)
	if err != nil {
		return domain.VariantStock{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, tenantID, variantID); err != nil {
			s.logger.Warn().Err(err).Str("variant_id", variantID).Msg("availability cache invalidation failed")
		}
	}
	return stock, nil
}

// GetStock returns the raw counters for operators.
func (s *StockAdminService) GetStock(ctx context.Context, tenantID, variantID string) (domain.VariantStock, error) {
	if tenantID == "" || variantID == "" {
		return domain.VariantStock{}, domain.ErrInvalidID
	}
	return s.ledger.GetVariantStock(ctx, tenantID, variantID)
}
