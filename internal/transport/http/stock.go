package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
)

// AvailabilityReader answers availability queries.
type AvailabilityReader interface {
	AvailableStock(ctx context.Context, tenantID, variantID string) (int, error)
}

// StockAdmin is the catalog-facing stock interface.
type StockAdmin interface {
	SetTotalStock(ctx context.Context, tenantID, variantID string, total int) (domain.VariantStock, error)
	GetStock(ctx context.Context, tenantID, variantID string) (domain.VariantStock, error)
}

// HandleAvailability serves GET /availability?tenant_id=&variant_id=.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		tenantID := r.URL.Query().Get("tenant_id")
		variantID := r.URL.Query().Get("variant_id")

		available, err := svc.AvailableStock(r.Context(), tenantID, variantID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(availabilityResponse{
			TenantID:  tenantID,
			VariantID: variantID,
			Available: available,
		})
	}
}

// HandleStock serves PUT /stock (catalog sets totals) and GET /stock
// (operators read raw counters).
func HandleStock(svc StockAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var req setStockRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			stock, err := svc.SetTotalStock(r.Context(), req.TenantID, req.VariantID, req.TotalStock)
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(toStockResponse(stock))
		case http.MethodGet:
			stock, err := svc.GetStock(r.Context(), r.URL.Query().Get("tenant_id"), r.URL.Query().Get("variant_id"))
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(toStockResponse(stock))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type availabilityResponse struct {
	TenantID  string `json:"tenant_id"`
	VariantID string `json:"variant_id"`
	Available int    `json:"available"`
}

type setStockRequest struct {
	TenantID   string `json:"tenant_id"`
	VariantID  string `json:"variant_id"`
	TotalStock int    `json:"total_stock"`
}

type stockResponse struct {
	TenantID      string    `json:"tenant_id"`
	VariantID     string    `json:"variant_id"`
	TotalStock    int       `json:"total_stock"`
	ReservedStock int       `json:"reserved_stock"`
	Available     int       `json:"available"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toStockResponse(stock domain.VariantStock) stockResponse {
	return stockResponse{
		TenantID:      stock.TenantID,
		VariantID:     stock.VariantID,
		TotalStock:    stock.TotalStock,
		ReservedStock: stock.ReservedStock,
		Available:     stock.Available(),
		UpdatedAt:     stock.UpdatedAt,
	}
}
