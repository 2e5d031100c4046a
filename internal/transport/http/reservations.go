package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/app"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
)

// ReservationOperator is the minimal interface the reservation endpoints
// need from the service.
type ReservationOperator interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Reservation, error)
	Commit(ctx context.Context, reservationID, orderID string) (domain.Reservation, error)
	Release(ctx context.Context, reservationID, reason string) (domain.Reservation, error)
	ReservationsByOrder(ctx context.Context, orderID string) ([]domain.Reservation, error)
}

// HandleCreateReservation returns an HTTP handler for placing holds.
func HandleCreateReservation(svc ReservationOperator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		ttl, err := time.ParseDuration(req.TTL)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTTL, "invalid ttl")
			return
		}

		res, err := svc.Reserve(r.Context(), app.ReserveInput{
			TenantID:  req.TenantID,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			TTL:       ttl,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toReservationResponse(res))
	}
}

// HandleReservationAction routes POST /reservations/{id}/commit and
// POST /reservations/{id}/release.
func HandleReservationAction(svc ReservationOperator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		id, action, ok := parseReservationPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "commit":
			var req commitRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			res, err := svc.Commit(r.Context(), id, req.OrderID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
		case "release":
			var req releaseRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.Reason == "" {
				req.Reason = "released"
			}
			res, err := svc.Release(r.Context(), id, req.Reason)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

// HandleOrderReservations serves GET /orders/{id}/reservations for the
// order workflow's cancel and restock flows.
func HandleOrderReservations(svc ReservationOperator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		orderID, ok := parseOrderReservationsPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		reservations, err := svc.ReservationsByOrder(r.Context(), orderID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]reservationResponse, 0, len(reservations))
		for _, res := range reservations {
			out = append(out, toReservationResponse(res))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(out)
	}
}

func parseReservationPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", "", false
	}
	if parts[0] != "reservations" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func parseOrderReservationsPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "orders" || parts[2] != "reservations" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createReservationRequest struct {
	TenantID  string `json:"tenant_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	TTL       string `json:"ttl"`
}

type commitRequest struct {
	OrderID string `json:"order_id"`
}

type releaseRequest struct {
	Reason string `json:"reason"`
}

type reservationResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	VariantID     string    `json:"variant_id"`
	Quantity      int       `json:"quantity"`
	OrderID       *string   `json:"order_id,omitempty"`
	Status        string    `json:"status"`
	ReleaseReason string    `json:"release_reason,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            res.ID,
		TenantID:      res.TenantID,
		VariantID:     res.VariantID,
		Quantity:      res.Quantity,
		OrderID:       res.OrderID,
		Status:        string(res.Status),
		ReleaseReason: res.ReleaseReason,
		ExpiresAt:     res.ExpiresAt,
		CreatedAt:     res.CreatedAt,
		UpdatedAt:     res.UpdatedAt,
	}
}
