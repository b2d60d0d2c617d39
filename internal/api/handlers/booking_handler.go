package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frioserv/maintenance-service/internal/engine"
	"github.com/frioserv/maintenance-service/internal/models"
	"github.com/frioserv/maintenance-service/internal/service"
)

// --- Request / Response DTOs ---

type QuoteRequest struct {
	ClientID        string   `json:"client_id"`
	UnitIDs         []string `json:"unit_ids"`
	ServiceCategory string   `json:"service_category"`
}

type BookRequest struct {
	ClientID        string   `json:"client_id"`
	LocationID      string   `json:"location_id,omitempty"`
	UnitIDs         []string `json:"unit_ids"`
	ServiceCategory string   `json:"service_category"`
	ScheduledDate   string   `json:"scheduled_date"` // RFC3339 or 2006-01-02
}

type RedeemRequest struct {
	ClientID      string `json:"client_id"`
	UnitID        string `json:"unit_id"`
	LocationID    string `json:"location_id,omitempty"`
	ScheduledDate string `json:"scheduled_date"`
}

type CreateBlackoutRequest struct {
	Label    string `json:"label"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Reason   string `json:"reason,omitempty"`
}

type OrderResponse struct {
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	ServiceCategory string   `json:"service_category"`
	ScheduledDate   string   `json:"scheduled_date"`
	Amount          float64  `json:"amount"`
	UnitCount       int      `json:"unit_count"`
	DiscountPercent float64  `json:"discount_percent"`
	DiscountAmount  float64  `json:"discount_amount"`
	UnitIDs         []string `json:"unit_ids"`
}

type UnitStatusResponse struct {
	UnitID   string `json:"unit_id"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Due3     string `json:"due_3_months,omitempty"`
	Due4     string `json:"due_4_months,omitempty"`
	Due6     string `json:"due_6_months,omitempty"`
}

// --- Handler struct & constructor ---

type BookingHandler struct {
	svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine/service error taxonomy onto HTTP codes:
// validation 422, configuration 500 (refuse to price), not-found 404.
func writeError(w http.ResponseWriter, err error) {
	var v *engine.ValidationError
	if errors.As(err, &v) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": v.Code, "message": v.Message})
		return
	}
	var c *engine.ConfigurationError
	if errors.As(err, &c) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": c.Code, "message": c.Message})
		return
	}
	switch {
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrUnitNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func parseServiceCategory(s string) (models.ServiceCategory, bool) {
	switch models.ServiceCategory(strings.ToLower(strings.TrimSpace(s))) {
	case models.ServiceCleaning:
		return models.ServiceCleaning, true
	case models.ServiceRepair:
		return models.ServiceRepair, true
	case models.ServiceMaintenance:
		return models.ServiceMaintenance, true
	default:
		return "", false
	}
}

func orderResponse(o *models.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		Status:          string(o.Status),
		ServiceCategory: string(o.ServiceCategory),
		ScheduledDate:   o.ScheduledDate.Format("2006-01-02"),
		Amount:          o.Amount,
		UnitCount:       o.UnitCount,
		DiscountPercent: o.DiscountPercent,
		DiscountAmount:  o.DiscountAmount,
		UnitIDs:         o.UnitIDs,
	}
}

// --- Handlers ---

// Quote handles POST /orders/quote
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	category, ok := parseServiceCategory(req.ServiceCategory)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_service_category"})
		return
	}

	quote, err := h.svc.QuoteOrder(r.Context(), req.ClientID, req.UnitIDs, category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Book handles POST /orders
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	category, ok := parseServiceCategory(req.ServiceCategory)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_service_category"})
		return
	}
	scheduled, err := parseDate(req.ScheduledDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scheduled_date; use RFC3339 or YYYY-MM-DD"})
		return
	}

	order, err := h.svc.BookOrder(r.Context(), service.BookOrderCommand{
		ClientID:        req.ClientID,
		LocationID:      req.LocationID,
		UnitIDs:         req.UnitIDs,
		ServiceCategory: category,
		ScheduledDate:   scheduled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(order))
}

// Confirm handles POST /orders/{orderID}/confirm
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ConfirmOrder)
}

// Complete handles POST /orders/{orderID}/complete
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CompleteOrder)
}

// Void handles POST /orders/{orderID}/void
func (h *BookingHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.VoidOrder)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) error) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order id required"})
		return
	}
	if err := fn(r.Context(), orderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "message": "ok"})
}

// Redeem handles POST /orders/redeem
func (h *BookingHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	scheduled, err := parseDate(req.ScheduledDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scheduled_date; use RFC3339 or YYYY-MM-DD"})
		return
	}

	order, err := h.svc.RedeemOrder(r.Context(), service.RedeemOrderCommand{
		ClientID:      req.ClientID,
		UnitID:        req.UnitID,
		LocationID:    req.LocationID,
		ScheduledDate: scheduled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(order))
}

// UnitStatuses handles GET /clients/{clientID}/unit-status?category=cleaning
func (h *BookingHandler) UnitStatuses(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	category, ok := parseServiceCategory(r.URL.Query().Get("category"))
	if !ok {
		category = models.ServiceCleaning
	}

	statuses, err := h.svc.UnitStatuses(r.Context(), clientID, category)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]UnitStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		resp := UnitStatusResponse{
			UnitID:   s.Unit.ID,
			Brand:    s.Unit.Brand,
			Category: string(s.Unit.Category),
			Status:   string(s.Status),
		}
		if !s.Unit.Due3Months.IsZero() {
			resp.Due3 = s.Unit.Due3Months.Format("2006-01-02")
			resp.Due4 = s.Unit.Due4Months.Format("2006-01-02")
			resp.Due6 = s.Unit.Due6Months.Format("2006-01-02")
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateBlackout handles POST /admin/blackouts
func (h *BookingHandler) CreateBlackout(w http.ResponseWriter, r *http.Request) {
	var req CreateBlackoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	from, err := parseDate(req.FromDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from_date"})
		return
	}
	to, err := parseDate(req.ToDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to_date"})
		return
	}

	created, err := h.svc.CreateBlackout(r.Context(), models.BlackoutRange{
		Label:    req.Label,
		FromDate: from,
		ToDate:   to,
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": created.ID, "label": created.Label})
}

// ListBlackouts handles GET /admin/blackouts
func (h *BookingHandler) ListBlackouts(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.svc.ListBlackouts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	type item struct {
		ID     int    `json:"id"`
		Label  string `json:"label"`
		From   string `json:"from_date"`
		To     string `json:"to_date"`
		Reason string `json:"reason,omitempty"`
	}
	out := make([]item, 0, len(ranges))
	for _, b := range ranges {
		out = append(out, item{
			ID:     b.ID,
			Label:  b.Label,
			From:   b.FromDate.Format("2006-01-02"),
			To:     b.ToDate.Format("2006-01-02"),
			Reason: b.Reason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
