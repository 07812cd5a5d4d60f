package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-seat-selection/internal/catalog"
	"github.com/iliyamo/concert-seat-selection/internal/hold"
	"github.com/iliyamo/concert-seat-selection/internal/queue"
)

// HoldHandler exposes the hold, release and confirm operations.  Contention
// is a normal outcome reported through the conflicts/skipped lists, never an
// HTTP error; only malformed requests are rejected up front.
type HoldHandler struct {
	Coordinator *hold.Coordinator
	Processor   *hold.Processor
	Catalog     *catalog.Catalog
	// PublishSale forwards a recorded sale to the broker; nil disables
	// publishing (tests, broker-less deployments).
	PublishSale func(context.Context, queue.SaleRecordedEvent) error
}

// NewHoldHandler constructs a HoldHandler.
func NewHoldHandler(coord *hold.Coordinator, proc *hold.Processor, cat *catalog.Catalog) *HoldHandler {
	if coord == nil || proc == nil || cat == nil {
		panic("nil dependency passed to NewHoldHandler")
	}
	return &HoldHandler{Coordinator: coord, Processor: proc, Catalog: cat}
}

// HoldSeats handles POST /api/hold.  Each requested seat is processed
// independently; newly granted and refreshed holds share one expire_at.  An
// empty seat list yields an empty result rather than an error.
func (h *HoldHandler) HoldSeats(c echo.Context) error {
	var body struct {
		SeatIDs  []string `json:"seat_ids"`
		ClientID string   `json:"client_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ClientID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
	}
	res := h.Coordinator.AcquireOrRefresh(c.Request().Context(), body.SeatIDs, body.ClientID)
	return c.JSON(http.StatusOK, res)
}

// ReleaseSeats handles POST /api/release.  Omitting seat_ids (JSON null)
// targets every seat the client currently holds; an explicit empty list
// targets nothing.  Targets not held by the caller are skipped silently.
func (h *HoldHandler) ReleaseSeats(c echo.Context) error {
	var body struct {
		SeatIDs  *[]string `json:"seat_ids"`
		ClientID string    `json:"client_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ClientID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
	}
	var targets []string
	if body.SeatIDs != nil {
		targets = *body.SeatIDs
		if targets == nil {
			targets = []string{}
		}
	}
	released := h.Coordinator.Release(c.Request().Context(), targets, body.ClientID)
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// ConfirmSeats handles POST /api/confirm.  The request id makes the call
// idempotent: a retry returns the stored outcome verbatim and never sells a
// seat twice.  A request id replayed by a different client is rejected.
func (h *HoldHandler) ConfirmSeats(c echo.Context) error {
	var body struct {
		SeatIDs   []string `json:"seat_ids"`
		ClientID  string   `json:"client_id"`
		RequestID string   `json:"request_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ClientID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
	}
	if body.RequestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request_id is required"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids must not be empty"})
	}
	rec, fresh, err := h.Processor.Confirm(c.Request().Context(), body.SeatIDs, body.ClientID, body.RequestID)
	if err != nil {
		if errors.Is(err, hold.ErrRequestIDClaimed) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "request_id already used by another client"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
	}
	if fresh && len(rec.Confirmed) > 0 && h.PublishSale != nil {
		go h.publishSale(rec.RequestID, rec.ClientID, rec.Confirmed)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"confirmed": rec.Confirmed,
		"skipped":   rec.Skipped,
	})
}

func (h *HoldHandler) publishSale(requestID, clientID string, seatIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now().UTC()
	total := 0
	for _, seatID := range seatIDs {
		if seat, err := h.Catalog.Get(ctx, seatID, now); err == nil {
			total += seat.Price
		}
	}
	_ = h.PublishSale(ctx, queue.SaleRecordedEvent{
		RequestID:   requestID,
		ClientID:    clientID,
		SeatIDs:     seatIDs,
		TotalAmount: total,
		ConfirmedAt: now.Format(time.RFC3339),
	})
}
