package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-seat-selection/internal/catalog"
	"github.com/iliyamo/concert-seat-selection/internal/hold"
	"github.com/iliyamo/concert-seat-selection/internal/model"
)

// AdminHandler exposes the privileged seat mutations.  Routes using it must
// be wrapped in the admin capability middleware; nothing here re-checks it.
type AdminHandler struct {
	Mutator *hold.Mutator
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(m *hold.Mutator) *AdminHandler {
	if m == nil {
		panic("nil mutator passed to NewAdminHandler")
	}
	return &AdminHandler{Mutator: m}
}

type adminUpdateBody struct {
	Status *string `json:"status"`
	Tier   *string `json:"tier"`
	Price  *int    `json:"price"`
}

// toUpdate validates the optional field set.  The returned error message is
// ready for the response body.
func (b adminUpdateBody) toUpdate() (hold.AdminUpdate, string) {
	var upd hold.AdminUpdate
	if b.Status != nil {
		status := model.SeatStatus(*b.Status)
		if !status.Valid() {
			return upd, "invalid status"
		}
		upd.Status = &status
	}
	if b.Price != nil && *b.Price < 0 {
		return upd, "price must not be negative"
	}
	upd.Tier = b.Tier
	upd.Price = b.Price
	return upd, ""
}

// UpdateSeat handles PATCH /api/admin/seats/:id.  It bypasses hold ownership:
// setting a non-HOLD status on a held seat clears the hold.  Unknown seat ids
// are a 404, unlike the hold endpoints where they are a per-seat conflict.
func (h *AdminHandler) UpdateSeat(c echo.Context) error {
	seatID := c.Param("id")
	if seatID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var body adminUpdateBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	upd, msg := body.toUpdate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	seat, err := h.Mutator.Update(c.Request().Context(), seatID, upd)
	if err != nil {
		if errors.Is(err, catalog.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update seat"})
	}
	return c.JSON(http.StatusOK, seat)
}

// BulkUpdateSeats handles POST /api/admin/seats/bulk.  The same field set is
// applied to every seat id present in the catalog; absent ids are reported in
// missing.  There is no cross-seat atomicity.
func (h *AdminHandler) BulkUpdateSeats(c echo.Context) error {
	var body struct {
		SeatIDs []string `json:"seat_ids"`
		adminUpdateBody
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids must not be empty"})
	}
	upd, msg := body.toUpdate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if upd.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one field must be provided"})
	}
	updated, missing := h.Mutator.BulkUpdate(c.Request().Context(), body.SeatIDs, upd)
	return c.JSON(http.StatusOK, echo.Map{
		"updated": updated,
		"missing": missing,
	})
}
