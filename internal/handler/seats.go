package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-seat-selection/internal/catalog"
	"github.com/iliyamo/concert-seat-selection/internal/model"
)

// SeatHandler serves read-only catalog views.  Reads never block on a seat
// mutation for longer than the catalog's bounded lock wait, and every view
// presents an expired hold as an available seat.
type SeatHandler struct {
	Catalog *catalog.Catalog
}

// NewSeatHandler constructs a SeatHandler.
func NewSeatHandler(cat *catalog.Catalog) *SeatHandler {
	if cat == nil {
		panic("nil catalog passed to NewSeatHandler")
	}
	return &SeatHandler{Catalog: cat}
}

// GetSeats handles GET /api/seats?floor=N.  It returns the floor's seats
// ordered by their chart position plus a generation timestamp, so a live
// subscriber can reconcile the snapshot against events it already received.
func (h *SeatHandler) GetSeats(c echo.Context) error {
	floor := 1
	if raw := c.QueryParam("floor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid floor"})
		}
		floor = n
	}
	now := time.Now().UTC()
	seats := h.Catalog.Floor(c.Request().Context(), floor, now)
	return c.JSON(http.StatusOK, echo.Map{
		"floor":        floor,
		"seats":        seats,
		"generated_at": now,
	})
}

type tierStats struct {
	Tier      string `json:"tier"`
	Available int    `json:"available"`
	Hold      int    `json:"hold"`
	Sold      int    `json:"sold"`
	Blocked   int    `json:"blocked"`
	Revenue   int    `json:"revenue"`
}

// GetStats handles GET /api/stats: catalog-wide status totals and a per-tier
// breakdown with revenue over sold seats.
func (h *SeatHandler) GetStats(c echo.Context) error {
	now := time.Now().UTC()
	totals := map[model.SeatStatus]int{
		model.StatusAvailable: 0,
		model.StatusHold:      0,
		model.StatusSold:      0,
		model.StatusBlocked:   0,
	}
	perTier := map[string]*tierStats{}
	for _, seat := range h.Catalog.All(c.Request().Context(), now) {
		totals[seat.Status]++
		tier := "UNKNOWN"
		if seat.Tier != nil && *seat.Tier != "" {
			tier = *seat.Tier
		}
		row := perTier[tier]
		if row == nil {
			row = &tierStats{Tier: tier}
			perTier[tier] = row
		}
		switch seat.Status {
		case model.StatusAvailable:
			row.Available++
		case model.StatusHold:
			row.Hold++
		case model.StatusSold:
			row.Sold++
			row.Revenue += seat.Price
		case model.StatusBlocked:
			row.Blocked++
		}
	}
	rows := make([]tierStats, 0, len(perTier))
	for _, row := range perTier {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Tier < rows[j].Tier })
	return c.JSON(http.StatusOK, echo.Map{
		"totals":   totals,
		"per_tier": rows,
	})
}
