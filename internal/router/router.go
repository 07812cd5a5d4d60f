package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/concert-seat-selection/internal/config"
	"github.com/iliyamo/concert-seat-selection/internal/handler"
	"github.com/iliyamo/concert-seat-selection/internal/middleware"
)

// RegisterRoutes registers routes that do not require any capability: the
// health check, the catalog reads, the live stream and the hold operations.
// Hold identity is the client-supplied client_id; there is no account system.
func RegisterRoutes(e *echo.Echo, seats *handler.SeatHandler, holds *handler.HoldHandler, ws *handler.WSHandler, limiter echo.MiddlewareFunc) {
	e.Use(echomw.CORS())
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	if limiter != nil {
		api.Use(limiter)
	}
	api.GET("/seats", seats.GetSeats)
	api.GET("/stats", seats.GetStats)
	api.POST("/hold", holds.HoldSeats)
	api.POST("/release", holds.ReleaseSeats)
	api.POST("/confirm", holds.ConfirmSeats)

	e.GET("/ws", ws.Live)
}

// RegisterAdmin registers the privileged seat mutations behind the admin
// capability middleware.  The capability is presented out-of-band via the
// X-Admin-Token header or an admin JWT.
func RegisterAdmin(e *echo.Echo, cfg config.Config, admin *handler.AdminHandler) {
	g := e.Group("/api/admin")
	g.Use(middleware.AdminAuth(cfg))
	g.PATCH("/seats/:id", admin.UpdateSeat)
	g.POST("/seats/bulk", admin.BulkUpdateSeats)
}
