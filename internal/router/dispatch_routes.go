package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lpg-trip-dispatch/internal/handler"
    "github.com/iliyamo/lpg-trip-dispatch/internal/middleware"
    "github.com/iliyamo/lpg-trip-dispatch/internal/model"
)

// RegisterDispatch registers the trip dispatch surface under /v1.  All
// routes require a valid JWT.  Mutations are restricted to dispatchers
// and admins; drivers get read-only access to trips, loading summaries
// and variances.  The extra middlewares (rate limiting, response
// caching) may be nil-safe no-ops and are applied to the whole group.
func RegisterDispatch(e *echo.Echo, trips *handler.TripHandler, allocs *handler.AllocationHandler, loading *handler.LoadingHandler, variances *handler.VarianceHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
    read := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    read.Use(middleware.RequireRole(model.RoleDispatcher, model.RoleDriver, model.RoleAdmin))
    read.Use(extra...)
    read.GET("/trips", trips.List)
    read.GET("/trips/:id", trips.Get)
    read.GET("/trips/:id/loading/summary", loading.Summary)
    read.GET("/trips/:id/availability", loading.Availability)
    read.GET("/trips/:id/variances", variances.List)
    read.GET("/orders/:id/empty-returns", allocs.EmptyReturns)

    write := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    write.Use(middleware.RequireRole(model.RoleDispatcher, model.RoleAdmin))
    write.Use(extra...)
    write.POST("/trips", trips.Create)
    write.PATCH("/trips/:id/status", trips.UpdateStatus)
    write.POST("/trips/:id/allocations", allocs.Allocate)
    write.DELETE("/trips/:id/allocations/:orderId", allocs.Remove)
    write.POST("/trips/:id/loading/start", loading.Start)
    write.POST("/trips/:id/loading", loading.Record)
    write.POST("/trips/:id/loading/complete", loading.Complete)
    write.POST("/trips/:id/capacity/validate", loading.ValidateCapacity)
    write.POST("/trips/:id/variances", variances.Record)
    write.PATCH("/variances/:id", variances.Resolve)
}
