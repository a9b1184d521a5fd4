// Package api exposes the inventory over HTTP with a JSON API under
// /api/v1, plus a server-sent-events stream for the live bins overview.
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/frootsnoops/brickbin/internal/conf"
	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/errors"
	"github.com/frootsnoops/brickbin/internal/inventory"
	"github.com/frootsnoops/brickbin/internal/logging"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Service  *inventory.Service
	DS       datastore.Interface
	Settings *conf.Settings
	log      *slog.Logger
}

// New creates the API controller and registers all routes.
func New(e *echo.Echo, service *inventory.Service, ds datastore.Interface, settings *conf.Settings) *Controller {
	c := &Controller{
		Echo:     e,
		Service:  service,
		DS:       ds,
		Settings: settings,
		log:      logging.ForService("api"),
	}

	c.Group = e.Group("/api/v1")
	c.Group.Use(middleware.Recover())

	c.initBinRoutes()
	c.initPartRoutes()
	c.initScanRoutes()
	c.initBackupRoutes()

	return c
}

// errorResponse is the JSON error shape returned by every handler.
type errorResponse struct {
	Error string `json:"error"`
}

// HandleError maps a service error to an HTTP response using the error
// category, logs it, and returns the JSON body.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		c.log.Error("request failed", "path", ctx.Path(), "error", err)
	} else {
		c.log.Debug("request rejected", "path", ctx.Path(), "status", status, "error", err)
	}
	return ctx.JSON(status, errorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err),
		errors.Is(err, inventory.ErrDuplicateLabel):
		return http.StatusConflict
	case errors.IsValidation(err),
		errors.Is(err, inventory.ErrEmptyLabel),
		errors.Is(err, inventory.ErrNothingToExport):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryImportExport):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNetwork),
		errors.IsCategory(err, errors.CategoryHTTP):
		return http.StatusBadGateway
	case errors.IsCategory(err, errors.CategoryConfig):
		return http.StatusServiceUnavailable
	case errors.Is(err, datastore.ErrBinNotFound),
		errors.Is(err, datastore.ErrPartNotFound),
		errors.Is(err, datastore.ErrScanNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
