// bins.go implements the bin endpoints, including the SSE stream that
// pushes a fresh overview whenever the underlying tables change.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/frootsnoops/brickbin/internal/inventory"
)

func (c *Controller) initBinRoutes() {
	c.Group.GET("/bins", c.ListBins)
	c.Group.POST("/bins", c.CreateBin)
	c.Group.GET("/bins/live", c.StreamBins)
	c.Group.GET("/bins/:id", c.GetBin)
	c.Group.PATCH("/bins/:id", c.UpdateBin)
	c.Group.DELETE("/bins/:id", c.DeleteBin)
}

type binRequest struct {
	Label       string  `json:"label"`
	Description *string `json:"description,omitempty"`
}

type binDetail struct {
	Summary inventory.BinSummary `json:"summary"`
	Parts   any                  `json:"parts"`
}

// ListBins returns the bins overview. With ?sort=activity the most
// recently active bin comes first, otherwise bins are label-ordered.
func (c *Controller) ListBins(ctx echo.Context) error {
	var (
		summaries []inventory.BinSummary
		err       error
	)
	if ctx.QueryParam("sort") == "activity" {
		summaries, err = c.Service.BinsByActivity(ctx.Request().Context())
	} else {
		summaries, err = c.Service.BinsOverview(ctx.Request().Context())
	}
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, summaries)
}

// CreateBin creates a new bin from a JSON body.
func (c *Controller) CreateBin(ctx echo.Context) error {
	var req binRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	bin, err := c.Service.CreateBin(ctx.Request().Context(), req.Label, req.Description)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, bin)
}

// GetBin returns one bin with its parts.
func (c *Controller) GetBin(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	bin, err := c.Service.GetBin(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if bin == nil {
		return ctx.JSON(http.StatusNotFound, errorResponse{Error: "bin not found"})
	}

	parts, err := c.Service.PartsInBin(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	count, err := c.DS.CountDistinctParts(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, binDetail{
		Summary: inventory.BinSummary{Bin: *bin, PartCount: count},
		Parts:   parts,
	})
}

// UpdateBin renames or re-describes a bin.
func (c *Controller) UpdateBin(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	var req binRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := c.Service.UpdateBin(ctx.Request().Context(), id, req.Label, req.Description); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// DeleteBin removes a bin; ?parts=true also deletes the parts filed in
// it.
func (c *Controller) DeleteBin(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	deleteParts := ctx.QueryParam("parts") == "true"
	if err := c.Service.DeleteBin(ctx.Request().Context(), id, deleteParts); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// StreamBins streams the bins overview as server-sent events: one event
// immediately, then one per change, until the client disconnects.
func (c *Controller) StreamBins(ctx echo.Context) error {
	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	reqCtx := ctx.Request().Context()
	streamCtx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	updates := make(chan []inventory.BinSummary)
	go c.Service.LiveBinsOverview(streamCtx, updates)

	for {
		select {
		case <-reqCtx.Done():
			return nil
		case summaries := <-updates:
			payload, err := json.Marshal(summaries)
			if err != nil {
				c.log.Error("encoding SSE payload", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: bins\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

func parseID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", ctx.Param("id"))
	}
	return id, nil
}
