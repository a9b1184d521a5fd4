// parts.go implements the part endpoints.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initPartRoutes() {
	c.Group.GET("/parts", c.ListParts)
	c.Group.GET("/parts/:id", c.GetPart)
	c.Group.PUT("/parts/:id/bins", c.AssignPart)
	c.Group.DELETE("/parts/:id", c.DeletePart)
}

type assignRequest struct {
	BinIDs            []int64 `json:"binIds"`
	NewBinLabel       string  `json:"newBinLabel,omitempty"`
	NewBinDescription *string `json:"newBinDescription,omitempty"`
}

// ListParts returns every stored part.
func (c *Controller) ListParts(ctx echo.Context) error {
	parts, err := c.Service.AllParts(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, parts)
}

// GetPart returns a part with its bin membership.
func (c *Controller) GetPart(ctx echo.Context) error {
	loc, err := c.Service.GetPartLocations(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if loc == nil {
		return ctx.JSON(http.StatusNotFound, errorResponse{Error: "part not found"})
	}
	return ctx.JSON(http.StatusOK, loc)
}

// AssignPart replaces a part's complete bin membership. An empty set
// unfiles the part; a newBinLabel creates that bin first.
func (c *Controller) AssignPart(ctx echo.Context) error {
	var req assignRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	err := c.Service.AssignPartToBins(ctx.Request().Context(),
		ctx.Param("id"), req.BinIDs, req.NewBinLabel, req.NewBinDescription)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// DeletePart removes a part and its assignment and scan references.
func (c *Controller) DeletePart(ctx echo.Context) error {
	if err := c.Service.DeletePart(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
