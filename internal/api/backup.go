// backup.go implements the export and import endpoints.
package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// maxImportBytes bounds uploaded backup size (50 MiB).
const maxImportBytes = 50 << 20

func (c *Controller) initBackupRoutes() {
	c.Group.GET("/export", c.Export)
	c.Group.POST("/import", c.Import)
}

// Export returns the full backup document as a JSON download.
func (c *Controller) Export(ctx echo.Context) error {
	data, err := c.Service.Export(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err)
	}

	filename := fmt.Sprintf("brickbin-backup-%s.json", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// Import merges an uploaded backup document into the store. The body is
// either a raw JSON document or a multipart upload under "file".
func (c *Controller) Import(ctx echo.Context) error {
	var (
		data []byte
		err  error
	)
	if fileHeader, ferr := ctx.FormFile("file"); ferr == nil {
		if fileHeader.Size > maxImportBytes {
			return ctx.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "backup too large"})
		}
		file, oerr := fileHeader.Open()
		if oerr != nil {
			return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable upload"})
		}
		defer file.Close()
		data, err = io.ReadAll(io.LimitReader(file, maxImportBytes))
	} else {
		data, err = io.ReadAll(io.LimitReader(ctx.Request().Body, maxImportBytes))
	}
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable request body"})
	}

	summary, err := c.Service.Import(ctx.Request().Context(), data)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, summary)
}
