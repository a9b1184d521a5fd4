// scans.go implements the recognition and scan history endpoints.
package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/frootsnoops/brickbin/internal/recognition"
)

// maxImageBytes bounds uploaded image size (20 MiB).
const maxImageBytes = 20 << 20

func (c *Controller) initScanRoutes() {
	c.Group.POST("/scans", c.Recognize)
	c.Group.GET("/scans", c.ListScans)
	c.Group.GET("/scans/:id", c.GetScan)
	c.Group.DELETE("/scans/:id", c.DeleteScan)
	c.Group.POST("/feedback", c.SubmitFeedback)
}

// Recognize accepts a multipart image upload, runs recognition, and
// returns the stored scan with its ranked candidates. The form field
// "type" selects parts, sets or figs; it defaults to parts.
func (c *Controller) Recognize(ctx echo.Context) error {
	recognitionType := recognition.RecognitionType(ctx.FormValue("type"))
	if recognitionType == "" {
		recognitionType = recognition.TypeParts
	}

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "missing image upload"})
	}
	if fileHeader.Size > maxImageBytes {
		return ctx.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "image too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable image upload"})
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable image upload"})
	}

	imagePath := c.archiveImage(image, fileHeader.Filename)

	result, err := c.Service.Recognize(ctx.Request().Context(),
		recognitionType, image, fileHeader.Filename, imagePath)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// archiveImage stores a copy of the scanned photo under the configured
// image directory and returns its path. An empty directory disables
// archiving; a write failure is logged and the scan proceeds without a
// stored image.
func (c *Controller) archiveImage(image []byte, filename string) string {
	dir := c.Settings.Scans.ImageDir
	if dir == "" {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.log.Error("creating image directory", "dir", dir, "error", err)
		return ""
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(dir, uuid.New().String()+ext)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		c.log.Error("saving scan image", "path", path, "error", err)
		return ""
	}
	return path
}

// ListScans returns recent scan history, newest first. ?limit bounds the
// result, defaulting to the configured history limit.
func (c *Controller) ListScans(ctx echo.Context) error {
	limit := c.Settings.Scans.HistoryLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid limit"})
		}
		limit = parsed
	}

	scans, err := c.Service.ScanHistory(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, scans)
}

// GetScan returns one scan with its candidates.
func (c *Controller) GetScan(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	scan, err := c.Service.GetScan(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if scan == nil {
		return ctx.JSON(http.StatusNotFound, errorResponse{Error: "scan not found"})
	}
	return ctx.JSON(http.StatusOK, scan)
}

// DeleteScan removes a scan from history.
func (c *Controller) DeleteScan(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err := c.Service.DeleteScan(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// SubmitFeedback forwards prediction feedback to the recognition
// service.
func (c *Controller) SubmitFeedback(ctx echo.Context) error {
	var req recognition.FeedbackRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	resp, err := c.Service.SubmitFeedback(ctx.Request().Context(), &req)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, resp)
}
