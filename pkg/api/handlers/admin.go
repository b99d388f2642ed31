package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/propdesk/leadadmin/pkg/api/errors"
	"github.com/propdesk/leadadmin/pkg/importer"
	"github.com/propdesk/leadadmin/pkg/leads"
	"github.com/propdesk/leadadmin/pkg/metrics"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/store"
	"github.com/propdesk/leadadmin/pkg/users"
)

// maxImportSize caps CSV uploads at 10 MB.
const maxImportSize = 10 << 20

// AdminHandler serves the admin-only operations: bulk reassignment, CSV
// import and the sales-user directory.
type AdminHandler struct {
	leads     *leads.Service
	users     *users.Service
	importer  *importer.Importer
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(leadService *leads.Service, userService *users.Service, imp *importer.Importer, m *metrics.Metrics) *AdminHandler {
	return &AdminHandler{
		leads:     leadService,
		users:     userService,
		importer:  imp,
		metrics:   m,
		validator: validator.New(),
	}
}

// BulkAssign atomically reassigns the selected leads to one sales user.
func (h *AdminHandler) BulkAssign(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req models.BulkAssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if err := h.validator.Var(req.AssignedTo, "required,email"); err != nil {
		return apierrors.BadRequestError(c, "No target user chosen.")
	}

	filters := filtersFromQuery(c, viewer)
	resp, err := h.leads.BulkAssign(c.Request().Context(), viewer, filters, &req)
	switch {
	case errors.Is(err, leads.ErrForbidden):
		return apierrors.ForbiddenError(c)
	case errors.Is(err, leads.ErrNoSelection):
		return apierrors.BadRequestError(c, "No leads selected.")
	case errors.Is(err, leads.ErrNoTarget):
		return apierrors.BadRequestError(c, "No target user chosen.")
	case errors.Is(err, store.ErrBatchTooLarge):
		return apierrors.BadRequestError(c, fmt.Sprintf("Reassign at most %d leads at a time.", store.MaxBatch))
	case err != nil:
		return apierrors.StoreError(c, err)
	}

	h.metrics.BulkAssigns.Inc()
	return c.JSON(http.StatusOK, resp)
}

// ImportCSV accepts a multipart CSV upload and commits the accepted rows
// in one atomic batch.
func (h *AdminHandler) ImportCSV(c echo.Context) error {
	if _, ok := viewerFromContext(c); !ok {
		return apierrors.UnauthorizedError(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apierrors.BadRequestError(c, "A CSV file is required in the 'file' field.")
	}
	if fileHeader.Size > maxImportSize {
		return apierrors.BadRequestError(c, "File too large.")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	defer file.Close()

	text, err := io.ReadAll(io.LimitReader(file, maxImportSize))
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	result, err := h.importer.Import(c.Request().Context(), string(text))
	switch {
	case errors.Is(err, importer.ErrNoValidLeads):
		return apierrors.BadRequestError(c, "No valid leads in file.")
	case errors.Is(err, store.ErrBatchTooLarge):
		return apierrors.BadRequestError(c, fmt.Sprintf("Too many leads in one file; import at most %d per upload.", store.MaxBatch))
	case err != nil:
		return apierrors.StoreError(c, err)
	}

	h.metrics.LeadsImported.Add(float64(result.Accepted))
	h.metrics.LeadsDropped.Add(float64(result.Dropped))
	return c.JSON(http.StatusOK, result)
}

// SalesUsers lists the sales users for the assignment dropdowns.
func (h *AdminHandler) SalesUsers(c echo.Context) error {
	if _, ok := viewerFromContext(c); !ok {
		return apierrors.UnauthorizedError(c)
	}

	infos, err := h.users.SalesUsers(c.Request().Context())
	if err != nil {
		return apierrors.StoreError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"users": infos})
}
