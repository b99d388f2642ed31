package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/propdesk/leadadmin/pkg/api/errors"
	"github.com/propdesk/leadadmin/pkg/leads"
	"github.com/propdesk/leadadmin/pkg/metrics"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/policy"
	"github.com/propdesk/leadadmin/pkg/store"
)

// LeadHandler serves the lead listing and single-lead mutations.
type LeadHandler struct {
	leads     *leads.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *leads.Service, m *metrics.Metrics) *LeadHandler {
	return &LeadHandler{
		leads:     leadService,
		metrics:   m,
		validator: validator.New(),
	}
}

func filtersFromQuery(c echo.Context, viewer policy.Viewer) models.FilterSet {
	f := models.FilterSet{
		CallTrack:  c.QueryParam("call_track"),
		AssignedTo: c.QueryParam("assigned_to"),
		Color:      c.QueryParam("color"),
	}
	if !viewer.IsAdmin() {
		f.AssignedTo = ""
	}
	return f
}

// List serves one page of the lead listing.
func (h *LeadHandler) List(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req models.LeadListRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid query parameters",
		})
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	resp, err := h.leads.List(c.Request().Context(), viewer, &req)
	switch {
	case errors.Is(err, leads.ErrPageNotReachable):
		return apierrors.BadRequestError(c, "Page not reachable yet. Navigate forward one page at a time.")
	case errors.Is(err, leads.ErrStaleView):
		return c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "stale_view",
			Message: "The view was reloaded. Please retry.",
		})
	case errors.Is(err, store.ErrBadCursor):
		return apierrors.BadRequestError(c, "Invalid pagination state.")
	case err != nil:
		return apierrors.StoreError(c, err)
	}

	h.metrics.LeadsListed.Add(float64(len(resp.Data)))
	return c.JSON(http.StatusOK, resp)
}

// leadDetailResponse pairs a lead with the viewer's capabilities so the
// panel only renders controls the viewer can use.
type leadDetailResponse struct {
	Lead         *models.Lead        `json:"lead"`
	Capabilities policy.Capabilities `json:"capabilities"`
}

// Get returns one lead with capabilities.
func (h *LeadHandler) Get(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	lead, caps, err := h.leads.Get(c.Request().Context(), viewer, c.Param("id"))
	switch {
	case errors.Is(err, leads.ErrForbidden):
		return apierrors.ForbiddenError(c)
	case errors.Is(err, store.ErrNotFound):
		return apierrors.NotFoundError(c)
	case err != nil:
		return apierrors.StoreError(c, err)
	}

	return c.JSON(http.StatusOK, leadDetailResponse{Lead: lead, Capabilities: caps})
}

// Create inserts one lead from the add form.
func (h *LeadHandler) Create(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req models.LeadCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	lead, err := h.leads.Create(c.Request().Context(), viewer, &req)
	switch {
	case errors.Is(err, leads.ErrForbidden):
		return apierrors.ForbiddenError(c)
	case err != nil:
		return apierrors.StoreError(c, err)
	}

	return c.JSON(http.StatusCreated, lead)
}

// Update applies a partial update to one lead.
func (h *LeadHandler) Update(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req models.LeadUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	lead, err := h.leads.Update(c.Request().Context(), viewer, c.Param("id"), &req)
	switch {
	case errors.Is(err, leads.ErrForbidden):
		return apierrors.ForbiddenError(c)
	case errors.Is(err, store.ErrNotFound):
		return apierrors.NotFoundError(c)
	case err != nil:
		return apierrors.StoreError(c, err)
	}

	return c.JSON(http.StatusOK, lead)
}

// Delete removes one lead. Admin only, enforced by the service.
func (h *LeadHandler) Delete(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	err := h.leads.Delete(c.Request().Context(), viewer, c.Param("id"))
	switch {
	case errors.Is(err, leads.ErrForbidden):
		return apierrors.ForbiddenError(c)
	case errors.Is(err, store.ErrNotFound):
		return apierrors.NotFoundError(c)
	case err != nil:
		return apierrors.StoreError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type toggleSelectRequest struct {
	LeadID  string   `json:"lead_id"`
	LeadIDs []string `json:"lead_ids"`
}

type selectionResponse struct {
	Selected []string `json:"selected"`
	Count    int      `json:"count"`
}

// ToggleSelect flips one lead, or a whole rendered page, in the viewer's
// bulk selection for the current filter view.
func (h *LeadHandler) ToggleSelect(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	var req toggleSelectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.LeadID == "" && len(req.LeadIDs) == 0 {
		return apierrors.BadRequestError(c, "lead_id or lead_ids required")
	}

	filters := filtersFromQuery(c, viewer)
	if req.LeadID != "" {
		h.leads.ToggleSelect(viewer, filters, req.LeadID)
	}
	if len(req.LeadIDs) > 0 {
		h.leads.ToggleSelectAll(viewer, filters, req.LeadIDs)
	}

	selected := h.leads.SelectedIDs(viewer, filters)
	return c.JSON(http.StatusOK, selectionResponse{Selected: selected, Count: len(selected)})
}

// Selection returns the viewer's current selection for the filter view.
func (h *LeadHandler) Selection(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}

	selected := h.leads.SelectedIDs(viewer, filtersFromQuery(c, viewer))
	return c.JSON(http.StatusOK, selectionResponse{Selected: selected, Count: len(selected)})
}
