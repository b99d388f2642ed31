package leads

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/propdesk/leadadmin/pkg/geo"
	"github.com/propdesk/leadadmin/pkg/logger"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/phone"
	"github.com/propdesk/leadadmin/pkg/policy"
	"github.com/propdesk/leadadmin/pkg/store"
)

var (
	// ErrForbidden is returned when the viewer's role does not permit
	// the operation or the lead is outside their visibility.
	ErrForbidden = errors.New("operation not permitted for this user")
	// ErrStaleView is returned when a newer reload superseded this fetch
	// while it was in flight. The caller should simply drop the result.
	ErrStaleView = errors.New("view reloaded while fetch was in flight")
	// ErrNoSelection is returned by bulk actions with nothing selected.
	ErrNoSelection = errors.New("no leads selected")
	// ErrNoTarget is returned by bulk assignment without a target user.
	ErrNoTarget = errors.New("no target user chosen")
	// ErrNotFound mirrors the store sentinel for handler convenience.
	ErrNotFound = store.ErrNotFound
)

const (
	// DefaultPageSize matches the panel's page length.
	DefaultPageSize = 20

	viewTTL       = 30 * time.Minute
	sweepInterval = 10 * time.Minute
)

var notesSplitRe = regexp.MustCompile(`\r?\n|,`)

// splitNotes turns free text into the stored list of note lines.
func splitNotes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := notesSplitRe.Split(raw, -1)
	notes := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			notes = append(notes, t)
		}
	}
	return notes
}

// view is the per-user, per-filter session: the cursor table and the
// selection survive page navigation and die together when the filters
// change or the view expires.
type view struct {
	tracker    *CursorTracker
	selection  *Selection
	generation atomic.Uint64
	lastUsed   atomic.Int64
}

func newView() *view {
	v := &view{
		tracker:   NewCursorTracker(),
		selection: NewSelection(),
	}
	v.touch()
	return v
}

func (v *view) touch() {
	v.lastUsed.Store(time.Now().UnixNano())
}

// invalidate resets paging and bumps the generation so in-flight fetches
// against the old state get discarded.
func (v *view) invalidate() {
	v.generation.Add(1)
	v.tracker.Reset()
}

// Service is the lead listing engine. It owns the transient view state
// (cursor tables, selections) keyed by viewer and filter set, and is the
// only path through which leads are read or mutated.
type Service struct {
	store    store.LeadStore
	geo      *geo.Resolver
	log      logger.Logger
	pageSize int

	mu        sync.Mutex
	views     map[string]*view
	lastSweep time.Time
}

// NewService creates the engine. pageSize <= 0 selects the default.
func NewService(st store.LeadStore, resolver *geo.Resolver, log logger.Logger, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		store:     st,
		geo:       resolver,
		log:       log,
		pageSize:  pageSize,
		views:     make(map[string]*view),
		lastSweep: time.Now(),
	}
}

// viewKey derives the session key from the viewer and the filter set. A
// different filter set is a different view, which is what clears the
// selection and the cursor table on filter change.
func viewKey(viewer policy.Viewer, f models.FilterSet) string {
	raw, _ := json.Marshal(f)
	sum := sha256.Sum256(raw)
	return viewer.Email + ":" + hex.EncodeToString(sum[:8])
}

func (s *Service) viewFor(viewer policy.Viewer, f models.FilterSet) *view {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastSweep) > sweepInterval {
		cutoff := time.Now().Add(-viewTTL).UnixNano()
		for k, v := range s.views {
			if v.lastUsed.Load() < cutoff {
				delete(s.views, k)
			}
		}
		s.lastSweep = time.Now()
	}

	key := viewKey(viewer, f)
	v, ok := s.views[key]
	if !ok {
		v = newView()
		s.views[key] = v
	}
	v.touch()
	return v
}

// visibility returns the server-side assignee constraint for a viewer:
// sales users are pinned to their own leads, admins get the filter they
// asked for.
func visibility(viewer policy.Viewer, f models.FilterSet) string {
	if !viewer.IsAdmin() {
		return viewer.Email
	}
	return f.AssignedTo
}

// List produces one page of the listing for the viewer: fetch, filter,
// derive display fields, resolve cities, and report pagination state.
func (s *Service) List(ctx context.Context, viewer policy.Viewer, req *models.LeadListRequest) (*models.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	filters := models.FilterSet{
		CallTrack:  req.CallTrack,
		AssignedTo: req.AssignedTo,
		Color:      req.Color,
	}
	if !viewer.IsAdmin() {
		// The assignee dimension is not a choice for sales users.
		filters.AssignedTo = ""
	}

	v := s.viewFor(viewer, filters)
	gen := v.generation.Load()

	cursor, err := v.tracker.CursorFor(page)
	if err != nil {
		return nil, err
	}

	assignee := visibility(viewer, filters)
	result, err := s.store.List(ctx, store.LeadQuery{
		AssignedTo: assignee,
		Limit:      s.pageSize,
		StartAfter: cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}

	// The count sees only the store-side constraint. Call-track and
	// color filter after the fetch, so the total may overcount rows
	// those filters later exclude.
	total, cErr := s.store.Count(ctx, store.LeadQuery{AssignedTo: assignee})
	totalKnown := cErr == nil
	if cErr != nil {
		s.log.Warn("lead count failed, total unknown", "error", cErr)
		total = 0
	}

	if v.generation.Load() != gen {
		return nil, ErrStaleView
	}
	v.tracker.Record(page, result.Next)

	rows := s.renderRows(ctx, viewer, result.Leads, filters)

	totalPages := 0
	if totalKnown {
		totalPages = (total + s.pageSize - 1) / s.pageSize
	}
	return &models.LeadListResponse{
		Data: rows,
		Pagination: models.PaginationInfo{
			Page:       page,
			PageSize:   s.pageSize,
			Total:      total,
			TotalKnown: totalKnown,
			TotalPages: totalPages,
			HasNext:    result.Next != "",
			HasPrev:    page > 1,
		},
		Filters: filters,
	}, nil
}

// renderRows applies the client-evaluated filters and builds display rows
// with resolved cities. City lookups run concurrently and land on their
// own row by index.
func (s *Service) renderRows(ctx context.Context, viewer policy.Viewer, fetched []*models.Lead, filters models.FilterSet) []models.LeadRow {
	visible := make([]*models.Lead, 0, len(fetched))
	for _, l := range fetched {
		if MatchesFilters(l, filters) {
			visible = append(visible, l)
		}
	}

	pincodes := make([]string, len(visible))
	for i, l := range visible {
		pincodes[i] = geo.ExtractPincode(l.Pincode)
	}
	cities := s.geo.ResolveAll(ctx, pincodes)

	rows := make([]models.LeadRow, 0, len(visible))
	for i, l := range visible {
		row := models.LeadRow{
			ID:            l.ID,
			LeadColor:     l.LeadColor,
			Name:          l.Name,
			Phone:         l.Phone,
			DateCreated:   models.FormatDisplayDate(l.DateTime),
			City:          cities[i],
			DateOfCalling: l.DateOfCalling,
			Followup1:     l.Followup1,
			Followup2:     l.Followup2,
			Followup3:     l.Followup3,
			CallTrack:     DeriveCallTrack(l),
		}
		if policy.For(viewer, l).CanSeeAssignee {
			row.AssignedTo = l.AssignedTo
		}
		rows = append(rows, row)
	}
	return rows
}

// Get fetches one lead with the viewer's capabilities on it.
func (s *Service) Get(ctx context.Context, viewer policy.Viewer, id string) (*models.Lead, policy.Capabilities, error) {
	lead, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, policy.Capabilities{}, err
	}
	if !policy.CanSee(viewer, lead) {
		return nil, policy.Capabilities{}, ErrForbidden
	}
	caps := policy.For(viewer, lead)
	if !caps.CanSeeAssignee {
		lead.AssignedTo = []string{}
	}
	return lead, caps, nil
}

// Create inserts a single lead from the add form. Sales users who leave
// the assignee empty get the lead assigned to themselves.
func (s *Service) Create(ctx context.Context, viewer policy.Viewer, req *models.LeadCreateRequest) (*models.Lead, error) {
	assignedTo := []string{}
	switch {
	case req.AssignedTo != "":
		if !viewer.IsAdmin() && req.AssignedTo != viewer.Email {
			return nil, ErrForbidden
		}
		assignedTo = []string{req.AssignedTo}
	case !viewer.IsAdmin():
		assignedTo = []string{viewer.Email}
	}

	now := time.Now().UTC()
	lead := &models.Lead{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Phone:          phone.Normalize(req.Phone),
		Pincode:        strings.TrimSpace(req.Pincode),
		DateTime:       now,
		AssignedTo:     assignedTo,
		Status:         strings.TrimSpace(req.Status),
		Notes:          splitNotes(req.Notes),
		LeadColor:      models.ColorWhite,
		PurchaseAmount: req.PurchaseAmount,
		UpdatedAt:      now,
	}
	if err := s.store.Put(ctx, lead); err != nil {
		return nil, fmt.Errorf("creating lead: %w", err)
	}
	return lead, nil
}

// Update applies a partial update under the role policy.
func (s *Service) Update(ctx context.Context, viewer policy.Viewer, id string, req *models.LeadUpdateRequest) (*models.Lead, error) {
	lead, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanSee(viewer, lead) {
		return nil, ErrForbidden
	}

	upd := &models.LeadUpdate{
		DateOfCalling: req.DateOfCalling,
		Followup1:     req.Followup1,
		Followup2:     req.Followup2,
		Followup3:     req.Followup3,
		Status:        req.Status,
		LeadColor:     req.LeadColor,
		UpdatedAt:     time.Now().UTC(),
	}
	if req.Notes != nil {
		notes := splitNotes(*req.Notes)
		upd.Notes = &notes
	}
	if req.AssignedTo != nil {
		assignees := []string{}
		if *req.AssignedTo != "" {
			assignees = []string{*req.AssignedTo}
		}
		upd.AssignedTo = &assignees
	}
	if upd.IsZero() {
		return lead, nil
	}
	if !policy.AllowedUpdate(viewer, lead, upd) {
		return nil, ErrForbidden
	}

	if err := s.store.Update(ctx, id, upd); err != nil {
		return nil, fmt.Errorf("updating lead: %w", err)
	}
	return s.store.Get(ctx, id)
}

// Delete removes a lead. Admin only.
func (s *Service) Delete(ctx context.Context, viewer policy.Viewer, id string) error {
	if !viewer.IsAdmin() {
		return ErrForbidden
	}
	return s.store.Delete(ctx, id)
}

// ToggleSelect flips one lead in the viewer's selection for the given
// filter view and reports the new selection size.
func (s *Service) ToggleSelect(viewer policy.Viewer, filters models.FilterSet, id string) int {
	v := s.viewFor(viewer, filters)
	v.selection.Toggle(id)
	return v.selection.Len()
}

// ToggleSelectAll toggles the ids rendered on the visible page.
func (s *Service) ToggleSelectAll(viewer policy.Viewer, filters models.FilterSet, ids []string) int {
	v := s.viewFor(viewer, filters)
	v.selection.ToggleAll(ids)
	return v.selection.Len()
}

// SelectedIDs returns the viewer's current selection for the filter view.
func (s *Service) SelectedIDs(viewer policy.Viewer, filters models.FilterSet) []string {
	return s.viewFor(viewer, filters).selection.IDs()
}

// BulkAssign atomically reassigns the selected leads to one sales user.
// Admin only. On success the selection is cleared and the view reset so
// the panel reloads from page 1; on failure both are retained for retry.
func (s *Service) BulkAssign(ctx context.Context, viewer policy.Viewer, filters models.FilterSet, req *models.BulkAssignRequest) (*models.BulkAssignResponse, error) {
	if !viewer.IsAdmin() {
		return nil, ErrForbidden
	}
	if req.AssignedTo == "" {
		return nil, ErrNoTarget
	}

	v := s.viewFor(viewer, filters)
	ids := req.LeadIDs
	if len(ids) == 0 {
		ids = v.selection.IDs()
	}
	if len(ids) == 0 {
		return nil, ErrNoSelection
	}

	if err := s.store.BulkAssign(ctx, ids, req.AssignedTo); err != nil {
		return nil, fmt.Errorf("bulk assigning %d leads: %w", len(ids), err)
	}

	v.selection.Clear()
	v.invalidate()
	s.log.Info("bulk assigned leads", "count", len(ids), "assigned_to", req.AssignedTo)
	return &models.BulkAssignResponse{Assigned: len(ids), AssignedTo: req.AssignedTo}, nil
}
