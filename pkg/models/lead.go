package models

import (
	"time"
)

// Lead colors control the priority swatch shown in the panel. White is the
// system default and is always present in storage.
const (
	ColorWhite  = "white"
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorBlue   = "blue"
)

// Call track stages, derived from the follow-up fields. The most advanced
// non-blank stage wins.
const (
	CallTrackNone      = ""
	CallTrackFollowup1 = "followup1"
	CallTrackFollowup2 = "followup2"
	CallTrackFollowup3 = "followup3"
)

// Lead is the central document stored in the leads table.
type Lead struct {
	ID             string    `json:"id" dynamodbav:"id"`
	Name           string    `json:"name" dynamodbav:"name"`
	Email          string    `json:"email" dynamodbav:"email"`
	Phone          string    `json:"phone" dynamodbav:"phone"`
	Pincode        string    `json:"pincode" dynamodbav:"pincode"`
	DateTime       time.Time `json:"date_time" dynamodbav:"date_time"`
	AssignedTo     []string  `json:"assigned_to" dynamodbav:"assigned_to"`
	Status         string    `json:"status" dynamodbav:"status"`
	Notes          []string  `json:"notes" dynamodbav:"notes"`
	LeadColor      string    `json:"lead_color" dynamodbav:"lead_color"`
	DateOfCalling  string    `json:"date_of_calling" dynamodbav:"date_of_calling"`
	Followup1      string    `json:"followup1" dynamodbav:"followup1"`
	Followup2      string    `json:"followup2" dynamodbav:"followup2"`
	Followup3      string    `json:"followup3" dynamodbav:"followup3"`
	PurchaseAmount string    `json:"purchase_amount,omitempty" dynamodbav:"purchase_amount"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Normalize enforces defaulting rules at the boundary where records are read
// from the store: lead_color is never left undefined and assigned_to is
// never nil.
func (l *Lead) Normalize() {
	if l.LeadColor == "" {
		l.LeadColor = ColorWhite
	}
	if l.AssignedTo == nil {
		l.AssignedTo = []string{}
	}
	if l.Notes == nil {
		l.Notes = []string{}
	}
}

// IsAssignedTo reports whether the lead's assignee list contains the user.
func (l *Lead) IsAssignedTo(email string) bool {
	for _, a := range l.AssignedTo {
		if a == email {
			return true
		}
	}
	return false
}

// LeadUpdate is a partial update applied to a stored lead. Nil fields are
// left untouched.
type LeadUpdate struct {
	DateOfCalling *string
	Followup1     *string
	Followup2     *string
	Followup3     *string
	Status        *string
	Notes         *[]string
	AssignedTo    *[]string
	LeadColor     *string
	UpdatedAt     time.Time
}

// IsZero reports whether the update would change nothing.
func (u *LeadUpdate) IsZero() bool {
	return u.DateOfCalling == nil && u.Followup1 == nil && u.Followup2 == nil &&
		u.Followup3 == nil && u.Status == nil && u.Notes == nil &&
		u.AssignedTo == nil && u.LeadColor == nil
}

// FilterSet is the transient filter state derived from the panel controls.
// Empty string means "no filter" for each dimension.
type FilterSet struct {
	CallTrack  string `json:"call_track,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Color      string `json:"color,omitempty"`
}

// LeadListRequest carries the listing query parameters.
type LeadListRequest struct {
	Page       int    `query:"page" validate:"omitempty,min=1"`
	CallTrack  string `query:"call_track" validate:"omitempty,oneof=followup1 followup2 followup3"`
	AssignedTo string `query:"assigned_to" validate:"omitempty,email"`
	Color      string `query:"color" validate:"omitempty,oneof=white red orange yellow green blue"`
}

// LeadRow is a single rendered listing row.
type LeadRow struct {
	ID            string   `json:"id"`
	LeadColor     string   `json:"lead_color"`
	Name          string   `json:"name"`
	Phone         string   `json:"phone"`
	AssignedTo    []string `json:"assigned_to,omitempty"`
	DateCreated   string   `json:"date_created"`
	City          string   `json:"city"`
	DateOfCalling string   `json:"date_of_calling"`
	Followup1     string   `json:"followup1"`
	Followup2     string   `json:"followup2"`
	Followup3     string   `json:"followup3"`
	CallTrack     string   `json:"call_track,omitempty"`
}

// PaginationInfo contains pagination metadata. TotalKnown is false when the
// count query failed; a false value must not be rendered as zero results.
type PaginationInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalKnown bool `json:"total_known"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// LeadListResponse is a single page of the lead listing.
type LeadListResponse struct {
	Data       []LeadRow      `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
	Filters    FilterSet      `json:"filters"`
}

// LeadCreateRequest creates a single lead from the add form.
type LeadCreateRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone"`
	Pincode        string `json:"pincode"`
	Status         string `json:"status"`
	Notes          string `json:"notes"`
	AssignedTo     string `json:"assigned_to" validate:"omitempty,email"`
	PurchaseAmount string `json:"purchase_amount"`
}

// LeadUpdateRequest is the partial update accepted by the lead detail form.
// Follow-up fields are open to the assignee; the rest require admin.
type LeadUpdateRequest struct {
	DateOfCalling *string `json:"date_of_calling"`
	Followup1     *string `json:"followup1"`
	Followup2     *string `json:"followup2"`
	Followup3     *string `json:"followup3"`
	Status        *string `json:"status"`
	Notes         *string `json:"notes"`
	AssignedTo    *string `json:"assigned_to" validate:"omitempty,email"`
	LeadColor     *string `json:"lead_color" validate:"omitempty,oneof=white red orange yellow green blue"`
}

// BulkAssignRequest reassigns the selected leads to one sales user.
// LeadIDs may be empty, in which case the caller's current selection is
// used.
type BulkAssignRequest struct {
	LeadIDs    []string `json:"lead_ids" validate:"omitempty,dive,required"`
	AssignedTo string   `json:"assigned_to" validate:"required,email"`
}

// BulkAssignResponse reports the outcome of a bulk reassignment.
type BulkAssignResponse struct {
	Assigned   int    `json:"assigned"`
	AssignedTo string `json:"assigned_to"`
}

// FormatDisplayDate renders a creation timestamp the way the panel shows it
// (en-IN medium date, short time). Zero times render empty.
func FormatDisplayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2 Jan 2006, 3:04 pm")
}
