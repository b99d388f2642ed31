// Package policy centralizes role and visibility rules for leads.
package policy

import "github.com/propdesk/leadadmin/pkg/models"

// Capabilities describes what a viewer may do with a specific lead.
type Capabilities struct {
	CanEditFollowUps bool `json:"can_edit_follow_ups"`
	CanReassign      bool `json:"can_reassign"`
	CanDelete        bool `json:"can_delete"`
	CanSeeAssignee   bool `json:"can_see_assignee"`
}

// Viewer is the authenticated identity a request acts as.
type Viewer struct {
	Email string
	Role  string
}

// IsAdmin reports whether the viewer holds the admin role.
func (v Viewer) IsAdmin() bool {
	return v.Role == models.RoleAdmin
}

// CanSee reports whether the viewer may see the lead at all. Admins see
// everything, sales users only their own assignments.
func CanSee(v Viewer, lead *models.Lead) bool {
	if v.IsAdmin() {
		return true
	}
	return lead.IsAssignedTo(v.Email)
}

// For computes the viewer's capabilities on a lead.
func For(v Viewer, lead *models.Lead) Capabilities {
	if v.IsAdmin() {
		return Capabilities{
			CanEditFollowUps: true,
			CanReassign:      true,
			CanDelete:        true,
			CanSeeAssignee:   true,
		}
	}
	return Capabilities{
		CanEditFollowUps: lead.IsAssignedTo(v.Email),
	}
}

// AllowedUpdate reports whether the viewer may apply the given partial
// update to the lead. Sales users may only touch the follow-up fields
// on their own leads. Everything else requires admin.
func AllowedUpdate(v Viewer, lead *models.Lead, upd *models.LeadUpdate) bool {
	if v.IsAdmin() {
		return true
	}
	if !lead.IsAssignedTo(v.Email) {
		return false
	}
	return upd.AssignedTo == nil && upd.Status == nil && upd.Notes == nil &&
		upd.LeadColor == nil
}
