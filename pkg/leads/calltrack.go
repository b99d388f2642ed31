// Package leads implements the lead listing engine: visibility, filtering,
// cursor pagination, selection state and derived display fields.
package leads

import (
	"strings"

	"github.com/propdesk/leadadmin/pkg/models"
)

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// DeriveCallTrack returns the most advanced non-blank follow-up stage.
// The value is recomputed per render and never stored.
func DeriveCallTrack(l *models.Lead) string {
	switch {
	case hasText(l.Followup3):
		return models.CallTrackFollowup3
	case hasText(l.Followup2):
		return models.CallTrackFollowup2
	case hasText(l.Followup1):
		return models.CallTrackFollowup1
	}
	return models.CallTrackNone
}

// MatchesFilters evaluates the conjunctive filter predicate. The result is
// identical whether filters run as store constraints or as a scan over
// fetched rows.
func MatchesFilters(l *models.Lead, f models.FilterSet) bool {
	if f.CallTrack != "" && DeriveCallTrack(l) != f.CallTrack {
		return false
	}
	if f.Color != "" {
		color := l.LeadColor
		if color == "" {
			color = models.ColorWhite
		}
		if color != f.Color {
			return false
		}
	}
	if f.AssignedTo != "" && !l.IsAssignedTo(f.AssignedTo) {
		return false
	}
	return true
}
