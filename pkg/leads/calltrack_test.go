package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/propdesk/leadadmin/pkg/models"
)

func TestDeriveCallTrack(t *testing.T) {
	tests := []struct {
		name string
		f1   string
		f2   string
		f3   string
		want string
	}{
		{"all blank", "", "", "", models.CallTrackNone},
		{"whitespace only is blank", "   ", "\t", "\n", models.CallTrackNone},
		{"only first", "called", "", "", models.CallTrackFollowup1},
		{"second wins over first", "called", "site visit", "", models.CallTrackFollowup2},
		{"third wins with gap", "x", "", "y", models.CallTrackFollowup3},
		{"third alone", "", "", "closing", models.CallTrackFollowup3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &models.Lead{Followup1: tt.f1, Followup2: tt.f2, Followup3: tt.f3}
			assert.Equal(t, tt.want, DeriveCallTrack(l))
		})
	}
}

func TestMatchesFilters(t *testing.T) {
	lead := &models.Lead{
		Followup1:  "called",
		LeadColor:  models.ColorRed,
		AssignedTo: []string{"rep@propdesk.io"},
	}

	assert.True(t, MatchesFilters(lead, models.FilterSet{}))
	assert.True(t, MatchesFilters(lead, models.FilterSet{CallTrack: models.CallTrackFollowup1}))
	assert.False(t, MatchesFilters(lead, models.FilterSet{CallTrack: models.CallTrackFollowup3}))
	assert.True(t, MatchesFilters(lead, models.FilterSet{Color: models.ColorRed}))

	// Conjunctive: matching one dimension does not save a miss on another.
	assert.False(t, MatchesFilters(lead, models.FilterSet{
		Color:      models.ColorRed,
		AssignedTo: "other@propdesk.io",
	}))
}

func TestMatchesFilters_ColorDefaultsWhite(t *testing.T) {
	lead := &models.Lead{}
	assert.True(t, MatchesFilters(lead, models.FilterSet{Color: models.ColorWhite}))
	assert.False(t, MatchesFilters(lead, models.FilterSet{Color: models.ColorBlue}))
}
