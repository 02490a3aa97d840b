package podds

// VenueStats holds the scoring record of a team at a single venue type
type VenueStats struct {
	GoalsScored   int `json:"goalsScored"`
	GoalsConceded int `json:"goalsConceded"`
	MatchesPlayed int `json:"matchesPlayed"`
}

// TeamStats is the input to the expected goals model for one side of a fixture.
// Home and Away are optional venue splits. When a split is present it is used
// in preference to the aggregate totals
type TeamStats struct {
	GoalsScored   int `json:"goalsScored"`
	GoalsConceded int `json:"goalsConceded"`
	MatchesPlayed int `json:"matchesPlayed"`

	Home *VenueStats `json:"home,omitempty"`
	Away *VenueStats `json:"away,omitempty"`
}

// NewTeamStats returns empty stats with both venue splits present so that
// results accumulated through AddResult populate the splits as well
func NewTeamStats() *TeamStats {
	return &TeamStats{
		Home: &VenueStats{},
		Away: &VenueStats{},
	}
}

/////////////////////////////////////////////////////////////////////////
////// Accumulation
/////////////////////////////////////////////////////////////////////////

// AddResult records one concluded match in the aggregate totals and,
// where present, the matching venue split
func (ts *TeamStats) AddResult(scored, conceded int, atHome bool) {
	if scored < 0 || conceded < 0 {
		return
	}
	ts.GoalsScored += scored
	ts.GoalsConceded += conceded
	ts.MatchesPlayed++

	venue := ts.Away
	if atHome {
		venue = ts.Home
	}
	if venue != nil {
		venue.GoalsScored += scored
		venue.GoalsConceded += conceded
		venue.MatchesPlayed++
	}
}

// attack returns the goals scored and matches played to use for this team's
// attacking strength at the given venue. A venue split with fewer than
// LowSampleThreshold matches gives way to the aggregate totals
func (ts *TeamStats) attack(isHome bool) (goals, matches int) {
	if v := ts.venue(isHome); v != nil && v.MatchesPlayed >= LowSampleThreshold {
		return v.GoalsScored, v.MatchesPlayed
	}
	return ts.GoalsScored, ts.MatchesPlayed
}

// defence is attack for goals conceded
func (ts *TeamStats) defence(isHome bool) (goals, matches int) {
	if v := ts.venue(isHome); v != nil && v.MatchesPlayed >= LowSampleThreshold {
		return v.GoalsConceded, v.MatchesPlayed
	}
	return ts.GoalsConceded, ts.MatchesPlayed
}

func (ts *TeamStats) venue(isHome bool) *VenueStats {
	if isHome {
		return ts.Home
	}
	return ts.Away
}
