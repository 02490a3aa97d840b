package footballdata

import (
	"strconv"
	"time"

	"github.com/richard-senior/footstats/pkg/store"
)

// APIMatch is the subset of a football-data.org v4 match we use
type APIMatch struct {
	ID          int       `json:"id"`
	UTCDate     time.Time `json:"utcDate"`
	Status      string    `json:"status"`
	Matchday    *int      `json:"matchday"`
	Venue       string    `json:"venue"`
	Competition struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"competition"`
	Area struct {
		Name string `json:"name"`
	} `json:"area"`
	Season *struct {
		StartDate string `json:"startDate"`
	} `json:"season"`
	HomeTeam apiTeam `json:"homeTeam"`
	AwayTeam apiTeam `json:"awayTeam"`
	Score    struct {
		FullTime apiScore `json:"fullTime"`
		HalfTime apiScore `json:"halfTime"`
	} `json:"score"`
	Referees []struct {
		Name string `json:"name"`
	} `json:"referees"`
}

type apiTeam struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

type apiScore struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// NormalizedMatch is a match from any source, ready to store
type NormalizedMatch struct {
	ID            string
	Source        string
	Date          time.Time
	StatusLong    string
	StatusShort   string
	HomeTeamName  string
	HomeShortName string
	AwayTeamName  string
	AwayShortName string
	GoalsHome     int
	GoalsAway     int
	HalftimeHome  int
	HalftimeAway  int
	LeagueName    string
	LeagueCode    string
	Country       string
	Season        int
	Round         string
	Referee       string
	Venue         string
}

// MapStatusShort maps a football-data.org status onto a short status code
func MapStatusShort(statusLong string) string {
	switch statusLong {
	case "SCHEDULED", "TIMED":
		return store.StatusNotStarted
	case "IN_PLAY":
		return store.StatusLive
	case "PAUSED":
		return store.StatusHalfTime
	case "FINISHED":
		return store.StatusFinished
	case "POSTPONED":
		return store.StatusPostponed
	case "SUSPENDED":
		return store.StatusSuspended
	case "CANCELLED":
		return store.StatusCancelled
	}
	return store.StatusTBD
}

// SeasonYear returns the year a season starting around date began in.
// Seasons are taken to turn over in July
func SeasonYear(date time.Time) int {
	if date.Month() >= time.July {
		return date.Year()
	}
	return date.Year() - 1
}

// Normalize converts an API match into a NormalizedMatch
func Normalize(m APIMatch) NormalizedMatch {
	n := NormalizedMatch{
		ID:            "fd-" + strconv.Itoa(m.ID),
		Source:        Source,
		Date:          m.UTCDate.UTC(),
		StatusLong:    m.Status,
		StatusShort:   MapStatusShort(m.Status),
		HomeTeamName:  m.HomeTeam.Name,
		HomeShortName: m.HomeTeam.ShortName,
		AwayTeamName:  m.AwayTeam.Name,
		AwayShortName: m.AwayTeam.ShortName,
		GoalsHome:     goals(m.Score.FullTime.Home),
		GoalsAway:     goals(m.Score.FullTime.Away),
		HalftimeHome:  goals(m.Score.HalfTime.Home),
		HalftimeAway:  goals(m.Score.HalfTime.Away),
		LeagueName:    m.Competition.Name,
		LeagueCode:    m.Competition.Code,
		Country:       m.Area.Name,
		Venue:         m.Venue,
	}

	if m.Season != nil && len(m.Season.StartDate) >= 4 {
		if y, err := strconv.Atoi(m.Season.StartDate[:4]); err == nil {
			n.Season = y
		}
	}
	if n.Season == 0 {
		n.Season = SeasonYear(n.Date)
	}
	if m.Matchday != nil {
		n.Round = strconv.Itoa(*m.Matchday)
	}
	if len(m.Referees) > 0 {
		n.Referee = m.Referees[0].Name
	}
	return n
}

func goals(v *int) int {
	if v == nil {
		return store.NoGoals
	}
	return *v
}
