package footballdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/util"
)

// CSVSource is the name recorded against CSV imports
const CSVSource = "football-data.co.uk"

var ukTime = mustLoadLocation("Europe/London")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CSVLeague names the competition a results file belongs to
type CSVLeague struct {
	Code    string
	Name    string
	Country string
	Season  int // year the season started, 0 to derive it from each date
}

// ImportCSV stores every row of a football-data.co.uk results file
func (i *Ingester) ImportCSV(ctx context.Context, r io.Reader, league CSVLeague) (*store.IngestionLog, error) {
	return i.run(ctx, CSVSource, "csv", func(log *store.IngestionLog) error {
		matches, bad, err := ParseCSV(r, league)
		if err != nil {
			return err
		}
		log.RecordsFailed += bad
		return i.saveAll(ctx, log, matches)
	})
}

// ParseCSV reads a football-data.co.uk results file. Rows that cannot be
// read are skipped and counted
func ParseCSV(r io.Reader, league CSVLeague) ([]NormalizedMatch, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := map[string]int{}
	for n, h := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(h), "\uFEFF")] = n
	}
	for _, required := range []string{"Date", "HomeTeam", "AwayTeam"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("csv is missing the %s column", required)
		}
	}

	var matches []NormalizedMatch
	bad := 0
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logger.Warn("Skipping unreadable csv line", line, err)
			bad++
			continue
		}
		field := func(name string) string {
			if n, ok := cols[name]; ok && n < len(record) {
				return strings.TrimSpace(record[n])
			}
			return ""
		}
		if field("HomeTeam") == "" && field("Date") == "" {
			continue
		}

		m, err := csvMatch(field, league)
		if err != nil {
			logger.Warn("Skipping csv line", line, err)
			bad++
			continue
		}
		matches = append(matches, m)
	}
	return matches, bad, nil
}

func csvMatch(field func(string) string, league CSVLeague) (NormalizedMatch, error) {
	date, err := parseCSVDate(field("Date"), field("Time"))
	if err != nil {
		return NormalizedMatch{}, err
	}

	m := NormalizedMatch{
		Source:       CSVSource,
		Date:         date,
		HomeTeamName: field("HomeTeam"),
		AwayTeamName: field("AwayTeam"),
		GoalsHome:    csvGoals(field("FTHG")),
		GoalsAway:    csvGoals(field("FTAG")),
		HalftimeHome: csvGoals(field("HTHG")),
		HalftimeAway: csvGoals(field("HTAG")),
		LeagueName:   league.Name,
		LeagueCode:   league.Code,
		Country:      league.Country,
		Season:       league.Season,
		Referee:      field("Referee"),
	}
	if m.HomeTeamName == "" || m.AwayTeamName == "" {
		return m, errors.New("missing team name")
	}
	if m.Season == 0 {
		m.Season = SeasonYear(date)
	}
	if m.GoalsHome != store.NoGoals && m.GoalsAway != store.NoGoals {
		m.StatusShort, m.StatusLong = store.StatusFinished, "FINISHED"
	} else {
		m.StatusShort, m.StatusLong = store.StatusNotStarted, "SCHEDULED"
	}

	key := league.Code
	if key == "" {
		key = league.Name
	}
	m.ID = fmt.Sprintf("csv-%s-%s-%s-%s", util.Slugify(key), date.Format("20060102"),
		util.TeamSlug(m.HomeTeamName), util.TeamSlug(m.AwayTeamName))
	return m, nil
}

// parseCSVDate reads dd/mm/yy or dd/mm/yyyy with an optional HH:MM in UK
// local time
func parseCSVDate(date, clock string) (time.Time, error) {
	layouts := []string{"02/01/2006", "02/01/06"}
	if clock != "" {
		layouts = []string{"02/01/2006 15:04", "02/01/06 15:04"}
		date = date + " " + clock
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, date, ukTime); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", date)
}

func csvGoals(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return store.NoGoals
	}
	return n
}
