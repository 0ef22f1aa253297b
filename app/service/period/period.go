package period

import (
	"strings"
	"time"
)

const defaultWindowDays = 6

// Period is an inclusive range of calendar dates. Start and End are
// midnights in the reference location.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) String() string {
	return p.Start.Format("2006-01-02") + ".." + p.End.Format("2006-01-02")
}

// Contains reports whether t falls on one of the period's dates.
func (p Period) Contains(t time.Time) bool {
	day := midnight(t.In(p.Start.Location()))
	return !day.Before(p.Start) && !day.After(p.End)
}

type rule struct {
	keywords []string
	resolve  func(today time.Time) Period
}

// Checked in order, first containment match wins.
var rules = []rule{
	{keywords: []string{"next week", "来週"}, resolve: nextWeek},
	{keywords: []string{"this month", "今月"}, resolve: thisMonth},
	{keywords: []string{"next month", "来月"}, resolve: nextMonth},
}

// Parse turns a relative date expression into a date range. It never fails:
// unknown text yields the week starting at the reference date.
func Parse(expression string, reference time.Time) Period {
	today := midnight(reference)

	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(expression, keyword) {
				return r.resolve(today)
			}
		}
	}

	return Period{
		Start: today,
		End:   today.AddDate(0, 0, defaultWindowDays),
	}
}

func nextWeek(today time.Time) Period {
	daysAhead := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}

	monday := today.AddDate(0, 0, daysAhead)

	return Period{
		Start: monday,
		End:   monday.AddDate(0, 0, 6),
	}
}

func thisMonth(today time.Time) Period {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	return Period{
		Start: first,
		End:   first.AddDate(0, 1, -1),
	}
}

func nextMonth(today time.Time) Period {
	first := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())

	return Period{
		Start: first,
		End:   first.AddDate(0, 1, -1),
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
