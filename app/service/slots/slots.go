package slots

import (
	"fmt"
	"strings"
	"time"

	"recruitbot/app/client/calendar"
	"recruitbot/app/service/session"

	"github.com/elliotchance/pie/v2"
)

const DefaultLimit = 3

var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// FilterOpen picks the events titled openTitle that start at or after
// reference, earliest first, at most limit of them. A non-positive limit
// means DefaultLimit.
func FilterOpen(events []calendar.Event, openTitle string, reference time.Time, limit int) []session.OfferedSlot {
	if limit <= 0 {
		limit = DefaultLimit
	}

	open := pie.Filter(events, func(e calendar.Event) bool {
		return e.Title == openTitle && !e.Start.Before(reference)
	})

	open = pie.SortStableUsing(open, func(a, b calendar.Event) bool {
		return a.Start.Before(b.Start)
	})

	return pie.Map(pie.Top(open, limit), func(e calendar.Event) session.OfferedSlot {
		return session.OfferedSlot{
			ExternalID: e.ID,
			Start:      e.Start,
			End:        e.End,
		}
	})
}

// Number assigns 1-based display indexes in order.
func Number(offered []session.OfferedSlot) {
	for i := range offered {
		offered[i].DisplayIndex = i + 1
	}
}

// Format renders a slot as "2024/12/25(水) 10:00〜11:30" in loc.
func Format(slot session.OfferedSlot, loc *time.Location) string {
	start := slot.Start.In(loc)
	end := slot.End.In(loc)

	return fmt.Sprintf("%s(%s) %s〜%s",
		start.Format("2006/01/02"),
		weekdays[start.Weekday()],
		start.Format("15:04"),
		end.Format("15:04"),
	)
}

// FormatList renders numbered options, one per line.
func FormatList(offered []session.OfferedSlot, loc *time.Location) string {
	lines := make([]string, 0, len(offered))
	for _, slot := range offered {
		lines = append(lines, fmt.Sprintf("%d. %s", slot.DisplayIndex, Format(slot, loc)))
	}

	return strings.Join(lines, "\n")
}
