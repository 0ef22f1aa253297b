package slots

import (
	"math/rand"
	"testing"
	"time"

	"recruitbot/app/client/calendar"
	"recruitbot/app/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jst = time.FixedZone("JST", 9*60*60)

func at(day, hour int) time.Time {
	return time.Date(2024, 12, day, hour, 0, 0, 0, jst)
}

func event(id, title string, start time.Time) calendar.Event {
	return calendar.Event{ID: id, Title: title, Start: start, End: start.Add(90 * time.Minute)}
}

func TestFilterOpen(t *testing.T) {
	now := at(24, 12)

	events := []calendar.Event{
		event("late", "open", at(27, 10)),
		event("past", "open", at(23, 10)),
		event("booked", "Sato - XY University", at(25, 9)),
		event("first", "open", at(25, 10)),
		event("tentative", "tentative", at(25, 11)),
		event("exact", "open", now),
		event("second", "open", at(26, 10)),
	}

	got := FilterOpen(events, "open", now, 3)
	require.Len(t, got, 3)

	assert.Equal(t, "exact", got[0].ExternalID)
	assert.Equal(t, "first", got[1].ExternalID)
	assert.Equal(t, "second", got[2].ExternalID)
	assert.True(t, got[1].End.Equal(at(25, 10).Add(90*time.Minute)))
}

func TestFilterOpen_Empty(t *testing.T) {
	now := at(24, 12)

	assert.Empty(t, FilterOpen(nil, "open", now, 3))
	assert.Empty(t, FilterOpen([]calendar.Event{event("b", "busy", at(25, 10))}, "open", now, 3))
	assert.Empty(t, FilterOpen([]calendar.Event{event("p", "open", at(20, 10))}, "open", now, 3))
}

func TestFilterOpen_DefaultLimit(t *testing.T) {
	now := at(1, 0)

	var events []calendar.Event
	for d := 2; d < 10; d++ {
		events = append(events, event("e", "open", at(d, 10)))
	}

	assert.Len(t, FilterOpen(events, "open", now, 0), DefaultLimit)
}

func TestFilterOpen_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	titles := []string{"open", "tentative", "booked"}
	now := at(15, 12)

	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		events := make([]calendar.Event, 0, n)
		for i := 0; i < n; i++ {
			start := at(1+rng.Intn(28), rng.Intn(24))
			events = append(events, event(string(rune('a'+i)), titles[rng.Intn(len(titles))], start))
		}
		limit := 1 + rng.Intn(4)

		got := FilterOpen(events, "open", now, limit)
		again := FilterOpen(events, "open", now, limit)

		assert.Equal(t, got, again)
		assert.LessOrEqual(t, len(got), limit)

		byID := make(map[string]calendar.Event, len(events))
		for _, e := range events {
			byID[e.ID] = e
		}

		for i, slot := range got {
			assert.Equal(t, "open", byID[slot.ExternalID].Title)
			assert.False(t, slot.Start.Before(now))
			if i > 0 {
				assert.False(t, slot.Start.Before(got[i-1].Start))
			}
		}
	}
}

func TestNumberAndFormat(t *testing.T) {
	offered := []session.OfferedSlot{
		{ExternalID: "a", Start: at(25, 10), End: at(25, 10).Add(90 * time.Minute)},
		{ExternalID: "b", Start: at(26, 14), End: at(26, 14).Add(90 * time.Minute)},
	}
	Number(offered)

	assert.Equal(t, 1, offered[0].DisplayIndex)
	assert.Equal(t, 2, offered[1].DisplayIndex)

	assert.Equal(t, "2024/12/25(水) 10:00〜11:30", Format(offered[0], jst))
	assert.Equal(t, "1. 2024/12/25(水) 10:00〜11:30\n2. 2024/12/26(木) 14:00〜15:30", FormatList(offered, jst))

	// rendered in the display location, not the event's own
	utc := session.OfferedSlot{Start: at(25, 10).UTC(), End: at(25, 10).Add(90 * time.Minute).UTC()}
	assert.Equal(t, "2024/12/25(水) 10:00〜11:30", Format(utc, jst))
}
