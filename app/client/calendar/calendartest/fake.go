// Package calendartest provides an in-memory calendar.Client for tests.
package calendartest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"recruitbot/app/client/calendar"
)

type Call struct {
	Op    string
	ID    string
	Title string
	Start time.Time
}

// Fake stores events in memory and records every call. FailOn lets a test
// inject an error for a given operation; it is consulted before the call is
// applied.
type Fake struct {
	mu     sync.Mutex
	events map[string]calendar.Event
	calls  []Call
	nextID int

	FailOn func(call Call) error
}

func New(events ...calendar.Event) *Fake {
	f := &Fake{events: make(map[string]calendar.Event)}
	for _, e := range events {
		f.events[e.ID] = e
	}

	return f
}

func (f *Fake) ListEvents(_ context.Context, start, end time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Op: "list", Start: start}
	if err := f.fail(call); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, call)

	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)

	var result []calendar.Event
	for _, e := range f.events {
		if !e.Start.Before(from) && e.Start.Before(to) {
			result = append(result, e)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (f *Fake) CreateEvent(_ context.Context, start time.Time, durationHours float64, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Op: "create", Title: title, Start: start}
	if err := f.fail(call); err != nil {
		return "", err
	}

	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	call.ID = id
	f.calls = append(f.calls, call)

	f.events[id] = calendar.Event{
		ID:    id,
		Title: title,
		Start: start,
		End:   start.Add(time.Duration(durationHours * float64(time.Hour))),
	}

	return id, nil
}

func (f *Fake) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Op: "delete", ID: id}
	if err := f.fail(call); err != nil {
		return err
	}
	f.calls = append(f.calls, call)

	if _, ok := f.events[id]; !ok {
		return calendar.ErrNotFound
	}
	delete(f.events, id)

	return nil
}

func (f *Fake) fail(call Call) error {
	if f.FailOn == nil {
		return nil
	}

	return f.FailOn(call)
}

// Calls returns the successful calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Call(nil), f.calls...)
}

// Mutations counts successful create and delete calls.
func (f *Fake) Mutations() int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op != "list" {
			n++
		}
	}

	return n
}

// Events returns all stored events ordered by start time.
func (f *Fake) Events() []calendar.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]calendar.Event, 0, len(f.events))
	for _, e := range f.events {
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })

	return result
}

// Titles counts stored events per title.
func (f *Fake) Titles() map[string]int {
	counts := make(map[string]int)
	for _, e := range f.Events() {
		counts[e.Title]++
	}

	return counts
}

func (f *Fake) Get(id string) (calendar.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.events[id]
	return e, ok
}
