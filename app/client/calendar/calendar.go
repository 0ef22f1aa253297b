package calendar

import (
	"context"
	"errors"
	"time"

	"recruitbot/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

var ErrNotFound = errors.New("calendar event not found")

type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
}

// Client is the calendar store the reservation flow mutates. ListEvents
// takes an inclusive date range; only the date part of start and end is used.
type Client interface {
	ListEvents(ctx context.Context, start, end time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, start time.Time, durationHours float64, title string) (string, error)
	DeleteEvent(ctx context.Context, id string) error
}

func New(di *do.Injector) (Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.Calendar.Provider {
	case "gas":
		return NewScriptClient(cfg.Calendar), nil
	case "google":
		return NewGoogleClient(do.MustInvoke[context.Context](di), cfg.Calendar)
	default:
		return nil, oops.Errorf("unknown calendar provider %q", cfg.Calendar.Provider)
	}
}

func durationOf(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
