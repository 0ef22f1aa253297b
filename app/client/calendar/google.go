package calendar

import (
	"context"
	"errors"
	"net/http"
	"time"

	"recruitbot/app/config"

	"github.com/samber/oops"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GoogleClient struct {
	service    *gcal.Service
	calendarID string
	timeout    time.Duration
}

func NewGoogleClient(ctx context.Context, cfg config.Calendar) (*GoogleClient, error) {
	service, err := gcal.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, oops.In("calendar").Wrapf(err, "failed to create Google Calendar service")
	}

	return &GoogleClient{
		service:    service,
		calendarID: cfg.CalendarID,
		timeout:    cfg.Timeout,
	}, nil
}

func (c *GoogleClient) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)

	var result []Event

	err := c.service.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				event, ok := fromGoogle(item)
				if !ok {
					continue
				}
				result = append(result, event)
			}
			return nil
		})
	if err != nil {
		return nil, oops.In("calendar").With("start", from, "end", to).Wrapf(err, "list events")
	}

	return result, nil
}

func (c *GoogleClient) CreateEvent(ctx context.Context, start time.Time, durationHours float64, title string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	event := &gcal.Event{
		Summary: title,
		Start:   &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: start.Add(durationOf(durationHours)).Format(time.RFC3339)},
	}

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", oops.In("calendar").With("start", start, "title", title).Wrapf(err, "create event")
	}

	return created.Id, nil
}

func (c *GoogleClient) DeleteEvent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.service.Events.Delete(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return ErrNotFound
		}
		return oops.In("calendar").With("id", id).Wrapf(err, "delete event")
	}

	return nil
}

func fromGoogle(item *gcal.Event) (Event, bool) {
	if item.Start == nil || item.End == nil || item.Start.DateTime == "" {
		return Event{}, false
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return Event{}, false
	}

	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return Event{}, false
	}

	return Event{
		ID:    item.Id,
		Title: item.Summary,
		Start: start,
		End:   end,
	}, true
}
