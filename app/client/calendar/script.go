package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"recruitbot/app/config"

	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

// ScriptClient talks to an Apps Script web app that fronts the recruiting
// calendar.
type ScriptClient struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewScriptClient(cfg config.Calendar) *ScriptClient {
	return &ScriptClient{
		endpoint: cfg.URL,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

func (c *ScriptClient) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("startDate", start.Format(dateLayout))
	query.Set("endDate", end.Format(dateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, oops.In("calendar").With("start", start, "end", end).Wrapf(err, "list events")
	}

	var events []Event
	if err = json.Unmarshal(body, &events); err != nil {
		return nil, oops.In("calendar").Wrapf(err, "failed to decode events")
	}

	return events, nil
}

func (c *ScriptClient) CreateEvent(ctx context.Context, start time.Time, durationHours float64, title string) (string, error) {
	form := url.Values{}
	form.Set("Date", start.Format(time.RFC3339))
	form.Set("Hours", strconv.FormatFloat(durationHours, 'f', -1, 64))
	form.Set("Title", title)

	body, err := c.post(ctx, form)
	if err != nil {
		return "", oops.In("calendar").With("start", start, "title", title).Wrapf(err, "create event")
	}

	id := strings.TrimSpace(string(body))
	if id == "" {
		return "", oops.In("calendar").With("title", title).Errorf("create event returned empty id")
	}

	return id, nil
}

func (c *ScriptClient) DeleteEvent(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("Action", "delete")
	form.Set("Id", id)

	if _, err := c.post(ctx, form); err != nil {
		return oops.In("calendar").With("id", id).Wrapf(err, "delete event")
	}

	return nil
}

func (c *ScriptClient) post(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *ScriptClient) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
