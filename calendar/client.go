// Package calendar is a narrow Google Calendar v3 client: it counts
// events inside a horizon for the availability signal and creates
// review reminders from analysis reports.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// The Calendar API expects the legacy spelling of the zone name.
const eventTimeZone = "Europe/Kiev"

type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	calendarID string
}

func New(httpClient *http.Client, baseURL, token, calendarID string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(calendarID) == "" {
		calendarID = "primary"
	}
	return &Client{
		http:       httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		calendarID: calendarID,
	}
}

type Event struct {
	ID      string `json:"id,omitempty"`
	Summary string `json:"summary,omitempty"`
	Status  string `json:"status,omitempty"`
}

type eventsListResponse struct {
	Items []Event `json:"items"`
}

// ListEvents returns the events between from and to, recurring ones
// expanded to single instances.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("timeMin", from.Format(time.RFC3339))
	q.Set("timeMax", to.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("maxResults", "50")

	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(c.calendarID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("calendar http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out eventsListResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type eventReminders struct {
	UseDefault bool                    `json:"useDefault"`
	Overrides  []eventReminderOverride `json:"overrides"`
}

type insertEventRequest struct {
	Summary     string         `json:"summary"`
	Description string         `json:"description"`
	Start       eventTime      `json:"start"`
	End         eventTime      `json:"end"`
	Reminders   eventReminders `json:"reminders"`
}

// CreateEvent inserts an event with a 10 minute popup reminder.
func (c *Client) CreateEvent(ctx context.Context, summary, description string, start time.Time, duration time.Duration) (*Event, error) {
	if duration <= 0 {
		duration = 30 * time.Minute
	}
	body := insertEventRequest{
		Summary:     summary,
		Description: description,
		Start:       eventTime{DateTime: start.Format(time.RFC3339), TimeZone: eventTimeZone},
		End:         eventTime{DateTime: start.Add(duration).Format(time.RFC3339), TimeZone: eventTimeZone},
		Reminders: eventReminders{
			UseDefault: false,
			Overrides:  []eventReminderOverride{{Method: "popup", Minutes: 10}},
		},
	}
	b, _ := json.Marshal(body)

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("calendar http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out Event
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateReminderFromReport schedules a short review slot for a chat
// whose report deserves the owner's attention.
func (c *Client) CreateReminderFromReport(ctx context.Context, chatTitle, report string, confidence int, at time.Time) (*Event, error) {
	summary := fmt.Sprintf("[%d%%] Report Review: %s", confidence, chatTitle)
	description := "AI Analysis Report:\n\n" + report
	return c.CreateEvent(ctx, summary, description, at, 15*time.Minute)
}
