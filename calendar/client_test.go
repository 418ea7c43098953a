package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestListEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/calendars/primary/events") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer TOK" {
			t.Fatalf("unexpected auth: %q", auth)
		}
		q := r.URL.Query()
		if q.Get("singleEvents") != "true" || q.Get("timeMin") == "" || q.Get("timeMax") == "" {
			t.Fatalf("unexpected query: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"e1","summary":"Call"},{"id":"e2","summary":"Demo"}]}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "TOK", "primary")
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events, err := c.ListEvents(context.Background(), from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].Summary != "Call" {
		t.Fatalf("ListEvents() = %+v", events)
	}
}

func TestCreateReminderFromReport(t *testing.T) {
	var got insertEventRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"e9","summary":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "TOK", "")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev, err := c.CreateReminderFromReport(context.Background(), "Client A", "звіт", 91, at)
	if err != nil {
		t.Fatalf("CreateReminderFromReport() error = %v", err)
	}
	if ev.ID != "e9" {
		t.Fatalf("event id = %q", ev.ID)
	}
	if got.Summary != "[91%] Report Review: Client A" {
		t.Fatalf("summary = %q", got.Summary)
	}
	if !strings.HasPrefix(got.Description, "AI Analysis Report:\n\n") {
		t.Fatalf("description = %q", got.Description)
	}
	if got.Start.TimeZone != "Europe/Kiev" || got.End.TimeZone != "Europe/Kiev" {
		t.Fatalf("timezone = %q/%q", got.Start.TimeZone, got.End.TimeZone)
	}
	wantEnd := at.Add(15 * time.Minute).Format(time.RFC3339)
	if got.End.DateTime != wantEnd {
		t.Fatalf("end = %q, want %q", got.End.DateTime, wantEnd)
	}
	if got.Reminders.UseDefault || len(got.Reminders.Overrides) != 1 || got.Reminders.Overrides[0].Minutes != 10 {
		t.Fatalf("reminders = %+v", got.Reminders)
	}
}

func TestListEventsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403}}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "TOK", "primary")
	_, err := c.ListEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if err == nil {
		t.Fatalf("ListEvents() expected error")
	}
	if !strings.Contains(err.Error(), "calendar http 403") {
		t.Fatalf("ListEvents() error = %v", err)
	}
}
