package trello

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, createdNames *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "K" || q.Get("token") != "T" {
			t.Fatalf("missing auth params: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/boards/B1/lists"):
			_, _ = w.Write([]byte(`[{"id":"l1","name":"To Do"},{"id":"l2","name":"Важливі завдання"}]`))
		case strings.Contains(r.URL.Path, "/lists/l1/cards"):
			_, _ = w.Write([]byte(`[{"id":"c1","name":"Landing for Client A","url":"https://trello.test/c1"}]`))
		case r.URL.Path == "/cards" && r.Method == http.MethodPost:
			if createdNames != nil {
				*createdNames = append(*createdNames, q.Get("name"))
			}
			if q.Get("idList") == "" {
				t.Fatalf("missing idList: %v", q)
			}
			_, _ = w.Write([]byte(`{"id":"c9","name":"` + q.Get("name") + `","url":"https://trello.test/c9"}`))
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
}

func TestGetListsAndCards(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "K", "T", "B1")
	lists, err := c.GetLists(context.Background())
	if err != nil {
		t.Fatalf("GetLists() error = %v", err)
	}
	if len(lists) != 2 || lists[1].Name != "Важливі завдання" {
		t.Fatalf("GetLists() = %+v", lists)
	}

	cards, err := c.GetCards(context.Background(), "l1")
	if err != nil {
		t.Fatalf("GetCards() error = %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "Landing for Client A" {
		t.Fatalf("GetCards() = %+v", cards)
	}
}

func TestCreateTaskFromReportMatchesListCaseInsensitive(t *testing.T) {
	var created []string
	srv := newTestServer(t, &created)
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "K", "T", "B1")
	card, err := c.CreateTaskFromReport(context.Background(), "важливі завдання", "Client A", "звіт", 85)
	if err != nil {
		t.Fatalf("CreateTaskFromReport() error = %v", err)
	}
	if card.ID != "c9" {
		t.Fatalf("card = %+v", card)
	}
	if len(created) != 1 || created[0] != "[85%] Client A" {
		t.Fatalf("created names = %v", created)
	}
}

func TestCreateTaskFromReportFallsBackToFirstList(t *testing.T) {
	var created []string
	srv := newTestServer(t, &created)
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "K", "T", "B1")
	if _, err := c.CreateTaskFromReport(context.Background(), "No Such List", "Client B", "звіт", 80); err != nil {
		t.Fatalf("CreateTaskFromReport() error = %v", err)
	}
	if len(created) != 1 || created[0] != "[80%] Client B" {
		t.Fatalf("created names = %v", created)
	}
}

func TestCreateTaskFromReportNoLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "K", "T", "B1")
	_, err := c.CreateTaskFromReport(context.Background(), "To Do", "Client C", "звіт", 80)
	if err != ErrNoLists {
		t.Fatalf("CreateTaskFromReport() error = %v, want ErrNoLists", err)
	}
}
