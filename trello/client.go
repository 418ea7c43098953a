// Package trello is a narrow Trello REST client used for the task
// relevance signal and for filing follow-up cards from reports.
package trello

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"encoding/json"
)

const defaultBaseURL = "https://api.trello.com/1"

// ErrNoLists means the board has no lists to file a card into.
var ErrNoLists = errors.New("trello: board has no lists")

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	token   string
	boardID string
}

func New(httpClient *http.Client, baseURL, apiKey, token, boardID string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		token:   token,
		boardID: boardID,
	}
}

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
	URL  string `json:"url,omitempty"`
}

func (c *Client) auth() url.Values {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("token", c.token)
	return q
}

func (c *Client) GetLists(ctx context.Context) ([]List, error) {
	endpoint := fmt.Sprintf("%s/boards/%s/lists?%s", c.baseURL, url.PathEscape(c.boardID), c.auth().Encode())
	var out []List
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCards(ctx context.Context, listID string) ([]Card, error) {
	endpoint := fmt.Sprintf("%s/lists/%s/cards?%s", c.baseURL, url.PathEscape(listID), c.auth().Encode())
	var out []Card
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCard(ctx context.Context, listID, title, description string) (*Card, error) {
	q := c.auth()
	q.Set("idList", listID)
	q.Set("name", title)
	q.Set("desc", description)

	endpoint := fmt.Sprintf("%s/cards?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("trello http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out Card
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTaskFromReport files a card titled "[N%] title" into the list
// with the given name, matched case-insensitively; an unknown name
// falls back to the board's first list.
func (c *Client) CreateTaskFromReport(ctx context.Context, listName, chatTitle, report string, confidence int) (*Card, error) {
	lists, err := c.GetLists(ctx)
	if err != nil {
		return nil, err
	}

	var target *List
	for i := range lists {
		if strings.EqualFold(lists[i].Name, listName) {
			target = &lists[i]
			break
		}
	}
	if target == nil && len(lists) > 0 {
		target = &lists[0]
	}
	if target == nil {
		return nil, ErrNoLists
	}

	title := fmt.Sprintf("[%d%%] %s", confidence, chatTitle)
	return c.CreateCard(ctx, target.ID, title, report)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("trello http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
