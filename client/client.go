// Package client talks to a messenger server over HTTP.
package client

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

// UserAgent identifies this client. Servers list "termsg" among their
// command-line agents and answer it with the terminal rendering.
const UserAgent = "termsg/1.0"

type Client struct {
	baseURL string
	http    *http.Client
}

type SendResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Theme string `json:"theme"`
}

type Theme struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Error is a non-2xx answer from the server.
type Error struct {
	Status int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Reason)
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Send stores a message. An empty theme lets the server pick its default.
func (c *Client) Send(ctx context.Context, message, theme string) (SendResponse, error) {
	body, err := json.Marshal(map[string]string{"message": message, "theme": theme})
	if err != nil {
		return SendResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return SendResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp SendResponse
	return resp, c.doJSON(req, &resp)
}

func (c *Client) Themes(ctx context.Context) ([]Theme, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/themes", nil)
	if err != nil {
		return nil, err
	}
	var themes []Theme
	return themes, c.doJSON(req, &themes)
}

// Fetch returns the terminal rendering of a message, the way curl sees it.
// A missing message is an *Error with status 404 whose Reason is the
// rendered panel.
func (c *Client) Fetch(ctx context.Context, id string, colored bool) (string, error) {
	target := c.baseURL + "/" + url.PathEscape(id)
	if !colored {
		target += "?color=0"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Status: resp.StatusCode, Reason: string(data)}
	}
	return string(data), nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	req.Header.Set("User-Agent", UserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return &Error{Status: resp.StatusCode, Reason: failure.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
