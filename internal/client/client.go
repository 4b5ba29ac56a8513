// Package client talks to a running hexmap server over its HTTP API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/talgya/hexmap/internal/editor"
	"github.com/talgya/hexmap/internal/persistence"
	"github.com/talgya/hexmap/internal/world"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	Name          string `json:"name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Chunks        int    `json:"chunks"`
	Units         int    `json:"units"`
	MovingUnits   int    `json:"moving_units"`
	HasPath       bool   `json:"has_path"`
	DefaultSpeed  int    `json:"default_speed"`
	StreamClients int    `json:"stream_clients"`
	UptimeSeconds int    `json:"uptime_seconds"`
	Library       bool   `json:"library"`
	Tick          uint64 `json:"tick"`
	Running       bool   `json:"engine_running"`
}

// Error is a non-2xx response from the server.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Client calls the map API. AdminKey is sent as a bearer token when set.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// New creates a Client targeting the given API base URL.
func New(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status fetches the server status.
func (c *Client) Status() (*Status, error) {
	var st Status
	if err := c.do("GET", "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Map fetches the whole map.
func (c *Client) Map() (*editor.MapView, error) {
	var m editor.MapView
	if err := c.do("GET", "/api/v1/map", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindPath asks the server for a path; speed 0 uses the server default.
func (c *Client) FindPath(from, to world.Coordinates, speed int) (*editor.PathView, error) {
	req := map[string]any{"from": from, "to": to, "speed": speed}
	var p editor.PathView
	if err := c.do("POST", "/api/v1/path", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Edit applies a brush at center and returns the number of cells edited.
func (c *Client) Edit(b editor.Brush, center world.Coordinates, dragFrom *world.Coordinates) (int, error) {
	req := map[string]any{"brush": b, "center": center}
	if dragFrom != nil {
		req["drag_from"] = dragFrom
	}
	var resp struct {
		Edited int `json:"edited"`
	}
	if err := c.do("POST", "/api/v1/edit", req, &resp); err != nil {
		return 0, err
	}
	return resp.Edited, nil
}

// SaveMap stores the server's current map in its library under name.
func (c *Client) SaveMap(name string) (*persistence.MapInfo, error) {
	var info persistence.MapInfo
	if err := c.do("POST", "/api/v1/maps/"+name, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListMaps lists the server's map library.
func (c *Client) ListMaps() ([]persistence.MapInfo, error) {
	var maps []persistence.MapInfo
	if err := c.do("GET", "/api/v1/maps", nil, &maps); err != nil {
		return nil, err
	}
	return maps, nil
}

// do sends body as JSON and decodes the JSON response into target.
func (c *Client) do(method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AdminKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.AdminKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
