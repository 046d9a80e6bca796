// Package client talks to a galcon server over HTTP and the spectator
// WebSocket.
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
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/model"
)

// Event mirrors handler.WSEvent for client-side deserialization.
type Event struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id"`
	Data    json.RawMessage `json:"data"`
}

// Client is an HTTP+WebSocket client for one spectator or operator.
type Client struct {
	baseURL  string
	token    string
	role     string
	wsConn   *websocket.Conn
	events   chan Event
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// New creates a client targeting the given server URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan Event, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Role returns the role granted at login.
func (c *Client) Role() string { return c.role }

// LoginSpectator obtains a read-only token.
func (c *Client) LoginSpectator(ctx context.Context, name string) error {
	return c.login(ctx, "/auth/spectator?name="+url.QueryEscape(name), nil)
}

// LoginOperator obtains a token that may start and cancel matches.
func (c *Client) LoginOperator(ctx context.Context, name, key string) error {
	return c.login(ctx, "/auth/operator", map[string]string{"name": name, "key": key})
}

func (c *Client) login(ctx context.Context, path string, payload any) error {
	var tokens struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	if err := c.do(ctx, http.MethodPost, path, payload, &tokens); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = tokens.AccessToken
	c.role = tokens.Role
	log.Debug().Str("role", c.role).Msg("Client logged in")
	return nil
}

// StartMatch asks the server to run a match. Profiles maps player IDs to
// planner profiles.
func (c *Client) StartMatch(ctx context.Context, name string, profiles map[int]string, seed int64) (*model.Match, error) {
	body := map[string]any{"name": name, "profiles": profiles, "seed": seed}
	var m model.Match
	if err := c.do(ctx, http.MethodPost, "/api/v1/matches", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMatch fetches a match record.
func (c *Client) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	if err := c.do(ctx, http.MethodGet, "/api/v1/matches/"+url.PathEscape(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LiveMatches lists the IDs of running matches.
func (c *Client) LiveMatches(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.do(ctx, http.MethodGet, "/api/v1/matches/live", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// CancelMatch stops a running match.
func (c *Client) CancelMatch(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/matches/"+url.PathEscape(id), nil, nil)
}

// ConnectWS opens the spectator WebSocket and starts listening for events.
func (c *Client) ConnectWS(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// Subscribe starts receiving events for a match.
func (c *Client) Subscribe(matchID string) error {
	msg := map[string]string{"action": "subscribe", "match_id": matchID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events. It is closed when
// the connection ends.
func (c *Client) Events() <-chan Event { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

// readWSLoop splits batched frames: the server joins queued events with newlines.
func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Msg("WS read error")
			}
			return
		}
		for _, line := range bytes.Split(msg, []byte("\n")) {
			var event Event
			if err := json.Unmarshal(line, &event); err != nil {
				continue
			}
			c.events <- event
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
