package friendsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to the friends API on behalf of one session.
type Client struct {
	baseURL string
	session string
	http    *http.Client
	dialer  *websocket.Dialer
}

// NewClient returns a client for the API at baseURL (for example
// "http://localhost:8080/api/v1") authenticated with a session token.
func NewClient(baseURL, sessionToken string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: sessionToken,
		http:    &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("friendsync: %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.session)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body apiError
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &StatusError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PendingCount fetches the number of requests waiting for the user. It
// satisfies Fetcher.
func (c *Client) PendingCount(ctx context.Context) (int64, error) {
	var body struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/friends/pending-count", &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

// RealtimeToken requests a short-lived token for opening a subscription.
func (c *Client) RealtimeToken(ctx context.Context) (string, time.Time, error) {
	var body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.do(ctx, http.MethodPost, "/realtime/token", &body); err != nil {
		return "", time.Time{}, err
	}
	return body.Token, body.ExpiresAt, nil
}

// Subscribe opens a WebSocket subscription with a fresh realtime token.
func (c *Client) Subscribe(ctx context.Context) (*WebSocketStream, error) {
	token, _, err := c.RealtimeToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("friendsync: realtime token: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/realtime/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("friendsync: dial: %w", err)
	}
	return newWebSocketStream(conn), nil
}

// WebSocketStream is a Stream over a WebSocket connection.
type WebSocketStream struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func newWebSocketStream(conn *websocket.Conn) *WebSocketStream {
	s := &WebSocketStream{conn: conn, events: make(chan Event, 16), done: make(chan struct{})}
	go s.readLoop()
	return s
}

func (s *WebSocketStream) readLoop() {
	defer close(s.events)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

// Events returns the received events. It is closed when the connection ends.
func (s *WebSocketStream) Events() <-chan Event {
	return s.events
}

// Close closes the connection.
func (s *WebSocketStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
