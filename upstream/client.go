package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/metrics"
)

const maxResponseSize = 4 << 20 // 4 MiB

// Client is the typed HTTP client for the event store. One method per
// backend operation; every failure is a classified *Error. The client never
// retries by itself: retry policy belongs to the query cache.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *log.Logger
}

// New creates a client for the event store at baseURL.
func New(baseURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("upstream: invalid base URL")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Replay returns the entity's current state plus its full event history.
func (c *Client) Replay(ctx context.Context, token, entityID string) (domain.ReplayResult, error) {
	var out domain.ReplayResult
	err := c.do(ctx, "replay", http.MethodGet, token, entityPath(entityID, "replay"), nil, &out)
	return out, err
}

// Timeline returns the entity's ordered event timeline.
func (c *Client) Timeline(ctx context.Context, token, entityID string) (domain.Timeline, error) {
	var out domain.Timeline
	err := c.do(ctx, "timeline", http.MethodGet, token, entityPath(entityID, "timeline"), nil, &out)
	return out, err
}

// Statistics returns the server-computed aggregate for the entity.
func (c *Client) Statistics(ctx context.Context, token, entityID string) (domain.Statistics, error) {
	var out domain.Statistics
	err := c.do(ctx, "statistics", http.MethodGet, token, entityPath(entityID, "statistics"), nil, &out)
	return out, err
}

// StateAt returns the entity's state reconstructed up to ts.
func (c *Client) StateAt(ctx context.Context, token, entityID string, ts time.Time) (domain.StateAt, error) {
	q := url.Values{"timestamp": {ts.Format(time.RFC3339)}}
	var out domain.StateAt
	err := c.do(ctx, "state-at", http.MethodGet, token, entityPath(entityID, "state-at"), q, &out)
	return out, err
}

// Compare returns the server-computed diff between the entity's state at two
// points in time.
func (c *Client) Compare(ctx context.Context, token, entityID string, from, to time.Time) (domain.StateComparison, error) {
	q := url.Values{
		"from": {from.Format(time.RFC3339)},
		"to":   {to.Format(time.RFC3339)},
	}
	var out domain.StateComparison
	err := c.do(ctx, "compare", http.MethodGet, token, entityPath(entityID, "compare"), q, &out)
	return out, err
}

// Users lists the tracked entities.
func (c *Client) Users(ctx context.Context, token string) ([]domain.User, error) {
	out := []domain.User{}
	err := c.do(ctx, "users", http.MethodGet, token, "/api/users", nil, &out)
	return out, err
}

// Notifications lists the caller's notifications.
func (c *Client) Notifications(ctx context.Context, token string) ([]domain.Notification, error) {
	out := []domain.Notification{}
	err := c.do(ctx, "notifications", http.MethodGet, token, "/api/notifications", nil, &out)
	return out, err
}

// UnreadCount returns the caller's unread notification count.
func (c *Client) UnreadCount(ctx context.Context, token string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, "unread-count", http.MethodGet, token, "/api/notifications/unread-count", nil, &out)
	return out.Count, err
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, token, id string) error {
	return c.do(ctx, "mark-read", http.MethodPost, token, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead flags every notification of the caller as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, token string) error {
	return c.do(ctx, "mark-all-read", http.MethodPost, token, "/api/notifications/read-all", nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete-notification", http.MethodDelete, token, "/api/notifications/"+url.PathEscape(id), nil, nil)
}

// Health checks the event store health endpoint. No token is attached.
func (c *Client) Health(ctx context.Context) (domain.HealthStatus, error) {
	var out domain.HealthStatus
	err := c.do(ctx, "health", http.MethodGet, "", "/health", nil, &out)
	if err != nil {
		return domain.HealthStatus{}, err
	}
	if out.Status == "" {
		out.Status = domain.HealthOK
	}
	out.CheckedAt = time.Now()
	return out, nil
}

func entityPath(entityID, op string) string {
	return "/api/event-sourcing/" + url.PathEscape(entityID) + "/" + op
}

func (c *Client) do(ctx context.Context, op, method, token, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	metrics.ObserveUpstreamDuration(time.Since(start))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Op: op, Status: resp.StatusCode, Message: "token rejected"}
	case resp.StatusCode >= 400:
		return &Error{Kind: KindServer, Op: op, Status: resp.StatusCode, Message: serverMessage(body)}
	}

	if out == nil {
		return nil
	}
	return decodePayload(op, body, out)
}

func serverMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := sonic.ConfigStd.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if msg == "" {
		msg = "request failed"
	}
	return msg
}
