package api

import (
	"context"
	"time"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

// EventSource abstracts the event store client for handlers. The token is
// the caller's bearer token, forwarded verbatim.
type EventSource interface {
	Replay(ctx context.Context, token, entityID string) (domain.ReplayResult, error)
	Timeline(ctx context.Context, token, entityID string) (domain.Timeline, error)
	Statistics(ctx context.Context, token, entityID string) (domain.Statistics, error)
	StateAt(ctx context.Context, token, entityID string, ts time.Time) (domain.StateAt, error)
	Compare(ctx context.Context, token, entityID string, from, to time.Time) (domain.StateComparison, error)
	Users(ctx context.Context, token string) ([]domain.User, error)
	Notifications(ctx context.Context, token string) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, token string) (int, error)
	MarkNotificationRead(ctx context.Context, token, id string) error
	MarkAllNotificationsRead(ctx context.Context, token string) error
	DeleteNotification(ctx context.Context, token, id string) error
	TotalEventsAcrossEntities(ctx context.Context, token string) (domain.Overview, error)
}

// SettingsStore persists per-user dashboard settings.
type SettingsStore interface {
	FetchSettings(ctx context.Context, userID string) (domain.Settings, error)
	SaveSettings(ctx context.Context, userID string, settings domain.Settings) error
}

// HealthSource reports the last observed upstream health.
type HealthSource interface {
	Status() domain.HealthStatus
}

// Authenticator is implemented by types able to extract user IDs from bearer
// tokens.
type Authenticator interface {
	UserIDFromBearer(token []byte) (string, error)
}
