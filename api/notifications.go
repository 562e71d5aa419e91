package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/consts"
	"github.com/ankit-kumar-omnie/event-store-dashboard/querycache"
	"github.com/ankit-kumar-omnie/event-store-dashboard/upstream"
)

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

func notificationKeys(userID string) []string {
	return []string{
		consts.NotificationsKeyPrefix + userID,
		consts.UnreadCountKeyPrefix + userID,
	}
}

func getNotifications(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/notifications")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		items, fetchErr := querycache.Fetch(ctx, d.Cache, consts.NotificationsKeyPrefix+userID,
			func(ctx context.Context) ([]domain.Notification, error) {
				return d.Events.Notifications(ctx, token)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			// A rejected token means the cached views were fetched for a
			// session that no longer exists; drop them with it.
			if upstream.IsAuth(fetchErr) {
				d.Cache.Invalidate(ctx, notificationKeys(userID)...)
			}
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(len(items))
		err = c.JSON(http.StatusOK, notificationsResponse{Notifications: items})
		return err
	}
}

// The unread badge is a polling resource: the cache window stands in for the
// browser's interval timer, so repeated polls mostly hit redis instead of the
// event store.
func getUnreadCount(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/notifications/unread-count")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		count, fetchErr := querycache.Fetch(ctx, d.Cache, consts.UnreadCountKeyPrefix+userID,
			func(ctx context.Context) (int, error) {
				return d.Events.UnreadCount(ctx, token)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			if upstream.IsAuth(fetchErr) {
				d.Cache.Invalidate(ctx, notificationKeys(userID)...)
			}
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(count)
		err = c.JSON(http.StatusOK, unreadCountResponse{Count: count})
		return err
	}
}

// notificationMutation wraps the three write calls: auth, perform, then drop
// the user's cached notification views so the next read re-fetches. Nothing
// is patched locally.
func notificationMutation(d Deps, route string, perform func(ctx context.Context, token string, c echo.Context) error) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, route)
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		performErr := perform(ctx, token, c)
		m.ObserveFetch(time.Since(fetchStart))
		if performErr != nil {
			if upstream.IsAuth(performErr) {
				d.Cache.Invalidate(ctx, notificationKeys(userID)...)
			}
			m.SetErrorStage("mutation")
			err = upstreamError(c, performErr)
			return err
		}

		d.Cache.Invalidate(ctx, notificationKeys(userID)...)
		err = c.NoContent(http.StatusNoContent)
		return err
	}
}

func markNotificationRead(d Deps) echo.HandlerFunc {
	return notificationMutation(d, "/api/notifications/:id/read",
		func(ctx context.Context, token string, c echo.Context) error {
			return d.Events.MarkNotificationRead(ctx, token, c.Param("id"))
		})
}

func markAllNotificationsRead(d Deps) echo.HandlerFunc {
	return notificationMutation(d, "/api/notifications/read-all",
		func(ctx context.Context, token string, c echo.Context) error {
			return d.Events.MarkAllNotificationsRead(ctx, token)
		})
}

func deleteNotification(d Deps) echo.HandlerFunc {
	return notificationMutation(d, "/api/notifications/:id",
		func(ctx context.Context, token string, c echo.Context) error {
			return d.Events.DeleteNotification(ctx, token, c.Param("id"))
		})
}
