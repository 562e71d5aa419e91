package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/consts"
	"github.com/ankit-kumar-omnie/event-store-dashboard/playback"
	"github.com/ankit-kumar-omnie/event-store-dashboard/querycache"
	"github.com/ankit-kumar-omnie/event-store-dashboard/timeline"
)

// Deps carries everything the handlers need.
type Deps struct {
	Events   EventSource
	Cache    *querycache.Cache
	Settings SettingsStore
	Playback *playback.Manager
	Health   HealthSource
	Auth     Authenticator
	Logger   *log.Logger
}

// Register wires up all dashboard routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", healthz())
	e.GET("/api/upstream-health", getUpstreamHealth(d))

	e.GET("/api/entities/:id/replay", getReplay(d))
	e.GET("/api/entities/:id/timeline", getTimeline(d))
	e.GET("/api/entities/:id/activity", getActivity(d))
	e.GET("/api/entities/:id/statistics", getStatistics(d))
	e.GET("/api/entities/:id/state-at", getStateAt(d))
	e.GET("/api/entities/:id/compare", getCompare(d))

	e.GET("/api/users", getUsers(d))
	e.GET("/api/stats/overview", getOverview(d))

	e.GET("/api/settings", getSettings(d))
	e.PUT("/api/settings", putSettings(d))
	e.GET("/api/settings/export", exportSettings(d))
	e.POST("/api/settings/import", importSettings(d))

	e.GET("/api/notifications", getNotifications(d))
	e.GET("/api/notifications/unread-count", getUnreadCount(d))
	e.POST("/api/notifications/:id/read", markNotificationRead(d))
	e.POST("/api/notifications/read-all", markAllNotificationsRead(d))
	e.DELETE("/api/notifications/:id", deleteNotification(d))

	e.POST("/api/entities/:id/playback", createPlayback(d))
	e.GET("/api/playback/:session", getPlaybackState(d))
	e.DELETE("/api/playback/:session", deletePlayback(d))
	e.POST("/api/playback/:session/step-forward", playbackAction(d, (*playback.Session).StepForward))
	e.POST("/api/playback/:session/step-backward", playbackAction(d, (*playback.Session).StepBackward))
	e.POST("/api/playback/:session/jump-start", playbackAction(d, (*playback.Session).JumpStart))
	e.POST("/api/playback/:session/jump-end", playbackAction(d, (*playback.Session).JumpEnd))
	e.POST("/api/playback/:session/play", playbackAction(d, (*playback.Session).Play))
	e.POST("/api/playback/:session/pause", playbackAction(d, (*playback.Session).Pause))
}

type usersResponse struct {
	Users []domain.User `json:"users"`
}

type activityResponse struct {
	EntityID string               `json:"entityId"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Buckets  []timeline.DayBucket `json:"buckets"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// Upstream health is non-critical: it always answers 200 with whatever the
// poller last observed, unknown included.
func getUpstreamHealth(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, d.Health.Status())
	}
}

func authenticate(auth Authenticator, c echo.Context) (userID, token string, err error) {
	raw, err := bearerTokenFromString(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return "", "", err
	}
	userID, err = auth.UserIDFromBearer(raw)
	if err != nil {
		return "", "", err
	}
	return userID, string(raw), nil
}

func getReplay(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/entities/:id/replay")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		entityID := c.Param("id")
		fetchStart := time.Now()
		result, fetchErr := querycache.Fetch(ctx, d.Cache, consts.ReplayKeyPrefix+entityID,
			func(ctx context.Context) (domain.ReplayResult, error) {
				return d.Events.Replay(ctx, token, entityID)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(result.TotalEvents)
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, result)
		m.ObserveEncode(time.Since(encodeStart))
		return err
	}
}

func getTimeline(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/entities/:id/timeline")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		from, fromErr := parseTimeParam(c.QueryParam("from"), false)
		to, toErr := parseTimeParam(c.QueryParam("to"), true)
		if fromErr != nil || toErr != nil {
			m.SetErrorStage("invalid_range")
			err = c.String(http.StatusBadRequest, "invalid from/to")
			return err
		}

		entityID := c.Param("id")
		fetchStart := time.Now()
		tl, fetchErr := querycache.Fetch(ctx, d.Cache, consts.TimelineKeyPrefix+entityID,
			func(ctx context.Context) (domain.Timeline, error) {
				return d.Events.Timeline(ctx, token, entityID)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		filterStart := time.Now()
		events := tl.Events
		if !from.IsZero() || !to.IsZero() {
			events = timeline.FilterByDateRange(events, from, to)
		}
		events = timeline.FilterByTypes(events, splitTypes(c.QueryParam("types")))
		events = timeline.FilterByText(events, c.QueryParam("q"))
		events = timeline.SortByTimestamp(events)
		m.ObserveFilter(time.Since(filterStart))

		resp := domain.Timeline{Events: events, TotalEvents: len(events)}
		if len(events) > 0 {
			first := events[0].Timestamp
			last := events[len(events)-1].Timestamp
			resp.FirstEventAt = &first
			resp.LastEventAt = &last
		}

		m.SetItemsReturned(len(events))
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, resp)
		m.ObserveEncode(time.Since(encodeStart))
		return err
	}
}

func getActivity(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/entities/:id/activity")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		from, fromErr := parseTimeParam(c.QueryParam("from"), false)
		to, toErr := parseTimeParam(c.QueryParam("to"), true)
		if fromErr != nil || toErr != nil || from.IsZero() || to.IsZero() || to.Before(from) {
			m.SetErrorStage("invalid_range")
			err = c.String(http.StatusBadRequest, "from and to must form a valid interval")
			return err
		}

		entityID := c.Param("id")
		fetchStart := time.Now()
		tl, fetchErr := querycache.Fetch(ctx, d.Cache, consts.TimelineKeyPrefix+entityID,
			func(ctx context.Context) (domain.Timeline, error) {
				return d.Events.Timeline(ctx, token, entityID)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		filterStart := time.Now()
		buckets := timeline.CountByDay(tl.Events, from, to, time.Local)
		m.ObserveFilter(time.Since(filterStart))

		m.SetItemsReturned(len(buckets))
		err = c.JSON(http.StatusOK, activityResponse{
			EntityID: entityID,
			From:     from.Format("2006-01-02"),
			To:       to.Format("2006-01-02"),
			Buckets:  buckets,
		})
		return err
	}
}

func getStatistics(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/entities/:id/statistics")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		entityID := c.Param("id")
		fetchStart := time.Now()
		stats, fetchErr := querycache.Fetch(ctx, d.Cache, consts.StatisticsKeyPrefix+entityID,
			func(ctx context.Context) (domain.Statistics, error) {
				return d.Events.Statistics(ctx, token, entityID)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(stats.TotalEvents)
		err = c.JSON(http.StatusOK, stats)
		return err
	}
}

// State-at and compare bypass the cache: both are point-in-time questions
// the user asks rarely and expects fresh answers to.
func getStateAt(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/entities/:id/state-at")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		ts, tsErr := parseTimeParam(c.QueryParam("timestamp"), false)
		if tsErr != nil || ts.IsZero() {
			m.SetErrorStage("invalid_timestamp")
			err = c.String(http.StatusBadRequest, "timestamp is required")
			return err
		}

		fetchStart := time.Now()
		state, fetchErr := d.Events.StateAt(ctx, token, c.Param("id"), ts)
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(state.EventsApplied)
		err = c.JSON(http.StatusOK, state)
		return err
	}
}

func getCompare(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/entities/:id/compare")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		from, fromErr := parseTimeParam(c.QueryParam("from"), false)
		to, toErr := parseTimeParam(c.QueryParam("to"), true)
		if fromErr != nil || toErr != nil || from.IsZero() || to.IsZero() || to.Before(from) {
			m.SetErrorStage("invalid_range")
			err = c.String(http.StatusBadRequest, "from and to must form a valid interval")
			return err
		}

		fetchStart := time.Now()
		cmp, fetchErr := d.Events.Compare(ctx, token, c.Param("id"), from, to)
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(len(cmp.Diff.Changes))
		err = c.JSON(http.StatusOK, cmp)
		return err
	}
}

func getUsers(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/users")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		users, fetchErr := querycache.Fetch(ctx, d.Cache, consts.UsersKey,
			func(ctx context.Context) ([]domain.User, error) {
				return d.Events.Users(ctx, token)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(len(users))
		err = c.JSON(http.StatusOK, usersResponse{Users: users})
		return err
	}
}

func getOverview(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/stats/overview")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		_, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		overview, fetchErr := querycache.Fetch(ctx, d.Cache, consts.OverviewKey,
			func(ctx context.Context) (domain.Overview, error) {
				return d.Events.TotalEventsAcrossEntities(ctx, token)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		m.SetItemsReturned(overview.TotalEvents)
		err = c.JSON(http.StatusOK, overview)
		return err
	}
}

func splitTypes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseTimeParam accepts RFC 3339 or a bare date. A bare date used as an
// upper bound covers the whole day, keeping the range inclusive on both
// ends. Empty input is a zero time, not an error.
func parseTimeParam(v string, upperBound bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		if upperBound {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", v)
}
