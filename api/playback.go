package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/consts"
	"github.com/ankit-kumar-omnie/event-store-dashboard/playback"
	"github.com/ankit-kumar-omnie/event-store-dashboard/querycache"
)

const createPlaybackMaxSize = 4 * 1024

type createPlaybackRequest struct {
	IntervalMs int `json:"intervalMs"`
}

// createPlayback opens a time-travel session over the entity's event
// history. The interval defaults to the user's saved playback setting.
func createPlayback(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/entities/:id/playback")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, token, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		var req createPlaybackRequest
		if c.Request().ContentLength != 0 {
			lr := io.LimitReader(c.Request().Body, createPlaybackMaxSize)
			dec := sonic.ConfigStd.NewDecoder(lr)
			dec.DisallowUnknownFields()
			if decErr := dec.Decode(&req); decErr != nil && decErr != io.EOF {
				m.SetErrorStage("invalid_body")
				err = c.String(http.StatusBadRequest, "invalid body")
				return err
			}
		}

		interval := time.Duration(req.IntervalMs) * time.Millisecond
		if req.IntervalMs == 0 {
			if settings, settingsErr := d.Settings.FetchSettings(ctx, userID); settingsErr == nil {
				interval = time.Duration(settings.PlaybackIntervalMs) * time.Millisecond
			} else {
				interval = time.Duration(domain.DefaultSettings().PlaybackIntervalMs) * time.Millisecond
			}
		}

		entityID := c.Param("id")
		fetchStart := time.Now()
		replay, fetchErr := querycache.Fetch(ctx, d.Cache, consts.ReplayKeyPrefix+entityID,
			func(ctx context.Context) (domain.ReplayResult, error) {
				return d.Events.Replay(ctx, token, entityID)
			})
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("fetch")
			err = upstreamError(c, fetchErr)
			return err
		}

		session, createErr := d.Playback.Create(userID, entityID, replay.EventHistory, interval)
		if createErr != nil {
			if errors.Is(createErr, playback.ErrNoEvents) {
				m.SetErrorStage("no_events")
				err = c.String(http.StatusUnprocessableEntity, createErr.Error())
				return err
			}
			m.SetErrorStage("create_session")
			c.Logger().Error(createErr)
			err = c.String(http.StatusInternalServerError, createErr.Error())
			return err
		}

		m.SetItemsReturned(len(replay.EventHistory))
		err = c.JSON(http.StatusCreated, session.State())
		return err
	}
}

func getPlaybackState(d Deps) echo.HandlerFunc {
	return playbackAction(d, (*playback.Session).State)
}

func deletePlayback(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, _ := newRequestMetrics(c.Request().Context(), d.Logger, "/api/playback/:session")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, _, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		if delErr := d.Playback.Delete(userID, c.Param("session")); delErr != nil {
			m.SetErrorStage("not_found")
			err = c.String(http.StatusNotFound, delErr.Error())
			return err
		}
		err = c.NoContent(http.StatusNoContent)
		return err
	}
}

// playbackAction runs one cursor transition and answers with the resulting
// session state. Unknown sessions and sessions of other users both 404.
func playbackAction(d Deps, act func(*playback.Session) playback.State) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, _ := newRequestMetrics(c.Request().Context(), d.Logger, "/api/playback/:session")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, _, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		session, getErr := d.Playback.Get(userID, c.Param("session"))
		if getErr != nil {
			m.SetErrorStage("not_found")
			err = c.String(http.StatusNotFound, getErr.Error())
			return err
		}

		state := act(session)
		m.SetItemsReturned(state.Total)
		err = c.JSON(http.StatusOK, state)
		return err
	}
}
