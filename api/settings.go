package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

const settingsMaxSize = 64 * 1024 // 64 KiB

func getSettings(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/settings")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, _, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		settings, fetchErr := d.Settings.FetchSettings(ctx, userID)
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}

		err = c.JSON(http.StatusOK, settings)
		return err
	}
}

func putSettings(d Deps) echo.HandlerFunc {
	return saveSettings(d, "/api/settings")
}

// importSettings accepts the JSON blob a previous export produced. Malformed
// or hand-broken input is a validation error: 400, nothing saved.
func importSettings(d Deps) echo.HandlerFunc {
	return saveSettings(d, "/api/settings/import")
}

func saveSettings(d Deps, route string) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, route)
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, _, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		lr := io.LimitReader(c.Request().Body, settingsMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var settings domain.Settings
		if decErr := dec.Decode(&settings); decErr != nil {
			m.SetErrorStage("invalid_body")
			err = c.String(http.StatusBadRequest, "invalid settings JSON")
			return err
		}
		if valErr := settings.Validate(); valErr != nil {
			m.SetErrorStage("validation")
			err = c.String(http.StatusBadRequest, valErr.Error())
			return err
		}

		saveStart := time.Now()
		saveErr := d.Settings.SaveSettings(ctx, userID, settings)
		m.ObserveFetch(time.Since(saveStart))
		if saveErr != nil {
			m.SetErrorStage("storage")
			c.Logger().Error(saveErr)
			err = c.String(http.StatusInternalServerError, saveErr.Error())
			return err
		}

		err = c.JSON(http.StatusOK, settings)
		return err
	}
}

func exportSettings(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), d.Logger, "/api/settings/export")
		defer func() { m.Log(c.Response().Status, err) }()

		authStart := time.Now()
		userID, _, authErr := authenticate(d.Auth, c)
		m.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			m.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		settings, fetchErr := d.Settings.FetchSettings(ctx, userID)
		m.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			m.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}

		data, encErr := sonic.ConfigStd.MarshalIndent(settings, "", "  ")
		if encErr != nil {
			m.SetErrorStage("encode_response")
			err = c.String(http.StatusInternalServerError, encErr.Error())
			return err
		}

		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="dashboard-settings.json"`)
		err = c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
		return err
	}
}
