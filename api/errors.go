package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ankit-kumar-omnie/event-store-dashboard/upstream"
)

// upstreamError maps a classified client failure onto the response. A
// rejected token becomes 401 so the browser discards its stored token; a
// no-response failure becomes 502 with a retry prompt; a server failure keeps
// the upstream status and message and is never retried here.
func upstreamError(c echo.Context, err error) error {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		switch ue.Kind {
		case upstream.KindAuth:
			return c.String(http.StatusUnauthorized, "token rejected by event store")
		case upstream.KindNetwork:
			return c.String(http.StatusBadGateway, "event store unreachable, retry later")
		case upstream.KindDecode:
			c.Logger().Error(err)
			return c.String(http.StatusBadGateway, "unexpected event store response")
		case upstream.KindServer:
			status := ue.Status
			if status < 400 || status > 599 {
				status = http.StatusBadGateway
			}
			return c.String(status, ue.Message)
		}
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}
