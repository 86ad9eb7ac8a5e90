package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// streamTasks pushes the owner's task list as server-sent events on a fixed
// interval. EventSource clients cannot set headers, so a session token may
// also arrive as a query parameter.
func streamTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	interval := envDur("STREAM_INTERVAL", 5*time.Second)

	return func(c echo.Context) error {
		req := c.Request()
		if token := c.QueryParam("token"); token != "" && req.Header.Get("Authorization") == "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		identity, err := auth.IdentityFromRequest(req)
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		ctx := req.Context()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			tasks, err := store.ListTasks(ctx, identity.UserID)
			if err == nil {
				data, _ := sonic.Marshal(tasks)
				if _, err := c.Response().Write([]byte("data: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				continue
			}
		}
	}
}
