package server

import (
	"context"
	"net/http"
	"time"

	"ArtistHub/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ReleaseEventsHandler streams the caller's release events over a websocket.
// Browsers cannot set headers on the handshake, so the token may also come
// from the "token" query parameter.
func (h *APIHandler) ReleaseEventsHandler(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event feed unavailable")
		return
	}

	id := IdentityFromContext(r.Context())
	if token := r.URL.Query().Get("token"); !id.Authenticated() && token != "" {
		var err error
		if id, err = h.identityFromToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}
	if !id.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// r.Context() derives from the server's base context, so shutdown ends the feed.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 先订阅再升级，订阅失败时还能返回普通HTTP错误
	events, err := h.events.Listen(ctx, id.UserID)
	if err != nil {
		logger.Error("Failed to subscribe to release events", logger.UserID(id.UserID), logger.ErrorField(err))
		writeError(w, http.StatusServiceUnavailable, "event feed unavailable")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()
	logger.Debug("Release event feed opened", logger.UserID(id.UserID))

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	// 读循环只用于处理 pong 和检测客户端断开
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				closeFeed(conn)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("Release event write failed", logger.UserID(id.UserID), logger.ErrorField(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			logger.Debug("Release event feed closed", logger.UserID(id.UserID))
			closeFeed(conn)
			return
		}
	}
}

// closeFeed tells the client the feed is going away; errors are ignored.
func closeFeed(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
