/*
Package handler provides the HTTP handlers and routing setup for the chat relay server.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to WebSocket, and initiating the session lifecycle. Sessions
connect anonymously; identity is attached later through the login event.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"friendchat/internal/app/chat"
	"friendchat/internal/pkg/errs"
	"friendchat/internal/pkg/limiter"
	"friendchat/internal/pkg/logx"
	"friendchat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session := chat.NewSession(deps.Hub, conn, deps.Registry, deps.Archive, deps.Config.HistoryLimit)

		go session.WritePump()

		deps.Hub.Register(session)

		logx.Info("WebSocket connection established and session registered")

		session.ReadPump()
	}
}
