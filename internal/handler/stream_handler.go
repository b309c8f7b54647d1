package handler

import (
	"context"
	"net/http"
	"time"

	"MiCiudadSV/internal/middleware"
	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"
	"MiCiudadSV/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type StreamHub interface {
	Register(communityID, userID uint64, client ws.Subscriber) bool
	Unregister(communityID uint64, client ws.Subscriber)
}

type StreamHandler struct {
	hub          StreamHub
	members      MembershipService
	upgrader     websocket.Upgrader
	checkTimeout time.Duration
}

func NewStreamHandler(hub StreamHub, members MembershipService, checkTimeout time.Duration) *StreamHandler {
	return &StreamHandler{
		hub:     hub,
		members: members,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// mobile clients send no Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		checkTimeout: checkTimeout,
	}
}

// Stream upgrades to a websocket that receives every new message of the community.
// Only callers holding a role in the community may subscribe; leaving the
// community evicts the user's connections.
func (h *StreamHandler) Stream(c *gin.Context) {
	id, err := communityIDParam(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	userID := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
	role, err := h.members.GetRole(ctx, userID, id)
	cancel()
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if role == model.RoleNotJoined {
		middleware.RespondError(c, pkg.Forbidden("join the community to follow its messages"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		return
	}
	log := logrus.WithFields(logrus.Fields{"community_id": id, "user_id": userID})
	client := ws.NewClient(conn, log)
	if !h.hub.Register(id, userID, client) {
		_ = conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump()
	h.hub.Unregister(id, client)
}
