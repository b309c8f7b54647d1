package handler

import (
	"net/http"

	"MiCiudadSV/internal/middleware"
	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	svc MessageService
}

type SendMessageReq struct {
	Body string `json:"body"`
}

func NewMessageHandler(svc MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// List accepts ?after_id= and ?limit= for incremental polling.
func (h *MessageHandler) List(c *gin.Context) {
	id, err := communityIDParam(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	afterID, err := optionalUint(c, "after_id")
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	limit, err := optionalUint(c, "limit")
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if limit > maxLimitParam {
		limit = maxLimitParam
	}

	list, err := h.svc.ListMessages(c.Request.Context(), id, model.Page{AfterID: afterID, Limit: int(limit)})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": list})
}

func (h *MessageHandler) Send(c *gin.Context) {
	id, err := communityIDParam(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	var req SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, pkg.InvalidInput("invalid params"))
		return
	}

	msg, err := h.svc.Send(c.Request.Context(), middleware.UserID(c), id, req.Body)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}
