package handler

import (
	"net/http"

	"MiCiudadSV/internal/middleware"
	"MiCiudadSV/internal/pkg"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	svc     CommunityService
	members MembershipService
}

type CommunityCreateReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ToggleReq struct {
	CommunityID flexID `json:"communityId"`
}

func NewCommunityHandler(svc CommunityService, members MembershipService) *CommunityHandler {
	return &CommunityHandler{svc: svc, members: members}
}

func (h *CommunityHandler) List(c *gin.Context) {
	list, err := h.svc.ListAll(c.Request.Context(), c.Query("order"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "communities": list})
}

func (h *CommunityHandler) ListForUser(c *gin.Context) {
	list, err := h.svc.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "communities": list})
}

func (h *CommunityHandler) Create(c *gin.Context) {
	var req CommunityCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, pkg.InvalidInput("invalid params"))
		return
	}

	community, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req.Name, req.Description)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "community": community})
}

// Toggle joins or leaves the community named in the body.
func (h *CommunityHandler) Toggle(c *gin.Context) {
	var req ToggleReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CommunityID == 0 {
		middleware.RespondError(c, pkg.InvalidInput("communityId is required"))
		return
	}

	action, err := h.members.Toggle(c.Request.Context(), middleware.UserID(c), uint64(req.CommunityID))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "action": action})
}

func (h *CommunityHandler) Get(c *gin.Context) {
	id, err := communityIDParam(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	community, err := h.svc.GetDetails(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "community": community})
}

func (h *CommunityHandler) Members(c *gin.Context) {
	id, err := communityIDParam(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	members, err := h.svc.ListMembers(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "members": members})
}
