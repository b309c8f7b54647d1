package handler

import (
	"errors"
	"net/http"

	"MiCiudadSV/internal/middleware"
	"MiCiudadSV/internal/pkg"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc           UserService
	maxPhotoBytes int64
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshReq struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type VerifyReq struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

func NewUserHandler(svc UserService, maxPhotoBytes int64) *UserHandler {
	return &UserHandler{svc: svc, maxPhotoBytes: maxPhotoBytes}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, pkg.InvalidInput("invalid params"))
		return
	}
	user, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, pkg.InvalidInput("invalid params"))
		return
	}
	pair, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user,
	})
}

func (h *UserHandler) Refresh(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, pkg.InvalidInput("refreshToken is required"))
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.svc.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *UserHandler) SendCode(c *gin.Context) {
	if err := h.svc.SendVerificationCode(c.Request.Context(), middleware.UserID(c)); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "verification code sent"})
}

func (h *UserHandler) Verify(c *gin.Context) {
	var req VerifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, pkg.InvalidInput("code must be 6 digits"))
		return
	}
	user, err := h.svc.VerifyEmail(c.Request.Context(), middleware.UserID(c), req.Code)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// UploadPhoto expects a multipart form with a "photo" file field.
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	if h.maxPhotoBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPhotoBytes+(1<<20))
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondError(c, pkg.InvalidInput("photo is too large"))
			return
		}
		middleware.RespondError(c, pkg.InvalidInput("photo file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		middleware.RespondError(c, pkg.InvalidInput("could not read photo"))
		return
	}
	defer f.Close()

	user, err := h.svc.UpdatePhoto(c.Request.Context(), middleware.UserID(c), f, fh.Size)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
