package router

import (
	"context"
	"net/http"

	"MiCiudadSV/internal/config"
	"MiCiudadSV/internal/handler"
	"MiCiudadSV/internal/metrics"
	"MiCiudadSV/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Deps are the services behind the routes.
type Deps struct {
	Communities    handler.CommunityService
	Members        handler.MembershipService
	Messages       handler.MessageService
	Users          handler.UserService
	Auth           middleware.Authenticator
	Hub            handler.StreamHub
	Ping           func(ctx context.Context) error
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

func InitRouter(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(d.Metrics))

	community := handler.NewCommunityHandler(d.Communities, d.Members)
	message := handler.NewMessageHandler(d.Messages)
	user := handler.NewUserHandler(d.Users, cfg.Photos.MaxBytes)
	health := handler.NewHealthHandler(d.Ping)

	auth := middleware.AuthMiddleware(d.Auth, cfg.App.TrustCallerHeader)
	limit := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, d.Metrics).Middleware()
	timeout := middleware.Timeout(cfg.App.RequestTimeout)

	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}
	if cfg.Photos.UploadDir != "" {
		r.Static("/uploads", cfg.Photos.UploadDir)
	}

	// community, membership and messaging endpoints
	communityGroup := r.Group("/communities", timeout)
	{
		communityGroup.GET("/test/connection", health.Connection)
		communityGroup.GET("", community.List)
		communityGroup.GET("/user", auth, community.ListForUser)
		communityGroup.POST("", auth, limit, community.Create)
		communityGroup.POST("/action", auth, limit, community.Toggle)
		communityGroup.GET("/:id", community.Get)
		communityGroup.GET("/:id/members", community.Members)
		communityGroup.GET("/:id/messages", message.List)
		communityGroup.POST("/:id/messages", auth, limit, message.Send)
	}

	// long-lived, so outside the request timeout
	if d.Hub != nil {
		stream := handler.NewStreamHandler(d.Hub, d.Members, cfg.App.RequestTimeout)
		r.GET("/communities/:id/stream", auth, stream.Stream)
	}

	userGroup := r.Group("/users", timeout)
	{
		userGroup.POST("/register", limit, user.Register)
		userGroup.POST("/login", limit, user.Login)
		userGroup.POST("/token/refresh", limit, user.Refresh)
	}

	authGroup := userGroup.Group("", auth)
	{
		authGroup.POST("/logout", user.Logout)
		authGroup.GET("/me", user.Me)
		authGroup.PUT("/me/photo", limit, user.UploadPhoto)
		authGroup.POST("/verify/code", limit, user.SendCode)
		authGroup.POST("/verify", user.Verify)
	}

	return r
}
