package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/auth"
)

// Routes bundles what RegisterRoutes mounts. Auth and Stream may be nil.
type Routes struct {
	Handler    *Handler
	Auth       *AuthHandler
	Stream     *SessionStream
	JWTManager *auth.JWTManager
	Limiter    *RateLimiter
	// WriteRole is required on mutating endpoints. Empty allows every authenticated user.
	WriteRole string
}

// RegisterRoutes mounts the auth and architecture endpoints under api
func RegisterRoutes(api *gin.RouterGroup, r Routes) {
	if r.Auth != nil {
		authGroup := api.Group("/auth")
		if r.Limiter.Enabled() {
			authGroup.Use(r.Limiter.Middleware())
		}
		authGroup.POST("/login", r.Auth.Login)
		authGroup.POST("/refresh", r.Auth.Refresh)
	}

	arch := api.Group("/architecture")

	// The stream accepts ?token= since browsers cannot set headers on websockets
	if r.Stream != nil {
		streamChain := []gin.HandlerFunc{auth.RequireStreamAuth(r.JWTManager)}
		if r.Limiter.Enabled() {
			streamChain = append(streamChain, r.Limiter.Middleware())
		}
		arch.GET("/ws", append(streamChain, r.Stream.Stream)...)
	}

	protected := arch.Group("")
	protected.Use(auth.RequireAuth(r.JWTManager))
	if r.Limiter.Enabled() {
		protected.Use(r.Limiter.Middleware())
	}

	writes := []gin.HandlerFunc{}
	if r.WriteRole != "" {
		writes = append(writes, auth.RequireRole(r.WriteRole))
	}
	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), h)
	}

	protected.POST("/command", write(r.Handler.ProcessCommand)...)
	protected.POST("/deep-modify", write(r.Handler.DeepModify)...)
	protected.POST("/batch", write(r.Handler.BatchCommands)...)
	protected.POST("/undo", write(r.Handler.Undo)...)

	protected.POST("/suggestions", r.Handler.Suggestions)
	protected.GET("/history", r.Handler.History)
	protected.GET("/document", r.Handler.Document)
}
