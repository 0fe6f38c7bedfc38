package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stayfinder/capture-app/internal/config"
	"stayfinder/capture-app/internal/domain"
	"stayfinder/capture-app/internal/service"
)

// SetupRoutes wires the HTTP surface. The session endpoints are deliberately
// unauthenticated: the session token itself is the capability to read and
// write a session. Only the export endpoint, which touches host data, sits
// behind JWT auth.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	captureCfg config.CaptureConfig,
	authService service.AuthService,
	sessionService service.SessionService,
) {
	authHandler := NewAuthHandler(authService)
	sessionHandler := NewSessionHandler(sessionService, captureCfg)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		sessionGroup := apiV1.Group("/sessions")
		{
			sessionGroup.POST("", sessionHandler.CreateSession)
			sessionGroup.GET("/:sessionId", sessionHandler.GetSession)
			sessionGroup.GET("/:sessionId/handoff", sessionHandler.GetHandoff)

			// Export is owner-only: hosts pull presigned copies of their
			// completed onboarding sessions for review.
			sessionGroup.POST("/:sessionId/export", authMiddleware, RoleMiddleware(domain.RoleHost), sessionHandler.ExportSession)
		}

		// The upload body carries the session token; the path stays fixed so
		// the mobile client only ever needs the one deep-link parameter.
		apiV1.POST("/photos", sessionHandler.UploadPhoto)
	}
}
