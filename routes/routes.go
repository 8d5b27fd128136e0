package routes

import (
	"net/http"
	"time"

	"inkpost/auth"
	"inkpost/handlers"
	"inkpost/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the engine with CORS and the full route table.
func SetupRouter(h *handlers.Handler, tokens *auth.TokenService, origins []string) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "inkpost backend running", "service": "healthy"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Public routes
	router.POST("/signup", h.Signup)
	router.POST("/verifyotp", h.VerifyOTP)
	router.POST("/login", h.Login)
	router.POST("/forgotpassword", h.ForgotPassword)
	router.POST("/logout", h.Logout)
	router.GET("/posts", h.ListPosts)
	router.GET("/readpost/:id", h.ReadPost)
	router.GET("/editpost/:id", h.ReadPost)
	router.GET("/publicprofile/:email", h.PublicProfile)
	router.POST("/postimage", h.UploadPostImage)
	router.POST("/deletepostimage", h.DeletePostImage)
	router.GET("/vapidpublickey", h.VAPIDPublicKey)

	session := router.Group("/")
	session.Use(middleware.RequireSession(tokens))
	session.GET("/edituser", h.GetProfile)
	session.POST("/edituser", h.UpdateProfile)

	protected := router.Group("/")
	protected.Use(middleware.RequireAuth(tokens))
	protected.POST("/setnewpassword", h.SetNewPassword)
	protected.POST("/setavatar", h.SetAvatar)
	protected.POST("/createpost", h.CreatePost)
	protected.POST("/editpost/:id", h.EditPost)
	protected.GET("/userpost", h.ListMyPosts)
	protected.POST("/deletepost", h.DeletePost)
	protected.POST("/deletepost/:id", h.DeletePost)
	protected.POST("/like", h.Like)
	protected.POST("/dislike", h.Dislike)
	protected.GET("/userlikedposts", h.ListLikedPosts)
	protected.GET("/notifications", h.Notifications)
	protected.POST("/subscribe", h.Subscribe)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return router
}
