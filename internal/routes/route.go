package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/evently/internal/container"
	"github.com/joshua-takyi/evently/internal/handlers"
	"github.com/joshua-takyi/evently/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	tr := container.Translator
	secure := container.SecureCookies

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     container.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.LocaleMiddleware(tr))
	r.Use(middleware.ErrorHandler(container.Logger, tr))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":          "OK",
				"service":         "evently-api",
				"session_streams": container.Broker.Subscribers(),
			})
		})

		v1.POST("/login", handlers.AuthenticateUser(container.UserService, tr, secure))
		v1.POST("/refresh", handlers.RefreshToken(container.UserService, tr, secure))
		v1.GET("/events", handlers.ListEvents(container.EventService, tr))
		v1.GET("/events/:id", handlers.GetEvent(container.EventService, tr))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.TokenValidator, container.UserService, tr, secure, container.Logger))
	{
		protected.POST("/logout", handlers.Logout(container.UserService, tr, secure))
		protected.GET("/auth/events", handlers.SessionEvents(container.Broker))
		if container.SessionRepo != nil {
			protected.GET("/auth/history", handlers.SessionHistory(container.SessionRepo, tr))
		}

		protected.POST("/events/:id/bookings", handlers.BookEvent(container.BookingService, tr))
		protected.GET("/events/:id/booking", handlers.MyEventBooking(container.BookingService, tr))

		protected.GET("/me/bookings", handlers.MyBookings(container.BookingService, tr))
		protected.DELETE("/me/bookings/:id", handlers.CancelBooking(container.BookingService, tr))
		protected.GET("/me/organization", handlers.MyOrganization(container.OrganizationService, tr))

		protected.GET("/profile", handlers.GetProfile(container.UserService, tr))
		protected.PATCH("/profile", handlers.UpdateProfile(container.UserService, tr))
		protected.POST("/profile/avatar", handlers.UploadAvatar(container.UserService, tr))

		protected.POST("/nicknames", handlers.GenerateNicknames(container.Nicknames, tr))
	}

	orgRoutes := protected.Group("/organizations/:orgId")
	orgRoutes.Use(middleware.RequireMembership(container.OrganizationService, tr, container.Logger))
	{
		orgRoutes.GET("", handlers.GetOrganization(container.OrganizationService, tr))
		orgRoutes.GET("/events", handlers.ListOrganizationEvents(container.EventService, tr))
		orgRoutes.POST("/events", handlers.CreateEvent(container.EventService, tr))
		orgRoutes.GET("/events/:id", handlers.GetOrganizationEvent(container.EventService, tr))
		orgRoutes.PATCH("/events/:id", handlers.UpdateEvent(container.EventService, tr))
		orgRoutes.GET("/events/:id/guests", handlers.EventGuests(container.EventService, tr))
	}

	return r
}
