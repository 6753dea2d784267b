package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/skillspace/skillspace/internal/middleware"
	"github.com/skillspace/skillspace/internal/relay"
	"github.com/skillspace/skillspace/internal/storage"
)

// Router assembles the full route table: REST CRUD for users, listings
// and messages, plus the WebSocket relay endpoint. Mutating listing and
// profile routes require a JWT; reads and the relay are public.
func Router(store storage.Storage, hub *relay.Hub, jwtSecret string, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	router.Use(OriginFilter(allowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := middleware.JWTAuth(jwtSecret)

	api := router.Group("/api")
	{
		api.POST("/auth/login", Login(store, jwtSecret))

		api.GET("/users/:id", GetUser(store))
		api.POST("/users", CreateUser(store))
		api.PATCH("/users/:id", auth, UpdateUserProfile(store))
		api.GET("/users/:id/skill-listings", GetUserListings(store))

		api.GET("/skill-listings", GetListings(store))
		api.GET("/skill-listings/:id", GetListing(store))
		api.POST("/skill-listings", auth, CreateListing(store))
		api.PUT("/skill-listings/:id", auth, UpdateListing(store))
		api.DELETE("/skill-listings/:id", auth, DeleteListing(store))

		api.POST("/skill-messages", CreateMessage(store))
		api.GET("/skill-messages/listing/:listingId", GetListingMessages(store))
		api.GET("/skill-messages/users/:user1Id/:user2Id", GetConversation(store))
		api.PUT("/skill-messages/:id/read", MarkMessageRead(store))
	}

	// WebSocket signaling endpoint
	router.GET("/ws", ServeWS(hub))

	return router
}
