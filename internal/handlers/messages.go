package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillspace/skillspace/internal/models"
	"github.com/skillspace/skillspace/internal/storage"
)

func messageResponses(messages []models.SkillMessage) []models.MessageResponse {
	out := make([]models.MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, models.NewMessageResponse(m))
	}
	return out
}

// CreateMessage persists a chat message after verifying the listing and
// both participants exist.
func CreateMessage(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var insert models.InsertMessage
		if err := c.ShouldBindJSON(&insert); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message data", "details": err.Error()})
			return
		}

		ctx := c.Request.Context()
		if _, err := store.GetListingByID(ctx, insert.ListingID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		senderOK, err := store.UserExists(ctx, insert.SenderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		receiverOK, err := store.UserExists(ctx, insert.ReceiverID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if !senderOK || !receiverOK {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sender or receiver not found"})
			return
		}

		message, err := store.CreateMessage(ctx, insert)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusCreated, models.NewMessageResponse(*message))
	}
}

// GetListingMessages returns all messages about one listing, oldest first.
func GetListingMessages(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := intParam(c, "listingId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
			return
		}

		messages, err := store.GetMessagesByListingID(c.Request.Context(), listingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, messageResponses(messages))
	}
}

// GetConversation returns the messages exchanged between two users, in
// either direction, oldest first.
func GetConversation(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		user1ID, ok1 := intParam(c, "user1Id")
		user2ID, ok2 := intParam(c, "user2Id")
		if !ok1 || !ok2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user IDs"})
			return
		}

		messages, err := store.GetMessagesBetweenUsers(c.Request.Context(), user1ID, user2ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, messageResponses(messages))
	}
}

// MarkMessageRead flags a message as read.
func MarkMessageRead(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID, ok := intParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
			return
		}

		message, err := store.MarkMessageRead(c.Request.Context(), messageID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, models.NewMessageResponse(*message))
	}
}
