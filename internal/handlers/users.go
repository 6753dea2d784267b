package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skillspace/skillspace/internal/models"
	"github.com/skillspace/skillspace/internal/storage"
)

func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, false
	}
	return n, true
}

// GetUser returns a single user. The password field never marshals.
func GetUser(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := intParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		user, err := store.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// CreateUser registers a new account. Duplicate usernames are rejected
// with 409.
func CreateUser(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var insert models.InsertUser
		if err := c.ShouldBindJSON(&insert); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user data", "details": err.Error()})
			return
		}

		ctx := c.Request.Context()
		if _, err := store.GetUserByUsername(ctx, insert.Username); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		user, err := store.CreateUser(ctx, insert)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}

// UpdateUserProfile applies a partial profile update.
func UpdateUserProfile(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := intParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var update models.UpdateUser
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update data", "details": err.Error()})
			return
		}

		user, err := store.UpdateUserProfile(c.Request.Context(), userID, update)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}
