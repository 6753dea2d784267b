package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillspace/skillspace/internal/models"
	"github.com/skillspace/skillspace/internal/storage"
)

// listingResponse annotates a listing with its owner (password stripped
// by marshalling) and a relative timestamp. A missing owner is not an
// error; the listing is returned bare.
func listingResponse(ctx context.Context, store storage.Storage, listing models.SkillListing) models.ListingResponse {
	resp := models.ListingResponse{
		SkillListing:       listing,
		CreatedAtFormatted: models.FormatRelativeTime(listing.CreatedAt),
	}
	if user, err := store.GetUser(ctx, listing.UserID); err == nil {
		resp.User = user
	}
	return resp
}

// GetListings returns every listing, newest first, each with its owner.
func GetListings(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		listings, err := store.GetListings(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		out := make([]models.ListingResponse, 0, len(listings))
		for _, l := range listings {
			out = append(out, listingResponse(ctx, store, l))
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetListing returns one listing by ID.
func GetListing(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := intParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
			return
		}

		ctx := c.Request.Context()
		listing, err := store.GetListingByID(ctx, listingID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, listingResponse(ctx, store, *listing))
	}
}

// CreateListing creates a listing after verifying the owner exists.
func CreateListing(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var insert models.InsertListing
		if err := c.ShouldBindJSON(&insert); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing data", "details": err.Error()})
			return
		}

		ctx := c.Request.Context()
		exists, err := store.UserExists(ctx, insert.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		listing, err := store.CreateListing(ctx, insert)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusCreated, models.ListingResponse{
			SkillListing:       *listing,
			CreatedAtFormatted: models.FormatRelativeTime(listing.CreatedAt),
		})
	}
}

// UpdateListing applies a partial update to an existing listing.
func UpdateListing(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := intParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
			return
		}

		var update models.UpdateListing
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update data", "details": err.Error()})
			return
		}

		ctx := c.Request.Context()
		listing, err := store.UpdateListing(ctx, listingID, update)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, models.ListingResponse{
			SkillListing:       *listing,
			CreatedAtFormatted: models.FormatRelativeTime(listing.CreatedAt),
		})
	}
}

// DeleteListing removes a listing.
func DeleteListing(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := intParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
			return
		}

		if err := store.DeleteListing(c.Request.Context(), listingID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// GetUserListings returns the listings created by one user.
func GetUserListings(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := intParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		ctx := c.Request.Context()
		exists, err := store.UserExists(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		listings, err := store.GetListingsByUserID(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		out := make([]models.ListingResponse, 0, len(listings))
		for _, l := range listings {
			out = append(out, models.ListingResponse{
				SkillListing:       l,
				CreatedAtFormatted: models.FormatRelativeTime(l.CreatedAt),
			})
		}
		c.JSON(http.StatusOK, out)
	}
}
