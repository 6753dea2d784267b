// Package storage defines the persistence interface for SkillSpace and
// its two interchangeable backends: a transient in-memory store and a
// PostgreSQL store. Callers depend only on the Storage interface; the
// backend is chosen at startup from configuration.
package storage

import (
	"context"
	"errors"

	"github.com/skillspace/skillspace/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

type Storage interface {
	// User operations
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user models.InsertUser) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id int, update models.UpdateUser) (*models.User, error)
	UserExists(ctx context.Context, id int) (bool, error)

	// Skill listing operations
	CreateListing(ctx context.Context, listing models.InsertListing) (*models.SkillListing, error)
	GetListings(ctx context.Context) ([]models.SkillListing, error)
	GetListingByID(ctx context.Context, id int) (*models.SkillListing, error)
	GetListingsByUserID(ctx context.Context, userID int) ([]models.SkillListing, error)
	UpdateListing(ctx context.Context, id int, update models.UpdateListing) (*models.SkillListing, error)
	DeleteListing(ctx context.Context, id int) error

	// Message operations
	CreateMessage(ctx context.Context, message models.InsertMessage) (*models.SkillMessage, error)
	GetMessagesByListingID(ctx context.Context, listingID int) ([]models.SkillMessage, error)
	GetMessagesBetweenUsers(ctx context.Context, user1ID, user2ID int) ([]models.SkillMessage, error)
	MarkMessageRead(ctx context.Context, id int) (*models.SkillMessage, error)

	Close()
}
