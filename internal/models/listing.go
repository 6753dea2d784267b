package models

import "time"

// SkillListing is a post on the skill-exchange board: the skills a user
// offers and the skills they are looking for in return.
type SkillListing struct {
	ID              int       `json:"id"`
	UserID          int       `json:"userId"`
	Offering        []string  `json:"offering"`
	Seeking         []string  `json:"seeking"`
	Description     string    `json:"description"`
	TimeCommitment  string    `json:"timeCommitment"`
	ExperienceLevel string    `json:"experienceLevel"`
	CreatedAt       time.Time `json:"createdAt"`
}

// InsertListing is the payload for creating a listing.
type InsertListing struct {
	UserID          int      `json:"userId" binding:"required"`
	Offering        []string `json:"offering" binding:"required"`
	Seeking         []string `json:"seeking" binding:"required"`
	Description     string   `json:"description" binding:"required"`
	TimeCommitment  string   `json:"timeCommitment" binding:"required"`
	ExperienceLevel string   `json:"experienceLevel" binding:"required"`
}

// UpdateListing is a partial update; nil fields are left unchanged.
type UpdateListing struct {
	Offering        *[]string `json:"offering"`
	Seeking         *[]string `json:"seeking"`
	Description     *string   `json:"description"`
	TimeCommitment  *string   `json:"timeCommitment"`
	ExperienceLevel *string   `json:"experienceLevel"`
}

// ListingResponse is a listing annotated for API responses.
type ListingResponse struct {
	SkillListing
	User               *User  `json:"user,omitempty"`
	CreatedAtFormatted string `json:"createdAtFormatted,omitempty"`
}
