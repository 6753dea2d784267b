package models

import "time"

// SkillMessage is a chat message between two users about a listing.
type SkillMessage struct {
	ID         int       `json:"id"`
	ListingID  int       `json:"listingId"`
	SenderID   int       `json:"senderId"`
	ReceiverID int       `json:"receiverId"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
	Read       bool      `json:"read"`
}

// InsertMessage is the payload for creating a message. All fields are
// required; it is validated both by the REST layer (binding tags) and by
// the relay before persisting.
type InsertMessage struct {
	ListingID  int    `json:"listingId" binding:"required"`
	SenderID   int    `json:"senderId" binding:"required"`
	ReceiverID int    `json:"receiverId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// Valid reports whether every required field is present.
func (m InsertMessage) Valid() bool {
	return m.ListingID > 0 && m.SenderID > 0 && m.ReceiverID > 0 && m.Message != ""
}

// MessageResponse is a message annotated for API responses and relay fan-out.
type MessageResponse struct {
	SkillMessage
	CreatedAtFormatted string `json:"createdAtFormatted"`
}

// NewMessageResponse wraps a stored message with its relative timestamp.
func NewMessageResponse(m SkillMessage) MessageResponse {
	return MessageResponse{
		SkillMessage:       m,
		CreatedAtFormatted: FormatRelativeTime(m.CreatedAt),
	}
}
