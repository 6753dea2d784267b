package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skillspace/skillspace/internal/models"
)

// MemoryStorage keeps everything in process memory. It is the default
// backend for development and tests; all data is lost on restart.
type MemoryStorage struct {
	mu            sync.RWMutex
	users         []models.User
	listings      []models.SkillListing
	messages      []models.SkillMessage
	nextUserID    int
	nextListingID int
	nextMessageID int
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextUserID:    1,
		nextListingID: 1,
		nextMessageID: 1,
	}
}

// User methods

func (s *MemoryStorage) GetUser(_ context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) CreateUser(_ context.Context, insert models.InsertUser) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := models.User{
		ID:          s.nextUserID,
		Username:    insert.Username,
		Password:    insert.Password,
		Name:        insert.Name,
		Avatar:      insert.Avatar,
		Bio:         insert.Bio,
		Rating:      50, // default 5.0 rating
		ReviewCount: 0,
	}
	s.nextUserID++
	s.users = append(s.users, user)
	return &user, nil
}

func (s *MemoryStorage) UpdateUserProfile(_ context.Context, id int, update models.UpdateUser) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID != id {
			continue
		}
		if update.Name != nil {
			s.users[i].Name = update.Name
		}
		if update.Avatar != nil {
			s.users[i].Avatar = update.Avatar
		}
		if update.Bio != nil {
			s.users[i].Bio = update.Bio
		}
		user := s.users[i]
		return &user, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) UserExists(_ context.Context, id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Skill listing methods

func (s *MemoryStorage) CreateListing(_ context.Context, insert models.InsertListing) (*models.SkillListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing := models.SkillListing{
		ID:              s.nextListingID,
		UserID:          insert.UserID,
		Offering:        insert.Offering,
		Seeking:         insert.Seeking,
		Description:     insert.Description,
		TimeCommitment:  insert.TimeCommitment,
		ExperienceLevel: insert.ExperienceLevel,
		CreatedAt:       time.Now(),
	}
	s.nextListingID++
	s.listings = append(s.listings, listing)
	return &listing, nil
}

func (s *MemoryStorage) GetListings(_ context.Context) ([]models.SkillListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SkillListing, len(s.listings))
	copy(out, s.listings)
	// Newest first
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) GetListingByID(_ context.Context, id int) (*models.SkillListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listings {
		if l.ID == id {
			listing := l
			return &listing, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) GetListingsByUserID(_ context.Context, userID int) ([]models.SkillListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SkillListing
	for _, l := range s.listings {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) UpdateListing(_ context.Context, id int, update models.UpdateListing) (*models.SkillListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID != id {
			continue
		}
		if update.Offering != nil {
			s.listings[i].Offering = *update.Offering
		}
		if update.Seeking != nil {
			s.listings[i].Seeking = *update.Seeking
		}
		if update.Description != nil {
			s.listings[i].Description = *update.Description
		}
		if update.TimeCommitment != nil {
			s.listings[i].TimeCommitment = *update.TimeCommitment
		}
		if update.ExperienceLevel != nil {
			s.listings[i].ExperienceLevel = *update.ExperienceLevel
		}
		listing := s.listings[i]
		return &listing, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) DeleteListing(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID == id {
			s.listings = append(s.listings[:i], s.listings[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Message methods

func (s *MemoryStorage) CreateMessage(_ context.Context, insert models.InsertMessage) (*models.SkillMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := models.SkillMessage{
		ID:         s.nextMessageID,
		ListingID:  insert.ListingID,
		SenderID:   insert.SenderID,
		ReceiverID: insert.ReceiverID,
		Message:    insert.Message,
		CreatedAt:  time.Now(),
		Read:       false,
	}
	s.nextMessageID++
	s.messages = append(s.messages, message)
	return &message, nil
}

func (s *MemoryStorage) GetMessagesByListingID(_ context.Context, listingID int) ([]models.SkillMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SkillMessage
	for _, m := range s.messages {
		if m.ListingID == listingID {
			out = append(out, m)
		}
	}
	// Oldest first; insertion order already matches for a single process
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) GetMessagesBetweenUsers(_ context.Context, user1ID, user2ID int) ([]models.SkillMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SkillMessage
	for _, m := range s.messages {
		if (m.SenderID == user1ID && m.ReceiverID == user2ID) ||
			(m.SenderID == user2ID && m.ReceiverID == user1ID) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) MarkMessageRead(_ context.Context, id int) (*models.SkillMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Read = true
			message := s.messages[i]
			return &message, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) Close() {}
