package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/skillspace/skillspace/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	name TEXT,
	avatar TEXT,
	bio TEXT,
	rating INTEGER,
	review_count INTEGER
);

CREATE TABLE IF NOT EXISTS skill_listings (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	offering TEXT[] NOT NULL,
	seeking TEXT[] NOT NULL,
	description TEXT NOT NULL,
	time_commitment TEXT NOT NULL,
	experience_level TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS skill_messages (
	id SERIAL PRIMARY KEY,
	listing_id INTEGER NOT NULL,
	sender_id INTEGER NOT NULL,
	receiver_id INTEGER NOT NULL,
	message TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	read BOOLEAN NOT NULL DEFAULT false
);
`

// PostgresStorage is the relational backend, backed by a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage connects to the database and ensures the schema exists.
func NewPostgresStorage(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ensure schema")
	}
	return &PostgresStorage{pool: pool}, nil
}

const userColumns = "id, username, password, name, avatar, bio, COALESCE(rating, 0), COALESCE(review_count, 0)"

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Name, &u.Avatar, &u.Bio, &u.Rating, &u.ReviewCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, id int) (*models.User, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

func (s *PostgresStorage) CreateUser(ctx context.Context, insert models.InsertUser) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password, name, avatar, bio, rating, review_count)
		 VALUES ($1, $2, $3, $4, $5, 50, 0)
		 RETURNING `+userColumns,
		insert.Username, insert.Password, insert.Name, insert.Avatar, insert.Bio)
	return scanUser(row)
}

func (s *PostgresStorage) UpdateUserProfile(ctx context.Context, id int, update models.UpdateUser) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE users SET
			name = COALESCE($2, name),
			avatar = COALESCE($3, avatar),
			bio = COALESCE($4, bio)
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, update.Name, update.Avatar, update.Bio)
	return scanUser(row)
}

func (s *PostgresStorage) UserExists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check user exists")
	}
	return exists, nil
}

const listingColumns = "id, user_id, offering, seeking, description, time_commitment, experience_level, created_at"

func scanListing(row pgx.Row) (*models.SkillListing, error) {
	var l models.SkillListing
	err := row.Scan(&l.ID, &l.UserID, &l.Offering, &l.Seeking, &l.Description, &l.TimeCommitment, &l.ExperienceLevel, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "scan listing")
	}
	return &l, nil
}

func (s *PostgresStorage) CreateListing(ctx context.Context, insert models.InsertListing) (*models.SkillListing, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO skill_listings (user_id, offering, seeking, description, time_commitment, experience_level)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+listingColumns,
		insert.UserID, insert.Offering, insert.Seeking, insert.Description, insert.TimeCommitment, insert.ExperienceLevel)
	return scanListing(row)
}

func (s *PostgresStorage) collectListings(ctx context.Context, query string, args ...interface{}) ([]models.SkillListing, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query listings")
	}
	defer rows.Close()

	var out []models.SkillListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, errors.Wrap(rows.Err(), "iterate listings")
}

func (s *PostgresStorage) GetListings(ctx context.Context) ([]models.SkillListing, error) {
	return s.collectListings(ctx,
		"SELECT "+listingColumns+" FROM skill_listings ORDER BY created_at DESC")
}

func (s *PostgresStorage) GetListingByID(ctx context.Context, id int) (*models.SkillListing, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+listingColumns+" FROM skill_listings WHERE id = $1", id)
	return scanListing(row)
}

func (s *PostgresStorage) GetListingsByUserID(ctx context.Context, userID int) ([]models.SkillListing, error) {
	return s.collectListings(ctx,
		"SELECT "+listingColumns+" FROM skill_listings WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

func (s *PostgresStorage) UpdateListing(ctx context.Context, id int, update models.UpdateListing) (*models.SkillListing, error) {
	sets := []string{}
	args := []interface{}{id}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Offering != nil {
		add("offering", *update.Offering)
	}
	if update.Seeking != nil {
		add("seeking", *update.Seeking)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.TimeCommitment != nil {
		add("time_commitment", *update.TimeCommitment)
	}
	if update.ExperienceLevel != nil {
		add("experience_level", *update.ExperienceLevel)
	}
	if len(sets) == 0 {
		return s.GetListingByID(ctx, id)
	}

	query := "UPDATE skill_listings SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 RETURNING " + listingColumns
	return scanListing(s.pool.QueryRow(ctx, query, args...))
}

func (s *PostgresStorage) DeleteListing(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM skill_listings WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "delete listing")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const messageColumns = "id, listing_id, sender_id, receiver_id, message, created_at, read"

func scanMessage(row pgx.Row) (*models.SkillMessage, error) {
	var m models.SkillMessage
	err := row.Scan(&m.ID, &m.ListingID, &m.SenderID, &m.ReceiverID, &m.Message, &m.CreatedAt, &m.Read)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "scan message")
	}
	return &m, nil
}

func (s *PostgresStorage) CreateMessage(ctx context.Context, insert models.InsertMessage) (*models.SkillMessage, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO skill_messages (listing_id, sender_id, receiver_id, message)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+messageColumns,
		insert.ListingID, insert.SenderID, insert.ReceiverID, insert.Message)
	return scanMessage(row)
}

func (s *PostgresStorage) collectMessages(ctx context.Context, query string, args ...interface{}) ([]models.SkillMessage, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	var out []models.SkillMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, errors.Wrap(rows.Err(), "iterate messages")
}

func (s *PostgresStorage) GetMessagesByListingID(ctx context.Context, listingID int) ([]models.SkillMessage, error) {
	return s.collectMessages(ctx,
		"SELECT "+messageColumns+" FROM skill_messages WHERE listing_id = $1 ORDER BY created_at ASC", listingID)
}

func (s *PostgresStorage) GetMessagesBetweenUsers(ctx context.Context, user1ID, user2ID int) ([]models.SkillMessage, error) {
	return s.collectMessages(ctx,
		`SELECT `+messageColumns+` FROM skill_messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at ASC`, user1ID, user2ID)
}

func (s *PostgresStorage) MarkMessageRead(ctx context.Context, id int) (*models.SkillMessage, error) {
	row := s.pool.QueryRow(ctx,
		"UPDATE skill_messages SET read = true WHERE id = $1 RETURNING "+messageColumns, id)
	return scanMessage(row)
}

func (s *PostgresStorage) Close() {
	s.pool.Close()
}
