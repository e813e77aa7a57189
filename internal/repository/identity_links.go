package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IdentityLink ties an external sign-in subject to the opaque user id that
// scopes document paths.
type IdentityLink struct {
	UserID    string
	Provider  string
	Subject   string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type IdentityRepository interface {
	FindBySubject(ctx context.Context, provider string, subject string) (IdentityLink, error)
	FindByUserID(ctx context.Context, userID string) (IdentityLink, error)
	Create(ctx context.Context, link IdentityLink) (IdentityLink, error)
	UpdateProfile(ctx context.Context, userID string, email string, name string) error
}

type SQLiteIdentityRepository struct {
	database *sql.DB
}

func NewIdentityRepository(database *sql.DB) *SQLiteIdentityRepository {
	return &SQLiteIdentityRepository{database: database}
}

func (repository *SQLiteIdentityRepository) FindBySubject(ctx context.Context, provider string, subject string) (IdentityLink, error) {
	var link IdentityLink
	err := repository.database.QueryRowContext(ctx,
		"SELECT user_id, provider, subject, email, name, created_at, updated_at FROM identity_links WHERE provider = ? AND subject = ?",
		provider, subject,
	).Scan(&link.UserID, &link.Provider, &link.Subject, &link.Email, &link.Name, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return IdentityLink{}, fmt.Errorf("finding identity by subject: %w", err)
	}
	return link, nil
}

func (repository *SQLiteIdentityRepository) FindByUserID(ctx context.Context, userID string) (IdentityLink, error) {
	var link IdentityLink
	err := repository.database.QueryRowContext(ctx,
		"SELECT user_id, provider, subject, email, name, created_at, updated_at FROM identity_links WHERE user_id = ?",
		userID,
	).Scan(&link.UserID, &link.Provider, &link.Subject, &link.Email, &link.Name, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return IdentityLink{}, fmt.Errorf("finding identity by user id: %w", err)
	}
	return link, nil
}

func (repository *SQLiteIdentityRepository) Create(ctx context.Context, link IdentityLink) (IdentityLink, error) {
	if link.UserID == "" {
		link.UserID = uuid.New().String()
	}
	now := time.Now()
	link.CreatedAt = now
	link.UpdatedAt = now

	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO identity_links (user_id, provider, subject, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		link.UserID, link.Provider, link.Subject, link.Email, link.Name, link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		return IdentityLink{}, fmt.Errorf("creating identity link: %w", err)
	}
	return link, nil
}

func (repository *SQLiteIdentityRepository) UpdateProfile(ctx context.Context, userID string, email string, name string) error {
	_, err := repository.database.ExecContext(ctx,
		"UPDATE identity_links SET email = ?, name = ?, updated_at = ? WHERE user_id = ?",
		email, name, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("updating identity profile: %w", err)
	}
	return nil
}
