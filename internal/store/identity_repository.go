/**
 * @description
 * PostgreSQL-backed identity resolver: looks up the client that owns a
 * mandate and the user behind that client, so executed debits can be
 * notified to the right person.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vervebank/directdebit-service/internal/domain"
)

// IdentityRepository resolves clients and users.
type IdentityRepository struct {
	db *pgxpool.Pool
}

// NewIdentityRepository creates a new identity repository.
func NewIdentityRepository(db *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// GetClientByID fetches one client. A missing client returns (nil, nil).
func (r *IdentityRepository) GetClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	query := `
        SELECT id, user_id, full_name
        FROM clients
        WHERE id = $1
    `
	var client domain.Client
	err := r.db.QueryRow(ctx, query, clientID).Scan(&client.ID, &client.UserID, &client.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching client %s: %w", clientID, err)
	}
	return &client, nil
}

// GetUserByID fetches one user. A missing user returns (nil, nil).
func (r *IdentityRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `
        SELECT id, username
        FROM users
        WHERE id = $1
    `
	var user domain.User
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", userID, err)
	}
	return &user, nil
}
