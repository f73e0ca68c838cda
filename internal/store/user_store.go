package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vrsandeep/podcatch/internal/models"
)

const userColumns = "id, username, role, sync_type, sync_url, sync_token, created_at"

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Role, &user.SyncType, &user.SyncURL,
		&user.SyncToken, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers retrieves all users from the database, ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListUsersWithSync returns users with a gpodder sync type configured.
func (s *Store) ListUsersWithSync(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE sync_type NOT IN ('', 'None') ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser adds a new user to the database.
func (s *Store) CreateUser(ctx context.Context, username, role string) (*models.User, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, role, sync_type, created_at) VALUES (?, ?, 'None', ?)", username, role, now)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &models.User{ID: id, Username: username, Role: role, SyncType: "None", CreatedAt: now}, nil
}

// UpdateUserSync stores a user's gpodder sync settings.
func (s *Store) UpdateUserSync(ctx context.Context, id int64, syncType, syncURL, token string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET sync_type = ?, sync_url = ?, sync_token = ? WHERE id = ?", syncType, syncURL, token, id)
	return err
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateAPIKey stores the bcrypt hash of a key's secret under its public prefix.
func (s *Store) CreateAPIKey(ctx context.Context, userID int64, prefix, keyHash string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (user_id, prefix, key_hash, created_at) VALUES (?, ?, ?, ?)",
		userID, prefix, keyHash, s.now().UTC())
	return err
}

// GetAPIKey returns the owner and secret hash for a key prefix.
func (s *Store) GetAPIKey(ctx context.Context, prefix string) (userID int64, keyHash string, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT user_id, key_hash FROM api_keys WHERE prefix = ?", prefix).
		Scan(&userID, &keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", sql.ErrNoRows
	}
	return userID, keyHash, err
}
