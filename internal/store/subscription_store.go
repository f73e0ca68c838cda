package store

import (
	"context"
	"database/sql"

	"github.com/vrsandeep/podcatch/internal/models"
)

const subscriptionColumns = `id, user_id, name, feed_url, artwork_url, description, author, website,
	categories, auto_download, feed_username, feed_password, cutoff_days, is_youtube,
	episode_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var username, password sql.NullString
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.FeedURL, &sub.ArtworkURL, &sub.Description,
		&sub.Author, &sub.Website, &sub.Categories, &sub.AutoDownload, &username, &password,
		&sub.CutoffDays, &sub.IsYouTube, &sub.EpisodeCount, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	if username.Valid && username.String != "" {
		sub.Credentials = &models.Credentials{Username: username.String, Password: password.String}
	}
	return &sub, nil
}

// CreateSubscription subscribes a user to a feed. Subscribing twice to the
// same feed URL returns the existing subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	var username, password string
	if sub.Credentials.Present() {
		username, password = sub.Credentials.Username, sub.Credentials.Password
	}
	query := `
		INSERT INTO subscriptions (user_id, name, feed_url, artwork_url, description, author, website,
			categories, auto_download, feed_username, feed_password, cutoff_days, is_youtube, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, feed_url) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, sub.UserID, sub.Name, sub.FeedURL, sub.ArtworkURL, sub.Description,
		sub.Author, sub.Website, sub.Categories, sub.AutoDownload, nullString(username), nullString(password),
		sub.CutoffDays, sub.IsYouTube, s.now().UTC())
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? AND feed_url = ?", sub.UserID, sub.FeedURL)
	return scanSubscription(row)
}

// GetSubscriptions returns a snapshot of a user's subscriptions in a stable order.
func (s *Store) GetSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? ORDER BY id ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// GetSubscriptionByID retrieves a single subscription.
func (s *Store) GetSubscriptionByID(ctx context.Context, id int64) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id)
	return scanSubscription(row)
}

// DeleteSubscription removes a subscription and, through the cascade, its episodes.
func (s *Store) DeleteSubscription(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FeedURLsForUser lists the feed URLs a user is subscribed to.
func (s *Store) FeedURLsForUser(ctx context.Context, userID int64) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, feed_url FROM subscriptions WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	urls := make(map[string]int64)
	for rows.Next() {
		var id int64
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return nil, err
		}
		urls[url] = id
	}
	return urls, rows.Err()
}

// ListUserIDsWithSubscriptions returns every user owning at least one subscription.
func (s *Store) ListUserIDsWithSubscriptions(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM subscriptions ORDER BY user_id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateEpisodeCount recomputes the cached episode count of a subscription.
func (s *Store) UpdateEpisodeCount(ctx context.Context, subscriptionID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET episode_count = (SELECT COUNT(*) FROM episodes WHERE subscription_id = ?)
		WHERE id = ?`, subscriptionID, subscriptionID)
	return err
}
