package store

import (
	"context"
	"fmt"

	"github.com/vrsandeep/podcatch/internal/models"
)

// InsertNewEpisodes persists the drafts that are not yet known for the
// subscription and returns only those, in draft order. An episode is known
// when the subscription already has one with the same title, so calling
// this twice with the same drafts inserts nothing the second time.
func (s *Store) InsertNewEpisodes(ctx context.Context, subscriptionID int64, drafts []models.EpisodeDraft) ([]models.Episode, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // Rollback is a no-op if the transaction is committed.

	var name string
	var isYouTube bool
	err = tx.QueryRowContext(ctx, "SELECT name, is_youtube FROM subscriptions WHERE id = ?", subscriptionID).
		Scan(&name, &isYouTube)
	if err != nil {
		return nil, fmt.Errorf("load subscription %d: %w", subscriptionID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO episodes (subscription_id, title, description, audio_url, artwork_url, pub_date, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subscription_id, title) DO NOTHING
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := s.now().UTC()
	var inserted []models.Episode
	for _, d := range drafts {
		res, err := stmt.ExecContext(ctx, subscriptionID, d.Title, d.Description, d.AudioURL, d.ArtworkURL,
			d.PubDate.UTC(), d.Duration, now)
		if err != nil {
			return nil, fmt.Errorf("insert episode %q: %w", d.Title, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, models.Episode{
			ID:               id,
			SubscriptionID:   subscriptionID,
			SubscriptionName: name,
			Title:            d.Title,
			Description:      d.Description,
			AudioURL:         d.AudioURL,
			ArtworkURL:       d.ArtworkURL,
			PubDate:          d.PubDate.UTC(),
			Duration:         d.Duration,
			IsYouTube:        isYouTube,
			CreatedAt:        now,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// GetEpisodeByID loads a single episode with its subscription name.
func (s *Store) GetEpisodeByID(ctx context.Context, id int64) (*models.Episode, error) {
	var ep models.Episode
	err := s.db.QueryRowContext(ctx, `
		SELECT e.id, e.subscription_id, s.name, e.title, e.description, e.audio_url, e.artwork_url,
			e.pub_date, e.duration, s.is_youtube, e.created_at
		FROM episodes e
		JOIN subscriptions s ON s.id = e.subscription_id
		WHERE e.id = ?`, id).
		Scan(&ep.ID, &ep.SubscriptionID, &ep.SubscriptionName, &ep.Title, &ep.Description, &ep.AudioURL,
			&ep.ArtworkURL, &ep.PubDate, &ep.Duration, &ep.IsYouTube, &ep.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// ListEpisodes returns a subscription's episodes, newest first.
func (s *Store) ListEpisodes(ctx context.Context, subscriptionID int64, limit int) ([]models.Episode, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.subscription_id, s.name, e.title, e.description, e.audio_url, e.artwork_url,
			e.pub_date, e.duration, s.is_youtube, e.created_at
		FROM episodes e
		JOIN subscriptions s ON s.id = e.subscription_id
		WHERE e.subscription_id = ?
		ORDER BY e.pub_date DESC, e.id DESC
		LIMIT ?`, subscriptionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []models.Episode
	for rows.Next() {
		var ep models.Episode
		if err := rows.Scan(&ep.ID, &ep.SubscriptionID, &ep.SubscriptionName, &ep.Title, &ep.Description,
			&ep.AudioURL, &ep.ArtworkURL, &ep.PubDate, &ep.Duration, &ep.IsYouTube, &ep.CreatedAt); err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}
