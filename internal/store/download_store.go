package store

import (
	"context"

	"github.com/vrsandeep/podcatch/internal/models"
)

const downloadJobColumns = "id, episode_id, user_id, is_youtube, status, progress, message, file_path, created_at, updated_at"

func scanDownloadJob(row rowScanner) (*models.DownloadJob, error) {
	var job models.DownloadJob
	if err := row.Scan(&job.ID, &job.EpisodeID, &job.UserID, &job.IsYouTube, &job.Status, &job.Progress,
		&job.Message, &job.FilePath, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateDownloadJob queues a download for an episode.
func (s *Store) CreateDownloadJob(ctx context.Context, job *models.DownloadJob) error {
	now := s.now().UTC()
	if job.Status == "" {
		job.Status = models.DownloadQueued
	}
	job.CreatedAt, job.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO download_jobs (id, episode_id, user_id, is_youtube, status, progress, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		job.ID, job.EpisodeID, job.UserID, job.IsYouTube, job.Status, job.Message, now, now)
	return err
}

// GetDownloadJob retrieves a single job.
func (s *Store) GetDownloadJob(ctx context.Context, id string) (*models.DownloadJob, error) {
	return scanDownloadJob(s.db.QueryRowContext(ctx, "SELECT "+downloadJobColumns+" FROM download_jobs WHERE id = ?", id))
}

// ListDownloadJobs returns a user's jobs, newest first.
func (s *Store) ListDownloadJobs(ctx context.Context, userID int64) ([]*models.DownloadJob, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+downloadJobColumns+" FROM download_jobs WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.DownloadJob
	for rows.Next() {
		job, err := scanDownloadJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimQueuedDownloadJobs marks up to limit queued jobs as in progress and
// returns them, oldest first. A claimed job is never handed out twice.
func (s *Store) ClaimQueuedDownloadJobs(ctx context.Context, limit int) ([]*models.DownloadJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT "+downloadJobColumns+" FROM download_jobs WHERE status = ? ORDER BY created_at ASC LIMIT ?",
		models.DownloadQueued, limit)
	if err != nil {
		return nil, err
	}
	var jobs []*models.DownloadJob
	for rows.Next() {
		job, err := scanDownloadJob(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		jobs = append(jobs, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for _, job := range jobs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE download_jobs SET status = ?, message = ?, updated_at = ? WHERE id = ?",
			models.DownloadInProgress, "Starting download...", now, job.ID); err != nil {
			return nil, err
		}
		job.Status = models.DownloadInProgress
	}
	return jobs, tx.Commit()
}

// UpdateDownloadJobStatus sets a job's status and message.
func (s *Store) UpdateDownloadJobStatus(ctx context.Context, id, status, message string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE download_jobs SET status = ?, message = ?, updated_at = ? WHERE id = ?",
		status, message, s.now().UTC(), id)
	return err
}

// UpdateDownloadJobProgress records download progress in percent.
func (s *Store) UpdateDownloadJobProgress(ctx context.Context, id string, progress int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE download_jobs SET progress = ?, updated_at = ? WHERE id = ?", progress, s.now().UTC(), id)
	return err
}

// CompleteDownloadJob marks a job completed and records where the file went.
func (s *Store) CompleteDownloadJob(ctx context.Context, id, filePath string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE download_jobs SET status = ?, progress = 100, message = ?, file_path = ?, updated_at = ? WHERE id = ?",
		models.DownloadCompleted, "Download finished successfully.", filePath, s.now().UTC(), id)
	return err
}

// ResetInProgressDownloadJobs requeues jobs interrupted by a restart.
func (s *Store) ResetInProgressDownloadJobs(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE download_jobs SET status = ?, progress = 0 WHERE status = ?", models.DownloadQueued, models.DownloadInProgress)
	return err
}
