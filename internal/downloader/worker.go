package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vrsandeep/podcatch/internal/config"
	"github.com/vrsandeep/podcatch/internal/feed"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/store"
)

// ErrNoYouTubeDownloader fails every YouTube job; only plain audio
// enclosures are downloaded.
var ErrNoYouTubeDownloader = errors.New("no youtube downloader configured")

// Broadcaster receives progress updates for admin clients.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Pool downloads queued episodes with a fixed number of workers.
type Pool struct {
	st      *store.Store
	hub     Broadcaster
	client  *http.Client
	root    string
	workers int
	poll    time.Duration

	mu     sync.Mutex
	paused bool
}

// NewPool creates a worker pool from the downloads section of cfg.
// A nil client uses http.DefaultClient.
func NewPool(st *store.Store, hub Broadcaster, cfg *config.Config, client *http.Client) *Pool {
	if client == nil {
		client = http.DefaultClient
	}
	workers := cfg.Downloads.Workers
	if workers <= 0 {
		workers = 1
	}
	poll := time.Duration(cfg.Downloads.PollSeconds) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Pool{
		st:      st,
		hub:     hub,
		client:  client,
		root:    cfg.Downloads.Path,
		workers: workers,
		poll:    poll,
	}
}

// Start re-queues interrupted jobs and runs the workers until ctx is done.
func (p *Pool) Start(ctx context.Context) {
	if err := p.st.ResetInProgressDownloadJobs(ctx); err != nil {
		log.Printf("downloader: could not reset interrupted jobs: %v", err)
	}

	queue := make(chan *models.DownloadJob, p.workers)
	for i := 1; i <= p.workers; i++ {
		go p.worker(ctx, i, queue)
	}

	go func() {
		defer close(queue)
		ticker := time.NewTicker(p.poll)
		defer ticker.Stop()
		for {
			// Only fetch more work once the buffer has drained.
			if !p.IsPaused() && len(queue) == 0 {
				jobs, err := p.st.ClaimQueuedDownloadJobs(ctx, p.workers)
				if err != nil {
					log.Printf("downloader: error fetching queued jobs: %v", err)
				}
				for _, job := range jobs {
					select {
					case queue <- job:
					case <-ctx.Done():
						return
					}
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Pool) worker(ctx context.Context, id int, queue <-chan *models.DownloadJob) {
	log.Printf("downloader: starting worker %d", id)
	for job := range queue {
		p.Process(ctx, job)
	}
}

// RunOnce claims up to one batch of queued jobs and processes them in the
// calling goroutine. It returns the number of jobs handled.
func (p *Pool) RunOnce(ctx context.Context) (int, error) {
	jobs, err := p.st.ClaimQueuedDownloadJobs(ctx, p.workers)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		p.Process(ctx, job)
	}
	return len(jobs), nil
}

// Process downloads a claimed job and records the outcome.
func (p *Pool) Process(ctx context.Context, job *models.DownloadJob) {
	filePath, err := p.download(ctx, job)
	if err != nil {
		msg := fmt.Sprintf("Download failed: %v", err)
		log.Printf("downloader: job %s: %s", job.ID, msg)
		if err := p.st.UpdateDownloadJobStatus(ctx, job.ID, models.DownloadFailed, msg); err != nil {
			log.Printf("downloader: job %s: could not record failure: %v", job.ID, err)
		}
		p.sendProgress(job.ID, msg, models.DownloadFailed, float64(job.Progress), true)
		return
	}
	if err := p.st.CompleteDownloadJob(ctx, job.ID, filePath); err != nil {
		log.Printf("downloader: job %s: could not record completion: %v", job.ID, err)
	}
	p.sendProgress(job.ID, "Download finished successfully.", models.DownloadCompleted, 100, true)
}

func (p *Pool) download(ctx context.Context, job *models.DownloadJob) (string, error) {
	if job.IsYouTube {
		return "", ErrNoYouTubeDownloader
	}
	ep, err := p.st.GetEpisodeByID(ctx, job.EpisodeID)
	if err != nil {
		return "", fmt.Errorf("could not load episode %d: %w", job.EpisodeID, err)
	}
	if ep.AudioURL == "" {
		return "", errors.New("episode has no audio url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.AudioURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", feed.DefaultUserAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	dir := filepath.Join(p.root, strconv.FormatInt(job.UserID, 10), SanitizeFilename(ep.SubscriptionName))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	target := filepath.Join(dir, SanitizeFilename(ep.Title)+audioExtension(ep.AudioURL, resp.Header.Get("Content-Type")))

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	counter := &progressWriter{pool: p, ctx: ctx, job: job, total: resp.ContentLength}
	if _, err := io.Copy(io.MultiWriter(tmp, counter), resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(target), err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to save episode: %w", err)
	}
	return target, nil
}

// progressWriter records progress in ten percent steps.
type progressWriter struct {
	pool    *Pool
	ctx     context.Context
	job     *models.DownloadJob
	total   int64
	written int64
	last    int
}

func (w *progressWriter) Write(b []byte) (int, error) {
	w.written += int64(len(b))
	if w.total <= 0 {
		return len(b), nil
	}
	pct := int(w.written * 100 / w.total)
	if pct >= w.last+10 && pct < 100 {
		w.last = pct - pct%10
		w.job.Progress = w.last
		if err := w.pool.st.UpdateDownloadJobProgress(w.ctx, w.job.ID, w.last); err != nil {
			log.Printf("downloader: job %s: could not record progress: %v", w.job.ID, err)
		}
		w.pool.sendProgress(w.job.ID, fmt.Sprintf("Downloaded %d%%", w.last), models.DownloadInProgress, float64(w.last), false)
	}
	return len(b), nil
}

func audioExtension(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
			return exts[0]
		}
	}
	return ".mp3"
}

// Pause stops the pool from claiming new jobs. Running downloads finish.
func (p *Pool) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	log.Println("downloader: queue paused.")
}

// Resume lets the pool claim jobs again.
func (p *Pool) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	log.Println("downloader: queue resumed.")
}

func (p *Pool) IsPaused() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.paused }

func (p *Pool) sendProgress(jobID, message, status string, progress float64, done bool) {
	if p.hub == nil {
		return
	}
	p.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    "downloader",
		Message:  message,
		Progress: progress,
		ItemID:   jobID,
		Status:   status,
		Done:     done,
	})
}
