/*
Package jobqueue provides the River-based job queue that runs thread
imports and their follow-up work.

Two job kinds exist: post_import runs one import to completion and
notifies the requesting user of the outcome; flat_rerender regenerates
the cached flat rendering of a post after its replies change. The
flat_rerender job for a fresh import is inserted on the import's own
transaction, so it only ever sees committed posts.

For tuning parameters see queue_config.go.
*/
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog"

	"github.com/threadloom/internal/identity"
	"github.com/threadloom/internal/importer"
	"github.com/threadloom/internal/notifications"
	"github.com/threadloom/internal/scrape"
)

// ImportJobArgs represents the arguments for a thread import job
type ImportJobArgs struct {
	URL         string   `json:"url"`
	BoardID     int64    `json:"board_id"`
	SectionID   *int64   `json:"section_id,omitempty"`
	Status      string   `json:"status,omitempty"`
	Threaded    bool     `json:"threaded"`
	Subject     string   `json:"subject,omitempty"`
	ThreadURLs  []string `json:"thread_urls,omitempty"`
	RequestedBy int64    `json:"requested_by"`
}

// Kind returns the job kind for River
func (ImportJobArgs) Kind() string { return "post_import" }

// InsertOpts bounds retries of unrecognized failures
func (ImportJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 3}
}

// FlatRenderJobArgs represents the arguments for a flat-rendering job
type FlatRenderJobArgs struct {
	PostID int64 `json:"post_id"`
}

// Kind returns the job kind for River
func (FlatRenderJobArgs) Kind() string { return "flat_rerender" }

// ImportWorker runs one import to completion and notifies the
// requesting user about the outcome. Exactly one notification is sent
// per attempt, success or failure.
type ImportWorker struct {
	river.WorkerDefaults[ImportJobArgs]
	coordinator *importer.Coordinator
	notifier    *notifications.Notifier
	config      *QueueConfig
	log         zerolog.Logger
}

// Timeout bounds one import attempt
func (w *ImportWorker) Timeout(*river.Job[ImportJobArgs]) time.Duration {
	return w.config.JobTimeout
}

// Work performs the import
func (w *ImportWorker) Work(ctx context.Context, job *river.Job[ImportJobArgs]) error {
	args := job.Args
	w.log.Info().Str("url", args.URL).Int64("board_id", args.BoardID).Msg("processing import job")

	req := importer.Request{
		URL:         args.URL,
		BoardID:     args.BoardID,
		SectionID:   args.SectionID,
		Status:      args.Status,
		Threaded:    args.Threaded,
		Subject:     args.Subject,
		ThreadURLs:  args.ThreadURLs,
		RequestedBy: args.RequestedBy,
	}

	post, err := w.coordinator.Run(ctx, req)
	if notifyErr := w.notifier.ImportFinished(ctx, args.RequestedBy, post, err); notifyErr != nil {
		w.log.Error().Err(notifyErr).Int64("recipient_id", args.RequestedBy).Msg("failed to notify requester")
	}

	if err != nil {
		if isRecognizedFailure(err) {
			// Re-running cannot succeed without operator action.
			return river.JobCancel(err)
		}
		return fmt.Errorf("import of %s failed: %w", args.URL, err)
	}

	w.log.Info().Int64("post_id", post.ID).Msg("import job completed")
	return nil
}

func isRecognizedFailure(err error) bool {
	var already *importer.AlreadyImportedError
	var unknown *identity.UnknownIdentityError
	var invalid *scrape.InvalidURLError
	return errors.As(err, &already) || errors.As(err, &unknown) || errors.As(err, &invalid)
}

// FlatRenderWorker regenerates the cached flat rendering of a post
type FlatRenderWorker struct {
	river.WorkerDefaults[FlatRenderJobArgs]
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Work rebuilds the flat rendering from the committed post and replies
func (w *FlatRenderWorker) Work(ctx context.Context, job *river.Job[FlatRenderJobArgs]) error {
	postID := job.Args.PostID

	var subject, content string
	err := w.pool.QueryRow(ctx, `SELECT subject, content FROM posts WHERE id = $1`, postID).
		Scan(&subject, &content)
	if err != nil {
		return fmt.Errorf("failed to load post %d for flat render: %w", postID, err)
	}

	rows, err := w.pool.Query(ctx,
		`SELECT content FROM replies WHERE post_id = $1 ORDER BY reply_order`, postID)
	if err != nil {
		return fmt.Errorf("failed to load replies for post %d: %w", postID, err)
	}
	defer rows.Close()

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="flat-post"><div class="flat-post-content">%s</div>`, content)
	count := 0
	for rows.Next() {
		var reply string
		if err := rows.Scan(&reply); err != nil {
			return fmt.Errorf("failed to scan reply for post %d: %w", postID, err)
		}
		fmt.Fprintf(&b, `<div class="flat-post-reply">%s</div>`, reply)
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load replies for post %d: %w", postID, err)
	}
	b.WriteString(`</div>`)

	_, err = w.pool.Exec(ctx, `
	INSERT INTO flat_posts (post_id, content, generated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (post_id) DO UPDATE SET content = EXCLUDED.content, generated_at = NOW()
	`, postID, b.String())
	if err != nil {
		return fmt.Errorf("failed to store flat render for post %d: %w", postID, err)
	}

	w.log.Debug().Int64("post_id", postID).Int("replies", count).Msg("flat rendering regenerated")
	return nil
}

// Queue manages the River client, its workers, and the wiring between
// the import coordinator and the queue.
type Queue struct {
	client      *river.Client[pgx.Tx]
	pool        *pgxpool.Pool
	config      *QueueConfig
	coordinator *importer.Coordinator
}

// NewQueue creates the job queue and the import pipeline behind it.
// The returned queue can insert jobs immediately; call Start to begin
// working them.
func NewQueue(pool *pgxpool.Pool, cfg *QueueConfig, fetcher importer.Fetcher, resolver *identity.Resolver, logger zerolog.Logger) (*Queue, error) {
	notifier := notifications.NewNotifier(pool, logger)

	importWorker := &ImportWorker{notifier: notifier, config: cfg, log: logger}
	workers := river.NewWorkers()
	river.AddWorker(workers, importWorker)
	river.AddWorker(workers, &FlatRenderWorker{pool: pool, log: logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  cfg.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	q := &Queue{client: client, pool: pool, config: cfg}

	// The coordinator persists through a store whose follow-up job
	// insert rides the import transaction.
	store := importer.NewPgStore(pool, q.enqueueFlatRenderTx)
	q.coordinator = importer.NewCoordinator(fetcher, resolver, store, logger)
	importWorker.coordinator = q.coordinator

	return q, nil
}

// Coordinator returns the import pipeline wired to this queue, for
// synchronous runs that bypass the queue itself.
func (q *Queue) Coordinator() *importer.Coordinator {
	return q.coordinator
}

// Start starts the job queue workers
func (q *Queue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop stops the job queue workers
func (q *Queue) Stop(ctx context.Context) error {
	return q.client.Stop(ctx)
}

// EnqueueImport queues a thread import job
func (q *Queue) EnqueueImport(ctx context.Context, args ImportJobArgs) error {
	if _, err := q.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("failed to queue import job: %w", err)
	}
	return nil
}

// enqueueFlatRenderTx inserts the follow-up rendering job on the
// import's own transaction.
func (q *Queue) enqueueFlatRenderTx(ctx context.Context, tx pgx.Tx, postID int64) error {
	if _, err := q.client.InsertTx(ctx, tx, FlatRenderJobArgs{PostID: postID}, nil); err != nil {
		return fmt.Errorf("failed to queue flat render job: %w", err)
	}
	return nil
}
