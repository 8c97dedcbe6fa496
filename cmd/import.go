package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/threadloom/internal/importer"
	"github.com/threadloom/internal/jobqueue"
	"github.com/threadloom/internal/notifications"
	"github.com/threadloom/pkg/models"
)

// importRunner runs one import to completion
type importRunner interface {
	Run(ctx context.Context, req importer.Request) (*models.Post, error)
}

// importNotifier records the outcome of an import attempt
type importNotifier interface {
	ImportFinished(ctx context.Context, recipientID int64, post *models.Post, importErr error) error
}

// runInline executes an import in-process. The requester is notified
// about the outcome exactly as the queue worker would notify, so a
// synchronous run with --user still produces its message.
func runInline(ctx context.Context, runner importRunner, notifier importNotifier, log zerolog.Logger, req importer.Request) (*models.Post, error) {
	post, err := runner.Run(ctx, req)
	if notifyErr := notifier.ImportFinished(ctx, req.RequestedBy, post, err); notifyErr != nil {
		log.Error().Err(notifyErr).Int64("recipient_id", req.RequestedBy).Msg("failed to notify requester")
	}
	return post, err
}

// ImportCommand imports a published thread into the archive, either
// synchronously in the current process or by enqueueing a background job.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a published discussion thread",
		ArgsUsage: "<thread-url>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "board",
				Usage: "Destination board id (defaults to the sandbox board)",
			},
			&cli.Int64Flag{
				Name:  "section",
				Usage: "Board section id",
			},
			&cli.BoolFlag{
				Name:  "complete",
				Usage: "Mark the imported post as complete",
			},
			&cli.BoolFlag{
				Name:  "threaded",
				Usage: "Treat the source as a threaded layout",
			},
			&cli.StringFlag{
				Name:  "subject",
				Usage: "Override the scraped subject",
			},
			&cli.StringSliceFlag{
				Name:  "thread",
				Usage: "Additional top-level branch URL (repeatable, implies --threaded)",
			},
			&cli.Int64Flag{
				Name:  "user",
				Usage: "User id to notify when the import finishes",
			},
			&cli.BoolFlag{
				Name:  "queue",
				Usage: "Enqueue as a background job instead of running inline",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one thread URL argument")
			}

			env, err := buildEnv(c.Context, c, !c.Bool("queue"))
			if err != nil {
				return err
			}
			defer env.close()

			boardID := c.Int64("board")
			if boardID == 0 {
				boardID = env.cfg.Importer.SandboxBoardID
			}

			status := models.PostStatusActive
			if c.Bool("complete") {
				status = models.PostStatusComplete
			}

			req := importer.Request{
				URL:         c.Args().First(),
				BoardID:     boardID,
				Status:      status,
				Threaded:    c.Bool("threaded") || len(c.StringSlice("thread")) > 0,
				Subject:     c.String("subject"),
				ThreadURLs:  c.StringSlice("thread"),
				RequestedBy: c.Int64("user"),
			}
			if sectionID := c.Int64("section"); sectionID != 0 {
				req.SectionID = &sectionID
			}

			if c.Bool("queue") {
				args := jobqueue.ImportJobArgs{
					URL:         req.URL,
					BoardID:     req.BoardID,
					SectionID:   req.SectionID,
					Status:      req.Status,
					Threaded:    req.Threaded,
					Subject:     req.Subject,
					ThreadURLs:  req.ThreadURLs,
					RequestedBy: req.RequestedBy,
				}
				if err := env.queue.EnqueueImport(c.Context, args); err != nil {
					return fmt.Errorf("failed to enqueue import: %w", err)
				}
				env.log.Info().Str("url", req.URL).Msg("Import job enqueued")
				return nil
			}

			notifier := notifications.NewNotifier(env.pool, env.log)
			post, err := runInline(c.Context, env.queue.Coordinator(), notifier, env.log, req)
			if err != nil {
				return err
			}
			env.log.Info().
				Int64("post_id", post.ID).
				Str("subject", post.Subject).
				Msg("Import finished")
			return nil
		},
	}
}
