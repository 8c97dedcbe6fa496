package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/threadloom/internal/identity"
	"github.com/threadloom/internal/importer"
	"github.com/threadloom/internal/scrape"
	"github.com/threadloom/pkg/models"
)

// Notifier delivers one-off site messages about import outcomes. Each
// import attempt produces exactly one message to its requester, with
// enough context to retry or escalate manually.
type Notifier struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewNotifier(pool *pgxpool.Pool, logger zerolog.Logger) *Notifier {
	return &Notifier{pool: pool, log: logger}
}

// ImportFinished records the outcome of one import attempt for the
// requesting user. A zero recipient means nobody asked for the import
// (direct CLI runs) and no message is sent.
func (n *Notifier) ImportFinished(ctx context.Context, recipientID int64, post *models.Post, importErr error) error {
	if recipientID == 0 {
		return nil
	}

	msg := OutcomeMessage(post, importErr)
	msg.RecipientID = recipientID
	query := `
	INSERT INTO messages (recipient_id, subject, body, unread, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	`

	if _, err := n.pool.Exec(ctx, query, msg.RecipientID, msg.Subject, msg.Body, msg.Unread); err != nil {
		return fmt.Errorf("failed to send import notification: %w", err)
	}
	n.log.Debug().Int64("recipient_id", recipientID).Str("subject", msg.Subject).Msg("import notification sent")
	return nil
}

// OutcomeMessage builds the notification for an import outcome, with
// RecipientID left for the caller. Recognized failure kinds get
// specific descriptions; anything else becomes a generic import
// failure. Scraped text (subjects, handles, URLs) is HTML-escaped
// before entering the body.
func OutcomeMessage(post *models.Post, importErr error) models.Message {
	msg := models.Message{Unread: true}

	if importErr == nil {
		msg.Subject = "Post import succeeded"
		msg.Body = fmt.Sprintf(`Your post has been imported: <a href="/posts/%d">%s</a>`,
			post.ID, html.EscapeString(post.Subject))
		return msg
	}

	var already *importer.AlreadyImportedError
	var unknown *identity.UnknownIdentityError
	var invalid *scrape.InvalidURLError

	msg.Subject = "Post import failed"
	switch {
	case errors.As(importErr, &already):
		if already.PostID != 0 {
			msg.Body = fmt.Sprintf(`The thread %q has already been imported: <a href="/posts/%d">post %d</a>.`,
				html.EscapeString(already.Subject), already.PostID, already.PostID)
		} else {
			msg.Body = fmt.Sprintf("The thread %q has already been imported.", html.EscapeString(already.Subject))
		}
	case errors.As(importErr, &unknown):
		msg.Body = fmt.Sprintf("The author handle %q could not be matched to a local user. Add an alias or run the import interactively.",
			html.EscapeString(unknown.Handle))
	case errors.As(importErr, &invalid):
		msg.Body = fmt.Sprintf("The URL %q is not an importable thread URL.", html.EscapeString(invalid.URL))
	default:
		msg.Body = "Your import could not be completed. No partial data was saved; retry later or contact a moderator."
	}
	return msg
}
