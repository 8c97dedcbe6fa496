package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadloom/internal/importer"
	"github.com/threadloom/pkg/models"
)

type fakeRunner struct {
	post *models.Post
	err  error
}

func (r *fakeRunner) Run(context.Context, importer.Request) (*models.Post, error) {
	return r.post, r.err
}

type recordingNotifier struct {
	calls      int
	recipient  int64
	post       *models.Post
	importErr  error
	deliverErr error
}

func (n *recordingNotifier) ImportFinished(_ context.Context, recipientID int64, post *models.Post, importErr error) error {
	n.calls++
	n.recipient = recipientID
	n.post = post
	n.importErr = importErr
	return n.deliverErr
}

func TestRunInline_NotifiesRequesterOnSuccess(t *testing.T) {
	want := &models.Post{ID: 5, Subject: "Imported"}
	notifier := &recordingNotifier{}

	post, err := runInline(context.Background(),
		&fakeRunner{post: want}, notifier, zerolog.Nop(),
		importer.Request{URL: "https://x.dreamwidth.org/1.html", RequestedBy: 9})
	require.NoError(t, err)
	assert.Equal(t, want, post)

	assert.Equal(t, 1, notifier.calls, "exactly one notification per attempt")
	assert.Equal(t, int64(9), notifier.recipient)
	assert.Equal(t, want, notifier.post)
	assert.NoError(t, notifier.importErr)
}

func TestRunInline_NotifiesRequesterOnFailure(t *testing.T) {
	importErr := &importer.AlreadyImportedError{PostID: 3, Subject: "Dup"}
	notifier := &recordingNotifier{}

	_, err := runInline(context.Background(),
		&fakeRunner{err: importErr}, notifier, zerolog.Nop(),
		importer.Request{RequestedBy: 9})
	assert.Equal(t, importErr, err, "the import error still reaches the caller")

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, importErr, notifier.importErr)
}

func TestRunInline_NotificationFailureDoesNotMaskOutcome(t *testing.T) {
	want := &models.Post{ID: 5}
	notifier := &recordingNotifier{deliverErr: errors.New("messages table unavailable")}

	post, err := runInline(context.Background(),
		&fakeRunner{post: want}, notifier, zerolog.Nop(),
		importer.Request{RequestedBy: 9})
	require.NoError(t, err)
	assert.Equal(t, want, post)
}
