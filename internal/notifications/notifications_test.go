package notifications

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/threadloom/internal/identity"
	"github.com/threadloom/internal/importer"
	"github.com/threadloom/internal/scrape"
	"github.com/threadloom/pkg/models"
)

func TestOutcomeMessage_Success(t *testing.T) {
	post := &models.Post{ID: 42, Subject: "A sea watched over by a storm"}
	msg := OutcomeMessage(post, nil)
	assert.Equal(t, "Post import succeeded", msg.Subject)
	assert.Contains(t, msg.Body, "/posts/42")
	assert.Contains(t, msg.Body, post.Subject)
	assert.True(t, msg.Unread)
}

func TestOutcomeMessage_SubjectMarkupEscaped(t *testing.T) {
	post := &models.Post{ID: 9, Subject: `<script>alert("x")</script>`}
	msg := OutcomeMessage(post, nil)
	assert.NotContains(t, msg.Body, "<script>")
	assert.Contains(t, msg.Body, "&lt;script&gt;")

	msg = OutcomeMessage(nil, &importer.AlreadyImportedError{PostID: 9, Subject: "<b>Dup</b>"})
	assert.NotContains(t, msg.Body, "<b>")
	assert.Contains(t, msg.Body, "&lt;b&gt;")
}

func TestOutcomeMessage_AlreadyImported(t *testing.T) {
	msg := OutcomeMessage(nil, &importer.AlreadyImportedError{PostID: 7, Subject: "Dup"})
	assert.Equal(t, "Post import failed", msg.Subject)
	assert.Contains(t, msg.Body, "already been imported")
	assert.Contains(t, msg.Body, "/posts/7")
}

func TestOutcomeMessage_AlreadyImportedWithoutPostID(t *testing.T) {
	msg := OutcomeMessage(nil, &importer.AlreadyImportedError{Subject: "Dup"})
	assert.Contains(t, msg.Body, "already been imported")
	assert.NotContains(t, msg.Body, "/posts/")
}

func TestOutcomeMessage_UnknownIdentity(t *testing.T) {
	msg := OutcomeMessage(nil, &identity.UnknownIdentityError{Handle: "stranger"})
	assert.Equal(t, "Post import failed", msg.Subject)
	assert.Contains(t, msg.Body, `"stranger"`)
	assert.Contains(t, msg.Body, "alias")
}

func TestOutcomeMessage_InvalidURL(t *testing.T) {
	msg := OutcomeMessage(nil, &scrape.InvalidURLError{URL: "https://example.com/x", Reason: "wrong host"})
	assert.Contains(t, msg.Body, "https://example.com/x")
}

func TestOutcomeMessage_GenericFailure(t *testing.T) {
	msg := OutcomeMessage(nil, errors.New("connection reset"))
	assert.Equal(t, "Post import failed", msg.Subject)
	assert.Contains(t, msg.Body, "No partial data was saved")
}

func TestOutcomeMessage_WrappedErrorStillRecognized(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &identity.UnknownIdentityError{Handle: "x"})
	msg := OutcomeMessage(nil, wrapped)
	assert.Contains(t, msg.Body, `"x"`)
}
