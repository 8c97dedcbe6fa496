package jobqueue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/threadloom/internal/identity"
	"github.com/threadloom/internal/importer"
	"github.com/threadloom/internal/scrape"
)

func TestJobKinds(t *testing.T) {
	assert.Equal(t, "post_import", ImportJobArgs{}.Kind())
	assert.Equal(t, "flat_rerender", FlatRenderJobArgs{}.Kind())
}

func TestImportJobInsertOpts(t *testing.T) {
	assert.Equal(t, 3, ImportJobArgs{}.InsertOpts().MaxAttempts)
}

func TestIsRecognizedFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"already imported", &importer.AlreadyImportedError{Subject: "x"}, true},
		{"unknown identity", &identity.UnknownIdentityError{Handle: "x"}, true},
		{"invalid url", &scrape.InvalidURLError{URL: "x", Reason: "y"}, true},
		{"wrapped recognized", fmt.Errorf("outer: %w", &identity.UnknownIdentityError{Handle: "x"}), true},
		{"network error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRecognizedFailure(tt.err))
		})
	}
}

func TestGetQueueConfig(t *testing.T) {
	cfg := GetQueueConfig(0)
	assert.Equal(t, 2, cfg.MaxWorkers, "zero falls back to the default worker count")

	cfg = GetQueueConfig(8)
	assert.Equal(t, 8, cfg.MaxWorkers)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.NotZero(t, cfg.JobTimeout)
}
