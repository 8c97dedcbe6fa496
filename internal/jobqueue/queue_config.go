/*
Package jobqueue configuration - tunable parameters for the River job
queue behind thread imports.

Imports are network-bound and can take minutes for long threads, so
the worker count stays low by default; raise MaxWorkers to run more
imports concurrently at the cost of more outbound fetch traffic and
database connections. Failed jobs retain their error information in
the River jobs table. Recognized import failures (already imported,
unknown identity, invalid URL) are cancelled rather than retried:
re-running them cannot succeed without operator action.
*/
package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters for the import queue
type QueueConfig struct {
	// MaxWorkers bounds concurrently running import jobs
	MaxWorkers int

	// JobTimeout bounds one import attempt. Long flat threads fetch
	// only a handful of pages; threaded ones can fetch dozens.
	JobTimeout time.Duration

	// MaxAttempts bounds retries of unrecognized failures
	MaxAttempts int
}

// GetQueueConfig returns the queue configuration with defaults applied
func GetQueueConfig(maxWorkers int) *QueueConfig {
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	return &QueueConfig{
		MaxWorkers:  maxWorkers,
		JobTimeout:  15 * time.Minute,
		MaxAttempts: 3,
	}
}

// RiverQueueConfig returns the queue topology for the River client
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: c.MaxWorkers},
	}
}
