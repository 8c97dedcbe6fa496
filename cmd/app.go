// Package cmd provides the threadloom CLI commands.
package cmd

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/threadloom/internal/config"
	"github.com/threadloom/internal/database"
	"github.com/threadloom/internal/identity"
	"github.com/threadloom/internal/jobqueue"
	"github.com/threadloom/internal/logging"
	"github.com/threadloom/internal/scrape"
)

// appEnv bundles the wired-up collaborators the commands share
type appEnv struct {
	cfg    *config.Config
	log    zerolog.Logger
	pool   *pgxpool.Pool
	queue  *jobqueue.Queue
	closer func()
}

// buildEnv loads configuration and wires the import pipeline. The
// interactive flag overrides the configured resolver selection for
// terminal runs.
func buildEnv(ctx context.Context, c *cli.Context, interactive bool) (*appEnv, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger := logging.New(c.Bool("debug"))

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	fetcher := scrape.NewFetcher(
		time.Duration(cfg.Importer.FetchTimeoutSeconds)*time.Second,
		cfg.Importer.FetchesPerSecond,
		logger,
	)

	var prompter identity.Prompter = identity.FailClosedPrompter{}
	if interactive || cfg.Importer.Interactive {
		prompter = identity.NewTerminalPrompter()
	}
	resolver := identity.NewResolver(cfg.Aliases, prompter, logger)

	queue, err := jobqueue.NewQueue(pool, jobqueue.GetQueueConfig(cfg.Queue.MaxWorkers), fetcher, resolver, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &appEnv{
		cfg:    cfg,
		log:    logger,
		pool:   pool,
		queue:  queue,
		closer: pool.Close,
	}, nil
}

func (e *appEnv) close() {
	if e.closer != nil {
		e.closer()
	}
}
