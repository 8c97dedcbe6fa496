package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
)

// WorkerCommand runs the background job workers until interrupted.
func WorkerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the background import and render workers",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			env, err := buildEnv(ctx, c, false)
			if err != nil {
				return err
			}
			defer env.close()

			if err := env.queue.Start(ctx); err != nil {
				return fmt.Errorf("failed to start workers: %w", err)
			}
			env.log.Info().Msg("Workers started, waiting for jobs")

			<-ctx.Done()
			env.log.Info().Msg("Shutting down workers")

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := env.queue.Stop(stopCtx); err != nil {
				return fmt.Errorf("failed to stop workers cleanly: %w", err)
			}
			return nil
		},
	}
}
