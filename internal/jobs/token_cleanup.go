// Package jobs holds the cron-driven maintenance tasks.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voluntree/voluntree-api/internal/repository"
)

// StartTokenCleanup schedules an hourly purge of expired refresh
// tokens and returns the running scheduler so the caller can stop it
// on shutdown.
func StartTokenCleanup(tokens *repository.TokenRepo) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() { purgeExpiredTokens(tokens) })
	if err != nil {
		log.Printf("jobs: failed to schedule token cleanup: %v", err)
		return c
	}
	c.Start()
	return c
}

func purgeExpiredTokens(tokens *repository.TokenRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := tokens.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("jobs: token cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("jobs: removed %d expired refresh tokens", n)
	}
}
