package email

import (
	"log"

	"github.com/robfig/cron/v3"
)

// InitializeQueueScheduler starts the periodic queue processor. The entry
// point is idempotent, so overlapping runs after a slow batch only re-scan
// the remainder.
func InitializeQueueScheduler() *cron.Cron {
	log.Println("[EMAIL-QUEUE] Initializing email queue scheduler...")

	c := cron.New()

	// Every 5 minutes.
	c.AddFunc("*/5 * * * *", func() {
		ProcessEmailQueue()
	})

	c.Start()
	log.Println("[EMAIL-QUEUE] Email queue scheduler started - runs every 5 minutes")
	return c
}
