package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob sweeps expired entries out of the cache store on a schedule.
// Reads enforce expiry lazily; the sweep exists only so memory stays bounded
// under key churn. Scheduled via robfig/cron from main.
type CleanupJob struct {
	store Store
	log   zerolog.Logger
}

// NewCleanupJob creates a cache cleanup job.
func NewCleanupJob(store Store, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		store: store,
		log:   log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run executes one sweep.
func (j *CleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.store.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired cache entries")
		return
	}

	if removed > 0 {
		j.log.Info().Int("deleted", removed).Msg("Cleaned up expired cache entries")
	}
}
