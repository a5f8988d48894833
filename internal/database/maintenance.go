package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MaintenanceJob runs periodic upkeep on the accounts database: an
// integrity check followed by a WAL checkpoint so the log file cannot
// grow without bound between restarts.
type MaintenanceJob struct {
	db  *DB
	log zerolog.Logger
}

// NewMaintenanceJob creates a maintenance job for db.
func NewMaintenanceJob(db *DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:  db,
		log: log.With().Str("job", "db_maintenance").Logger(),
	}
}

// Run executes one maintenance pass. Satisfies cron.Job.
func (j *MaintenanceJob) Run() {
	start := time.Now()

	if err := j.integrityCheck(); err != nil {
		j.log.Error().Err(err).Msg("Database integrity check failed")
		return
	}

	if err := j.checkpoint(); err != nil {
		j.log.Error().Err(err).Msg("WAL checkpoint failed")
		return
	}

	j.log.Info().
		Dur("duration_ms", time.Since(start)).
		Msg("Database maintenance complete")
}

// integrityCheck runs SQLite's quick_check pragma.
func (j *MaintenanceJob) integrityCheck() error {
	var result string
	if err := j.db.conn.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("quick_check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check reported: %s", result)
	}
	return nil
}

// checkpoint truncates the WAL file after flushing it into the main database.
func (j *MaintenanceJob) checkpoint() error {
	if _, err := j.db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal_checkpoint failed: %w", err)
	}
	return nil
}
