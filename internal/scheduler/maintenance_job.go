package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/database"
)

// healthCheckTimeout bounds the integrity check; PRAGMA integrity_check
// scans every page and can take a while on a large store.
const healthCheckTimeout = 2 * time.Minute

// MaintenanceJob verifies store integrity, checkpoints the WAL and
// compacts the stores so the database files do not grow unbounded
// between restarts.
type MaintenanceJob struct {
	log zerolog.Logger
	dbs []*database.DB
}

// NewMaintenanceJob creates a new database maintenance job
func NewMaintenanceJob(log zerolog.Logger, dbs ...*database.DB) *MaintenanceJob {
	return &MaintenanceJob{
		log: log.With().Str("job", "db_maintenance").Logger(),
		dbs: dbs,
	}
}

// Name implements Job.
func (j *MaintenanceJob) Name() string { return "db_maintenance" }

// Run implements Job.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	for _, db := range j.dbs {
		if err := db.HealthCheck(ctx); err != nil {
			return err
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			return err
		}

		// The cache profile runs auto_vacuum(FULL); only the durable
		// store needs an explicit compaction pass.
		if db.Profile() != database.ProfileStandard {
			continue
		}
		if err := db.Vacuum(); err != nil {
			return err
		}
		j.log.Debug().Str("database", db.Name()).Msg("Compacted database")
	}
	return nil
}
