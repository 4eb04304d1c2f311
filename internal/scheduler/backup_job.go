package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/reliability"
)

// defaultBackupRetentionDays bounds how long rotated backups are kept.
const defaultBackupRetentionDays = 30

// BackupJob uploads a database backup and rotates old ones.
type BackupJob struct {
	log     zerolog.Logger
	backups *reliability.BackupService
	timeout time.Duration
}

// NewBackupJob creates a new backup job
func NewBackupJob(log zerolog.Logger, backups *reliability.BackupService) *BackupJob {
	return &BackupJob{
		log:     log.With().Str("job", "backup").Logger(),
		backups: backups,
		timeout: 10 * time.Minute,
	}
}

// Name implements Job.
func (j *BackupJob) Name() string { return "backup" }

// Run implements Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.backups.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if err := j.backups.RotateOldBackups(ctx, defaultBackupRetentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup uploaded but rotation failed")
	}
	return nil
}
