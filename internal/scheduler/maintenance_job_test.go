package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptofolio/internal/database"
)

func openTestDB(t *testing.T, name string, profile database.Profile) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMaintenanceJobRun(t *testing.T) {
	portfolioDB := openTestDB(t, "portfolio", database.ProfileStandard)
	cacheDB := openTestDB(t, "cache", database.ProfileCache)

	// Write a few rows so the checkpoint and vacuum have pages to touch.
	_, err := portfolioDB.Conn().Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	_, err = portfolioDB.Conn().Exec("INSERT INTO notes (body) VALUES ('a'), ('b')")
	require.NoError(t, err)

	job := NewMaintenanceJob(zerolog.Nop(), portfolioDB, cacheDB)
	assert.Equal(t, "db_maintenance", job.Name())
	require.NoError(t, job.Run())

	// Data survives the integrity check, checkpoint and vacuum cycle.
	var n int
	require.NoError(t, portfolioDB.Conn().QueryRow("SELECT COUNT(*) FROM notes").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestMaintenanceJobClosedDatabase(t *testing.T) {
	db := openTestDB(t, "portfolio", database.ProfileStandard)
	require.NoError(t, db.Close())

	job := NewMaintenanceJob(zerolog.Nop(), db)
	assert.Error(t, job.Run())
}
