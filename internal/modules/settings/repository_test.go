package settings

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.EnsureSchema())
	return repo
}

func TestGetMissingKey(t *testing.T) {
	repo := newTestRepo(t)

	value, err := repo.Get("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSetAndGet(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("coingecko_api_key", "cg-test", nil))

	value, err := repo.Get("coingecko_api_key")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "cg-test", *value)
}

func TestSetOverwrites(t *testing.T) {
	repo := newTestRepo(t)

	desc := "simulated starting capital"
	require.NoError(t, repo.Set("default_capital", "10000", &desc))
	require.NoError(t, repo.Set("default_capital", "25000", nil))

	value, err := repo.Get("default_capital")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "25000", *value)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("temp", "1", nil))
	require.NoError(t, repo.Delete("temp"))

	value, err := repo.Get("temp")
	require.NoError(t, err)
	assert.Nil(t, value)

	// Deleting a missing key is fine.
	require.NoError(t, repo.Delete("temp"))
}

func TestGetAll(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("a", "1", nil))
	require.NoError(t, repo.Set("b", "2", nil))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)
}

func TestTypedGetters(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("flag", "true", nil))
	require.NoError(t, repo.Set("ratio", "2.5", nil))
	require.NoError(t, repo.Set("count", "42", nil))
	require.NoError(t, repo.Set("junk", "not-a-number", nil))

	assert.True(t, repo.GetBool("flag", false))
	assert.InDelta(t, 2.5, repo.GetFloat("ratio", 0), 0.001)
	assert.Equal(t, 42, repo.GetInt("count", 0))

	// Missing or unparsable values fall back to the default.
	assert.False(t, repo.GetBool("missing", false))
	assert.Equal(t, 7, repo.GetInt("junk", 7))
	assert.InDelta(t, 1.5, repo.GetFloat("missing", 1.5), 0.001)
}
