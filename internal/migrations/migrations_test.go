package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "00001_init.sql", files[0])

	body, err := embedMigrations.ReadFile(dir + "/" + files[0])
	require.NoError(t, err)

	text := string(body)
	require.True(t, strings.HasPrefix(text, "-- +goose Up"))
	require.Contains(t, text, "-- +goose Down")
	for _, table := range []string{"teams", "users", "pull_requests", "pr_reviewers"} {
		require.Contains(t, text, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
