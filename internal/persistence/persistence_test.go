package persistence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
)

func TestMigrationNamesSorted(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_employees.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".sql"))
	}
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestDisabledBackends(t *testing.T) {
	ctx := context.Background()

	pg, err := NewPostgres(ctx, config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.ErrorIs(t, pg.Ping(ctx), ErrNotConfigured)
	pg.Close()

	rd := NewRedis(ctx, config.RedisConfig{}, zap.NewNop())
	assert.False(t, rd.Enabled())
	assert.ErrorIs(t, rd.Ping(ctx), ErrNotConfigured)
	rd.Close()

	var nilPG *Postgres
	assert.Nil(t, nilPG.PoolHandle())
	assert.ErrorIs(t, nilPG.Ping(ctx), ErrNotConfigured)
}
