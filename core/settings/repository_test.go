package settings_test

import (
	"context"
	"testing"

	"meraki-sync/core/database"
	"meraki-sync/core/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() settings.Config {
	return settings.Config{
		MXRole:                "Security Appliance",
		DefaultRole:           "Network Device",
		ProcessUnmatchedSites: true,
		SiteTags:              "Meraki",
		SiteNameTransform:     "keep",
		DeviceNameTransform:   "keep",
		VLANNameTransform:     "keep",
		SSIDNameTransform:     "keep",
		EnableAPIThrottling:   true,
		APIRequestsPerSecond:  5,
		MaxWorkerThreads:      3,
		RetentionDays:         7,
	}
}

func TestRepository_GetCreatesOnce(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, settings.Models()...))

	repo := settings.NewRepository(db, testConfig())
	first, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.ID)
	assert.True(t, first.ProcessUnmatchedSites)

	first.ProcessUnmatchedSites = false
	first.SiteNameTransform = "upper"
	require.NoError(t, repo.Update(ctx, first))

	second, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, second.ProcessUnmatchedSites)
	assert.Equal(t, "upper", second.SiteNameTransform)

	var count int64
	require.NoError(t, db.Model(&settings.PluginSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.ProcessUnmatchedSites)
	assert.Equal(t, "SITE A", snap.TransformName(settings.CategorySite, "site a"))
}

func TestRepository_UpdateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, settings.Models()...))

	repo := settings.NewRepository(db, testConfig())
	row, err := repo.Get(ctx)
	require.NoError(t, err)

	row.MaxWorkerThreads = 0
	assert.ErrorIs(t, repo.Update(ctx, row), settings.ErrInvalidSettings)
}
