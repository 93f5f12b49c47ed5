package sync_test

import (
	"testing"

	syncfeature "meraki-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFeature(t *testing.T) {
	f := syncfeature.NewFeature(nil, nil, nil, zap.NewNop())

	assert.Equal(t, "sync", f.Name())
	assert.True(t, f.IsEnabled())
	assert.NotNil(t, f.Service())
	assert.NoError(t, f.Load(fiber.New()))
}
