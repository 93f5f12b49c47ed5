package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"meraki-sync/core/database"
	"meraki-sync/core/meraki"
	merakimocks "meraki-sync/core/meraki/mocks"
	"meraki-sync/core/rules"
	storagemocks "meraki-sync/core/storage/mocks"
	"meraki-sync/feature/health"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testDeps struct {
	inventory *merakimocks.Client
	storage   *storagemocks.Client
}

func setupTestApp(t *testing.T, withStorage bool) (*fiber.App, testDeps) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, rules.Models()...))

	td := testDeps{inventory: new(merakimocks.Client), storage: new(storagemocks.Client)}
	deps := health.Dependencies{
		DB:        db,
		Models:    rules.Models(),
		Inventory: td.inventory,
		Region:    "us-east-1",
		Prefix:    "reviews",
	}
	if withStorage {
		deps.Storage = td.storage
		deps.Bucket = "archive"
	}

	app := fiber.New()
	feature := health.NewFeature(deps, zap.NewNop())
	assert.Equal(t, "health", feature.Name())
	assert.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app, td
}

func decode(t *testing.T, resp *http.Response) map[string]health.CheckResult {
	t.Helper()
	var out map[string]health.CheckResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandleHealth_OK(t *testing.T) {
	app, td := setupTestApp(t, false)
	td.inventory.On("ListOrganizations", mock.Anything).Return([]meraki.Organization{{ID: "1"}}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	report := decode(t, resp)
	assert.Equal(t, "ok", report["database"].Status)
	assert.Equal(t, "ok", report["inventory"].Status)
	assert.Equal(t, "disabled", report["storage"].Status)
}

func TestHandleHealth_Unavailable(t *testing.T) {
	app, td := setupTestApp(t, true)
	td.inventory.On("ListOrganizations", mock.Anything).Return(nil, errors.New("timeout"))
	td.storage.On("BucketExists", mock.Anything, "archive").Return(false, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	report := decode(t, resp)
	assert.Equal(t, "ok", report["database"].Status)
	assert.Equal(t, "error", report["inventory"].Status)
	assert.Equal(t, "error", report["storage"].Status)
}

func TestHandleDatabase(t *testing.T) {
	app, _ := setupTestApp(t, false)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/database", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report struct {
		Matched bool `json:"matched"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, report.Matched)
}

func TestHandleInventory(t *testing.T) {
	app, td := setupTestApp(t, false)
	td.inventory.On("ListOrganizations", mock.Anything).Return(nil, errors.New("401")).Once()

	resp, err := app.Test(httptest.NewRequest("GET", "/health/inventory", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	td.inventory.On("ListOrganizations", mock.Anything).Return([]meraki.Organization{}, nil).Once()
	resp, err = app.Test(httptest.NewRequest("GET", "/health/inventory", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleStorage(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		app, _ := setupTestApp(t, false)
		resp, err := app.Test(httptest.NewRequest("GET", "/health/storage", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("missing without fix", func(t *testing.T) {
		app, td := setupTestApp(t, true)
		td.storage.On("BucketExists", mock.Anything, "archive").Return(false, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/health/storage", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		td.storage.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing with fix", func(t *testing.T) {
		app, td := setupTestApp(t, true)
		td.storage.On("BucketExists", mock.Anything, "archive").Return(false, nil)
		td.storage.On("MakeBucket", mock.Anything, "archive", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/health/storage?fix=true", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "fixed", body["status"])
		td.storage.AssertExpectations(t)
	})

	t.Run("bucket error", func(t *testing.T) {
		app, td := setupTestApp(t, true)
		td.storage.On("BucketExists", mock.Anything, "archive").Return(false, errors.New("refused"))

		resp, err := app.Test(httptest.NewRequest("GET", "/health/storage", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestService_FixStorageDisabled(t *testing.T) {
	svc := health.NewService(health.Dependencies{}, zap.NewNop())
	assert.ErrorIs(t, svc.FixStorage(context.Background()), health.ErrStorageDisabled)
	_, err := svc.CheckDatabase(context.Background())
	assert.Error(t, err)
}
