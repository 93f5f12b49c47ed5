package checks

import (
	"context"
	"errors"
	"testing"

	"meraki-sync/core/meraki"
	merakimocks "meraki-sync/core/meraki/mocks"
	"meraki-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCheckStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("missing bucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "archive").Return(false, nil)

		report, err := CheckStorage(ctx, client, "archive", "reviews/")
		require.NoError(t, err)
		assert.False(t, report.Exists)
		assert.Equal(t, "reviews", report.Prefix)
		client.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bucket with archives", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "archive").Return(true, nil)
		client.On("ListObjects", ctx, "archive", mock.MatchedBy(func(o minio.ListObjectsOptions) bool {
			return o.Prefix == "reviews/"
		})).Return(mocks.Objects(minio.ObjectInfo{Key: "reviews/1-1.json"}))

		report, err := CheckStorage(ctx, client, "archive", "reviews")
		require.NoError(t, err)
		assert.True(t, report.Exists)
		assert.True(t, report.ArchiveExists)
	})

	t.Run("bucket error", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "archive").Return(false, errors.New("connection refused"))

		_, err := CheckStorage(ctx, client, "archive", "reviews")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestFixStorage(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("BucketExists", ctx, "archive").Return(false, nil)
	client.On("MakeBucket", ctx, "archive", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

	require.NoError(t, FixStorage(ctx, client, "archive", "eu-west-1"))
	client.AssertExpectations(t)
}

func TestCheckInventory(t *testing.T) {
	ctx := context.Background()

	client := new(merakimocks.Client)
	client.On("ListOrganizations", ctx).Return([]meraki.Organization{{ID: "1"}, {ID: "2"}}, nil).Once()
	report := CheckInventory(ctx, client)
	assert.True(t, report.Reachable)
	assert.Equal(t, 2, report.Organizations)

	client.On("ListOrganizations", ctx).Return(nil, errors.New("401 unauthorized")).Once()
	report = CheckInventory(ctx, client)
	assert.False(t, report.Reachable)
	assert.Equal(t, "401 unauthorized", report.Error)
}
