package minio

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

func TestStorageAgainstMinIO(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	endpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := NewStorage(StorageConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "swing-videos",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBucket(ctx))
	require.NoError(t, storage.EnsureBucket(ctx))
	require.NoError(t, storage.Ping(ctx))

	const key = "golfer/swing.mp4"
	exists, err := storage.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	body := "not really an mp4"
	require.NoError(t, storage.Put(ctx, key, strings.NewReader(body), int64(len(body)), "video/mp4"))

	exists, err = storage.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := storage.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	signed, err := storage.SignedURL(ctx, key, 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, signed, "swing-videos/golfer/swing.mp4")
	assert.Contains(t, signed, "X-Amz-Signature=")
}
