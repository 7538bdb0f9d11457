package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicatalog/backend/internal/domain"
)

// Runs against a live server: UNICATALOG_TEST_REDIS_ADDR=redis://localhost:6379/0
func TestRedisStore(t *testing.T) {
	url := os.Getenv("UNICATALOG_TEST_REDIS_ADDR")
	if url == "" {
		t.Skip("UNICATALOG_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, url, "unicatalog-test:"+uuid.NewString()+":")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, "comparedPrograms")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	require.NoError(t, s.Set(ctx, "comparedPrograms", []byte(`[{"id":3}]`), time.Minute))
	got, err := s.Get(ctx, "comparedPrograms")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":3}]`, string(got))

	exists, err := s.Exists(ctx, "comparedPrograms")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "comparedPrograms"))
	exists, err = s.Exists(ctx, "comparedPrograms")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}
