package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
)

func TestNewCacheRepo_NilClient(t *testing.T) {
	_, err := NewCacheRepo(nil)
	assert.Error(t, err)
}

func TestCacheRepo_UnavailableServerIsNotAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	repo, err := NewCacheRepo(client)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.Get(ctx, "policies:effective:gen")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound), "ошибка соединения не должна выглядеть как промах кеша")

	var dest []string
	err = repo.GetJSON(ctx, "policies:effective:0:platform", &dest)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))

	assert.Error(t, repo.SetJSON(ctx, "k", []string{"a"}, time.Minute))
}
