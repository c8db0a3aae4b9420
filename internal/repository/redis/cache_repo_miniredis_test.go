package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
)

type cachedPolicy struct {
	PolicyKey    string `json:"policy_key"`
	VersionLabel string `json:"version_label"`
}

func newMiniredisRepo(t *testing.T) (*CacheRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo, err := NewCacheRepo(client)
	require.NoError(t, err)
	return repo, mr
}

func TestCacheRepo_MissingKeyIsNotFound(t *testing.T) {
	repo, _ := newMiniredisRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "policies:effective:gen")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var dest []cachedPolicy
	err = repo.GetJSON(ctx, "policies:effective:0:platform", &dest)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, dest)
}

func TestCacheRepo_JSONRoundTrip(t *testing.T) {
	repo, mr := newMiniredisRepo(t)
	ctx := context.Background()
	key := "policies:effective:3:tenant:school-1"

	in := []cachedPolicy{{PolicyKey: "TERMS", VersionLabel: "2026.1"}, {PolicyKey: "PRIVACY", VersionLabel: "v2"}}
	require.NoError(t, repo.SetJSON(ctx, key, in, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, mr.TTL(key))

	var out []cachedPolicy
	require.NoError(t, repo.GetJSON(ctx, key, &out))
	assert.Equal(t, in, out)

	mr.FastForward(5*time.Minute + time.Second)
	err := repo.GetJSON(ctx, key, &out)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "запись исчезает по истечении TTL")
}

func TestCacheRepo_CorruptJSONIsNotAMiss(t *testing.T) {
	repo, mr := newMiniredisRepo(t)
	require.NoError(t, mr.Set("policies:effective:0:platform", "{not json"))

	var out []cachedPolicy
	err := repo.GetJSON(context.Background(), "policies:effective:0:platform", &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCacheRepo_IncrementBumpsGeneration(t *testing.T) {
	repo, _ := newMiniredisRepo(t)
	ctx := context.Background()

	n, err := repo.Increment(ctx, "policies:effective:gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Increment(ctx, "policies:effective:gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	val, err := repo.Get(ctx, "policies:effective:gen")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}
