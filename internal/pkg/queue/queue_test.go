package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestQueue_PushPopFIFO(t *testing.T) {
	_, client := setupTestRedis(t)
	q := NewQueue(client, "notifications")
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &Notification{Kind: KindWelcome, Email: "a@example.com", Name: "Ana"}))
	require.NoError(t, q.Push(ctx, &Notification{Kind: KindSitePublished, Email: "b@example.com", SiteID: 3, CustomURL: "anaebruno"}))

	n, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, KindWelcome, first.Kind)
	assert.Equal(t, "Ana", first.Name)

	second, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, KindSitePublished, second.Kind)
	assert.Equal(t, int64(3), second.SiteID)
}

func TestQueue_PopEmpty(t *testing.T) {
	_, client := setupTestRedis(t)
	q := NewQueue(client, "notifications")

	msg, err := q.Pop(context.Background(), 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestQueue_PopMalformed(t *testing.T) {
	mr, client := setupTestRedis(t)
	q := NewQueue(client, "notifications")

	_, err := mr.Lpush("notifications", "{not json")
	require.NoError(t, err)

	msg, err := q.Pop(context.Background(), time.Second)
	assert.Error(t, err)
	assert.Nil(t, msg)
}
