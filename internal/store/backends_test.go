package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type change struct {
	key    string
	origin string
}

func newRedisBackend(t *testing.T, mr *miniredis.Miniredis, namespace string) *RedisBackend {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBackend(client, namespace, testLogger())
}

func TestRedisBackendGetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	backend := newRedisBackend(t, mr, "cms")

	_, err := backend.Get(ctx, "exams")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, backend.Set(ctx, "exams", []byte(`[{"id":"E1"}]`)))
	raw, err := backend.Get(ctx, "exams")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"E1"}]`, string(raw))

	stored, err := mr.Get("cms:exams")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"E1"}]`, stored)

	require.NoError(t, backend.Set(ctx, "exams", []byte(`[]`)))
	raw, err = backend.Get(ctx, "exams")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))

	require.NoError(t, backend.Delete(ctx, "exams"))
	_, err = backend.Get(ctx, "exams")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.False(t, mr.Exists("cms:exams"))
}

func TestRedisBackendUnreachable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	backend := newRedisBackend(t, mr, "cms")
	mr.Close()

	_, err = backend.Get(ctx, "exams")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	s := New(backend, testLogger())
	defer s.Close()
	assert.ErrorIs(t, s.Set(ctx, "exams", []byte(`[]`)), apperrors.ErrStorageUnavailable)
}

func TestRedisBackendWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mr := miniredis.RunT(t)
	backend := newRedisBackend(t, mr, "cms")

	changes := make(chan change, 4)
	require.NoError(t, backend.Watch(ctx, func(key, origin string) {
		changes <- change{key: key, origin: origin}
	}))

	mr.Publish("cms:changes", "garbage")
	mr.Publish("other:changes", `{"key":"questions","origin":"elsewhere"}`)
	require.NoError(t, backend.Broadcast(ctx, "exams", "store-a"))

	select {
	case got := <-changes:
		assert.Equal(t, change{key: "exams", origin: "store-a"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("change was not delivered")
	}

	cancel()
	assert.Eventually(t, func() bool {
		return len(mr.PubSubChannels("cms:*")) == 0
	}, 2*time.Second, 10*time.Millisecond, "subscription ends with its context")
}

func TestRedisStoresShareWrites(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	writer := New(newRedisBackend(t, mr, "cms"), testLogger())
	defer writer.Close()
	reader := New(newRedisBackend(t, mr, "cms"), testLogger())
	defer reader.Close()
	isolated := New(newRedisBackend(t, mr, "other"), testLogger())
	defer isolated.Close()

	var writerCalls, readerCalls, isolatedCalls atomic.Int32
	writer.Subscribe("exams", func() { writerCalls.Add(1) })
	reader.Subscribe("exams", func() { readerCalls.Add(1) })
	isolated.Subscribe("exams", func() { isolatedCalls.Add(1) })

	require.NoError(t, Write(ctx, writer, "exams", []item{{ID: "E1", Name: "Mock"}}))
	assert.Equal(t, int32(1), writerCalls.Load(), "local subscribers run before Write returns")

	assert.Eventually(t, func() bool { return readerCalls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	got := Read(ctx, reader, "exams", []item{})
	require.Len(t, got, 1)
	assert.Equal(t, "E1", got[0].ID)

	assert.Never(t, func() bool {
		return writerCalls.Load() > 1 || isolatedCalls.Load() > 0
	}, 200*time.Millisecond, 20*time.Millisecond, "own broadcasts and other namespaces are ignored")
	assert.Empty(t, Read(ctx, isolated, "exams", []item{}))
}

func TestGormBackendSetUpserts(t *testing.T) {
	db, err := gorm.Open(postgres.Open("host=localhost user=cms dbname=cms sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	require.NoError(t, err)

	var statements []string
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture_sql", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}))

	backend := &GormBackend{db: db}
	require.NoError(t, backend.Set(context.Background(), "exams", []byte(`[]`)))

	require.Len(t, statements, 1)
	assert.Contains(t, statements[0], `INSERT INTO "store_entries"`)
	assert.Contains(t, statements[0], `ON CONFLICT ("key") DO UPDATE SET "value"="excluded"."value","updated_at"="excluded"."updated_at"`)
	assert.Equal(t, "store_entries", Entry{}.TableName())
}
