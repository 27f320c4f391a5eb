package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

type failingStore struct {
	Store
}

func (f *failingStore) Append(context.Context, Entry) error {
	return errors.New("disk full")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordEnrichesFromContext(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, WithLogger(discardLogger()))

	actorID := id.UserID(uuid.New())
	ctx := context.Background()
	ctx = requestcontext.WithRequestID(ctx, "req-123")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "curl/8.0")
	ctx = requestcontext.WithDeviceSummary(ctx, "curl on Linux")
	ctx = requestcontext.WithIdentity(ctx, requestcontext.Identity{UserID: actorID, Role: id.RoleStandard})

	recorder.Record(ctx, Entry{Action: ActionCreateTask, EntityType: "task"})

	entries := store.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "req-123", e.RequestID)
	assert.Equal(t, "203.0.113.9", e.IPAddress)
	assert.Equal(t, "curl/8.0", e.UserAgent)
	assert.Equal(t, "curl on Linux", e.Device)
	assert.Equal(t, SeverityInfo, e.Severity)
	require.NotNil(t, e.ActorID)
	assert.Equal(t, actorID, *e.ActorID)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestRecordKeepsExplicitActor(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store)

	explicit := id.UserID(uuid.New())
	ctx := requestcontext.WithIdentity(context.Background(),
		requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleAdmin})

	recorder.Record(ctx, Entry{Action: ActionLoginUser, ActorID: &explicit})

	entries := store.All()
	require.Len(t, entries, 1)
	assert.Equal(t, explicit, *entries[0].ActorID)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	recorder := NewRecorder(&failingStore{}, WithLogger(discardLogger()))

	// Must not panic or propagate; the caller's operation already succeeded.
	recorder.Record(context.Background(), Entry{Action: ActionCreateClient})
}

func TestAsyncRecorderDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, WithAsyncBuffer(16))

	for range 5 {
		recorder.Record(context.Background(), Entry{Action: ActionCreateTodo})
	}
	recorder.Close()

	assert.Len(t, store.All(), 5)
}

func TestListFilter(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	actorID := id.UserID(uuid.New())
	now := time.Now()
	seed := []Entry{
		{ID: uuid.New(), Action: ActionLoginUser, ActorID: &actorID, Severity: SeverityInfo, CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), Action: ActionLoginFailed, Severity: SeverityWarning, CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), Action: ActionDeleteTask, ActorID: &actorID, Severity: SeverityWarning, CreatedAt: now},
	}
	for _, e := range seed {
		require.NoError(t, store.Append(ctx, e))
	}

	entries, total, err := store.ListPage(ctx, ListFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	// Newest first.
	assert.Equal(t, ActionDeleteTask, entries[0].Action)

	_, total, err = store.ListPage(ctx, ListFilter{ActorID: &actorID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = store.ListPage(ctx, ListFilter{Severity: SeverityWarning}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = store.ListPage(ctx, ListFilter{Action: ActionLoginFailed}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRetentionPurge(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	old := Entry{ID: uuid.New(), Action: ActionLoginUser, CreatedAt: time.Now().AddDate(0, 0, -200)}
	fresh := Entry{ID: uuid.New(), Action: ActionLoginUser, CreatedAt: time.Now()}
	require.NoError(t, store.Append(ctx, old))
	require.NoError(t, store.Append(ctx, fresh))

	retention := NewRetention(store, 180, time.Hour, discardLogger())
	purged, err := retention.PurgeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining := store.All()
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}
