package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/history"
	"github.com/zhouzirui/zorey-ai/backend/internal/storage"
)

func turnAt(id int64, user, ai string) chat.Turn {
	return chat.NewTurn(id, user, ai, time.UnixMilli(id))
}

func TestLoadEmptyWhenNothingStored(t *testing.T) {
	svc := history.NewService(storage.NewMemoryStore())

	turns := svc.Load(context.Background())
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestAppendThenLoadKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := history.NewService(store)

	want := []chat.Turn{
		turnAt(1, "hi", "hello"),
		turnAt(2, "what is 2+2?", "4"),
		turnAt(3, "", "nice picture"),
	}
	for _, turn := range want {
		require.NoError(t, svc.Append(ctx, turn))
		loaded := svc.Load(ctx)
		assert.Equal(t, turn, loaded[len(loaded)-1])
	}

	// A fresh service over the same store behaves like a page reload.
	reloaded := history.NewService(store).Load(ctx)
	assert.Equal(t, want, reloaded)
}

func TestClearEmptiesHistory(t *testing.T) {
	ctx := context.Background()
	svc := history.NewService(storage.NewMemoryStore())

	require.NoError(t, svc.Append(ctx, turnAt(1, "hi", "hello")))
	require.NoError(t, svc.Clear(ctx))

	assert.Empty(t, svc.Load(ctx))
}

func TestLoadTreatsMalformedDataAsEmpty(t *testing.T) {
	cases := map[string]string{
		"not json":      `{oops`,
		"not an array":  `{"id":1}`,
		"missing field": `[{"id":1,"user":"hi"}]`,
		"wrong type":    `[{"id":"1","user":"hi","ai":"hello"}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemoryStore()
			require.NoError(t, store.Set(ctx, storage.KeyChatHistory, []byte(raw)))

			assert.Empty(t, history.NewService(store).Load(ctx))
		})
	}
}

func TestAppendRecoversFromMalformedData(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyChatHistory, []byte(`garbage`)))

	svc := history.NewService(store)
	require.NoError(t, svc.Append(ctx, turnAt(5, "hi", "hello")))

	assert.Equal(t, []chat.Turn{turnAt(5, "hi", "hello")}, svc.Load(ctx))
}

type failingStore struct{ storage.Store }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk unavailable")
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk unavailable")
}

func TestStorageFailures(t *testing.T) {
	ctx := context.Background()
	svc := history.NewService(failingStore{storage.NewMemoryStore()})

	assert.Empty(t, svc.Load(ctx))
	assert.Error(t, svc.Append(ctx, turnAt(1, "hi", "hello")))
}
