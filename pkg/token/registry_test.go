package token_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/dukex/operion-forms/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstance() *models.WorkflowInstance {
	return &models.WorkflowInstance{
		ID:         "42",
		Type:       "certificate_request",
		LastUpdate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testPending() models.PendingAction {
	return models.PendingAction{
		Action: "enter_data",
		Fields: []models.FieldDescriptor{
			{Name: "subject", Type: models.FieldTypeText, Required: true},
			{Name: "san[]", Type: models.FieldTypeText},
		},
	}
}

func TestRegistry_RegisterFetchPurge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := token.NewRegistry(session.NewMemoryStore(0))

	hidden, err := registry.Register(ctx, testInstance(), testPending())
	require.NoError(t, err)

	assert.Equal(t, models.ParamToken, hidden.Name)
	assert.Equal(t, models.FieldTypeHidden, hidden.Type)

	id, ok := hidden.Value.(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	peeked, err := registry.Fetch(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, "enter_data", peeked.Action)

	fetched, err := registry.Fetch(ctx, id, true)
	require.NoError(t, err)

	assert.Equal(t, id, fetched.ID)
	assert.Equal(t, "42", fetched.WorkflowID)
	assert.Equal(t, "certificate_request", fetched.WorkflowType)
	assert.True(t, testInstance().LastUpdate.Equal(fetched.LastUpdate))
	assert.Equal(t, testPending().Action, fetched.Action)
	assert.Equal(t, testPending().Fields, fetched.Fields)

	_, err = registry.Fetch(ctx, id, true)
	assert.ErrorIs(t, err, token.ErrTokenNotFound)

	_, err = registry.Fetch(ctx, id, false)
	assert.ErrorIs(t, err, token.ErrTokenNotFound)
}

func TestRegistry_Purge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := token.NewRegistry(session.NewMemoryStore(0))

	hidden, err := registry.Register(ctx, testInstance(), testPending())
	require.NoError(t, err)

	id := hidden.Value.(string)

	require.NoError(t, registry.Purge(ctx, id))
	require.NoError(t, registry.Purge(ctx, id))

	_, err = registry.Fetch(ctx, id, false)
	assert.ErrorIs(t, err, token.ErrTokenNotFound)
}

func TestRegistry_FetchEmptyID(t *testing.T) {
	t.Parallel()

	registry := token.NewRegistry(session.NewMemoryStore(0))

	_, err := registry.Fetch(context.Background(), "", true)
	assert.ErrorIs(t, err, token.ErrTokenNotFound)
}

func TestRegistry_IDsAreUnique(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := token.NewRegistry(session.NewMemoryStore(0))
	seen := make(map[string]bool)

	for range 100 {
		hidden, err := registry.Register(ctx, testInstance(), testPending())
		require.NoError(t, err)

		id := hidden.Value.(string)
		assert.False(t, seen[id], "token id reused: %s", id)
		assert.Len(t, id, 36)

		seen[id] = true
	}
}

func TestRegistry_IDGeneratorFailure(t *testing.T) {
	t.Parallel()

	registry := token.NewRegistry(session.NewMemoryStore(0), token.WithIDGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	_, err := registry.Register(context.Background(), testInstance(), testPending())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}

func TestRegistry_ConcurrentPurgeIsAtMostOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := token.NewRegistry(session.NewMemoryStore(0))

	hidden, err := registry.Register(ctx, testInstance(), testPending())
	require.NoError(t, err)

	id := hidden.Value.(string)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		misses    atomic.Int32
	)

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := registry.Fetch(ctx, id, true)
			if err == nil {
				successes.Add(1)

				return
			}

			if errors.Is(err, token.ErrTokenNotFound) {
				misses.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(31), misses.Load())
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := session.NewMemoryStore(0)
	alice := token.NewRegistry(session.Scope(base, "alice"))
	bob := token.NewRegistry(session.Scope(base, "bob"))

	hidden, err := alice.Register(ctx, testInstance(), testPending())
	require.NoError(t, err)

	_, err = bob.Fetch(ctx, hidden.Value.(string), true)
	assert.ErrorIs(t, err, token.ErrTokenNotFound)

	_, err = alice.Fetch(ctx, hidden.Value.(string), true)
	require.NoError(t, err)
}
