package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SeededCopy(t *testing.T) {
	seed := map[string]any{"client_id": "client-1"}
	store := NewConfigStore(seed)

	require.NoError(t, store.Set("client_id", "client-2"))
	assert.Equal(t, "client-1", seed["client_id"])
	assert.Equal(t, "client-2", store.GetString("client_id"))
}

func TestConfigStore_Getters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"page_size":          int64(500),
		"retry.max_attempts": 3,
		"retry.multiplier":   1.5,
		"verbose":            true,
		"streams":            []string{"opens"},
	})

	assert.Equal(t, 500, store.GetInt("page_size"))
	assert.Equal(t, 3, store.GetInt("retry.max_attempts"))
	assert.Equal(t, "1.5", store.GetString("retry.multiplier"))
	assert.Equal(t, "500", store.GetString("page_size"))
	assert.True(t, store.GetBool("verbose"))
	assert.Equal(t, []string{"opens"}, store.GetStringSlice("streams"))

	assert.Equal(t, 0, store.GetInt("verbose"))
	assert.Equal(t, "", store.GetString("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("page_size"))
}

func TestConfigStore_DeleteAndKeys(t *testing.T) {
	store := NewConfigStore(nil)
	require.NoError(t, store.Set("state.backend", "redis"))
	require.NoError(t, store.Set("api_key", "secret"))

	assert.Equal(t, []string{"api_key", "state.backend"}, store.Keys())

	require.NoError(t, store.Delete("api_key"))
	require.NoError(t, store.Delete("api_key"))
	assert.Equal(t, []string{"state.backend"}, store.Keys())

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("key", n)
			_ = store.GetInt("key")
			_ = store.Keys()
		}(i)
	}
	wg.Wait()
}
