package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Getters(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"llm.model":          "gpt-4o",
		"chunking.size":      int64(800),
		"llm.temperature":    0.2,
		"retrieval.k":        6,
		"ingest.hidden":      true,
		"ingest.include":     []any{"**/*.pdf", 7, "*.txt"},
		"ingest.json.fields": []string{"title", "body"},
	})

	assert.Equal(t, "gpt-4o", store.GetString("llm.model"))
	assert.Equal(t, 800, store.GetInt("chunking.size"))
	assert.InDelta(t, 0.2, store.GetFloat("llm.temperature"), 1e-9)
	assert.InDelta(t, 6.0, store.GetFloat("retrieval.k"), 1e-9)
	assert.True(t, store.GetBool("ingest.hidden"))
	assert.Equal(t, []string{"**/*.pdf", "*.txt"}, store.GetStringSlice("ingest.include"))
	assert.Equal(t, []string{"title", "body"}, store.GetStringSlice("ingest.json.fields"))
}

func TestConfigStore_MissingAndMistyped(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{"llm.model": 42})

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "string of int", got: store.GetString("llm.model"), want: ""},
		{name: "missing int", got: store.GetInt("nope"), want: 0},
		{name: "missing float", got: store.GetFloat("nope"), want: 0.0},
		{name: "missing bool", got: store.GetBool("nope"), want: false},
		{name: "float of string", got: NewConfigStoreFrom(map[string]any{"x": "1"}).GetFloat("x"), want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Nil(t, store.GetStringSlice("nope"))
}

func TestConfigStore_SetOverwrites(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("memory.window", 3))
	require.NoError(t, store.Set("memory.window", 8))

	assert.Equal(t, 8, store.GetInt("memory.window"))
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrent(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("retrieval.k")
	assert.True(t, ok)
}

func TestNewConfigStoreFrom_NestedTables(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"retrieval": map[string]any{"strategy": "hybrid", "k": 3},
		"llm.model": "llama3.2",
	})

	assert.Equal(t, "hybrid", store.GetString("retrieval.strategy"))
	assert.Equal(t, 3, store.GetInt("retrieval.k"))
	assert.Equal(t, "llama3.2", store.GetString("llm.model"))
	_, ok := store.Get("retrieval")
	assert.False(t, ok)
}
