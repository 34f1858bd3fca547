package inmemorystore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Missing keys are reported, not errors.
	v, ok, err := s.Get(ctx, "page|home")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)

	buf := []byte(`{"name":"home"}`)
	require.NoError(t, s.Set(ctx, "page|home", buf))
	buf[0] = 'X'

	v, ok, err = s.Get(ctx, "page|home")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"home"}`, string(v))
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a|1", []byte("1")))
	require.NoError(t, s.Set(ctx, "a|2", []byte("2")))
	require.NoError(t, s.Set(ctx, "b|1", []byte("3")))

	require.NoError(t, s.Delete(ctx, "a|1"))
	require.NoError(t, s.Delete(ctx, "missing"))
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.DeletePrefix(ctx, "a|"))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Close())
	assert.Zero(t, s.Len())
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("page|%d", i)
			assert.NoError(t, s.Set(ctx, key, []byte(key)))
			v, ok, err := s.Get(ctx, key)
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, key, string(v))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, s.Len())
}
