package chunker_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/OmGuptaIND/clipcam/chunker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collected struct {
	mu     sync.Mutex
	chunks []string
	index  []int
}

func (c *collected) add(info chunker.ChunkInfo, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, string(data))
	c.index = append(c.index, info.Index)
}

func (c *collected) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chunks...)
}

func TestWatcherDeliversCompleteChunksInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pass")
	got := &collected{}

	w, err := chunker.NewWatcher(chunker.WatcherOptions{Dir: dir, OnChunk: got.add})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	write := func(i int, data string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, w.ChunkName(i)), []byte(data), 0o644))
	}

	write(0, "zero")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, got.get(), "newest segment may still be written")

	write(1, "one")
	require.Eventually(t, func() bool { return len(got.get()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"zero"}, got.get())

	write(2, "two")
	require.Eventually(t, func() bool { return len(got.get()) == 2 }, 2*time.Second, 10*time.Millisecond)

	w.Stop()

	assert.Equal(t, []string{"zero", "one", "two"}, got.get())
	assert.Equal(t, []int{0, 1, 2}, got.index)
	assert.Equal(t, 3, w.Next())

	_, err = os.Stat(filepath.Join(dir, w.ChunkName(0)))
	assert.True(t, os.IsNotExist(err))
}

func TestFlushContinuesNumbering(t *testing.T) {
	dir := t.TempDir()
	got := &collected{}

	w, err := chunker.NewWatcher(chunker.WatcherOptions{Dir: dir, OnChunk: got.add, Keep: true})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, w.ChunkName(0)), []byte("a"), 0o644))
	w.Flush()
	require.NoError(t, os.WriteFile(filepath.Join(dir, w.ChunkName(1)), []byte("b"), 0o644))
	w.Flush()

	assert.Equal(t, []string{"a", "b"}, got.get())
	assert.Equal(t, 2, w.Next())
	assert.Equal(t, filepath.Join(dir, "chunk_%05d.webm"), w.Pattern())

	_, err = os.Stat(filepath.Join(dir, w.ChunkName(0)))
	assert.NoError(t, err)
}

func TestNewWatcherNeedsDir(t *testing.T) {
	_, err := chunker.NewWatcher(chunker.WatcherOptions{})
	assert.Error(t, err)
}
