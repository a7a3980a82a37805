package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raaihank/whatis/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), 0, logger.Wrap(zap.NewNop()))
	assert.Error(t, err)
}

func TestRunDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, 200*time.Millisecond, logger.Wrap(zap.NewNop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	var calls atomic.Int32
	go func() {
		done <- w.Run(ctx, func() { calls.Add(1) })
	}()

	for _, name := range []string{"a.yaml", "b.yaml", "c.toml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\nrule: x\n"), 0o644))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)

	// Nothing else changed, so no further callback
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, os.Remove(filepath.Join(dir, "a.yaml")))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
