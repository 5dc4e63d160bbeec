package upload

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestJetStreamStore connects to the NATS server named by NATS_URL and
// binds a throwaway bucket. The test is skipped when no server is available.
func newTestJetStreamStore(t *testing.T) *JetStreamStore {
	t.Helper()
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		t.Skip("NATS_URL not set; skipping JetStream store test")
	}

	bucket := "relaychat-test-" + uuid.NewString()[:8]
	store, err := NewJetStreamStore(natsURL, bucket)
	if err != nil {
		t.Skipf("NATS not available at %s: %v", natsURL, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, store.Init(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.js.DeleteObjectStore(ctx, bucket)
		_ = store.Close()
	})
	return store
}

func TestJetStreamStoreRoundTrip(t *testing.T) {
	store := newTestJetStreamStore(t)
	ctx := context.Background()

	assert.True(t, store.IsConnected())

	info, err := store.Put(ctx, "1-abc-cat.png", pngHeader, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "1-abc-cat.png", info.Name)
	assert.Equal(t, uint64(len(pngHeader)), info.Size)

	data, got, err := store.Get(ctx, "1-abc-cat.png")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", got.ContentType)
	assert.False(t, got.ModTime.IsZero())
}

func TestJetStreamStoreNotFound(t *testing.T) {
	store := newTestJetStreamStore(t)

	_, _, err := store.Get(context.Background(), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJetStreamStoreInitReusesBucket(t *testing.T) {
	store := newTestJetStreamStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "1-abc-notes.txt", []byte("hello\n"), "text/plain")
	require.NoError(t, err)

	require.NoError(t, store.Init(ctx))
	data, _, err := store.Get(ctx, "1-abc-notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), data)
}

func TestJetStreamStoreServesService(t *testing.T) {
	store := newTestJetStreamStore(t)
	svc := NewService(store, 0, discardLogger())
	assert.True(t, svc.Ready())

	att, err := svc.Upload(context.Background(), "notes.txt", []byte("shared across relays\n"))
	require.NoError(t, err)

	data, info, err := svc.Open(context.Background(), att.Filename)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared across relays\n"), data)
	assert.Contains(t, info.ContentType, "text/plain")
}
