package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// flakyEmbedder fails with a rate limit error for the first failures calls.
type flakyEmbedder struct {
	mu       sync.Mutex
	failures int
	calls    int
	err      error
	closed   bool
}

func (f *flakyEmbedder) attempt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.calls <= f.failures {
		return domain.ErrRateLimited
	}
	return nil
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return []float32{1, 2}, nil
}

func (f *flakyEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(i), 0}
	}
	return out, nil
}

func (f *flakyEmbedder) Dimensions() int   { return 2 }
func (f *flakyEmbedder) ModelName() string { return "flaky" }
func (f *flakyEmbedder) Close() error      { f.closed = true; return nil }

func TestNew_Defaults(t *testing.T) {
	s := New(&flakyEmbedder{}, Config{})
	assert.Equal(t, DefaultBackoff, s.backoff)
	assert.Equal(t, DefaultMaxRetries, s.maxRetries)
	assert.Equal(t, 2, s.Dimensions())
	assert.Equal(t, "flaky", s.ModelName())
}

func TestEmbedBatch_PassesThrough(t *testing.T) {
	inner := &flakyEmbedder{}
	s := New(inner, Config{RequestsPerSecond: 1000, BurstSize: 10})

	vectors, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 1, inner.calls)

	v, err := s.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
}

func TestEmbedBatch_RetriesAfterRateLimit(t *testing.T) {
	inner := &flakyEmbedder{failures: 2}
	s := New(inner, Config{Backoff: 5 * time.Millisecond, MaxRetries: 3})

	start := time.Now()
	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	// 5ms after the first rate limit, 10ms after the second.
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestDelayFor_DoublesUpToCap(t *testing.T) {
	s := New(&flakyEmbedder{}, Config{Backoff: time.Second})

	assert.Equal(t, time.Second, s.delayFor(0))
	assert.Equal(t, 2*time.Second, s.delayFor(1))
	assert.Equal(t, 4*time.Second, s.delayFor(2))
	assert.Equal(t, 8*time.Second, s.delayFor(3))
	assert.Equal(t, MaxBackoff, s.delayFor(20))
	assert.Equal(t, MaxBackoff, s.delayFor(1000))

	big := New(&flakyEmbedder{}, Config{Backoff: time.Hour})
	assert.Equal(t, time.Hour, big.delayFor(0))
	assert.Equal(t, time.Hour, big.delayFor(3))
}

func TestEmbedBatch_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyEmbedder{failures: 10}
	s := New(inner, Config{Backoff: time.Millisecond, MaxRetries: 2})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 3, inner.calls)
}

func TestEmbedBatch_OtherErrorsNotRetried(t *testing.T) {
	boom := errors.New("boom")
	inner := &flakyEmbedder{err: boom}
	s := New(inner, Config{Backoff: time.Millisecond})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, inner.calls)
}

func TestEmbed_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &flakyEmbedder{failures: 1}
	s := New(inner, Config{Backoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Embed(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}

func TestClose_ClosesWrapped(t *testing.T) {
	inner := &flakyEmbedder{}
	s := New(inner, Config{})
	require.NoError(t, s.Close())
	assert.True(t, inner.closed)
	assert.Same(t, inner, s.Unwrap())
}
