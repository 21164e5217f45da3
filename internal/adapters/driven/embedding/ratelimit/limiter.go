// Package ratelimit throttles an embedding service with a token bucket and
// backs off after the provider reports a rate limit.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults applied by New.
const (
	DefaultBackoff    = 10 * time.Second
	DefaultMaxRetries = 3

	// MaxBackoff caps the doubled pause. A configured Backoff above it is
	// used as is.
	MaxBackoff = 5 * time.Minute
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero or less disables throttling.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int

	// Backoff is the pause after the first rate limit response. It doubles
	// with each further consecutive rate limit response.
	Backoff time.Duration

	// MaxRetries bounds retries after rate limit responses.
	MaxRetries int
}

// EmbeddingService wraps another EmbeddingService.
type EmbeddingService struct {
	next       driven.EmbeddingService
	limiter    *rate.Limiter
	backoff    time.Duration
	maxRetries int

	mu      sync.Mutex
	retryAt time.Time
}

// New wraps next with rate limiting.
func New(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &EmbeddingService{
		next:       next,
		limiter:    rate.NewLimiter(limit, cfg.BurstSize),
		backoff:    cfg.Backoff,
		maxRetries: cfg.MaxRetries,
	}
}

// Embed waits for a token, then embeds text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := s.do(ctx, func() error {
		var err error
		out, err = s.next.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch waits for a token, then embeds the batch in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := s.do(ctx, func() error {
		var err error
		out, err = s.next.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}

// Unwrap returns the wrapped service.
func (s *EmbeddingService) Unwrap() driven.EmbeddingService {
	return s.next
}

func (s *EmbeddingService) do(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.wait(ctx); err != nil {
			return err
		}

		err := call()
		if err == nil || !errors.Is(err, domain.ErrRateLimited) || attempt >= s.maxRetries {
			return err
		}

		delay := s.delayFor(attempt)
		logger.Warn("embedding: rate limited, backing off %s (attempt %d/%d)", delay, attempt+1, s.maxRetries)
		s.recordRateLimit(delay)
	}
}

// wait respects any backoff period, then the token bucket.
func (s *EmbeddingService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return s.limiter.Wait(ctx)
}

// delayFor returns backoff * 2^attempt, capped at MaxBackoff.
func (s *EmbeddingService) delayFor(attempt int) time.Duration {
	limit := max(MaxBackoff, s.backoff)
	delay := s.backoff
	for i := 0; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

func (s *EmbeddingService) recordRateLimit(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAt = time.Now().Add(delay)
}
