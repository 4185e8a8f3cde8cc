package breeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"spyagency/internal/domain"
	"spyagency/internal/metrics"
	"spyagency/internal/resilience"
)

const (
	vocabularyKey = "breeds"
	maxBodyBytes  = 4 << 20
)

type vocabulary map[string]struct{}

type Options struct {
	URL             string
	APIKey          string
	Timeout         time.Duration
	CacheTTL        time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
	Client          *http.Client
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// CatAPI validates against TheCatAPI breed list. The list is fetched at most
// once per CacheTTL; concurrent misses share one request.
type CatAPI struct {
	url     string
	apiKey  string
	timeout time.Duration
	ttl     time.Duration
	client  *http.Client
	cache   *ristretto.Cache[string, vocabulary]
	group   singleflight.Group
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCatAPI(opts Options) (*CatAPI, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("breeds: url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, vocabulary]{
		NumCounters: 100,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("breeds cache: %w", err)
	}
	c := &CatAPI{
		url:     opts.URL,
		apiKey:  opts.APIKey,
		timeout: opts.Timeout,
		ttl:     opts.CacheTTL,
		client:  opts.Client,
		cache:   cache,
		breaker: resilience.NewBreaker(opts.BreakerFailures, opts.BreakerTimeout),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	c.breaker.OnStateChange = func(from, to resilience.State) {
		c.metrics.BreakerState(int(to))
		c.logger.Warn("breed lookup circuit changed", "from", from.String(), "to", to.String())
	}
	return c, nil
}

func (c *CatAPI) IsValid(ctx context.Context, breed string) (bool, error) {
	vocab, err := c.vocabulary(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrBreedUnavailable, err)
	}
	_, ok := vocab[Normalize(breed)]
	return ok, nil
}

// Close releases the cache goroutines.
func (c *CatAPI) Close() {
	c.cache.Close()
}

func (c *CatAPI) vocabulary(ctx context.Context) (vocabulary, error) {
	if v, ok := c.cache.Get(vocabularyKey); ok {
		c.metrics.BreedLookup("cache", "hit")
		return v, nil
	}
	// The shared fetch must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(vocabularyKey, func() (any, error) {
		var v vocabulary
		err := c.breaker.Do(shared, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			var err error
			v, err = c.fetch(ctx)
			return err
		})
		if err != nil {
			c.metrics.BreedLookup("remote", "error")
			return nil, err
		}
		c.metrics.BreedLookup("remote", "ok")
		if c.ttl > 0 {
			c.cache.SetWithTTL(vocabularyKey, v, int64(len(v)), c.ttl)
			c.cache.Wait()
		}
		return v, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(vocabulary), nil
	}
}

type breedDTO struct {
	Name string `json:"name"`
}

func (c *CatAPI) fetch(ctx context.Context) (vocabulary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("breed list: unexpected status %d", resp.StatusCode)
	}
	var list []breedDTO
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode breed list: %w", err)
	}
	v := make(vocabulary, len(list))
	for _, b := range list {
		if n := Normalize(b.Name); n != "" {
			v[n] = struct{}{}
		}
	}
	c.logger.Debug("breed list fetched", "count", len(v))
	return v, nil
}
