package breeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyagency/internal/domain"
	"spyagency/internal/logger"
)

const breedList = `[{"id":"siam","name":"Siamese"},{"id":"pers","name":"Persian"},{"id":"mcoo","name":" Maine Coon "}]`

type fakeCatAPI struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	apiKey atomic.Value
}

func newFakeCatAPI(t *testing.T, handler http.HandlerFunc) *fakeCatAPI {
	t.Helper()
	f := &fakeCatAPI{}
	f.status.Store(http.StatusOK)
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.apiKey.Store(r.Header.Get("x-api-key"))
		if handler != nil {
			handler(w, r)
			return
		}
		if code := int(f.status.Load()); code != http.StatusOK {
			http.Error(w, "down", code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(breedList))
	}))
	t.Cleanup(f.Close)
	return f
}

func newValidator(t *testing.T, url string, mutate func(*Options)) *CatAPI {
	t.Helper()
	opts := Options{
		URL:             url,
		Timeout:         time.Second,
		CacheTTL:        time.Hour,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
		Logger:          logger.Discard(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	v, err := NewCatAPI(opts)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestCatAPIValidatesNormalizedNames(t *testing.T) {
	srv := newFakeCatAPI(t, nil)
	v := newValidator(t, srv.URL, func(o *Options) { o.APIKey = "k-123" })
	ctx := context.Background()

	cases := map[string]bool{
		"Siamese":      true,
		"  siamese ":   true,
		"PERSIAN":      true,
		"maine coon":   true,
		"Dragon":       false,
		"":             false,
		"Siamese Twin": false,
	}
	for breed, want := range cases {
		got, err := v.IsValid(ctx, breed)
		require.NoError(t, err, breed)
		assert.Equal(t, want, got, breed)
	}
	assert.Equal(t, int32(1), srv.hits.Load(), "vocabulary is cached between lookups")
	assert.Equal(t, "k-123", srv.apiKey.Load())
}

func TestCatAPIFailureIsUnavailable(t *testing.T) {
	srv := newFakeCatAPI(t, nil)
	srv.status.Store(http.StatusInternalServerError)
	v := newValidator(t, srv.URL, nil)

	ok, err := v.IsValid(context.Background(), "Siamese")
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrBreedUnavailable)
}

func TestCatAPIBreakerFailsFast(t *testing.T) {
	srv := newFakeCatAPI(t, nil)
	srv.status.Store(http.StatusBadGateway)
	v := newValidator(t, srv.URL, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := v.IsValid(ctx, "Siamese")
		require.ErrorIs(t, err, domain.ErrBreedUnavailable)
	}
	srv.status.Store(http.StatusOK)
	_, err := v.IsValid(ctx, "Siamese")
	require.ErrorIs(t, err, domain.ErrBreedUnavailable)
	assert.Equal(t, int32(2), srv.hits.Load(), "open circuit must not reach the remote")
}

func TestCatAPITimeout(t *testing.T) {
	srv := newFakeCatAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	v := newValidator(t, srv.URL, func(o *Options) { o.Timeout = 50 * time.Millisecond })

	start := time.Now()
	_, err := v.IsValid(context.Background(), "Siamese")
	assert.ErrorIs(t, err, domain.ErrBreedUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCatAPICoalescesConcurrentMisses(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := newFakeCatAPI(t, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(entered) })
		<-release
		_, _ = w.Write([]byte(breedList))
	})
	v := newValidator(t, srv.URL, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := v.IsValid(context.Background(), "Persian")
			if err == nil && !ok {
				err = errors.New("persian rejected")
			}
			errs <- err
		}()
	}
	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	srv := newFakeCatAPI(t, nil)
	v := newValidator(t, srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = v.IsValid(ctx, "Siamese")

	ok, err := v.IsValid(context.Background(), "Siamese")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatic(t *testing.T) {
	s := NewStatic("Siamese", " Bengal ", "")
	ok, err := s.IsValid(context.Background(), "bengal")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = s.IsValid(context.Background(), "")
	assert.False(t, ok)
	assert.Len(t, s, 2)
}

func TestNewCatAPIRequiresURL(t *testing.T) {
	_, err := NewCatAPI(Options{})
	assert.Error(t, err)
}
