package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	defaultDelay      = 200 * time.Millisecond
	defaultMaxRetries = 3
)

var (
	clientOnce   sync.Once
	sharedClient *http.Client
)

// Client returns the process wide HTTP client. A single client keeps
// one connection pool across all sources.
func Client() *http.Client {
	clientOnce.Do(func() {
		sharedClient = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	})
	return sharedClient
}

// Fetcher issues rate limited, retrying HTTP requests on behalf of a
// single source. Transport failures retry with a flat one second
// pause, 429 responses retry with exponential backoff, and any other
// non-2xx status fails immediately.
type Fetcher struct {
	SourceID   string
	Delay      time.Duration
	MaxRetries int
	Headers    map[string]string
	Logger     *LoggerService

	limiter *RateLimiter
	client  *http.Client

	// backoffUnit scales retry sleeps, overridable in tests.
	backoffUnit time.Duration
}

func NewFetcher(sourceID string) *Fetcher {
	return &Fetcher{
		SourceID:    sourceID,
		Delay:       defaultDelay,
		MaxRetries:  defaultMaxRetries,
		limiter:     NewRateLimiter(),
		client:      Client(),
		backoffUnit: time.Second,
	}
}

func (f *Fetcher) WithDelay(d time.Duration) *Fetcher {
	f.Delay = d
	return f
}

func (f *Fetcher) WithRetries(n int) *Fetcher {
	f.MaxRetries = n
	return f
}

func (f *Fetcher) WithHeaders(h map[string]string) *Fetcher {
	f.Headers = h
	return f
}

func (f *Fetcher) WithLogger(l *LoggerService) *Fetcher {
	f.Logger = l
	return f
}

// Get fetches url and returns the response body. At most
// MaxRetries+1 requests are issued.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return f.do(ctx, url, nil)
}

// GetWithHeaders is Get with extra per request headers layered over
// the fetcher's own.
func (f *Fetcher) GetWithHeaders(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return f.do(ctx, url, headers)
}

func (f *Fetcher) do(ctx context.Context, url string, extra map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx, f.SourceID, f.Delay); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, Parsef("invalid url %q: %v", url, err)
		}
		req.Header.Set("User-Agent", userAgent)
		for k, v := range f.Headers {
			req.Header.Set(k, v)
		}
		for k, v := range extra {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapNetwork(err)
			if attempt < f.MaxRetries {
				f.Logger.Debug("[%s] request failed, retrying: %v", f.SourceID, err)
				if err := f.sleep(ctx, f.backoffUnit); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			lastErr = RateLimitedError(f.SourceID, retryAfter)
			if attempt < f.MaxRetries {
				backoff := f.backoffUnit * (1 << (attempt + 1))
				f.Logger.Debug("[%s] rate limited, backing off %v", f.SourceID, backoff)
				if err := f.sleep(ctx, backoff); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, SourceStatus(f.SourceID, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, WrapNetwork(err)
		}
		return body, nil
	}
	return nil, lastErr
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetText fetches url and returns the body as a string. Bodies that
// are not valid UTF-8 are rejected rather than passed through.
func (f *Fetcher) GetText(ctx context.Context, url string) (string, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(body) {
		return "", Parsef("response from %s is not valid utf-8", url)
	}
	return string(body), nil
}

// GetJSON fetches url and decodes the JSON body into v.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	body, err := f.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return WrapJSON(fmt.Errorf("decoding %s: %w", url, err))
	}
	return nil
}
