package scraper

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hylin/bookcrawl/config"
)

// Fetcher retrieves raw page bytes for a URL. Implementations own pacing
// and request identity; callers own parsing.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PageFetcher fetches pages through a synchronous colly collector. The
// collector's limit rule enforces the pacing delay (fixed floor plus
// random jitter) before every outbound request, and each request carries
// a rotated User-Agent plus locale and referer headers. A small LRU cache
// keeps product pages that multiple targets reference from being fetched
// twice.
//
// Fetch calls are serialised by a mutex: the identity rotation state is
// mutated between requests and must never be read concurrently with a
// write. Parallel crawling needs one fetcher per worker.
type PageFetcher struct {
	collector *colly.Collector
	cache     *lru.Cache[string, []byte]
	metrics   *Metrics

	mu         sync.Mutex
	userAgents []string
	uaIndex    int
	body       []byte
	lastErr    error
}

// NewPageFetcher builds a fetcher configured from cfg.
func NewPageFetcher(cfg *config.Config, metrics *Metrics) (*PageFetcher, error) {
	options := []colly.CollectorOption{colly.AllowURLRevisit()}
	if len(cfg.AllowedDomains) > 0 {
		options = append(options, colly.AllowedDomains(cfg.AllowedDomains...))
	}
	collector := colly.NewCollector(options...)
	collector.SetRequestTimeout(cfg.Timeout)

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, err
	}

	f := &PageFetcher{
		collector:  collector,
		metrics:    metrics,
		userAgents: cfg.UserAgents,
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		f.cache = cache
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		r.Headers.Set("User-Agent", f.nextUserAgent())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		if cfg.AcceptLanguage != "" {
			r.Headers.Set("Accept-Language", cfg.AcceptLanguage)
		}
		if cfg.Referer != "" {
			r.Headers.Set("Referer", cfg.Referer)
		}
		f.metrics.IncRequest("started")
	})

	collector.OnResponse(func(r *colly.Response) {
		f.body = r.Body
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		f.lastErr = classifyError(err, statusCode)
		f.metrics.IncError(errorTypeLabel(f.lastErr))
	})

	return f, nil
}

// WithTransport swaps the underlying HTTP transport. Tests inject mock
// transports here.
func (f *PageFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch retrieves one page. The pacing delay applies before the request
// goes out; a timeout surfaces as a transport failure.
func (f *PageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cache != nil {
		if body, ok := f.cache.Get(url); ok {
			f.metrics.IncCacheHit()
			return body, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.body = nil
	f.lastErr = nil
	visitErr := f.collector.Visit(url)

	if f.lastErr != nil {
		return nil, f.lastErr
	}
	if visitErr != nil {
		return nil, classifyError(visitErr, 0)
	}
	if f.body == nil {
		return nil, ErrConnection{Err: errors.New("empty response")}
	}

	if f.cache != nil {
		f.cache.Add(url, f.body)
	}
	return f.body, nil
}

func (f *PageFetcher) nextUserAgent() string {
	ua := f.userAgents[f.uaIndex%len(f.userAgents)]
	f.uaIndex++
	return ua
}
