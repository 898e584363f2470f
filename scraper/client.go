// Package scraper implements the resumable batch-fetch engine: the SOAP
// fetch client, remaining-work computation, batching, and the phase state
// machine that drives them.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-vessels/config"
	"github.com/aluiziolira/go-scrape-vessels/models"
	"github.com/aluiziolira/go-scrape-vessels/parser"
)

// BatchResult is the complete outcome of one batch: a record for every
// fetched id or, for ids that yielded nothing usable, membership in Failed.
// len(Records' distinct ids) + len(Failed) always covers the whole batch.
type BatchResult struct {
	Records  []models.Record
	Failed   []int64
	Duration time.Duration
}

// AllFailed reports whether not a single id in the batch produced a record,
// which usually means the endpoint itself is in trouble.
func (r *BatchResult) AllFailed() bool {
	return len(r.Records) == 0 && len(r.Failed) > 0
}

// Client issues one concurrent SOAP request per id in a batch, sharing a
// single colly collector (and so one transport/session) across the batch.
// Per-id failures are converted to absences; a batch always completes.
type Client struct {
	cfg      *config.Config
	endpoint string
	methods  map[models.Category]Method

	collector *colly.Collector
	Metrics   *Metrics

	mu      sync.Mutex
	current *batchState

	handlersOnce sync.Once
}

// NewClient builds a fetch client configured from cfg. When cfg names a
// methods file, its templates (and endpoint URL, if set) override the
// built-in CGMIX defaults.
func NewClient(cfg *config.Config, metrics *Metrics) (*Client, error) {
	endpoint := cfg.EndpointURL
	methods := DefaultMethods()
	if cfg.MethodsFile != "" {
		overrideURL, loaded, err := LoadMethods(cfg.MethodsFile)
		if err != nil {
			return nil, err
		}
		methods = loaded
		if overrideURL != "" {
			endpoint = overrideURL
		}
	}

	for _, cat := range cfg.Categories {
		if _, ok := methods[cat]; !ok {
			return nil, fmt.Errorf("no SOAP method for category %q", cat)
		}
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("endpoint url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.Parallelism,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &Client{
		cfg:       cfg,
		endpoint:  endpoint,
		methods:   methods,
		collector: collector,
		Metrics:   metrics,
	}, nil
}

// FetchBatch issues every id in the batch concurrently and blocks until all
// of them have completed. It returns an outcome for each requested id:
// records for the ids that produced data, absence for the rest. Only an
// unknown category or context cancellation fail the call itself.
func (c *Client) FetchBatch(ctx context.Context, category models.Category, ids []int64) (*BatchResult, error) {
	method, ok := c.methods[category]
	if !ok {
		return nil, fmt.Errorf("no SOAP method for category %q", category)
	}
	c.configureHandlers()

	state := &batchState{outcomes: make(map[int64]outcome, len(ids))}
	c.mu.Lock()
	c.current = state
	c.mu.Unlock()

	start := time.Now()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			c.collector.Wait()
			return nil, err
		}

		hdr := http.Header{}
		hdr.Set("Content-Type", "text/xml; charset=utf-8")
		hdr.Set("SOAPAction", method.Action)

		rctx := colly.NewContext()
		rctx.Put("id", id)
		rctx.Put("category", string(category))

		body := fmt.Sprintf(method.Body, id)
		if err := c.collector.Request("POST", c.endpoint, strings.NewReader(body), rctx, hdr); err != nil {
			reason := absenceReason(classifyError(err, 0))
			state.fail(id, reason)
			c.Metrics.IncAbsence(reason)
		}
	}
	c.collector.Wait()

	result := &BatchResult{Duration: time.Since(start)}
	state.mu.Lock()
	defer state.mu.Unlock()
	for _, id := range ids {
		o, done := state.outcomes[id]
		if !done || o.reason != "" {
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Records = append(result.Records, o.records...)
	}
	return result, nil
}

func (c *Client) configureHandlers() {
	c.handlersOnce.Do(func() {
		c.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			c.Metrics.IncRequest(r.Ctx.Get("category"))
		})

		c.collector.OnResponse(func(r *colly.Response) {
			c.observe(r.Request.Ctx)
			id, ok := r.Request.Ctx.GetAny("id").(int64)
			if !ok {
				return
			}
			state := c.currentBatch()
			if state == nil {
				return
			}

			records := parser.Records(r.Body, id)
			if len(records) == 0 {
				slog.Debug("empty data set",
					slog.Int64("vessel_id", id),
					slog.String("category", r.Request.Ctx.Get("category")),
				)
				state.fail(id, "empty")
				c.Metrics.IncAbsence("empty")
				return
			}
			state.succeed(id, records)
		})

		c.collector.OnError(func(r *colly.Response, err error) {
			statusCode := 0
			var rctx *colly.Context
			if r != nil {
				statusCode = r.StatusCode
				if r.Request != nil {
					rctx = r.Request.Ctx
				}
			}
			if rctx == nil {
				return
			}
			c.observe(rctx)

			id, ok := rctx.GetAny("id").(int64)
			if !ok {
				return
			}
			reason := absenceReason(classifyError(err, statusCode))
			slog.Debug("request failed",
				slog.Int64("vessel_id", id),
				slog.String("category", rctx.Get("category")),
				slog.String("reason", reason),
				slog.Any("error", err),
			)

			if state := c.currentBatch(); state != nil {
				state.fail(id, reason)
			}
			c.Metrics.IncAbsence(reason)
		})
	})
}

func (c *Client) currentBatch() *batchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Client) observe(rctx *colly.Context) {
	if start, ok := rctx.GetAny("start").(time.Time); ok {
		c.Metrics.ObserveDuration(time.Since(start))
	}
}

// outcome is the per-id fetch result: records on success, a non-empty
// reason on absence.
type outcome struct {
	records []models.Record
	reason  string
}

type batchState struct {
	mu       sync.Mutex
	outcomes map[int64]outcome
}

func (b *batchState) succeed(id int64, records []models.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, done := b.outcomes[id]; done {
		return
	}
	b.outcomes[id] = outcome{records: records}
}

func (b *batchState) fail(id int64, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, done := b.outcomes[id]; done {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	b.outcomes[id] = outcome{reason: reason}
}
