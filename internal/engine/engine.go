package engine

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/feedhawk/feedhawk/internal/config"
	"github.com/feedhawk/feedhawk/internal/types"
	"golang.org/x/sync/semaphore"
)

// Fetcher performs a single HTTP exchange for a Request (spec §4.3).
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
	Close() error
}

// LazySeq is an asynchronously produced stream of callback-output values
// (spec §4.4 "lazy sequence"). A parser that wants to yield many values
// without blocking a worker on a large in-memory slice returns one of
// these instead.
type LazySeq <-chan interface{}

// Deferred is a promise-like deferred computation (spec §4.4 "deferred
// computation").
type Deferred func() (interface{}, error)

// Callback is bound to a Request and invoked with (request, response) once
// fetched; its return value is classified and dispatched recursively
// (spec §4.4 "Recursive result dispatch"). Valid return values: nil,
// *types.Request, *types.FeedInfo, LazySeq, Deferred, *types.CallbackResult,
// or a []interface{} of any mix of the above.
type Callback func(req *types.Request, resp *types.Response) (interface{}, error)

// ItemProcessor receives every FeedInfo the crawl produces. The Engine
// keeps no result set of its own: its default processor discards every
// item. The Spider facade supplies one that collects items and also
// applies full_crawl host-gating (spec §4.4 "process_item").
type ItemProcessor func(item *types.FeedInfo)

// Engine is the bounded-concurrency crawl scheduler: it owns the work
// queue, the worker pool, the concurrency semaphore, the duplicate filter,
// and the global deadline for one crawl (spec §4.4, the hardest
// component of the system).
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	queue     *WorkQueue
	dedup     *DuplicateFilter
	stats     *Stats
	fetcher   Fetcher
	semaphore *semaphore.Weighted

	callbacks    map[types.CallbackName]Callback
	processItem  ItemProcessor
	postCrawlHook func()

	hostSatisfiedMu sync.Mutex
	hostSatisfied   map[string]bool

	wg sync.WaitGroup
}

// New creates an Engine. fetcher performs the HTTP exchanges. The item
// processor starts as a no-op discard until SetItemProcessor replaces it
// (callers typically supply the Spider's result-collecting implementation).
func New(cfg *config.Config, logger *slog.Logger, fetcher Fetcher) *Engine {
	return &Engine{
		cfg:           cfg,
		logger:        logger.With("component", "engine"),
		queue:         NewWorkQueue(),
		dedup:         NewDuplicateFilter(),
		stats:         NewStats(),
		fetcher:       fetcher,
		semaphore:     semaphore.NewWeighted(int64(cfg.Engine.Concurrency)),
		callbacks:     make(map[types.CallbackName]Callback),
		processItem:   func(*types.FeedInfo) {},
		hostSatisfied: make(map[string]bool),
	}
}

// OnCallback registers the handler invoked for Requests bound to name.
func (e *Engine) OnCallback(name types.CallbackName, cb Callback) {
	e.callbacks[name] = cb
}

// SetItemProcessor overrides the default process_item implementation.
func (e *Engine) SetItemProcessor(p ItemProcessor) {
	e.processItem = p
}

// SetPostCrawlHook registers a hook run after the crawl completes but
// before the session is closed (spec §4.4 "Termination").
func (e *Engine) SetPostCrawlHook(hook func()) {
	e.postCrawlHook = hook
}

// Stats exposes the running statistics.
func (e *Engine) Stats() *Stats { return e.stats }

// URLsSeen is the size of the duplicate filter (spec §4.4 "Statistics").
func (e *Engine) URLsSeen() int { return e.dedup.Count() }

// MarkHostSatisfied records that host has produced a non-bozo FeedInfo, so
// the enqueue discipline can stop fanning out further Site-Parser-derived
// candidates for it when full_crawl is false (spec §9 Open Question).
func (e *Engine) MarkHostSatisfied(host string) {
	e.hostSatisfiedMu.Lock()
	e.hostSatisfied[host] = true
	e.hostSatisfiedMu.Unlock()
}

func (e *Engine) isHostSatisfied(host string) bool {
	e.hostSatisfiedMu.Lock()
	defer e.hostSatisfiedMu.Unlock()
	return e.hostSatisfied[host]
}

// Follow constructs a Request for rawURL. If rawURL is relative and parent
// is given, it is resolved against the parent Response's final URL origin,
// and the parent's History is copied onto the new Request so depth
// propagates (spec §4.4 "follow").
func (e *Engine) Follow(rawURL string, callback types.CallbackName, parent *types.Response) (*types.Request, error) {
	resolved := rawURL
	var history []string
	if parent != nil {
		if u := resolveAgainst(parent.FinalURL, rawURL); u != "" {
			resolved = u
		}
		history = parent.History
	}

	req, err := types.NewRequest(resolved, history)
	if err != nil {
		return nil, err
	}
	req.Callback = callback
	req.MaxRetries = e.cfg.Engine.MaxRetries
	req.Timeout = e.cfg.Engine.RequestTimeout
	req.MaxContentLength = e.cfg.Engine.MaxContentLength
	return req, nil
}

// EnqueueRequest applies the enqueue discipline of spec §4.4: dedup filter,
// allowed_schemes, max_depth, and (when full_crawl is false) per-host
// feed-satisfied gating for Site-Parser-derived candidates.
func (e *Engine) EnqueueRequest(req *types.Request) bool {
	if len(e.cfg.Engine.AllowedSchemes) > 0 && !containsStr(e.cfg.Engine.AllowedSchemes, req.URL.Scheme) {
		return false
	}
	if e.cfg.Engine.MaxDepth > 0 && req.Depth() >= e.cfg.Engine.MaxDepth {
		return false
	}
	// Site-Parser-derived candidates are CallbackFeed Requests that carry
	// their parent's History; seeds and try-URL probes have none.
	if !e.cfg.Spider.FullCrawl && req.Callback == types.CallbackFeed && req.Depth() > 0 && e.isHostSatisfied(req.URL.Hostname()) {
		return false
	}
	if e.dedup.MarkAndTest(req.Method, req.URLString()) {
		return false
	}

	e.stats.RequestsAdded.Add(1)
	e.queue.PushRequest(req)
	return true
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Crawl runs the engine to completion or the global deadline (spec §4.4
// "crawl(seeds)"). It launches 2×concurrency workers — the deliberate
// over-provisioning so that CallbackResult-dispatch workers are never
// starved by workers blocked on the HTTP semaphore (spec §4.4, §9).
func (e *Engine) Crawl(ctx context.Context, seeds []*types.Request) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Engine.TotalTimeout)
	defer cancel()

	for _, req := range seeds {
		e.EnqueueRequest(req)
	}

	workers := 2 * e.cfg.Engine.Concurrency
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	// drained fires once every item ever pushed has been popped and fully
	// processed — including any further items its dispatch produced — not
	// merely once the queue looks empty (spec §4.4 "wait for the queue to
	// drain: all items dequeued and marked done").
	drained := make(chan struct{})
	go func() {
		e.queue.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
	}
	e.queue.Close()
	<-done

	if e.postCrawlHook != nil {
		e.postCrawlHook()
	}
	if e.fetcher != nil {
		_ = e.fetcher.Close()
	}
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		item, ok := e.queue.Pop(ctx)
		if !ok {
			return
		}
		if item.request != nil {
			e.processRequest(ctx, item.request)
		} else if item.result != nil {
			e.dispatch(ctx, item.result.Value, item.result.Depth)
		}
		e.queue.Done()
	}
}

// processRequest performs fetch_and_dispatch (spec §4.2): acquires the
// concurrency gate for the HTTP exchange only, retries per policy, then
// invokes the bound callback and dispatches its output.
func (e *Engine) processRequest(ctx context.Context, req *types.Request) {
	if req.HasRun {
		return
	}

	if err := e.semaphore.Acquire(ctx, 1); err != nil {
		e.stats.RequestsCancelled.Add(1)
		return
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Engine.RequestTimeout
	}
	fetchCtx, fetchCancel := context.WithTimeout(ctx, timeout)
	resp, err := e.fetcher.Fetch(fetchCtx, req)
	fetchCancel()
	e.semaphore.Release(1)

	if err != nil {
		e.handleFetchError(ctx, req, err)
		return
	}

	req.HasRun = true
	e.stats.RecordFetch(resp.FetchDuration, resp.ContentLength)

	if !resp.OK() {
		e.stats.RequestsFailed.Add(1)
		return
	}
	e.stats.RequestsSuccessful.Add(1)

	cb, ok := e.callbacks[req.Callback]
	if !ok {
		e.logger.Warn("no callback registered", "callback", req.Callback, "url", req.URLString())
		return
	}

	out, err := cb(req, resp)
	if err != nil {
		// Callback exceptions are caught, logged, and isolated (spec §7).
		e.logger.Warn("callback error", "callback", req.Callback, "url", req.URLString(), "error", err)
		return
	}
	e.dispatch(ctx, out, 0)
}

func (e *Engine) handleFetchError(ctx context.Context, req *types.Request, err error) {
	fetchErr, ok := err.(*types.FetchError)
	if ok && fetchErr.IsRetryable() && req.RetryCount < req.MaxRetries {
		select {
		case <-ctx.Done():
			e.stats.RequestsCancelled.Add(1)
			return
		default:
		}
		retry := req.Clone()
		retry.RetryCount++
		retry.Priority = types.PriorityLow
		e.queue.PushRequest(retry)
		return
	}
	e.stats.RequestsFailed.Add(1)
	e.logger.Warn("fetch failed permanently", "url", req.URLString(), "error", err)
}

// dispatch classifies a callback output value and routes it per spec §4.4
// "Recursive result dispatch". depth bounds nested lazy-sequence expansion
// to max_callback_recursion levels.
func (e *Engine) dispatch(ctx context.Context, v interface{}, depth int) {
	if v == nil {
		return
	}
	if depth > e.cfg.Engine.MaxCallbackRecursion {
		e.logger.Warn("callback recursion limit exceeded, dropping value", "depth", depth)
		return
	}

	switch val := v.(type) {
	case *types.CallbackResult:
		e.dispatch(ctx, val.Value, val.Depth)

	case []interface{}:
		for _, el := range val {
			e.queue.PushResult(&types.CallbackResult{Value: el, Depth: depth + 1})
		}

	case LazySeq:
		for el := range val {
			select {
			case <-ctx.Done():
				return
			default:
			}
			e.queue.PushResult(&types.CallbackResult{Value: el, Depth: depth + 1})
		}

	case Deferred:
		resolved, err := val()
		if err != nil {
			e.logger.Warn("deferred computation failed", "error", err)
			return
		}
		e.queue.PushResult(&types.CallbackResult{Value: resolved, Depth: depth + 1})

	case *types.Request:
		e.EnqueueRequest(val)

	case *types.FeedInfo:
		e.stats.ItemsProcessed.Add(1)
		e.processItem(val)

	default:
		e.logger.Warn("unrecognized callback output value, dropping", "type", v)
	}
}

// resolveAgainst resolves href against baseURL's origin, returning "" on
// parse failure.
func resolveAgainst(baseURL, href string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
