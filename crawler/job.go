package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/indexer"
	"github.com/poiesic/sitesearch/storage"
)

const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 5 * time.Second

	// StoppedByUser is recorded as the site error when a job is stopped.
	StoppedByUser = "stopped by user"
)

// Job crawls one site. Pages are fetched by a bounded worker pool; links found
// on a page are queued and dispatched to the pool until no work remains.
type Job struct {
	id      uuid.UUID
	repos   *storage.Repositories
	indexer *indexer.Indexer
	fetcher *Fetcher
	logger  *slog.Logger

	workers  int
	minDelay time.Duration
	maxDelay time.Duration
	limiter  *rate.Limiter

	base    string
	pool    *ants.Pool
	parent  context.Context
	ctx     context.Context // cancelled by Stop and on completion
	cancel  context.CancelFunc
	pending sync.WaitGroup
	wake    chan struct{}
	done    chan struct{}

	// writeMu orders site writes so a stale snapshot never overwrites a newer one.
	writeMu sync.Mutex

	mu      sync.Mutex
	site    core.Site
	queue   []string
	seen    map[string]struct{}
	closed  bool
	started bool
	stopped bool
	failed  bool
	pages   int
}

// JobOption configures a Job.
type JobOption func(*Job) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) JobOption {
	return func(j *Job) error {
		j.logger = logger
		return nil
	}
}

// WithWorkers sets the number of concurrent fetches.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithWorkers(n int) JobOption {
	return func(j *Job) error {
		if n < 1 {
			n = 1
		}
		j.workers = n
		return nil
	}
}

// WithDelay sets the bounds of the random pause before every fetch.
func WithDelay(minDelay, maxDelay time.Duration) JobOption {
	return func(j *Job) error {
		if minDelay < 0 || maxDelay < minDelay {
			return fmt.Errorf("%w: [%s, %s)", ErrInvalidDelay, minDelay, maxDelay)
		}
		j.minDelay = minDelay
		j.maxDelay = maxDelay
		return nil
	}
}

// WithRateLimit caps the fetch rate of the job in requests per second.
// A zero or negative limit disables the cap.
func WithRateLimit(perSecond float64, burst int) JobOption {
	return func(j *Job) error {
		if perSecond <= 0 {
			j.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		j.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// NewJob creates a crawl job for a stored site.
func NewJob(site *core.Site, repos *storage.Repositories, ix *indexer.Indexer, fetcher *Fetcher, opts ...JobOption) (*Job, error) {
	if err := core.ValidateSite(site); err != nil {
		return nil, err
	}
	if site.Id == 0 {
		return nil, fmt.Errorf("%w: site %s is not stored", core.ErrInvalidSite, site.URL)
	}
	if repos.Validate() != nil {
		return nil, ErrRepositoriesRequired
	}
	if ix == nil {
		return nil, ErrIndexerRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	j := &Job{
		id:       uuid.New(),
		repos:    repos,
		indexer:  ix,
		fetcher:  fetcher,
		logger:   slog.Default(),
		workers:  max(runtime.NumCPU(), 1),
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		base:     site.URL,
		site:     *site,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, err
		}
	}
	j.logger = j.logger.With("component", "crawler", "job", j.id.String(), "site", site.URL)

	pool, err := ants.NewPool(j.workers,
		ants.WithLogger(poolLogger{j.logger}),
		ants.WithPanicHandler(func(p any) {
			j.fail(fmt.Errorf("crawl task panicked: %v", p))
		}),
	)
	if err != nil {
		return nil, err
	}
	j.pool = pool
	return j, nil
}

// ID identifies the job in logs.
func (j *Job) ID() uuid.UUID {
	return j.id
}

// Site returns a snapshot of the site as the job currently sees it.
func (j *Job) Site() core.Site {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.site
}

// Start begins crawling at the site's base URL and returns immediately.
// Cancelling ctx has the same effect as Stop without recording a stop error.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return ErrJobStarted
	}
	j.started = true
	j.parent = ctx
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.mu.Unlock()

	j.logger.Info("crawl started")
	j.enqueue(j.base)

	go j.dispatch()
	go func() {
		j.pending.Wait()
		j.cancel()
		j.finish()
	}()
	return nil
}

// Stop cancels the crawl. Queued pages are dropped and fetches already in
// flight finish on their own. A site still being indexed becomes FAILED.
func (j *Job) Stop() {
	j.mu.Lock()
	if j.stopped || !j.started {
		j.mu.Unlock()
		return
	}
	j.stopped = true
	changed := j.site.Status == core.SiteStatusIndexing
	if changed {
		j.site.Status = core.SiteStatusFailed
		j.site.LastError = StoppedByUser
		j.site.StatusTime = time.Now()
	}
	j.mu.Unlock()

	j.cancel()
	if changed {
		j.persist()
	}
	j.logger.Info("crawl stop requested")
}

// Done is closed once every task has settled and the final site state is stored.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job is done or ctx is cancelled and returns the final site.
func (j *Job) Wait(ctx context.Context) (core.Site, error) {
	select {
	case <-j.done:
		return j.Site(), nil
	case <-ctx.Done():
		return core.Site{}, ctx.Err()
	}
}

func (j *Job) enqueue(rawURL string) {
	path := core.RelativePath(j.base, rawURL)

	j.mu.Lock()
	if j.closed || j.ctx.Err() != nil {
		j.mu.Unlock()
		return
	}
	if _, ok := j.seen[path]; ok {
		j.mu.Unlock()
		return
	}
	j.seen[path] = struct{}{}
	j.pending.Add(1)
	j.queue = append(j.queue, rawURL)
	j.mu.Unlock()

	select {
	case j.wake <- struct{}{}:
	default:
	}
}

func (j *Job) pop() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.queue) == 0 {
		return "", false
	}
	next := j.queue[0]
	j.queue[0] = ""
	j.queue = j.queue[1:]
	return next, true
}

// dispatch moves queued URLs into the pool. Submit blocks while every
// worker is busy, which bounds the number of concurrent fetches.
func (j *Job) dispatch() {
	defer j.pool.Release()
	for {
		select {
		case <-j.ctx.Done():
			j.drain()
			return
		case <-j.wake:
		}

		for {
			if j.ctx.Err() != nil {
				break
			}
			next, ok := j.pop()
			if !ok {
				break
			}
			err := j.pool.Submit(func() {
				defer j.pending.Done()
				j.visit(next)
			})
			if err != nil {
				j.logger.Error("failed to submit crawl task", "url", next, "err", err)
				j.pending.Done()
			}
		}
	}
}

func (j *Job) drain() {
	j.mu.Lock()
	dropped := len(j.queue)
	j.queue = nil
	j.closed = true
	j.mu.Unlock()

	for range dropped {
		j.pending.Done()
	}
	if dropped > 0 {
		j.logger.Debug("dropped queued pages", "count", dropped)
	}
}

func (j *Job) visit(rawURL string) {
	if j.ctx.Err() != nil {
		return
	}

	// Storage writes finish even when the job is cancelled mid-page.
	ctx := context.WithoutCancel(j.ctx)
	site := j.Site()
	path := core.RelativePath(site.URL, rawURL)

	exists, err := j.repos.Pages.PageExists(ctx, site.Id, path)
	if err != nil {
		j.fail(err)
		return
	}
	if exists {
		return
	}

	if err := j.pause(); err != nil {
		return
	}

	resp, err := j.fetcher.Fetch(ctx, rawURL)
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		j.logger.Debug("skipping page", "url", rawURL, "status", statusErr.Code)
		return
	case errors.Is(err, ErrNotHTML), errors.Is(err, ErrBodyTooLarge):
		j.logger.Debug("skipping page", "url", rawURL, "err", err)
		return
	case err != nil:
		j.fail(err)
		return
	}

	doc, err := Parse(resp.URL, bytes.NewReader(resp.Body))
	if err != nil {
		j.fail(err)
		return
	}

	page, err := j.repos.Pages.AddPage(ctx, &core.Page{
		SiteId:  site.Id,
		Path:    path,
		Code:    resp.StatusCode,
		Content: string(resp.Body),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return
	}
	if err != nil {
		j.fail(fmt.Errorf("store page %s: %w", path, err))
		return
	}

	j.touch()

	if err := j.indexer.IndexPage(ctx, &site, page, doc.Text); err != nil {
		j.fail(err)
		return
	}

	for _, link := range doc.Links {
		if core.InScope(site.URL, link) {
			j.enqueue(link)
		}
	}
}

// pause waits a random politeness delay and, if configured, for the rate limiter.
func (j *Job) pause() error {
	delay := j.minDelay
	if j.maxDelay > j.minDelay {
		delay += rand.N(j.maxDelay - j.minDelay)
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-j.ctx.Done():
			timer.Stop()
			return j.ctx.Err()
		case <-timer.C:
		}
	}
	if j.limiter != nil {
		return j.limiter.Wait(j.ctx)
	}
	return nil
}

func (j *Job) touch() {
	j.mu.Lock()
	j.pages++
	j.site.StatusTime = time.Now()
	j.mu.Unlock()
	j.persist()
}

func (j *Job) fail(err error) {
	j.logger.Warn("crawl branch failed", "err", err)

	j.mu.Lock()
	j.failed = true
	if !j.stopped {
		j.site.Status = core.SiteStatusFailed
		j.site.LastError = err.Error()
	}
	j.site.StatusTime = time.Now()
	j.mu.Unlock()
	j.persist()
}

func (j *Job) finish() {
	j.mu.Lock()
	if !j.stopped && !j.failed && j.site.Status == core.SiteStatusIndexing {
		if err := j.parent.Err(); err != nil {
			j.site.Status = core.SiteStatusFailed
			j.site.LastError = err.Error()
		} else {
			j.site.Status = core.SiteStatusIndexed
			j.site.LastError = ""
		}
		j.site.StatusTime = time.Now()
	}
	site, pages := j.site, j.pages
	j.mu.Unlock()

	j.persist()
	j.logger.Info("crawl finished", "status", site.Status.String(), "pages", pages)
	close(j.done)
}

// persist stores the current site snapshot.
func (j *Job) persist() {
	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	site := j.Site()
	if _, err := j.repos.Sites.UpdateSite(context.Background(), &site); err != nil {
		j.logger.Error("failed to update site", "err", err)
	}
}

type poolLogger struct {
	logger *slog.Logger
}

func (l poolLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
