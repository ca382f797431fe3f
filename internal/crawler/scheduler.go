package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/exposcan/internal/classify"
	"github.com/nao1215/exposcan/internal/dedup"
	"github.com/nao1215/exposcan/internal/findings"
	"github.com/nao1215/exposcan/internal/gate"
	"github.com/nao1215/exposcan/internal/model"
	"github.com/nao1215/exposcan/internal/shutdown"
	"github.com/nao1215/exposcan/internal/target"
)

const (
	// DefaultMaxDepth is the deepest level a URL is considered at.
	DefaultMaxDepth = 3

	// DefaultRequestTimeout bounds a single request and a child subtree.
	DefaultRequestTimeout = 25 * time.Second

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024
)

// Dependencies are the collaborators a Scheduler works with.
// Every field is required.
type Dependencies struct {
	Normalizer *target.Normalizer
	Classifier *classify.Classifier
	Dedup      *dedup.Set
	Gate       *gate.Gate
	Fetcher    Fetcher
	Links      LinkExtractor
	Aggregator *findings.Aggregator
	Shutdown   *shutdown.Controller
}

// Scheduler decides what happens to every URL reachable from the seeds.
type Scheduler struct {
	deps Dependencies

	maxDepth       int
	linkDepth      int
	requestTimeout time.Duration
	maxBodySize    int64
	logger         *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxDepth sets the deepest level a URL is considered at.
// Seeds are depth 0.
func WithMaxDepth(depth int) Option {
	return func(s *Scheduler) {
		s.maxDepth = depth
	}
}

// WithLinkDepth sets the deepest level whose pages are parsed for links.
// The default of 0 only follows links found on seed pages.
func WithLinkDepth(depth int) Option {
	return func(s *Scheduler) {
		s.linkDepth = depth
	}
}

// WithRequestTimeout sets the deadline for each child subtree.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.requestTimeout = d
	}
}

// WithMaxBodySize caps how many bytes of a response are read.
func WithMaxBodySize(size int64) Option {
	return func(s *Scheduler) {
		s.maxBodySize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(deps Dependencies, opts ...Option) *Scheduler {
	s := &Scheduler{
		deps:           deps,
		maxDepth:       DefaultMaxDepth,
		linkDepth:      0,
		requestTimeout: DefaultRequestTimeout,
		maxBodySize:    DefaultMaxBodySize,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run schedules every non-blank seed at depth 0 and waits until all
// branches finish. Per-URL failures are counted, never returned.
func (s *Scheduler) Run(ctx context.Context, seeds []string) error {
	trimmed := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		if seed = strings.TrimSpace(seed); seed != "" {
			trimmed = append(trimmed, seed)
		}
	}
	if len(trimmed) == 0 {
		return ErrNoSeeds
	}

	s.logger.Debug("starting crawl",
		"seeds", len(trimmed),
		"max_depth", s.maxDepth,
		"link_depth", s.linkDepth,
		"concurrency", s.deps.Gate.Capacity())

	var g errgroup.Group
	for _, seed := range trimmed {
		g.Go(func() error {
			s.schedule(ctx, seed, 0)
			return nil
		})
	}

	err := g.Wait()
	s.logger.Debug("crawl finished",
		"unique_urls", s.deps.Dedup.Len(),
		"dedup_stages", s.deps.Dedup.Stages(),
		"stopped", s.deps.Shutdown.Tripped())
	return err
}

// stopped reports whether new work must not start.
func (s *Scheduler) stopped(ctx context.Context) bool {
	return s.deps.Shutdown.Tripped() || ctx.Err() != nil
}

// schedule handles one discovered URL.
func (s *Scheduler) schedule(ctx context.Context, raw string, depth int) {
	if s.stopped(ctx) || depth > s.maxDepth {
		return
	}

	agg := s.deps.Aggregator

	u, err := s.deps.Normalizer.Normalize(raw)
	if err != nil {
		if target.IsPolicyRejection(err) {
			agg.IncRejected()
			s.logger.Debug("rejected by policy", "url", raw, "error", err)
		} else {
			agg.IncFailed()
			s.logger.Debug("malformed url", "url", raw, "error", err)
		}
		return
	}

	if c := s.deps.Classifier.Classify(u); c.Sensitive {
		if agg.Record(model.NewFinding(u.String(), c.Rule, c.Reason, depth)) {
			s.logger.Debug("sensitive resource", "url", u.String(), "reason", c.Reason, "depth", depth)
		}
		return
	}

	if s.deps.Classifier.Ignored(u) {
		agg.IncIgnored()
		return
	}

	if !s.deps.Dedup.TryAdd(u) {
		agg.IncDuplicate()
		return
	}
	agg.IncScheduled()

	if s.stopped(ctx) {
		return
	}

	links, err := s.visit(ctx, u, depth)
	if err != nil {
		if errors.Is(err, errStopped) {
			s.logger.Debug("not fetched after shutdown", "url", u.String())
			return
		}
		// A cancelled or expired context is accounted for by the caller.
		if ctx.Err() == nil {
			agg.IncFailed()
			s.logger.Debug("fetch failed", "url", u.String(), "error", err)
		}
		return
	}
	agg.IncSucceeded()

	if len(links) > 0 && depth < s.maxDepth {
		s.crawlChildren(ctx, u, links, depth)
	}
}

// visit fetches u while holding a gate slot and returns the links found on
// it when the page is eligible for link extraction.
func (s *Scheduler) visit(ctx context.Context, u target.URL, depth int) ([]string, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	body, contentType, status, err := s.fetch(ctx, u.String(), depth <= s.linkDepth)
	s.deps.Gate.Release()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetched",
		"url", u.String(),
		"status", status,
		"content_type", contentType,
		"depth", depth)

	if body == nil {
		return nil, nil
	}

	links, err := s.deps.Links.ExtractLinks(bytes.NewReader(body))
	if err != nil {
		// Unparseable HTML is still a successful request.
		s.logger.Debug("link extraction failed", "url", u.String(), "error", err)
		return nil, nil
	}
	return links, nil
}

// acquire waits for a gate slot. Waiting ends early when shutdown trips,
// and a slot won while shutdown tripped is handed back, so only requests
// already issued drain.
func (s *Scheduler) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.deps.Shutdown.Done():
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := s.deps.Gate.Acquire(waitCtx); err != nil {
		if s.deps.Shutdown.Tripped() && ctx.Err() == nil {
			return errStopped
		}
		return err
	}
	if s.stopped(ctx) {
		s.deps.Gate.Release()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errStopped
	}
	return nil
}

// fetch performs the request and reads the bounded body. The body is only
// kept when it is HTML on a page eligible for link extraction.
func (s *Scheduler) fetch(ctx context.Context, rawURL string, wantLinks bool) ([]byte, string, int, error) {
	resp, err := s.deps.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	contentType := resp.ContentType()
	limited := io.LimitReader(resp.Body, s.maxBodySize)

	if !wantLinks || !strings.Contains(strings.ToLower(contentType), "text/html") {
		if _, err := io.Copy(io.Discard, limited); err != nil {
			return nil, "", 0, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return nil, contentType, resp.StatusCode, nil
	}

	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return body, contentType, resp.StatusCode, nil
}

// crawlChildren schedules every link of parent concurrently, each subtree
// under its own deadline, and waits for all of them.
func (s *Scheduler) crawlChildren(ctx context.Context, parent target.URL, hrefs []string, depth int) {
	if depth > s.linkDepth {
		return
	}

	var g errgroup.Group
	for _, href := range hrefs {
		if s.stopped(ctx) {
			break
		}

		child, err := parent.Resolve(href)
		if err != nil {
			s.deps.Aggregator.IncFailed()
			s.logger.Debug("unresolvable link", "parent", parent.String(), "href", href, "error", err)
			continue
		}

		g.Go(func() error {
			childCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
			defer cancel()

			s.schedule(childCtx, child, depth+1)

			if errors.Is(childCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				s.deps.Aggregator.IncBranchTimeout()
				s.logger.Debug("abandoned subtree", "url", child, "error", ErrBranchTimeout)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // branches never return errors
}
