package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/assets"
	"github.com/rohmanhakim/docs-crawler/internal/backend"
	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-crawler/internal/fetcher"
	"github.com/rohmanhakim/docs-crawler/internal/format"
	"github.com/rohmanhakim/docs-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/normalize"
	"github.com/rohmanhakim/docs-crawler/internal/organizer"
	"github.com/rohmanhakim/docs-crawler/internal/quality"
	"github.com/rohmanhakim/docs-crawler/internal/robots"
	"github.com/rohmanhakim/docs-crawler/internal/sanitizer"
	"github.com/rohmanhakim/docs-crawler/internal/storage"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

/*
 Scheduler is the sole control-plane authority of the crawl.

 Determinism and admission guarantees:
 - Scheduler is the ONLY component allowed to decide whether a URL
   may enter the crawl frontier.
 - All semantic admission checks (robots.txt, scope, depth, limits)
   MUST be completed before submitting a URL to the frontier.
 - No other component may enqueue, reject, or reorder URLs.
 - The frontier should only accept already-admitted URLs.
 - Pipeline stages may detect and classify failure, but must never decide retry, continuation, or abortion.

 The scheduler coordinates pipeline execution but does not delegate
 control-flow decisions to downstream stages.

 Metadata emission is observational only and MUST NOT influence
 scheduling, retries, or crawl termination.

 Scheduler Responsibilities:
 - Coordinate crawl lifecycle
 - Enforce global limits (pages, depth)
 - Manage graceful shutdown
 - Aggregate crawl statistics
 - Decide whether a robots outcome proceeds to the frontier.
 - The sole authority on:
	- retry
	- continue
	- abort
 TODO:
	- Introduce worker-scoped recorders when concurrency exists
*/

type Scheduler struct {
	ctx                    context.Context
	metadataSink           metadata.MetadataSink
	crawlFinalizer         metadata.CrawlFinalizer
	robot                  robots.Robot
	frontier               *frontier.Frontier
	htmlFetcher            fetcher.Fetcher
	domExtractor           extractor.Extractor
	htmlSanitizer          sanitizer.Sanitizer
	markdownConversionRule mdconvert.ConvertRule
	assetResolver          assets.Resolver
	markdownConstraint     normalize.MarkdownConstraint
	storageSink            storage.Sink
	writeResults           []storage.WriteResult
	writeMu                sync.Mutex
	currentHost            string
	library                string
	rateLimiter            limiter.RateLimiter
	sleeper                timeutil.Sleeper
	qualityChecker         quality.Checker
	organizer              *organizer.Organizer
	progress               chan<- ProgressEvent
	backendSelector        *backend.Selector
	formatDetector         *format.Detector
	htmlHandler            *format.HTMLHandler
}

// registerBackends wires the HTTP and file backends into a fresh Selector,
// the registry ExecuteCrawlingWithConfig's pipeline dispatches every fetch
// through.
func registerBackends(f fetcher.Fetcher) *backend.Selector {
	selector := backend.NewSelector()
	selector.Register("http", backend.NewHTTPBackend(f), backend.Criteria{
		Priority: 10,
		Schemes:  []string{"http", "https"},
	})
	selector.Register("file", backend.NewFileBackend(), backend.Criteria{
		Priority: 10,
		Schemes:  []string{"file"},
	})
	return selector
}

// registerFormatHandlers wires every Content Processor handler into a fresh
// Detector, in the priority order CanHandle ties are broken: HTML first
// (the canonical handler every other one delegates to), then the two
// source formats that render to HTML and delegate, then the plaintext
// fallback last.
func registerFormatHandlers(
	ext extractor.Extractor,
	san sanitizer.Sanitizer,
	rule mdconvert.ConvertRule,
	resolver assets.Resolver,
) (*format.Detector, *format.HTMLHandler) {
	htmlHandler := format.NewHTMLHandler(ext, san, rule, resolver, format.DefaultHTMLHandlerParam())
	detector := format.NewDetector(
		htmlHandler,
		format.NewMarkdownHandler(htmlHandler),
		format.NewStructuralHandler(htmlHandler),
		format.NewPassthroughHandler(),
	)
	return detector, htmlHandler
}

func NewScheduler() Scheduler {
	recorder := metadata.NewRecorder("sample-single-sync-worker")
	cachedRobot := robots.NewCachedRobot(&recorder)
	frontier := frontier.NewFrontier()
	fetcher := fetcher.NewHtmlFetcher(&recorder)
	ext := extractor.NewDomExtractor(&recorder)
	sanitizer := sanitizer.NewHTMLSanitizer(&recorder)
	conversionRule := mdconvert.NewRule(&recorder)
	resolver := assets.NewLocalResolver(&recorder, &http.Client{}, "docs-crawler/1.0")
	markdownConstraint := normalize.NewMarkdownConstraint(&recorder)
	storageSink := storage.NewSink(&recorder)
	rateLimiter := limiter.NewConcurrentRateLimiter()
	sleeper := timeutil.NewRealSleeper()
	formatDetector, htmlHandler := registerFormatHandlers(&ext, &sanitizer, conversionRule, &resolver)
	return Scheduler{
		metadataSink:           &recorder,
		crawlFinalizer:         &recorder,
		robot:                  &cachedRobot,
		frontier:               &frontier,
		htmlFetcher:            &fetcher,
		domExtractor:           &ext,
		htmlSanitizer:          &sanitizer,
		markdownConversionRule: conversionRule,
		assetResolver:          &resolver,
		markdownConstraint:     markdownConstraint,
		storageSink:            storageSink,
		rateLimiter:            rateLimiter,
		sleeper:                &sleeper,
		qualityChecker:         quality.NewChecker(quality.DefaultQualityConfig()),
		organizer:              organizer.NewOrganizer(organizer.DefaultOrganizerConfig()),
		backendSelector:        registerBackends(&fetcher),
		formatDetector:         formatDetector,
		htmlHandler:            htmlHandler,
	}
}

// NewSchedulerWithDeps creates a Scheduler with injected dependencies for testing.
// This constructor allows tests to provide mock implementations of metadata interfaces
// to verify behavior without relying on real infrastructure.
func NewSchedulerWithDeps(
	ctx context.Context,
	crawlFinalizer metadata.CrawlFinalizer,
	metadataSink metadata.MetadataSink,
	rateLimiter limiter.RateLimiter,
	fetcher fetcher.Fetcher,
	robot robots.Robot,
	domExtractor extractor.Extractor,
	sanitizer sanitizer.Sanitizer,
	rule mdconvert.ConvertRule,
	resolver assets.Resolver,
	sleeper timeutil.Sleeper,
) Scheduler {
	markdownConstraint := normalize.NewMarkdownConstraint(metadataSink)
	storageSink := storage.NewSink(metadataSink)
	frontier := frontier.NewFrontier()
	formatDetector, htmlHandler := registerFormatHandlers(domExtractor, sanitizer, rule, resolver)
	return Scheduler{
		ctx:                    ctx,
		metadataSink:           metadataSink,
		crawlFinalizer:         crawlFinalizer,
		robot:                  robot,
		frontier:               &frontier,
		htmlFetcher:            fetcher,
		domExtractor:           domExtractor,
		htmlSanitizer:          sanitizer,
		markdownConversionRule: rule,
		assetResolver:          resolver,
		markdownConstraint:     markdownConstraint,
		storageSink:            storageSink,
		rateLimiter:            rateLimiter,
		sleeper:                sleeper,
		qualityChecker:         quality.NewChecker(quality.DefaultQualityConfig()),
		organizer:              organizer.NewOrganizer(organizer.DefaultOrganizerConfig()),
		backendSelector:        registerBackends(fetcher),
		formatDetector:         formatDetector,
		htmlHandler:            htmlHandler,
	}
}

// WithProgress attaches a channel the scheduler sends a ProgressEvent to
// after every dequeued URL finishes processing. Sends are best-effort: a
// full channel is skipped rather than blocking the crawl loop.
func (s *Scheduler) WithProgress(progress chan<- ProgressEvent) *Scheduler {
	s.progress = progress
	return s
}

// emitProgress reports ev on the progress channel if one is attached,
// dropping the event instead of blocking when the channel is full.
func (s *Scheduler) emitProgress(ev ProgressEvent) {
	if s.progress == nil {
		return
	}
	select {
	case s.progress <- ev:
	default:
	}
}

// libraryNameFromHost derives the storage library name from a crawl seed's
// host, stripping a leading "www." and any port.
func libraryNameFromHost(host string) string {
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "library"
	}
	return host
}

// SubmitUrlForAdmission performs all semantic checks required for a URL
// to enter the crawl frontier.
//
// This function is the single admission choke point for the system.
// A nil return means the URL was either submitted to the frontier or
// disallowed by robots.txt (a normal, terminal outcome); a non-nil return
// is a robots infrastructure failure.
//
// No other code path may call Frontier.Submit.
// - Only the scheduler imports frontier
// - Only the scheduler constructs CrawlAdmissionCandidate
// - Pipeline stages never see frontier types
func (s *Scheduler) SubmitUrlForAdmission(
	url url.URL,
	sourceContext frontier.SourceContext,
	depth int,
) failure.ClassifiedError {
	// Fetch robots.txt
	robotsDecision, robotsError := s.robot.Decide(url)
	// Robots infrastructure failure → scheduler-level error
	if robotsError != nil {
		return robotsError
	}

	// Reset backoff after successful robots request
	if s.rateLimiter != nil {
		s.rateLimiter.ResetBackoff(url.Host)
	}

	if robotsDecision.CrawlDelay > 0 && s.rateLimiter != nil {
		s.rateLimiter.SetCrawlDelay(s.currentHost, robotsDecision.CrawlDelay)
	}

	// Robots explicitly disallowed → normal, terminal outcome
	if !robotsDecision.Allowed {
		// Important:
		// - metadata already emitted by robots
		// - NO retry
		// - NO abort
		// - NO frontier submission
		// TODO: record to metadataSink that robots explcitly disallowed the URL
		return nil
	}

	// Only submit to frontier if robots allowed
	candidate := frontier.NewCrawlAdmissionCandidate(
		robotsDecision.Url,
		sourceContext,
		frontier.NewDiscoveryMetadata(depth, nil),
	)

	// Submit Allowed URL for Admission by Frontier
	s.frontier.Submit(candidate)
	return nil
}

// Current implementation uses a single recorder and single execution path.
// This does not imply a global ordering guarantee.
// TODO: In the future consider implementing global ordering guarantee
func (s *Scheduler) ExecuteCrawling(configPath string) (CrawlingExecution, error) {
	cfg, err := config.WithConfigFile(configPath)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"config",
			"config.WithConfigFile",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrField, fmt.Sprintf("field: %v", "theFieldError")),
			},
		)
		return CrawlingExecution{}, err
	}
	return s.ExecuteCrawlingWithConfig(cfg)
}

// ExecuteCrawlingWithConfig runs a crawl against an already-built Config,
// the entrypoint callers that assemble Config from CLI flags (rather than
// a config file) use.
func (s *Scheduler) ExecuteCrawlingWithConfig(cfg config.Config) (CrawlingExecution, error) {
	// Track crawl start time for duration calculation
	crawlStartTime := time.Now()

	// Statistics tracking, updated concurrently by worker goroutines.
	var totalErrors int64
	var totalAssets int64
	var totalIssues int64
	var totalDocuments int64

	// Ensure final stats are recorded even if errors occur
	defer func() {
		crawlDuration := time.Since(crawlStartTime)
		totalPages := s.frontier.VisitedCount()
		s.crawlFinalizer.RecordFinalCrawlStats(
			totalPages,
			int(atomic.LoadInt64(&totalErrors)),
			int(atomic.LoadInt64(&totalAssets)),
			crawlDuration,
		)
	}()

	crawlCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if s.ctx == nil {
		s.ctx = crawlCtx
	}

	// Validate that at least one seed URL exists
	if len(cfg.SeedURLs()) == 0 {
		err := fmt.Errorf("no seed URLs configured")
		s.metadataSink.RecordError(
			time.Now(),
			"config",
			"config validation",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{},
		)
		return CrawlingExecution{}, err
	}

	// 1.1 Initialize rate limiter
	s.rateLimiter.SetBaseDelay(cfg.BaseDelay())
	s.rateLimiter.SetJitter(cfg.Jitter())
	s.rateLimiter.SetRandomSeed(cfg.RandomSeed())

	// 1.2 Initialize Robots and Frontier
	s.robot.Init(cfg.UserAgent())
	s.frontier.Init(cfg)

	// 1.3 Configure DOM Extractor with extraction parameters from config
	extractParam := extractor.ExtractParam{
		BodySpecificityBias:  cfg.BodySpecificityBias(),
		LinkDensityThreshold: cfg.LinkDensityThreshold(),
		ScoreMultiplier: extractor.ContentScoreMultiplier{
			NonWhitespaceDivisor: cfg.ScoreMultiplierNonWhitespaceDivisor(),
			Paragraphs:           cfg.ScoreMultiplierParagraphs(),
			Headings:             cfg.ScoreMultiplierHeadings(),
			CodeBlocks:           cfg.ScoreMultiplierCodeBlocks(),
			ListItems:            cfg.ScoreMultiplierListItems(),
		},
		Threshold: extractor.MeaningfulThreshold{
			MinNonWhitespace:    cfg.ThresholdMinNonWhitespace(),
			MinHeadings:         cfg.ThresholdMinHeadings(),
			MinParagraphsOrCode: cfg.ThresholdMinParagraphsOrCode(),
			MaxLinkDensity:      cfg.ThresholdMaxLinkDensity(),
		},
	}
	s.domExtractor.SetExtractParam(extractParam)

	// 1.4 Configure the Content Processor's HTML handler with the same
	// asset-resolution tuning the legacy asset step used.
	if s.htmlHandler != nil {
		htmlParam := format.DefaultHTMLHandlerParam()
		htmlParam.OutputDir = cfg.OutputDir()
		htmlParam.MaxAssetSize = cfg.MaxAssetSize()
		htmlParam.HashAlgo = cfg.HashAlgo()
		s.htmlHandler.SetParam(htmlParam)
	}

	// 2. Fetch robots.txt & decide the crawling policy for this hostname based on that
	s.currentHost = cfg.SeedURLs()[0].Host
	s.library = libraryNameFromHost(s.currentHost)
	seedScheme := cfg.SeedURLs()[0].Scheme
	err := s.SubmitUrlForAdmission(cfg.SeedURLs()[0], frontier.SourceSeed, 0)
	if err != nil {
		// Check if this is a robots error that requires backoff
		if robotsErr, ok := err.(*robots.RobotsError); ok {
			s.recordRobotsErrorAndBackoff(robotsErr, cfg.SeedURLs()[0])
		}
		return CrawlingExecution{}, err
	}

	// Apply rate limiting delay after successful robots check
	delay := s.rateLimiter.ResolveDelay(s.currentHost)
	s.sleeper.Sleep(delay)

	// 3. Drain the frontier through a bounded pool of worker goroutines,
	// sized at the configured concurrency. Workers resubmit newly-discovered
	// URLs back into the frontier while running, so an empty Dequeue does
	// not by itself mean the crawl is done: activeWorkers tracks how many
	// peers are still mid-page and might yet enqueue more work.
	workerCount := cfg.Concurrency()
	if workerCount < 1 {
		workerCount = 1
	}

	workerCtx, abort := context.WithCancel(s.ctx)
	defer abort()

	var activeWorkers int64
	var fatalOnce sync.Once
	var fatalErr failure.ClassifiedError

	reportFatal := func(classifiedErr failure.ClassifiedError) {
		fatalOnce.Do(func() {
			fatalErr = classifiedErr
			abort()
		})
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				default:
				}

				token, ok := s.frontier.Dequeue()
				if !ok {
					if atomic.LoadInt64(&activeWorkers) == 0 {
						return
					}
					s.sleeper.Sleep(5 * time.Millisecond)
					continue
				}

				atomic.AddInt64(&activeWorkers, 1)
				s.processCrawlToken(
					workerCtx,
					cfg,
					token,
					seedScheme,
					&totalErrors,
					&totalAssets,
					&totalIssues,
					&totalDocuments,
					reportFatal,
				)
				atomic.AddInt64(&activeWorkers, -1)
			}
		}()
	}
	wg.Wait()

	if fatalErr != nil {
		return CrawlingExecution{}, fatalErr
	}

	// Stats are recorded by defer - return successful execution result
	return CrawlingExecution{
		WriteResults:   s.writeResults,
		IssuesFound:    int(atomic.LoadInt64(&totalIssues)),
		DocumentsFound: int(atomic.LoadInt64(&totalDocuments)),
	}, nil
}

// processCrawlToken runs one dequeued URL through backend selection,
// format detection, link discovery, normalization, quality checking,
// organization, and storage. It is safe to call concurrently from multiple
// worker goroutines: every shared collaborator it touches (frontier, rate
// limiter, robot cache, metadata recorder, organizer, storage sink, asset
// resolver, backend selector) guards its own mutable state.
func (s *Scheduler) processCrawlToken(
	ctx context.Context,
	cfg config.Config,
	token frontier.CrawlToken,
	seedScheme string,
	totalErrors *int64,
	totalAssets *int64,
	totalIssues *int64,
	totalDocuments *int64,
	reportFatal func(failure.ClassifiedError),
) {
	defer func() {
		delay := s.rateLimiter.ResolveDelay(s.currentHost)
		s.sleeper.Sleep(delay)
	}()

	targetURL := token.URL()

	// A path that returns before reporting its own outcome reports an error here.
	reported := false
	defer func() {
		if !reported {
			s.emitProgress(ProgressEvent{URL: targetURL.String(), Status: ProgressError, Depth: token.Depth(),
				PagesProcessed: s.frontier.VisitedCount(), QueueSize: s.frontier.PendingCount(),
				IssuesFound: int(atomic.LoadInt64(totalIssues)), DocumentsFound: int(atomic.LoadInt64(totalDocuments))})
		}
	}()

	// 3.1 Select a backend for this URL and fetch through it.
	backendInfo := urlutil.Parse(targetURL.String(), nil)
	selectedBackend := s.backendSelector.Select(backendInfo)
	if selectedBackend == nil {
		atomic.AddInt64(totalErrors, 1)
		return
	}

	backendName := selectedBackend.Name()
	s.backendSelector.AcquireSlot(backendName)
	fetchStart := time.Now()
	backendResult := selectedBackend.Crawl(ctx, targetURL, cfg, token.Depth())
	s.backendSelector.ReleaseSlot(backendName)

	success := selectedBackend.Validate(backendResult)
	s.backendSelector.RecordResult(backendName, success, time.Since(fetchStart).Seconds())
	if !success {
		atomic.AddInt64(totalErrors, 1)
		return
	}

	// 3.2 Detect the response's format and dispatch to the matching handler.
	headerContentType, _ := backendResult.Header("Content-Type")
	handler := s.formatDetector.Detect(backendResult.Body(), "", headerContentType, targetURL.Path)
	if handler == nil {
		atomic.AddInt64(totalErrors, 1)
		return
	}

	processed, procErr := handler.Process(ctx, backendResult.Body(), backendResult.FinalURL())
	if procErr != nil {
		atomic.AddInt64(totalErrors, 1)
		return
	}

	// 3.3 Resolve discovered links to absolute form, filtered to the crawl
	// host, and submit each through the scheduler's single admission path.
	filteredURLs := resolveAndFilterLinks(processed.Links(), seedScheme, s.currentHost)
	for _, discoveredurl := range filteredURLs {
		submissionErr := s.SubmitUrlForAdmission(discoveredurl, frontier.SourceCrawl, token.Depth()+1)
		if submissionErr != nil {
			if robotsErr, ok := submissionErr.(*robots.RobotsError); ok {
				s.recordRobotsErrorAndBackoff(robotsErr, discoveredurl)
			}
			atomic.AddInt64(totalErrors, 1)
		}
	}

	// 3.4 Bridge the handler's already-asset-resolved markdown into the
	// normalize step, which only reads Content() from an AssetfulMarkdownDoc.
	assetfulMarkdown := assets.NewAssetfulMarkdownDoc([]byte(processed.Markdown()), nil, nil, flattenAssetInventory(processed.Assets()))
	atomic.AddInt64(totalAssets, int64(len(assetfulMarkdown.LocalAssets())))

	normalizeParam := normalize.NewNormalizeParam(
		cfg.AppVersion(),
		backendResult.FetchedAt(),
		cfg.HashAlgo(),
		token.Depth(),
		nil,
	)
	normalizedMarkdown, normErr := s.markdownConstraint.Normalize(backendResult.FinalURL(), assetfulMarkdown, normalizeParam)
	if normErr != nil {
		if normErr.Severity() == failure.SeverityFatal {
			reportFatal(normErr)
			return
		}
		atomic.AddInt64(totalErrors, 1)
		reported = true
		s.emitProgress(ProgressEvent{
			URL:            backendResult.FinalURL().String(),
			Status:         ProgressError,
			Depth:          token.Depth(),
			PagesProcessed: s.frontier.VisitedCount(),
			QueueSize:      s.frontier.PendingCount(),
			IssuesFound:    int(atomic.LoadInt64(totalIssues)),
			DocumentsFound: int(atomic.LoadInt64(totalDocuments)),
		})
		return
	}

	// 3.5 Quality check and document organization run against the same
	// processed content the storage sink will persist.
	qualityContent := format.NewProcessedContent(
		backendResult.FinalURL(),
		normalizedMarkdown.Frontmatter().Title(),
		string(normalizedMarkdown.Content()),
		nil,
		nil,
		urlStrings(filteredURLs),
		processed.Assets(),
		map[string]string{},
		nil,
		handler.Name(),
		backendResult.FetchedAt(),
	)
	issues, _ := s.qualityChecker.Check(qualityContent)
	atomic.AddInt64(totalIssues, int64(len(issues)))
	if _, _, err := s.organizer.AddDocument(backendResult.FinalURL().String(), qualityContent); err != nil {
		atomic.AddInt64(totalErrors, 1)
	}

	// 3.6 Write Artifact
	writeResult, writeErr := s.storageSink.Write(cfg.OutputDir(), s.library, normalizedMarkdown, cfg.HashAlgo())
	if writeErr != nil {
		if writeErr.Severity() == failure.SeverityFatal {
			reportFatal(writeErr)
			return
		}
		atomic.AddInt64(totalErrors, 1)
		reported = true
		s.emitProgress(ProgressEvent{
			URL:            backendResult.FinalURL().String(),
			Status:         ProgressError,
			Depth:          token.Depth(),
			PagesProcessed: s.frontier.VisitedCount(),
			QueueSize:      s.frontier.PendingCount(),
			IssuesFound:    int(atomic.LoadInt64(totalIssues)),
			DocumentsFound: int(atomic.LoadInt64(totalDocuments)),
		})
		return
	}

	s.writeMu.Lock()
	s.writeResults = append(s.writeResults, writeResult)
	s.writeMu.Unlock()
	atomic.AddInt64(totalDocuments, 1)

	reported = true
	s.emitProgress(ProgressEvent{
		URL:            backendResult.FinalURL().String(),
		Status:         ProgressSuccess,
		Depth:          token.Depth(),
		PagesProcessed: s.frontier.VisitedCount(),
		QueueSize:      s.frontier.PendingCount(),
		IssuesFound:    int(atomic.LoadInt64(totalIssues)),
		DocumentsFound: int(atomic.LoadInt64(totalDocuments)),
	})
}

// resolveAndFilterLinks parses processed link strings, resolves them
// against seedScheme/host, and keeps only the ones belonging to the
// crawl's host.
func resolveAndFilterLinks(rawLinks []string, seedScheme string, host string) []url.URL {
	resolved := make([]url.URL, 0, len(rawLinks))
	for _, raw := range rawLinks {
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		resolved = append(resolved, urlutil.Resolve(*parsed, seedScheme, host))
	}
	return urlutil.FilterByHost(resolved, host)
}

// flattenAssetInventory renders an AssetInventory as a single list, used
// only to size the totalAssets stat off the handler's already-resolved
// asset references.
func flattenAssetInventory(inv format.AssetInventory) []string {
	out := make([]string, 0, len(inv.Images)+len(inv.Stylesheets)+len(inv.Scripts)+len(inv.Media))
	out = append(out, inv.Images...)
	out = append(out, inv.Stylesheets...)
	out = append(out, inv.Scripts...)
	out = append(out, inv.Media...)
	return out
}

// urlStrings renders absolute URLs as strings for ProcessedContent.Links.
func urlStrings(urls []url.URL) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.String())
	}
	return out
}

// recordRobotsErrorAndBackoff records a robots error using metadataSink and
// triggers exponential backoff on the rate limiter if the error cause warrants it.
// This method handles ErrCauseHttpTooManyRequests (429) and ErrCauseHttpServerError (5xx)
// by recording the error and applying backoff to the current host.
func (s *Scheduler) recordRobotsErrorAndBackoff(robotsErr *robots.RobotsError, targetURL url.URL) {
	// Only record and backoff for specific HTTP error causes
	if robotsErr.Cause == robots.ErrCauseHttpTooManyRequests ||
		robotsErr.Cause == robots.ErrCauseHttpServerError {
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"SubmitUrlForAdmission",
			metadata.CauseNetworkFailure,
			robotsErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, targetURL.String()),
				metadata.NewAttr(metadata.AttrHost, targetURL.Host),
				metadata.NewAttr(metadata.AttrPath, targetURL.Path),
			},
		)
		if s.rateLimiter != nil {
			s.rateLimiter.Backoff(targetURL.Host)
		}
	}
}

func RetryParam(cfg config.Config) retry.RetryParam {
	return retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)
}

// ---------------------------------------------------------------------------
// Test Helper Methods
// These methods are exported to enable testing of SubmitUrlForAdmission()
// and other scheduler internals. They are not part of the public API.
// ---------------------------------------------------------------------------

// InitWith initializes the dependencies with the given data.
// This is a test helper method.
func (s *Scheduler) InitWith(userAgent string, baseDelay time.Duration, jitter time.Duration, randomSeed int64) {
	s.robot.Init(userAgent)
	s.rateLimiter.SetBaseDelay(baseDelay)
	s.rateLimiter.SetJitter(jitter)
	s.rateLimiter.SetRandomSeed(randomSeed)
}

// SetCurrentHost sets the current host.
// This is a test helper method to simulate the host context.
func (s *Scheduler) SetCurrentHost(host string) {
	s.currentHost = host
	// s.rateLimiter.RegisterHost(host)
}

// FrontierVisitedCount returns the number of URLs in the frontier's visited set.
// This is a test helper method to verify frontier state.
func (s *Scheduler) FrontierVisitedCount() int {
	if s.frontier == nil {
		return 0
	}
	return s.frontier.VisitedCount()
}

// DequeueFromFrontier dequeues a token from the frontier.
// This is a test helper method to verify frontier contents.
func (s *Scheduler) DequeueFromFrontier() (frontier.CrawlToken, bool) {
	if s.frontier == nil {
		return frontier.CrawlToken{}, false
	}
	return s.frontier.Dequeue()
}

// SetConvertRule sets the markdown conversion rule for testing.
// This is a test helper method to inject mock conversion rules.
func (s *Scheduler) SetConvertRule(rule mdconvert.ConvertRule) {
	s.markdownConversionRule = rule
}
