package metadata

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder is the default MetadataSink and CrawlFinalizer implementation.
// It keeps every recorded event in memory, with no cap on history size, for
// introspection and reporting, and mirrors every event to structured logs.
type Recorder struct {
	name   string
	logger *zap.Logger

	mu        sync.Mutex
	fetches   []FetchEvent
	assets    []AssetFetchEvent
	artifacts []ArtifactRecord
	errors    []ErrorRecord
	stats     crawlStats
}

// NewRecorder builds a Recorder identified by name, used as the
// "source" attribution for every log line it emits. name typically
// identifies the crawl execution or worker that owns the recorder.
func NewRecorder(name string) Recorder {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return Recorder{
		name:   name,
		logger: logger.With(zap.String("recorder", name)),
	}
}

func (r *Recorder) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	evt := FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	}

	r.mu.Lock()
	r.fetches = append(r.fetches, evt)
	r.mu.Unlock()

	r.logger.Info("fetch",
		zap.String("url", fetchUrl),
		zap.Int("http_status", httpStatus),
		zap.Duration("duration", duration),
		zap.String("content_type", contentType),
		zap.Int("retry_count", retryCount),
		zap.Int("crawl_depth", crawlDepth),
	)
}

func (r *Recorder) RecordAssetFetch(assetUrl string, httpStatus int, duration time.Duration, retryCount int) {
	evt := AssetFetchEvent{
		assetUrl:   assetUrl,
		httpStatus: httpStatus,
		duration:   duration,
		retryCount: retryCount,
	}

	r.mu.Lock()
	r.assets = append(r.assets, evt)
	r.mu.Unlock()

	r.logger.Info("asset_fetch",
		zap.String("asset_url", assetUrl),
		zap.Int("http_status", httpStatus),
		zap.Duration("duration", duration),
		zap.Int("retry_count", retryCount),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	rec := ArtifactRecord{kind: kind, path: path, attrs: attrs}

	r.mu.Lock()
	r.artifacts = append(r.artifacts, rec)
	r.mu.Unlock()

	fields := append(attrsToFields(attrs),
		zap.String("kind", string(kind)),
		zap.String("path", path),
	)
	r.logger.Info("artifact", fields...)
}

func (r *Recorder) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, errorString string, attrs []Attribute) {
	rec := ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: errorString,
		observedAt:  observedAt,
		attrs:       attrs,
	}

	r.mu.Lock()
	r.errors = append(r.errors, rec)
	r.mu.Unlock()

	fields := append(attrsToFields(attrs),
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Int("cause", int(cause)),
		zap.String("error", errorString),
	)
	r.logger.Warn("error", fields...)
}

func (r *Recorder) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration) {
	stats := crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		totalAssets: totalAssets,
		durationMs:  duration.Milliseconds(),
	}

	r.mu.Lock()
	r.stats = stats
	r.mu.Unlock()

	r.logger.Info("crawl_finished",
		zap.Int("total_pages", totalPages),
		zap.Int("total_errors", totalErrors),
		zap.Int("total_assets", totalAssets),
		zap.Duration("duration", duration),
	)
}

// Errors returns a snapshot of every error recorded so far.
func (r *Recorder) Errors() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorRecord, len(r.errors))
	copy(out, r.errors)
	return out
}

func attrsToFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	return fields
}

// NoopSink discards every event. It exists so pipeline components can be
// exercised in isolation without standing up a real Recorder.
type NoopSink struct{}

func (NoopSink) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
}

func (NoopSink) RecordAssetFetch(assetUrl string, httpStatus int, duration time.Duration, retryCount int) {
}

func (NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (NoopSink) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, errorString string, attrs []Attribute) {
}
