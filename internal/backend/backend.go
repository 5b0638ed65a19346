package backend

/*
Responsibilities

- Fetch one URL into a BackendResult, whatever the transport
- Decide whether a BackendResult is acceptable (status + content-type)
- Extract a lightweight metadata view from an accepted result

A Backend never rate-limits or caches: that is the Crawl Engine's job.
HTTPBackend does retry: its fetcher re-attempts retryable failures up to
the configured max attempts before Crawl returns. A Backend only ever
returns a BackendResult, never an error past its boundary.
*/

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/internal/fetcher"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

// Backend is the capability set every fetch strategy implements.
type Backend interface {
	Name() string
	Crawl(ctx context.Context, target url.URL, cfg config.Config, crawlDepth int) BackendResult
	Validate(result BackendResult) bool
	Process(result BackendResult) map[string]any
}

// HTTPBackend is the minimum required Backend: an HTTP(S) fetcher with a
// reusable connection pool, timeout, and user-agent, delegated to the
// existing fetcher.Fetcher.
type HTTPBackend struct {
	fetcher fetcher.Fetcher
}

func NewHTTPBackend(f fetcher.Fetcher) *HTTPBackend {
	return &HTTPBackend{fetcher: f}
}

func (b *HTTPBackend) Name() string { return "http" }

// Crawl never throws past its boundary: transport failures are mapped to
// synthetic statuses on the returned BackendResult.
func (b *HTTPBackend) Crawl(ctx context.Context, target url.URL, cfg config.Config, crawlDepth int) BackendResult {
	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fetchParam := fetcher.NewFetchParam(target, cfg.UserAgent())
	retryParam := retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
	)

	result, err := b.fetcher.Fetch(ctx, crawlDepth, fetchParam, retryParam)
	if err != nil {
		status := StatusUnexpectedError
		if ctx.Err() == context.DeadlineExceeded {
			status = StatusTimeout
		} else if err.Severity() == failure.SeverityRecoverable {
			status = StatusConnectionError
		}
		return NewBackendResult(target, status, map[string]string{}, nil, err.Error(), time.Now())
	}

	return NewBackendResult(result.URL(), result.Code(), result.Headers(), result.Body(), "", result.FetchedAt())
}

func (b *HTTPBackend) Validate(result BackendResult) bool {
	return result.IsSuccess()
}

func (b *HTTPBackend) Process(result BackendResult) map[string]any {
	contentType, _ := result.Header("Content-Type")
	return map[string]any{
		"status":       result.Status(),
		"content_type": contentType,
		"size":         len(result.Body()),
	}
}

// FileBackend serves file:// URLs by path resolution. A directory target
// maps to its index.html.
type FileBackend struct{}

func NewFileBackend() *FileBackend { return &FileBackend{} }

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Crawl(ctx context.Context, target url.URL, cfg config.Config, crawlDepth int) BackendResult {
	path := target.Path
	if host := strings.TrimSpace(target.Host); host != "" {
		path = "/" + host + path
	}

	info, statErr := os.Stat(path)
	if statErr == nil && info.IsDir() {
		path = filepath.Join(path, "index.html")
	}

	body, readErr := os.ReadFile(path)
	if readErr != nil {
		status := StatusUnexpectedError
		if os.IsNotExist(readErr) {
			status = 404
		}
		return NewBackendResult(target, status, map[string]string{}, nil, readErr.Error(), time.Now())
	}

	headers := map[string]string{"Content-Type": contentTypeForExt(filepath.Ext(path))}
	return NewBackendResult(target, 200, headers, body, "", time.Now())
}

func (b *FileBackend) Validate(result BackendResult) bool {
	return result.IsSuccess()
}

func (b *FileBackend) Process(result BackendResult) map[string]any {
	contentType, _ := result.Header("Content-Type")
	return map[string]any{
		"status":       result.Status(),
		"content_type": contentType,
		"size":         len(result.Body()),
	}
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	case ".rst":
		return "text/x-rst"
	case ".adoc", ".asciidoc":
		return "text/asciidoc"
	default:
		return "application/octet-stream"
	}
}
