package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/normalize"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/fileutil"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
)

/*
Responsibilities
- Persist Markdown files
- Write assets
- Ensure deterministic filenames

Output Characteristics
- Stable directory layout
- Idempotent writes (same library+section+index overwrites the same file)
- Overwrite-safe reruns

Filename is "{library}_{section-slug}_{index:03d}.md"; the section-slug is
derived from the normalized document's canonical URL path, keeping only
[A-Za-z0-9_-] and mapping "/" to "_". The index is a per-(library, section)
sequence this sink assigns in write order, so re-running a crawl against an
unchanged site reproduces the same filenames.
*/

type Sink interface {
	Write(
		outputDir string,
		library string,
		normalizedDoc normalize.NormalizedMarkdownDoc,
		hashAlgo hashutil.HashAlgo,
	) (WriteResult, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
	mu           sync.Mutex
	sectionIndex map[string]int
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
) LocalSink {
	return LocalSink{
		metadataSink: metadataSink,
		sectionIndex: map[string]int{},
	}
}

// NewSink wires a LocalSink behind the Sink interface, the form callers that
// only depend on Sink (not the concrete LocalSink) construct it through.
func NewSink(metadataSink metadata.MetadataSink) Sink {
	sink := NewLocalSink(metadataSink)
	return &sink
}

func (s *LocalSink) Write(
	outputDir string,
	library string,
	normalizedDoc normalize.NormalizedMarkdownDoc,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	slug := sectionSlug(normalizedDoc.Frontmatter().CanonicalURL())
	index := s.nextIndex(library, slug)

	writeResult, err := write(outputDir, library, slug, index, normalizedDoc, hashAlgo)
	if err != nil {
		var storageError *StorageError
		errors.As(err, &storageError)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, normalizedDoc.Frontmatter().SourceURL()),
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactMarkdown,
		writeResult.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, writeResult.Path()),
			metadata.NewAttr(metadata.AttrURL, normalizedDoc.Frontmatter().SourceURL()),
			metadata.NewAttr(metadata.AttrField, writeResult.URLHash()),
			metadata.NewAttr(metadata.AttrField, writeResult.ContentHash()),
		},
	)
	return writeResult, nil
}

// nextIndex hands out a 1-based, per-(library, section) sequence number.
func (s *LocalSink) nextIndex(library, slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := library + "/" + slug
	s.sectionIndex[key]++
	return s.sectionIndex[key]
}

var nonSlugChar = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sectionSlug turns a canonical URL's path into the section component of a
// filename: "/" becomes "_", everything outside [A-Za-z0-9_-] is dropped.
func sectionSlug(canonicalURL string) string {
	path := canonicalURL
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	if idx := strings.Index(path, "/"); idx >= 0 {
		path = path[idx+1:]
	} else {
		path = ""
	}
	path = strings.Trim(path, "/")
	slug := strings.ReplaceAll(path, "/", "_")
	slug = nonSlugChar.ReplaceAllString(slug, "")
	if slug == "" {
		slug = "index"
	}
	return slug
}

func write(
	outputDir string,
	library string,
	slug string,
	index int,
	normalizedDoc normalize.NormalizedMarkdownDoc,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	canonicalURL := normalizedDoc.Frontmatter().CanonicalURL()

	// Identity hash, kept for metadata/dedup even though it no longer
	// appears in the filename itself.
	urlHashFull, err := hashutil.HashBytes([]byte(canonicalURL), hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
			Path:      "",
		}
	}
	urlHash := urlHashFull[:12]

	if err := fileutil.EnsureDir(outputDir); err != nil {
		var fileErr *fileutil.FileError
		if errors.As(err, &fileErr) {
			cause := ErrCauseWriteFailure
			retryable := false
			if fileErr.Cause == fileutil.ErrCausePathError {
				// Could be disk full or permission issue
				cause = ErrCausePathError
				retryable = true // disk full is retryable
			}
			return WriteResult{}, &StorageError{
				Message:   err.Error(),
				Retryable: retryable,
				Cause:     cause,
				Path:      outputDir,
			}
		}
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      outputDir,
		}
	}

	filename := fmt.Sprintf("%s_%s_%03d.md", safeFilenameComponent(library), slug, index)
	fullPath := filepath.Join(outputDir, filename)

	content := renderDocument(normalizedDoc)
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		// Check if it's a disk full error (ENOSPC)
		if errors.Is(err, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true // disk full is retryable
		}
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      fullPath,
		}
	}

	contentHash := normalizedDoc.Frontmatter().ContentHash()

	writeResult := NewWriteResult(urlHash, fullPath, contentHash)
	return writeResult, nil
}

func safeFilenameComponent(s string) string {
	s = nonSlugChar.ReplaceAllString(s, "")
	if s == "" {
		return "library"
	}
	return s
}

// renderDocument assembles the on-disk file: a title header, a metadata
// block of "**Key:** value" lines, a rule, then the Content Processor's
// markdown body.
func renderDocument(normalizedDoc normalize.NormalizedMarkdownDoc) []byte {
	fm := normalizedDoc.Frontmatter()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", fm.Title())
	fmt.Fprintf(&b, "**Source:** %s\n", fm.SourceURL())
	fmt.Fprintf(&b, "**Canonical URL:** %s\n", fm.CanonicalURL())
	fmt.Fprintf(&b, "**Crawl Depth:** %d\n", fm.CrawlDepth())
	fmt.Fprintf(&b, "**Section:** %s\n", fm.Section())
	fmt.Fprintf(&b, "**Document ID:** %s\n", fm.DocID())
	fmt.Fprintf(&b, "**Content Hash:** %s\n", fm.ContentHash())
	fmt.Fprintf(&b, "**Fetched At:** %s\n", fm.FetchedAt().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Crawler Version:** %s\n", fm.CrawlerVersion())
	b.WriteString("\n---\n\n")
	b.Write(normalizedDoc.Content())

	return []byte(b.String())
}
