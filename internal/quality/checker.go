package quality

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/format"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

/*
Responsibilities
- Evaluate a processed document's markdown length, heading structure,
  internal link count, code block length, and required metadata against a
  QualityConfig
- Emit metrics regardless of whether any issue fired

Every check is independent: one failing check never short-circuits the
others, so a single call to Check always returns the complete issue list
and metrics map for a document.
*/

type Checker struct {
	config QualityConfig
}

func NewChecker(config QualityConfig) Checker {
	return Checker{config: config}
}

func (c Checker) Check(content format.ProcessedContent) ([]QualityIssue, map[string]int) {
	var issues []QualityIssue
	metrics := make(map[string]int)

	contentLength := len(content.Markdown())
	metrics["content_length"] = contentLength
	if contentLength < c.config.MinContentLength {
		issues = append(issues, NewQualityIssue(
			IssueContentLength, LevelError,
			fmt.Sprintf("content length (%d) is below minimum (%d)", contentLength, c.config.MinContentLength),
		).WithLocation("body"))
	} else if c.config.MaxContentLength > 0 && contentLength > c.config.MaxContentLength {
		issues = append(issues, NewQualityIssue(
			IssueContentLength, LevelWarning,
			fmt.Sprintf("content length (%d) exceeds maximum (%d)", contentLength, c.config.MaxContentLength),
		).WithLocation("body"))
	}

	headings := content.Headings()
	metrics["heading_count"] = len(headings)
	if len(headings) < c.config.MinHeadings {
		issues = append(issues, NewQualityIssue(
			IssueHeadingStructure, LevelError,
			fmt.Sprintf("too few headings (%d), minimum is %d", len(headings), c.config.MinHeadings),
		))
	}
	for _, h := range headings {
		if h.Level > c.config.MaxHeadingLevel {
			issues = append(issues, NewQualityIssue(
				IssueHeadingStructure, LevelWarning,
				fmt.Sprintf("heading level %d exceeds maximum %d", h.Level, c.config.MaxHeadingLevel),
			).WithDetail("text", h.Text))
		}
	}

	internalLinks := countInternalLinks(content)
	metrics["internal_link_count"] = internalLinks
	if internalLinks < c.config.MinInternalLinks {
		issues = append(issues, NewQualityIssue(
			IssueLinkCount, LevelWarning,
			fmt.Sprintf("too few internal links (%d), minimum is %d", internalLinks, c.config.MinInternalLinks),
		))
	}

	codeBlocks := codeBlockNodes(content)
	metrics["code_block_count"] = len(codeBlocks)
	for _, block := range codeBlocks {
		length := len(block.Text)
		switch {
		case length < c.config.MinCodeBlockLength:
			issues = append(issues, NewQualityIssue(
				IssueCodeBlockLength, LevelWarning,
				fmt.Sprintf("code block too short (%d chars), minimum is %d", length, c.config.MinCodeBlockLength),
			).WithDetail("language", block.Language))
		case c.config.MaxCodeBlockLength > 0 && length > c.config.MaxCodeBlockLength:
			issues = append(issues, NewQualityIssue(
				IssueCodeBlockLength, LevelWarning,
				fmt.Sprintf("code block too long (%d chars), maximum is %d", length, c.config.MaxCodeBlockLength),
			).WithDetail("language", block.Language))
		}
	}

	for _, field := range c.config.RequiredMetadata {
		if _, ok := content.Metadata()[field]; !ok {
			issues = append(issues, NewQualityIssue(
				IssueMetadata, LevelError,
				fmt.Sprintf("missing required metadata field: %s", field),
			))
		}
	}

	return issues, metrics
}

// countInternalLinks classifies each link against the document's source URL
// using the same registered-domain comparison the URL model uses elsewhere,
// since ProcessedContent only ever carries absolute URLs.
func countInternalLinks(content format.ProcessedContent) int {
	source := content.SourceURL()
	base := urlutil.Parse(source.String(), nil)
	if !base.IsValid() {
		return 0
	}

	count := 0
	for _, link := range content.Links() {
		candidate := urlutil.Parse(link, &base)
		if candidate.IsValid() && candidate.Classification() == urlutil.ClassificationInternal {
			count++
		}
	}
	return count
}

func codeBlockNodes(content format.ProcessedContent) []format.OutlineNode {
	var blocks []format.OutlineNode
	for _, node := range content.Outline() {
		if node.Kind == format.OutlineCode {
			blocks = append(blocks, node)
		}
	}
	return blocks
}
