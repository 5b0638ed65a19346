package quality_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/format"
	"github.com/rohmanhakim/docs-crawler/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestCheck_FlagsShortContentAndMissingHeadings(t *testing.T) {
	checker := quality.NewChecker(quality.DefaultQualityConfig())
	content := format.NewProcessedContent(
		mustURL(t, "https://docs.example.com/page"),
		"Page", "short", nil, nil, nil, format.AssetInventory{},
		map[string]string{"title": "Page", "description": "d"},
		nil, "html", time.Now(),
	)

	issues, metrics := checker.Check(content)

	assert.Equal(t, 5, metrics["content_length"])
	assert.Equal(t, 0, metrics["heading_count"])

	var types []quality.IssueType
	for _, i := range issues {
		types = append(types, i.Type)
	}
	assert.Contains(t, types, quality.IssueContentLength)
	assert.Contains(t, types, quality.IssueHeadingStructure)
}

func TestCheck_FlagsMissingRequiredMetadata(t *testing.T) {
	checker := quality.NewChecker(quality.DefaultQualityConfig())
	longBody := make([]byte, 200)
	for i := range longBody {
		longBody[i] = 'x'
	}
	content := format.NewProcessedContent(
		mustURL(t, "https://docs.example.com/page"),
		"Page", string(longBody),
		[]format.Heading{{Level: 1, Text: "Intro"}},
		nil, nil, format.AssetInventory{},
		map[string]string{},
		nil, "html", time.Now(),
	)

	issues, _ := checker.Check(content)

	found := false
	for _, i := range issues {
		if i.Type == quality.IssueMetadata && i.Message == "missing required metadata field: title" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheck_CountsInternalLinksByRegisteredDomain(t *testing.T) {
	checker := quality.NewChecker(quality.DefaultQualityConfig())
	longBody := make([]byte, 200)
	for i := range longBody {
		longBody[i] = 'x'
	}
	content := format.NewProcessedContent(
		mustURL(t, "https://docs.example.com/page"),
		"Page", string(longBody),
		[]format.Heading{{Level: 1, Text: "Intro"}},
		nil,
		[]string{
			"https://docs.example.com/other",
			"https://docs.example.com/another",
			"https://external.org/page",
		},
		format.AssetInventory{},
		map[string]string{"title": "Page", "description": "d"},
		nil, "html", time.Now(),
	)

	issues, metrics := checker.Check(content)

	assert.Equal(t, 2, metrics["internal_link_count"])
	for _, i := range issues {
		assert.NotEqual(t, quality.IssueLinkCount, i.Type)
	}
}

func TestCheck_FlagsOutOfRangeCodeBlocks(t *testing.T) {
	cfg := quality.DefaultQualityConfig()
	cfg.MinContentLength = 0
	cfg.MinHeadings = 0
	cfg.MinInternalLinks = 0
	cfg.RequiredMetadata = nil
	checker := quality.NewChecker(cfg)

	content := format.NewProcessedContent(
		mustURL(t, "https://docs.example.com/page"),
		"Page", "body",
		nil,
		[]format.OutlineNode{{Kind: format.OutlineCode, Text: "x", Language: "go"}},
		nil, format.AssetInventory{}, map[string]string{}, nil, "html", time.Now(),
	)

	issues, metrics := checker.Check(content)

	assert.Equal(t, 1, metrics["code_block_count"])
	require.Len(t, issues, 1)
	assert.Equal(t, quality.IssueCodeBlockLength, issues[0].Type)
}
