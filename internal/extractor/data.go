package extractor

import "golang.org/x/net/html"

// ExtractionResult holds the extraction outcome.
// DocumentRoot is the original parsed HTML document.
// ContentNode is the extracted meaningful content node (semantic container).
type ExtractionResult struct {
	DocumentRoot *html.Node
	ContentNode  *html.Node
}

// ContentScoreMultiplier weights the signals calculateContentScore sums over
// a candidate container.
type ContentScoreMultiplier struct {
	NonWhitespaceDivisor float64
	Paragraphs           float64
	Headings             float64
	CodeBlocks           float64
	ListItems            float64
}

// MeaningfulThreshold governs isMeaningful's accept/reject decision for a
// candidate node.
type MeaningfulThreshold struct {
	MinNonWhitespace    int
	MinHeadings         int
	MinParagraphsOrCode int
	MaxLinkDensity      float64
}

// ExtractParam tunes the heuristic layers of DomExtractor. The zero value is
// not usable; construct one via DefaultExtractParam or a config-derived copy
// of it.
type ExtractParam struct {
	BodySpecificityBias  float64
	LinkDensityThreshold float64
	ScoreMultiplier      ContentScoreMultiplier
	Threshold            MeaningfulThreshold
	KeepComments         bool
}

// DefaultExtractParam returns the extraction tuning used when a caller
// doesn't supply its own, matching config.Config's own defaults.
func DefaultExtractParam() ExtractParam {
	return ExtractParam{
		BodySpecificityBias:  0.75,
		LinkDensityThreshold: 0.80,
		ScoreMultiplier: ContentScoreMultiplier{
			NonWhitespaceDivisor: 50.0,
			Paragraphs:           5.0,
			Headings:             10.0,
			CodeBlocks:           15.0,
			ListItems:            2.0,
		},
		Threshold: MeaningfulThreshold{
			MinNonWhitespace:    50,
			MinHeadings:         0,
			MinParagraphsOrCode: 1,
			MaxLinkDensity:      0.8,
		},
		KeepComments: false,
	}
}
